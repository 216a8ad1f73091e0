package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeMac(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"aa:bb:cc:dd:ee:ff", "AA:BB:CC:DD:EE:FF"},
		{"AA-BB-CC-DD-EE-FF", "AA:BB:CC:DD:EE:FF"},
		{"aa.bb.cc.dd.ee.ff", "AA:BB:CC:DD:EE:FF"},
		{"aabbccddeeff", "AA:BB:CC:DD:EE:FF"},
		{" 00:1A:2b:3C:4d:5E ", "00:1A:2B:3C:4D:5E"},
	}
	for _, tc := range cases {
		got, err := NormalizeMac(tc.in)
		if err != nil {
			t.Fatalf("NormalizeMac(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeMac(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeMacRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "not-a-mac", "aa:bb:cc:dd:ee", "aa:bb:cc:dd:ee:ff:00", "zz:bb:cc:dd:ee:ff"} {
		if _, err := NormalizeMac(in); !errors.Is(err, ErrInvalidMac) {
			t.Fatalf("NormalizeMac(%q) = %v, want ErrInvalidMac", in, err)
		}
	}
}

func TestSeverityTable(t *testing.T) {
	severity, ok := SeverityFor(EventBadSignature)
	if !ok || severity != SeverityHigh {
		t.Fatalf("bad_signature severity = %v ok=%v, want high", severity, ok)
	}
	if _, ok := SeverityFor(SecurityEventType("made_up")); ok {
		t.Fatal("unknown event type must not have a severity")
	}
}

func TestSessionStateAt(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	session := DeviceSession{
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
	if got := session.StateAt(now.Add(time.Second)); got != SessionStateActive {
		t.Fatalf("state = %v, want active", got)
	}
	if got := session.StateAt(session.ExpiresAt); got != SessionStateExpired {
		t.Fatalf("state at expiry = %v, want expired", got)
	}
	session.IsRevoked = true
	if got := session.StateAt(now); got != SessionStateRevoked {
		t.Fatalf("revoked state = %v, want revoked", got)
	}
}

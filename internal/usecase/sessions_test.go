package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"vendtrustd/internal/domain"
)

func TestIssueRequiresActiveIdentity(t *testing.T) {
	f := newFixture(t)
	if _, err := f.sessions.Issue(context.Background(), "VM-404", "10.0.0.5", 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown machine: err = %v, want ErrNotFound", err)
	}

	f.provision(t)
	if err := f.registry.Revoke(context.Background(), testMachine, "ops"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := f.sessions.Issue(context.Background(), testMachine, "10.0.0.5", 0); !errors.Is(err, domain.ErrIdentityNotActive) {
		t.Fatalf("revoked machine: err = %v, want ErrIdentityNotActive", err)
	}
}

func TestSessionLifetime(t *testing.T) {
	f := newFixture(t)
	f.provision(t)

	session, err := f.sessions.Issue(context.Background(), testMachine, "10.0.0.5", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !session.ExpiresAt.Equal(f.now.Add(time.Hour)) {
		t.Fatalf("expires_at = %v, want %v", session.ExpiresAt, f.now.Add(time.Hour))
	}

	if _, err := f.sessions.Validate(context.Background(), session.SessionID); err != nil {
		t.Fatalf("validate: %v", err)
	}

	// Expiry is lazy: no reaper runs, the clock alone decides.
	f.now = f.now.Add(time.Hour)
	if _, err := f.sessions.Validate(context.Background(), session.SessionID); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
}

func TestHeartbeatFixedLifetime(t *testing.T) {
	f := newFixture(t)
	f.provision(t)
	session, _ := f.sessions.Issue(context.Background(), testMachine, "10.0.0.5", time.Hour)

	f.now = f.now.Add(30 * time.Minute)
	updated, err := f.sessions.Heartbeat(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if updated.LastSeenAt == nil || !updated.LastSeenAt.Equal(f.now) {
		t.Fatal("heartbeat must record last_seen_at")
	}
	if !updated.ExpiresAt.Equal(session.ExpiresAt) {
		t.Fatal("without the sliding policy a heartbeat must not extend the lifetime")
	}
}

func TestHeartbeatSlidingExtends(t *testing.T) {
	f := newFixture(t)
	f.provision(t)
	f.sessions.Sliding = true
	session, _ := f.sessions.Issue(context.Background(), testMachine, "10.0.0.5", time.Hour)

	f.now = f.now.Add(45 * time.Minute)
	updated, err := f.sessions.Heartbeat(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if !updated.ExpiresAt.Equal(f.now.Add(time.Hour)) {
		t.Fatalf("expires_at = %v, want %v", updated.ExpiresAt, f.now.Add(time.Hour))
	}

	// The extension is real: the original deadline passes without expiry.
	f.now = f.now.Add(50 * time.Minute)
	if _, err := f.sessions.Validate(context.Background(), session.SessionID); err != nil {
		t.Fatalf("validate after extension: %v", err)
	}
}

func TestSingleActivePolicy(t *testing.T) {
	f := newFixture(t)
	f.provision(t)
	f.sessions.SingleActive = true

	first, _ := f.sessions.Issue(context.Background(), testMachine, "10.0.0.5", 0)
	second, err := f.sessions.Issue(context.Background(), testMachine, "10.0.0.5", 0)
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if _, err := f.sessions.Validate(context.Background(), first.SessionID); !errors.Is(err, domain.ErrSessionRevoked) {
		t.Fatalf("first session: err = %v, want ErrSessionRevoked", err)
	}
	if _, err := f.sessions.Validate(context.Background(), second.SessionID); err != nil {
		t.Fatalf("second session must stay valid: %v", err)
	}
}

func TestRevokeSessionIdempotent(t *testing.T) {
	f := newFixture(t)
	f.provision(t)
	session, _ := f.sessions.Issue(context.Background(), testMachine, "10.0.0.5", 0)

	if err := f.sessions.Revoke(context.Background(), session.SessionID, "ops"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := f.sessions.Revoke(context.Background(), session.SessionID, "ops"); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if err := f.sessions.Revoke(context.Background(), "nope", "ops"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown session: err = %v, want ErrNotFound", err)
	}

	count := 0
	for _, got := range f.eventTypes(t) {
		if got == domain.EventSessionRevoked {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("session_revoked events = %d, want 1", count)
	}
}

func TestReapPurgesOnlyLongExpired(t *testing.T) {
	f := newFixture(t)
	f.provision(t)
	old, _ := f.sessions.Issue(context.Background(), testMachine, "10.0.0.5", time.Hour)

	f.now = f.now.Add(30 * time.Hour)
	fresh, _ := f.sessions.Issue(context.Background(), testMachine, "10.0.0.5", time.Hour)

	purged, err := f.sessions.Reap(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if purged != 1 {
		t.Fatalf("purged = %d, want 1", purged)
	}
	if _, err := f.sessions.Validate(context.Background(), old.SessionID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("old session: err = %v, want ErrNotFound after purge", err)
	}
	if _, err := f.sessions.Validate(context.Background(), fresh.SessionID); err != nil {
		t.Fatalf("fresh session: %v", err)
	}
}

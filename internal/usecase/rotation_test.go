package usecase_test

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"vendtrustd/internal/domain"
	"vendtrustd/internal/infra/hmacsig"
	"vendtrustd/internal/usecase"
)

func TestRotateReplacesSecret(t *testing.T) {
	f := newFixture(t)
	first := f.provision(t)

	fingerprint, err := f.rotator.Rotate(context.Background(), testMachine, "ops", "scheduled")
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if fingerprint == first.Identity.CertFingerprint {
		t.Fatal("rotation must produce a new fingerprint")
	}

	identity, err := f.registry.Get(context.Background(), testMachine)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if identity.CertFingerprint != fingerprint {
		t.Fatalf("stored fingerprint = %s, want %s", identity.CertFingerprint, fingerprint)
	}
	if !f.hasEvent(t, domain.EventKeyRotated) {
		t.Fatal("expected key_rotated event")
	}
}

func TestRotateInvalidatesOldSecret(t *testing.T) {
	f := newFixture(t)
	first := f.provision(t)
	oldSecret, err := hex.DecodeString(first.Secret)
	if err != nil {
		t.Fatalf("decode secret: %v", err)
	}

	if _, err := f.rotator.Rotate(context.Background(), testMachine, "ops", "scheduled"); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	payload := []byte(`{"data":{"uptime":120},"meta":{"nonce":"0123456789abcdef","timestamp":1705491082}}`)
	sig, err := hmacsig.Sign(oldSecret, payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := f.registry.Verify(context.Background(), testMachine, testMac, sig, payload); !errors.Is(err, domain.ErrBadSignature) {
		t.Fatalf("verify with pre-rotation secret: err = %v, want ErrBadSignature", err)
	}

	events, err := f.events.List(context.Background(), false)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	count := 0
	for _, event := range events {
		if event.EventType == domain.EventBadSignature {
			count++
			if event.Severity != domain.SeverityHigh {
				t.Fatalf("bad_signature severity = %s, want high", event.Severity)
			}
		}
	}
	if count != 1 {
		t.Fatalf("bad_signature events = %d, want 1", count)
	}
}

func TestRotationChainAndMonotonicity(t *testing.T) {
	f := newFixture(t)
	f.provision(t)

	for i := 0; i < 3; i++ {
		if _, err := f.rotator.Rotate(context.Background(), testMachine, "ops", "scheduled"); err != nil {
			t.Fatalf("rotate %d: %v", i, err)
		}
	}

	rotations, err := f.rotator.List(context.Background(), testMachine)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rotations) != 4 {
		t.Fatalf("rotation records = %d, want 4", len(rotations))
	}
	for i := 1; i < len(rotations); i++ {
		prev, cur := rotations[i-1], rotations[i]
		if cur.OldKeyFingerprint == nil || *cur.OldKeyFingerprint != prev.NewKeyFingerprint {
			t.Fatalf("record %d does not chain to its predecessor", i)
		}
		if !cur.RotatedAt.After(prev.RotatedAt) {
			t.Fatalf("rotated_at not strictly increasing at record %d", i)
		}
	}
}

func TestRotateCascadesSessions(t *testing.T) {
	f := newFixture(t)
	f.provision(t)
	session, err := f.sessions.Issue(context.Background(), testMachine, "10.0.0.5", 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := f.rotator.Rotate(context.Background(), testMachine, "ops", "compromise"); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, err := f.sessions.Validate(context.Background(), session.SessionID); !errors.Is(err, domain.ErrSessionRevoked) {
		t.Fatalf("err = %v, want ErrSessionRevoked after rotation", err)
	}
}

func TestRotateGuards(t *testing.T) {
	f := newFixture(t)
	if _, err := f.rotator.Rotate(context.Background(), "VM-404", "ops", "scheduled"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown machine: err = %v, want ErrNotFound", err)
	}

	f.provision(t)
	if err := f.registry.Revoke(context.Background(), testMachine, "ops"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := f.rotator.Rotate(context.Background(), testMachine, "ops", "scheduled"); !errors.Is(err, domain.ErrIdentityRevoked) {
		t.Fatalf("revoked machine: err = %v, want ErrIdentityRevoked", err)
	}
}

func TestRotateDetectsConcurrentSwap(t *testing.T) {
	f := newFixture(t)
	f.provision(t)

	// Simulate a racing rotation that swapped the secret between the read
	// and the write.
	err := f.store.RotateSecret(context.Background(), usecase.RotateSecretParams{
		MachineID:         testMachine,
		ExpectFingerprint: "not-the-current-fingerprint",
		Secret:            []byte("whatever"),
		Rotation:          domain.KeyRotationRecord{MachineID: testMachine, NewKeyFingerprint: "x"},
	})
	if !errors.Is(err, domain.ErrConcurrentRotation) {
		t.Fatalf("err = %v, want ErrConcurrentRotation", err)
	}
}

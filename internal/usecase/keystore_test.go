package usecase_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"vendtrustd/internal/domain"
	"vendtrustd/internal/infra/hmacsig"
	"vendtrustd/internal/infra/memstore"
	"vendtrustd/internal/usecase"
)

func seedSecret(t *testing.T, store *memstore.Store, secret []byte) string {
	t.Helper()
	fingerprint := hmacsig.Fingerprint(secret)
	err := store.ProvisionIdentity(context.Background(), domain.MachineIdentity{
		MachineID:       testMachine,
		MacAddress:      testMac,
		CertFingerprint: fingerprint,
		Status:          domain.IdentityStatusActive,
		ProvisionedAt:   time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}, secret, domain.KeyRotationRecord{
		RotationID:        "r-1",
		MachineID:         testMachine,
		NewKeyFingerprint: fingerprint,
		Reason:            domain.RotationReasonInitial,
	})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	return fingerprint
}

func swapSecret(t *testing.T, store *memstore.Store, expectFingerprint string, secret []byte) {
	t.Helper()
	err := store.RotateSecret(context.Background(), usecase.RotateSecretParams{
		MachineID:         testMachine,
		ExpectFingerprint: expectFingerprint,
		Secret:            secret,
		Rotation: domain.KeyRotationRecord{
			RotationID:        "r-2",
			MachineID:         testMachine,
			NewKeyFingerprint: hmacsig.Fingerprint(secret),
			Reason:            "scheduled",
		},
	})
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
}

func TestKeyStoreCacheExpiresAfterTTL(t *testing.T) {
	store := memstore.New()
	oldSecret := []byte("secret-one")
	fingerprint := seedSecret(t, store, oldSecret)

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	keys := usecase.NewKeyStore(store)
	keys.Clock = func() time.Time { return now }

	got, err := keys.SecretFor(context.Background(), testMachine)
	if err != nil {
		t.Fatalf("secret for: %v", err)
	}
	if !bytes.Equal(got, oldSecret) {
		t.Fatal("first read must return the stored secret")
	}

	// Secret rotates behind the cache, as if another replica did it.
	newSecret := []byte("secret-two")
	swapSecret(t, store, fingerprint, newSecret)

	got, _ = keys.SecretFor(context.Background(), testMachine)
	if !bytes.Equal(got, oldSecret) {
		t.Fatal("fresh entry must still serve from cache")
	}

	now = now.Add(keys.TTL + time.Second)
	got, _ = keys.SecretFor(context.Background(), testMachine)
	if !bytes.Equal(got, newSecret) {
		t.Fatal("expired entry must be re-read from storage")
	}
}

func TestKeyStoreInvalidateDropsImmediately(t *testing.T) {
	store := memstore.New()
	oldSecret := []byte("secret-one")
	fingerprint := seedSecret(t, store, oldSecret)

	keys := usecase.NewKeyStore(store)
	if _, err := keys.SecretFor(context.Background(), testMachine); err != nil {
		t.Fatalf("secret for: %v", err)
	}

	newSecret := []byte("secret-two")
	swapSecret(t, store, fingerprint, newSecret)
	keys.Invalidate(testMachine)

	got, err := keys.SecretFor(context.Background(), testMachine)
	if err != nil {
		t.Fatalf("secret for: %v", err)
	}
	if !bytes.Equal(got, newSecret) {
		t.Fatal("invalidated entry must be re-read from storage")
	}
}

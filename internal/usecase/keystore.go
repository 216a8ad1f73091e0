package usecase

import (
	"context"
	"sync"
	"time"
)

// DefaultSecretTTL bounds how long a cached secret may be served without a
// re-read from storage.
const DefaultSecretTTL = time.Minute

// KeyStore serves secret material for the verification hot path through a
// read-through cache, so a signature check never leaves local memory once a
// machine has authenticated. Mutating operations call Invalidate for an
// immediate local drop; entries additionally expire after TTL, so replicas
// that never saw the invalidation converge on a rotated secret within TTL.
type KeyStore struct {
	Store IdentityStore
	// TTL <= 0 disables expiry; Invalidate is then the only refresh path.
	TTL   time.Duration
	Clock Clock

	mu    sync.RWMutex
	cache map[string]cachedSecret
}

type cachedSecret struct {
	secret    []byte
	fetchedAt time.Time
}

func NewKeyStore(store IdentityStore) *KeyStore {
	return &KeyStore{
		Store: store,
		TTL:   DefaultSecretTTL,
		cache: make(map[string]cachedSecret),
	}
}

func (k *KeyStore) SecretFor(ctx context.Context, machineID string) ([]byte, error) {
	now := k.now()
	k.mu.RLock()
	entry, ok := k.cache[machineID]
	k.mu.RUnlock()
	if ok && (k.TTL <= 0 || now.Sub(entry.fetchedAt) < k.TTL) {
		return entry.secret, nil
	}

	stored, err := k.Store.GetSecret(ctx, machineID)
	if err != nil {
		return nil, err
	}
	copied := append([]byte(nil), stored.Secret...)

	k.mu.Lock()
	k.cache[machineID] = cachedSecret{secret: copied, fetchedAt: now}
	k.mu.Unlock()
	return copied, nil
}

func (k *KeyStore) Invalidate(machineID string) {
	k.mu.Lock()
	delete(k.cache, machineID)
	k.mu.Unlock()
}

func (k *KeyStore) now() time.Time {
	if k.Clock != nil {
		return k.Clock()
	}
	return time.Now().UTC()
}

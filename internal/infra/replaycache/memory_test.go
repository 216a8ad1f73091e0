package replaycache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheRejectsReplay(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	cache := NewMemoryCache(MemoryCacheConfig{Now: func() time.Time { return now }})

	fresh, err := cache.Remember(context.Background(), "VM-001", "nonce-aaaa", 2*time.Minute)
	if err != nil || !fresh {
		t.Fatalf("first use: fresh=%v err=%v", fresh, err)
	}
	fresh, err = cache.Remember(context.Background(), "VM-001", "nonce-aaaa", 2*time.Minute)
	if err != nil || fresh {
		t.Fatalf("replay: fresh=%v err=%v, want rejection", fresh, err)
	}
	// Same nonce from another machine is a different key.
	fresh, err = cache.Remember(context.Background(), "VM-002", "nonce-aaaa", 2*time.Minute)
	if err != nil || !fresh {
		t.Fatalf("other machine: fresh=%v err=%v", fresh, err)
	}
}

func TestMemoryCacheExpiresNonces(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	cache := NewMemoryCache(MemoryCacheConfig{Now: func() time.Time { return now }})

	if fresh, _ := cache.Remember(context.Background(), "VM-001", "nonce-aaaa", time.Minute); !fresh {
		t.Fatal("first use must be fresh")
	}
	now = now.Add(2 * time.Minute)
	if fresh, _ := cache.Remember(context.Background(), "VM-001", "nonce-aaaa", time.Minute); !fresh {
		t.Fatal("expired nonce must be usable again")
	}
}

package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestGuardFixedWindow(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	store := NewMemoryStore().WithClock(clock)
	guard := &Guard{store: store, limit: 5, window: 15 * time.Minute}

	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		allowed, err := guard.Allow(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("Allow returned error: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	allowed, err := guard.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow returned error: %v", err)
	}
	if allowed {
		t.Fatal("6th request inside the window should be rejected")
	}

	t.Run("other clients are unaffected", func(t *testing.T) {
		allowed, err := guard.Allow(ctx, "10.0.0.2")
		if err != nil {
			t.Fatalf("Allow returned error: %v", err)
		}
		if !allowed {
			t.Fatal("a different client must have its own counter")
		}
	})

	t.Run("counter resets at window boundary", func(t *testing.T) {
		now = now.Add(15 * time.Minute)

		allowed, err := guard.Allow(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("Allow returned error: %v", err)
		}
		if !allowed {
			t.Fatal("request after the window elapsed should be allowed")
		}
	})
}

func TestMemoryStoreConcurrentIncrement(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const workers = 50

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := store.Increment(ctx, "burst", time.Minute); err != nil {
				t.Errorf("Increment returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	count, err := store.Increment(ctx, "burst", time.Minute)
	if err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if count != workers+1 {
		t.Fatalf("expected %d recorded requests, got %d", workers+1, count)
	}
}

func TestGuardFailsOpenOnStoreError(t *testing.T) {
	guard := &Guard{store: failingStore{}, limit: 5, window: time.Minute}

	allowed, err := guard.Allow(context.Background(), "10.0.0.1")
	if err == nil {
		t.Fatal("expected the store error to be reported")
	}
	if !allowed {
		t.Fatal("a store failure must not block the request")
	}
}

type failingStore struct{}

func (failingStore) Increment(ctx context.Context, key string, window time.Duration) (int, error) {
	return 0, context.DeadlineExceeded
}

// Package ratelimit bounds the number of requests a single client may make
// against the account-sensitive endpoints within a fixed window.
//
// Counters live in an explicit, injectable Store keyed by client identity,
// not in package-level state, and every check is a single atomic
// increment-and-check so concurrent bursts from the same client cannot
// undercount.
package ratelimit

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"
)

const (
	defaultLimit  = 5
	defaultWindow = 15 * time.Minute
)

// Store persists per-client request counters. Increment atomically records
// one request for the given key and returns the total recorded within the
// currently active window, starting a fresh window when the previous one
// has elapsed.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (int, error)
}

// Guard enforces a fixed-window limit over an injectable Store.
type Guard struct {
	store  Store
	limit  int
	window time.Duration
}

// NewGuard creates a Guard reading its policy from environment variables:
//   - RATE_LIMIT_MAX:    accepted requests per window (default 5)
//   - RATE_LIMIT_WINDOW: window duration, Go format (default "15m")
func NewGuard(store Store) *Guard {
	limit := defaultLimit
	if v := os.Getenv("RATE_LIMIT_MAX"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	window := defaultWindow
	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			window = parsed
		}
	}

	return &Guard{store: store, limit: limit, window: window}
}

// Allow records one request for clientKey and reports whether it fits the
// current window. A store failure is returned to the caller so the
// middleware can decide to fail open.
func (g *Guard) Allow(ctx context.Context, clientKey string) (bool, error) {
	count, err := g.store.Increment(ctx, clientKey, g.window)
	if err != nil {
		return true, err
	}
	return count <= g.limit, nil
}

// Limit returns the configured maximum accepted requests per window.
func (g *Guard) Limit() int { return g.limit }

// Window returns the configured window duration.
func (g *Guard) Window() time.Duration { return g.window }

// ---------------------------------------------
// In-memory store
// ---------------------------------------------

type memoryWindow struct {
	start time.Time
	count int
}

// MemoryStore is a process-local Store. Suitable for single-instance
// deployments and tests; use RedisStore when running more than one replica.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryWindow
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	if now != nil {
		m.now = now
	}
	return m
}

// Increment implements Store. The window is fixed: the first request for a
// key opens it and the counter resets once the window has fully elapsed.
func (m *MemoryStore) Increment(ctx context.Context, key string, window time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	entry, ok := m.entries[key]
	if !ok || now.Sub(entry.start) >= window {
		entry = &memoryWindow{start: now}
		m.entries[key] = entry
	}

	entry.count++
	return entry.count, nil
}

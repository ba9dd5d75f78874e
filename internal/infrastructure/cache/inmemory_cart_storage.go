package cache

import (
	"context"
	"sync"
	"time"

	"github.com/astrogoddess/storefront/internal/domain/cart"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// InMemoryCartStorage keeps serialized carts in a map.
// It suits single-instance deployments and tests; carts do not survive a restart.
type InMemoryCartStorage struct {
	mu        sync.RWMutex
	entries   map[string]entry
	ttl       time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryCartStorage creates the storage. Entries untouched for ttl are
// dropped (ttl 0 keeps them forever); a background sweep runs every
// sweepInterval when it is positive.
func NewInMemoryCartStorage(ttl, sweepInterval time.Duration) *InMemoryCartStorage {
	s := &InMemoryCartStorage{
		entries:  make(map[string]entry),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	if sweepInterval > 0 {
		s.wg.Add(1)
		go s.sweepLoop(sweepInterval)
	}
	return s
}

// Get implements cart.Storage
func (s *InMemoryCartStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || e.expired(s.now()) {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set implements cart.Storage. Each write refreshes the entry's expiry.
func (s *InMemoryCartStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{value: value}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[key] = e
	return nil
}

// Delete implements cart.Storage
func (s *InMemoryCartStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Ping always succeeds
func (s *InMemoryCartStorage) Ping(context.Context) error {
	return nil
}

// Close stops the sweep goroutine. Safe to call multiple times.
func (s *InMemoryCartStorage) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of stored entries, expired ones included until swept
func (s *InMemoryCartStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *InMemoryCartStorage) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *InMemoryCartStorage) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
		}
	}
}

var _ cart.Storage = (*InMemoryCartStorage)(nil)

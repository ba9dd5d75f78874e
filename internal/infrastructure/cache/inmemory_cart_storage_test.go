package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/astrogoddess/storefront/internal/domain/cart"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCartStorage_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryCartStorage(0, 0)
	defer s.Close()

	_, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "k", "[]"))
	value, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "[]", value)

	require.NoError(t, s.Delete(ctx, "k"))
	_, found, _ = s.Get(ctx, "k")
	assert.False(t, found)
	assert.NoError(t, s.Ping(ctx))
}

func TestInMemoryCartStorage_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryCartStorage(time.Hour, 0)
	defer s.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "old", "[]"))
	now = now.Add(30 * time.Minute)
	require.NoError(t, s.Set(ctx, "fresh", "[]"))
	now = now.Add(45 * time.Minute)

	_, found, _ := s.Get(ctx, "old")
	assert.False(t, found)
	_, found, _ = s.Get(ctx, "fresh")
	assert.True(t, found)

	assert.Equal(t, 2, s.Size())
	s.sweep()
	assert.Equal(t, 1, s.Size())
}

func TestInMemoryCartStorage_Close(t *testing.T) {
	s := NewInMemoryCartStorage(time.Minute, time.Millisecond)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestInMemoryCartStorage_ConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryCartStorage(0, 0)
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := cart.SessionKey(string(rune('a' + i)))
			_ = s.Set(ctx, key, "[]")
			_, _, _ = s.Get(ctx, key)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, s.Size())
}

func TestInMemoryCartStorage_BacksCartStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryCartStorage(0, 0)
	defer s.Close()

	store := cart.NewStore(s, cart.SessionKey("sess"))
	store.Add(ctx, cart.LineItem{ID: "a", Name: "A", Price: decimal.NewFromInt(10)})
	store.Add(ctx, cart.LineItem{ID: "a", Name: "A", Price: decimal.NewFromInt(10)})

	reloaded := cart.NewStore(s, cart.SessionKey("sess"))
	reloaded.Load(ctx)
	assert.Equal(t, 2, reloaded.TotalQty())

	other := cart.NewStore(s, cart.SessionKey("other"))
	other.Load(ctx)
	assert.Zero(t, other.Len())
}

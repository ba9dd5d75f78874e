package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/astrogoddess/storefront/internal/domain/cart"
	"github.com/astrogoddess/storefront/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSQLiteStorage(t *testing.T, ttl time.Duration) *GormCartStorage {
	t.Helper()
	db, err := NewSQLiteDatabase(&config.DatabaseConfig{SQLitePath: ":memory:", LogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })
	return NewGormCartStorage(db, ttl)
}

func TestGormCartStorage_SQLite(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStorage(t, 0)

	_, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "k", `[{"id":"a"}]`))
	require.NoError(t, s.Set(ctx, "k", "[]"))

	value, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "[]", value)

	require.NoError(t, s.Delete(ctx, "k"))
	_, found, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, s.Ping(ctx))
}

func TestGormCartStorage_Expiry(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStorage(t, time.Hour)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "stale", "[]"))
	now = now.Add(30 * time.Minute)
	require.NoError(t, s.Set(ctx, "fresh", "[]"))
	now = now.Add(45 * time.Minute)

	_, found, err := s.Get(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, found)

	purged, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, found, err = s.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestGormCartStorage_BacksCartStore(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStorage(t, 0)
	key := cart.SessionKey("visitor")

	store := cart.NewStore(s, key)
	store.Add(ctx, cart.LineItem{ID: "a", Name: "A", Price: decimal.NewFromInt(10)})
	store.Add(ctx, cart.LineItem{ID: "a", Name: "A", Price: decimal.NewFromInt(10)})
	store.Add(ctx, cart.LineItem{ID: "b", Name: "B", Price: decimal.NewFromInt(5)})

	reloaded := cart.NewStore(s, key)
	reloaded.Load(ctx)
	assert.Equal(t, 3, reloaded.TotalQty())
	assert.True(t, reloaded.SubtotalAmount().Equal(decimal.NewFromInt(25)))

	reloaded.Clear(ctx)
	value, found, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "[]", value)
}

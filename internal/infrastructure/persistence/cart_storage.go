package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/astrogoddess/storefront/internal/domain/cart"
	"github.com/astrogoddess/storefront/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCartStorage keeps serialized carts in the cart_entries table
type GormCartStorage struct {
	db  *Database
	ttl time.Duration
	now func() time.Time
}

// NewGormCartStorage creates the storage. Entries expire ttl after their
// last write; ttl 0 keeps them until deleted.
func NewGormCartStorage(db *Database, ttl time.Duration) *GormCartStorage {
	return &GormCartStorage{db: db, ttl: ttl, now: utcNow}
}

// timestamps are stored in UTC since the columns carry no zone
func utcNow() time.Time {
	return time.Now().UTC()
}

// Get implements cart.Storage
func (s *GormCartStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var entry models.CartEntry
	err := s.db.DB.WithContext(ctx).Where("cart_key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cart %s: %w", key, err)
	}
	if entry.Expired(s.now()) {
		return "", false, nil
	}
	return entry.Value, true, nil
}

// Set implements cart.Storage as an upsert on cart_key
func (s *GormCartStorage) Set(ctx context.Context, key, value string) error {
	now := s.now()
	entry := models.CartEntry{
		CartKey:   key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.ttl > 0 {
		expires := now.Add(s.ttl)
		entry.ExpiresAt = &expires
	}

	err := s.db.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cart_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to save cart %s: %w", key, err)
	}
	return nil
}

// Delete implements cart.Storage
func (s *GormCartStorage) Delete(ctx context.Context, key string) error {
	err := s.db.DB.WithContext(ctx).Where("cart_key = ?", key).Delete(&models.CartEntry{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete cart %s: %w", key, err)
	}
	return nil
}

// PurgeExpired removes expired entries and returns how many were removed
func (s *GormCartStorage) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.DB.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now()).
		Delete(&models.CartEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge expired carts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Ping checks the database connection
func (s *GormCartStorage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection
func (s *GormCartStorage) Close() error {
	return s.db.Close()
}

var _ cart.Storage = (*GormCartStorage)(nil)

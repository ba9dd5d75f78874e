package models

import "time"

// CartEntry is one serialized cart, keyed by its storage key
type CartEntry struct {
	CartKey   string     `gorm:"primaryKey;size:191"`
	Value     string     `gorm:"type:text;not null"`
	ExpiresAt *time.Time `gorm:"index"`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CartEntry) TableName() string {
	return "cart_entries"
}

// Expired reports whether the entry is past its expiry at now
func (e *CartEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

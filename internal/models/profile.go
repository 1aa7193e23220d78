package models

import (
	"time"

	"github.com/google/uuid"
)

// Tier is the subscription tier of a profile.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierFree || t == TierPro
}

// Profile is the per-user application row keyed by the derived storage identity.
// Rows are created once and never deleted; only Credits, Tier and UpdatedAt change.
type Profile struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Credits   int       `gorm:"column:credits;not null" json:"credits"`
	Tier      Tier      `gorm:"column:tier;size:32;not null" json:"tier"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

package models

import (
	"time"

	"github.com/google/uuid"
)

// ShadowUser mirrors an external identity inside the storage backend's auth
// subsystem so row-level policies have a user to reference. The password is
// never stored.
type ShadowUser struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email            string     `gorm:"column:email;size:320;not null" json:"email"`
	ExternalID       string     `gorm:"column:external_id;size:255;not null;index" json:"external_id"`
	EmailConfirmedAt *time.Time `gorm:"column:email_confirmed_at" json:"email_confirmed_at,omitempty"`
	CreatedAt        time.Time  `gorm:"column:created_at;not null" json:"created_at"`
}

func (ShadowUser) TableName() string { return "auth_shadow_users" }

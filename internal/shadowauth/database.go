package shadowauth

import (
	"context"
	"errors"
	"time"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DatabaseDirectory keeps shadow users in the service's own database. Used
// when the storage backend has no separate auth admin API.
type DatabaseDirectory struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDatabaseDirectory(db *gorm.DB) *DatabaseDirectory {
	return &DatabaseDirectory{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (d *DatabaseDirectory) LookupUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var row models.ShadowUser
	err := d.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &User{ID: row.ID, Email: row.Email, ExternalID: row.ExternalID}, nil
}

func (d *DatabaseDirectory) CreateUser(ctx context.Context, u NewUser) error {
	now := d.now()
	row := models.ShadowUser{
		ID:         u.ID,
		Email:      u.Email,
		ExternalID: u.ExternalID,
		CreatedAt:  now,
	}
	if u.EmailConfirmed {
		row.EmailConfirmedAt = &now
	}
	res := d.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserExists
	}
	return nil
}

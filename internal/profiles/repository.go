package profiles

import (
	"context"
	"errors"
	"time"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound            = errors.New("profile not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// Update carries the mutable profile columns; nil fields are left untouched.
type Update struct {
	Credits *int
	Tier    *models.Tier
}

// Repository defines persistence operations for profiles
type Repository interface {
	// GetByUserID returns nil, nil when no row exists.
	GetByUserID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	// InsertIfAbsent inserts p unless a row with the same key exists and
	// reports whether this call inserted it.
	InsertIfAbsent(ctx context.Context, p *models.Profile) (bool, error)
	// DecrementCredits subtracts one credit only while credits > 0.
	DecrementCredits(ctx context.Context, id uuid.UUID, now time.Time) (*models.Profile, error)
	Update(ctx context.Context, id uuid.UUID, u Update, now time.Time) (*models.Profile, error)
}

// GormRepository implements Repository on Postgres (or SQLite) via GORM.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) GetByUserID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", id).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepository) InsertIfAbsent(ctx context.Context, p *models.Profile) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepository) DecrementCredits(ctx context.Context, id uuid.UUID, now time.Time) (*models.Profile, error) {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ? AND credits > 0", id).
		Updates(map[string]interface{}{
			"credits":    gorm.Expr("credits - ?", 1),
			"updated_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	p, err := r.GetByUserID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	if res.RowsAffected == 0 {
		return p, ErrInsufficientCredits
	}
	return p, nil
}

func (r *GormRepository) Update(ctx context.Context, id uuid.UUID, u Update, now time.Time) (*models.Profile, error) {
	cols := map[string]interface{}{"updated_at": now}
	if u.Credits != nil {
		cols["credits"] = *u.Credits
	}
	if u.Tier != nil {
		cols["tier"] = *u.Tier
	}
	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("user_id = ?", id).Updates(cols)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByUserID(ctx, id)
}

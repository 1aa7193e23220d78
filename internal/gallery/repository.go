package gallery

import (
	"context"
	"errors"
	"time"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sort orders gallery listings by creation time.
type Sort string

const (
	SortNewest Sort = "newest"
	SortOldest Sort = "oldest"
)

// ListQuery filters a gallery listing. Viewer decides the Liked flag and the
// LikedOnly filter; CreatorID restricts to one user's emojis.
type ListQuery struct {
	Viewer    uuid.UUID
	Sort      Sort
	LikedOnly bool
	CreatorID *uuid.UUID
	Limit     int
}

// Repository stores emoji metadata and per-user likes.
type Repository interface {
	Create(ctx context.Context, e *models.Emoji) error
	Get(ctx context.Context, id, viewer uuid.UUID) (*models.Emoji, error)
	List(ctx context.Context, q ListQuery) ([]models.Emoji, error)
	// SetLike is idempotent per (emoji, user) and returns the emoji with a
	// recomputed likes count.
	SetLike(ctx context.Context, emojiID, userID uuid.UUID, like bool, now time.Time) (*models.Emoji, error)
}

// GormRepository implements Repository on the relational store.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, e *models.Emoji) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *GormRepository) Get(ctx context.Context, id, viewer uuid.UUID) (*models.Emoji, error) {
	var e models.Emoji
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEmojiNotFound
	}
	if err != nil {
		return nil, err
	}
	items := []models.Emoji{e}
	if err := r.markLiked(ctx, items, viewer); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (r *GormRepository) List(ctx context.Context, q ListQuery) ([]models.Emoji, error) {
	tx := r.db.WithContext(ctx).Model(&models.Emoji{})
	if q.LikedOnly {
		tx = tx.Where("id IN (?)", r.db.Model(&models.EmojiLike{}).Select("emoji_id").Where("user_id = ?", q.Viewer))
	}
	if q.CreatorID != nil {
		tx = tx.Where("creator_user_id = ?", *q.CreatorID)
	}
	order := "created_at DESC"
	if q.Sort == SortOldest {
		order = "created_at ASC"
	}
	tx = tx.Order(order).Order("id")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var items []models.Emoji
	if err := tx.Find(&items).Error; err != nil {
		return nil, err
	}
	if err := r.markLiked(ctx, items, q.Viewer); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepository) markLiked(ctx context.Context, items []models.Emoji, viewer uuid.UUID) error {
	if len(items) == 0 || viewer == uuid.Nil {
		return nil
	}
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID.String()
	}
	var liked []models.EmojiLike
	if err := r.db.WithContext(ctx).Where("user_id = ? AND emoji_id IN ?", viewer, ids).Find(&liked).Error; err != nil {
		return err
	}
	set := make(map[uuid.UUID]bool, len(liked))
	for _, l := range liked {
		set[l.EmojiID] = true
	}
	for i := range items {
		items[i].Liked = set[items[i].ID]
	}
	return nil
}

func (r *GormRepository) SetLike(ctx context.Context, emojiID, userID uuid.UUID, like bool, now time.Time) (*models.Emoji, error) {
	var out models.Emoji
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", emojiID).Take(&out).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEmojiNotFound
			}
			return err
		}
		if like {
			row := models.EmojiLike{EmojiID: emojiID, UserID: userID, CreatedAt: now}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Where("emoji_id = ? AND user_id = ?", emojiID, userID).Delete(&models.EmojiLike{}).Error; err != nil {
				return err
			}
		}
		count := tx.Model(&models.EmojiLike{}).Select("COUNT(*)").Where("emoji_id = ?", emojiID)
		if err := tx.Model(&models.Emoji{}).Where("id = ?", emojiID).Update("likes_count", count).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", emojiID).Take(&out).Error
	})
	if err != nil {
		return nil, err
	}
	out.Liked = like
	return &out, nil
}

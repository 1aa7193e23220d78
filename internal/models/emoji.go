package models

import (
	"time"

	"github.com/google/uuid"
)

// Emoji is a generated (or uploaded) image recorded in the gallery.
type Emoji struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ImageURL      string    `gorm:"column:image_url;type:text;not null" json:"image_url"`
	ObjectKey     string    `gorm:"column:object_key;size:255" json:"object_key"`
	Prompt        string    `gorm:"column:prompt;type:text;not null" json:"prompt"`
	CreatorUserID uuid.UUID `gorm:"column:creator_user_id;type:uuid;index;not null" json:"creator_user_id"`
	LikesCount    int       `gorm:"column:likes_count;not null" json:"likes_count"`
	CreatedAt     time.Time `gorm:"column:created_at;index;not null" json:"created_at"`

	// Liked is computed per viewer and never persisted.
	Liked bool `gorm:"-" json:"liked"`
}

func (Emoji) TableName() string { return "emojis" }

// EmojiLike records that a user liked an emoji; the pair is unique.
type EmojiLike struct {
	EmojiID   uuid.UUID `gorm:"column:emoji_id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (EmojiLike) TableName() string { return "emoji_likes" }

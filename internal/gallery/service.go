// Package gallery generates, stores and lists emojis.
package gallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/credits"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/events"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/generator"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/models"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/logger"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/metrics"
	"github.com/google/uuid"
)

const (
	DefaultUploadPrompt = "Generated Emoji"
	MaxPromptLength     = 500
	MaxUploadBytes      = 10 << 20
)

var (
	ErrInvalidPrompt        = errors.New("invalid prompt")
	ErrInvalidImage         = errors.New("invalid image")
	ErrInvalidSort          = errors.New("sort must be newest or oldest")
	ErrInvalidObjectKey     = errors.New("invalid object key")
	ErrEmojiNotFound        = errors.New("emoji not found")
	ErrGenerationFailed     = errors.New("image generation failed")
	ErrGeneratorUnavailable = errors.New("image generator not configured")
	ErrInsufficientCredits  = credits.ErrInsufficientCredits
)

// ObjectStore is satisfied by *storage.MinIOStorage.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PublicURL(key string) string
	PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// CreditSpender is satisfied by *credits.Ledger.
type CreditSpender interface {
	Decrement(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

type Options struct {
	SignedURLTTL time.Duration
	DefaultLimit int
	MaxLimit     int
}

type Service struct {
	repo    Repository
	store   ObjectStore
	gen     generator.Generator
	credits CreditSpender
	events  events.Publisher
	opts    Options
	now     func() time.Time
}

func NewService(repo Repository, store ObjectStore, gen generator.Generator, spender CreditSpender, pub events.Publisher, opts Options) *Service {
	if opts.SignedURLTTL <= 0 {
		opts.SignedURLTTL = time.Hour
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 50
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = opts.DefaultLimit
	}
	return &Service{
		repo:    repo,
		store:   store,
		gen:     gen,
		credits: spender,
		events:  pub,
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func normalizePrompt(prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" || utf8.RuneCountInString(prompt) > MaxPromptLength {
		return "", ErrInvalidPrompt
	}
	return prompt, nil
}

// Generate spends one credit of p to create an emoji for prompt. The balance
// check happens before calling the generator; the decrement happens only
// after the generator succeeded.
func (s *Service) Generate(ctx context.Context, p *models.Profile, prompt string) (*models.Emoji, error) {
	prompt, err := normalizePrompt(prompt)
	if err != nil {
		return nil, err
	}
	if s.gen == nil {
		return nil, ErrGeneratorUnavailable
	}
	if p.Credits <= 0 {
		metrics.Generations.WithLabelValues("no_credits").Inc()
		return nil, ErrInsufficientCredits
	}

	img, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		metrics.Generations.WithLabelValues("generator_error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if _, err := s.credits.Decrement(ctx, p.UserID); err != nil {
		metrics.Generations.WithLabelValues("no_credits").Inc()
		return nil, err
	}

	e, err := s.persist(ctx, p.UserID, prompt, img)
	if err != nil {
		metrics.Generations.WithLabelValues("store_error").Inc()
		logger.Errorw("generated image lost after credit spend", "user_id", p.UserID.String(), "error", err)
		return nil, err
	}
	metrics.Generations.WithLabelValues("ok").Inc()
	return e, nil
}

// Upload stores a client-supplied image without spending credits.
func (s *Service) Upload(ctx context.Context, p *models.Profile, prompt string, img generator.Image) (*models.Emoji, error) {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultUploadPrompt
	}
	prompt, err := normalizePrompt(prompt)
	if err != nil {
		return nil, err
	}
	if len(img.Bytes) == 0 || len(img.Bytes) > MaxUploadBytes || !strings.HasPrefix(img.MimeType, "image/") {
		return nil, ErrInvalidImage
	}
	return s.persist(ctx, p.UserID, prompt, img)
}

func (s *Service) persist(ctx context.Context, userID uuid.UUID, prompt string, img generator.Image) (*models.Emoji, error) {
	now := s.now()
	key := fmt.Sprintf("%s/%d%s", userID, now.UnixMilli(), generator.Extension(img.MimeType))
	if err := s.store.Put(ctx, key, bytes.NewReader(img.Bytes), int64(len(img.Bytes)), img.MimeType); err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	e := &models.Emoji{
		ID:            uuid.New(),
		ImageURL:      s.store.PublicURL(key),
		ObjectKey:     key,
		Prompt:        prompt,
		CreatorUserID: userID,
		CreatedAt:     now,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("record emoji: %w", err)
	}
	events.Emit(ctx, s.events, events.EmojiCreated, userID.String(), e)
	return e, nil
}

// List returns gallery items for viewer.
func (s *Service) List(ctx context.Context, q ListQuery) ([]models.Emoji, error) {
	switch q.Sort {
	case "":
		q.Sort = SortNewest
	case SortNewest, SortOldest:
	default:
		return nil, ErrInvalidSort
	}
	if q.Limit <= 0 {
		q.Limit = s.opts.DefaultLimit
	}
	if q.Limit > s.opts.MaxLimit {
		q.Limit = s.opts.MaxLimit
	}
	return s.repo.List(ctx, q)
}

// Like sets or clears viewer's like on an emoji.
func (s *Service) Like(ctx context.Context, viewer, emojiID uuid.UUID, like bool) (*models.Emoji, error) {
	return s.repo.SetLike(ctx, emojiID, viewer, like, s.now())
}

// SignedURL returns a time-limited GET URL for an object in the emoji bucket.
func (s *Service) SignedURL(ctx context.Context, key string) (string, time.Time, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" || strings.Contains(key, "..") {
		return "", time.Time{}, ErrInvalidObjectKey
	}
	u, err := s.store.PresignedURL(ctx, key, s.opts.SignedURLTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign: %w", err)
	}
	return u, s.now().Add(s.opts.SignedURLTTL), nil
}

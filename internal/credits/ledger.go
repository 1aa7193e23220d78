// Package credits spends and grants generation credits.
//
// Decrement is a single conditional update and cannot drive a balance below
// zero. It is deliberately not tied to the generation or upload transaction:
// a failure after Decrement costs the user that credit.
package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/events"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/models"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/profiles"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/metrics"
	"github.com/google/uuid"
)

var (
	ErrInsufficientCredits = profiles.ErrInsufficientCredits
	ErrProfileNotFound     = profiles.ErrNotFound
	ErrInvalidAmount       = errors.New("credits must be zero or positive")
	ErrInvalidTier         = errors.New("unknown tier")
)

// Store is the subset of profiles.Repository the ledger needs.
type Store interface {
	DecrementCredits(ctx context.Context, id uuid.UUID, now time.Time) (*models.Profile, error)
	Update(ctx context.Context, id uuid.UUID, u profiles.Update, now time.Time) (*models.Profile, error)
}

type Ledger struct {
	store  Store
	events events.Publisher
	now    func() time.Time
}

func NewLedger(store Store, pub events.Publisher) *Ledger {
	return &Ledger{store: store, events: pub, now: func() time.Time { return time.Now().UTC() }}
}

// Decrement spends one credit.
func (l *Ledger) Decrement(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p, err := l.store.DecrementCredits(ctx, userID, l.now())
	switch {
	case errors.Is(err, ErrInsufficientCredits):
		metrics.CreditOperations.WithLabelValues("decrement", "insufficient").Inc()
		return p, err
	case errors.Is(err, ErrProfileNotFound):
		metrics.CreditOperations.WithLabelValues("decrement", "not_found").Inc()
		return nil, err
	case err != nil:
		metrics.CreditOperations.WithLabelValues("decrement", "error").Inc()
		return nil, fmt.Errorf("decrement credits: %w", err)
	}
	metrics.CreditOperations.WithLabelValues("decrement", "ok").Inc()
	return p, nil
}

// SetAbsolute overwrites the balance (and optionally the tier). Admin only.
func (l *Ledger) SetAbsolute(ctx context.Context, userID uuid.UUID, credits int, tier *models.Tier) (*models.Profile, error) {
	if credits < 0 {
		return nil, ErrInvalidAmount
	}
	if tier != nil && !tier.Valid() {
		return nil, ErrInvalidTier
	}
	p, err := l.store.Update(ctx, userID, profiles.Update{Credits: &credits, Tier: tier}, l.now())
	if err != nil {
		metrics.CreditOperations.WithLabelValues("set", "error").Inc()
		if errors.Is(err, ErrProfileNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("set credits: %w", err)
	}
	metrics.CreditOperations.WithLabelValues("set", "ok").Inc()
	events.Emit(ctx, l.events, events.CreditsAdjusted, userID.String(), p)
	return p, nil
}

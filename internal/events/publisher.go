// Package events publishes domain events (profile.provisioned, emoji.created).
// Publishing is best-effort: callers log failures and continue.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/emojiforge/emojiforge/backend/go-services/pkg/logger"
	"github.com/google/uuid"
)

const (
	ProfileProvisioned = "profile.provisioned"
	CreditsAdjusted    = "credits.adjusted"
	EmojiCreated       = "emoji.created"
)

type Publisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}

// Envelope is the JSON body of every published event. ID is unique per
// emission so consumers can drop redeliveries.
type Envelope struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// Emit wraps data in an Envelope and publishes it, logging instead of returning errors.
func Emit(ctx context.Context, p Publisher, eventType, key string, data interface{}) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(Envelope{ID: uuid.NewString(), Type: eventType, OccurredAt: time.Now().UTC(), Data: data})
	if err != nil {
		logger.Warnf("events: marshal %s: %v", eventType, err)
		return
	}
	if err := p.Publish(ctx, eventType, payload, key); err != nil {
		logger.Warnf("events: publish %s key=%s: %v", eventType, key, err)
	}
}

// LoggingPublisher writes events to the service log; used when no broker is configured.
type LoggingPublisher struct{}

func (LoggingPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	logger.Infow("event", "type", eventType, "key", partitionKey, "payload", string(payload))
	return nil
}

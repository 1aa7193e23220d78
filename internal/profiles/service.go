package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/events"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/identity"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/models"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/shadowauth"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/logger"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/metrics"
)

var (
	// ErrProvisioningFailed wraps any failure of the profile lookup-or-insert path.
	ErrProvisioningFailed = errors.New("profile provisioning failed")
	ErrEmptyExternalID    = errors.New("external identity is empty")
)

// Defaults are the values written on first insert.
type Defaults struct {
	Credits int
	Tier    models.Tier
}

// ShadowSyncer is satisfied by *shadowauth.Syncer.
type ShadowSyncer interface {
	Sync(ctx context.Context, req shadowauth.Request) shadowauth.Outcome
}

// Service provisions and reads profiles.
type Service struct {
	repo     Repository
	shadow   ShadowSyncer
	events   events.Publisher
	defaults Defaults
	now      func() time.Time
}

// NewService wires a provisioner. shadow and pub may be nil.
func NewService(repo Repository, shadow ShadowSyncer, pub events.Publisher, d Defaults) *Service {
	if d.Tier == "" {
		d.Tier = models.TierFree
	}
	return &Service{
		repo:     repo,
		shadow:   shadow,
		events:   pub,
		defaults: d,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// EnsureProfile returns the profile for externalID, creating it on first
// sight. It is idempotent and safe to call concurrently for the same user:
// the insert is conflict-tolerant and a losing racer re-reads the winner's row.
// The shadow auth sync is best-effort and never fails the call.
func (s *Service) EnsureProfile(ctx context.Context, externalID, email string) (*models.Profile, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, ErrEmptyExternalID
	}
	storageID := identity.DeriveStorageIdentity(externalID)

	if s.shadow != nil {
		out := s.shadow.Sync(ctx, shadowauth.Request{StorageID: storageID, ExternalID: externalID, Email: email})
		metrics.ShadowAuthOutcomes.WithLabelValues(string(out.Status)).Inc()
		if out.Failed() {
			logger.Warnw("shadow auth sync failed", "storage_id", storageID.String(), "error", out.Err)
		}
	}

	p, err := s.repo.GetByUserID(ctx, storageID)
	if err != nil {
		metrics.ProfilesEnsured.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: lookup: %w", ErrProvisioningFailed, err)
	}
	if p != nil {
		metrics.ProfilesEnsured.WithLabelValues("existing").Inc()
		return p, nil
	}

	now := s.now()
	fresh := &models.Profile{
		UserID:    storageID,
		Credits:   s.defaults.Credits,
		Tier:      s.defaults.Tier,
		CreatedAt: now,
		UpdatedAt: now,
	}
	inserted, err := s.repo.InsertIfAbsent(ctx, fresh)
	if err != nil {
		metrics.ProfilesEnsured.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: insert: %w", ErrProvisioningFailed, err)
	}

	p, err = s.repo.GetByUserID(ctx, storageID)
	if err != nil {
		metrics.ProfilesEnsured.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: re-read: %w", ErrProvisioningFailed, err)
	}
	if p == nil {
		metrics.ProfilesEnsured.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: row missing after insert", ErrProvisioningFailed)
	}

	if inserted {
		metrics.ProfilesEnsured.WithLabelValues("created").Inc()
		logger.Infof("provisioned profile %s", storageID)
		events.Emit(ctx, s.events, events.ProfileProvisioned, storageID.String(), p)
	} else {
		metrics.ProfilesEnsured.WithLabelValues("raced").Inc()
	}
	return p, nil
}

// Get returns the profile keyed by externalID's storage identity, or
// ErrNotFound. It never provisions.
func (s *Service) Get(ctx context.Context, externalID string) (*models.Profile, error) {
	p, err := s.repo.GetByUserID(ctx, identity.DeriveStorageIdentity(externalID))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

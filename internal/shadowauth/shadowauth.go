// Package shadowauth mirrors external identities into the storage backend's
// auth subsystem. Sync never fails its caller: every result, including
// failures, is reported as an Outcome value.
package shadowauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Status is the result kind of a shadow user sync.
type Status string

const (
	StatusExisting Status = "existing"
	StatusCreated  Status = "created"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
)

// Outcome is what Sync observed. Err is set only for StatusFailed.
type Outcome struct {
	Status Status
	Err    error
}

// Failed reports whether the sync hit an error.
func (o Outcome) Failed() bool { return o.Status == StatusFailed }

// ErrUserExists is returned by Directory.CreateUser when the id is already taken.
var ErrUserExists = errors.New("shadow user already exists")

// User is the subset of an auth user this service reads.
type User struct {
	ID         uuid.UUID
	Email      string
	ExternalID string
}

// NewUser is the payload used to create a shadow user.
type NewUser struct {
	ID             uuid.UUID
	Email          string
	ExternalID     string
	Password       string
	EmailConfirmed bool
}

// Directory is the auth subsystem of the storage backend.
type Directory interface {
	// LookupUser returns nil, nil when no user has the id.
	LookupUser(ctx context.Context, id uuid.UUID) (*User, error)
	CreateUser(ctx context.Context, u NewUser) error
}

// Request identifies the user to mirror.
type Request struct {
	StorageID  uuid.UUID
	ExternalID string
	Email      string
}

// Syncer performs lookup-then-create against a Directory.
type Syncer struct {
	dir               Directory
	placeholderDomain string
	newPassword       func() string
}

// NewSyncer returns a Syncer. A nil directory makes every Sync a skip.
func NewSyncer(dir Directory, placeholderDomain string) *Syncer {
	if placeholderDomain == "" {
		placeholderDomain = "example.com"
	}
	return &Syncer{dir: dir, placeholderDomain: placeholderDomain, newPassword: randomPassword}
}

// Sync makes sure a shadow user exists for req.StorageID.
func (s *Syncer) Sync(ctx context.Context, req Request) Outcome {
	if s == nil || s.dir == nil {
		return Outcome{Status: StatusSkipped}
	}
	existing, err := s.dir.LookupUser(ctx, req.StorageID)
	if err != nil {
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("lookup shadow user: %w", err)}
	}
	if existing != nil {
		return Outcome{Status: StatusExisting}
	}

	email := req.Email
	if email == "" {
		email = PlaceholderEmail(req.ExternalID, s.placeholderDomain)
	}
	err = s.dir.CreateUser(ctx, NewUser{
		ID:             req.StorageID,
		Email:          email,
		ExternalID:     req.ExternalID,
		Password:       s.newPassword(),
		EmailConfirmed: true,
	})
	switch {
	case errors.Is(err, ErrUserExists):
		return Outcome{Status: StatusExisting}
	case err != nil:
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("create shadow user: %w", err)}
	}
	return Outcome{Status: StatusCreated}
}

// PlaceholderEmail builds the address used when the provider supplied none.
func PlaceholderEmail(externalID, domain string) string {
	return externalID + "@" + domain
}

// randomPassword is never stored or returned; sign-in happens through the
// external provider only.
func randomPassword() string {
	return uuid.NewString() + uuid.NewString()
}

package webhook

import (
	"encoding/json"
	"fmt"
)

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
)

// Event is the outer webhook envelope.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type emailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// UserData is the user object carried by user.* events.
type UserData struct {
	ID                    string         `json:"id"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []emailAddress `json:"email_addresses"`
}

// PrimaryEmail returns the primary address, falling back to the first one.
func (u UserData) PrimaryEmail() string {
	for _, e := range u.EmailAddresses {
		if e.ID != "" && e.ID == u.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}

// ParseEvent decodes the envelope.
func ParseEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("decode webhook: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("decode webhook: missing type")
	}
	return ev, nil
}

// IsUserEvent reports whether the event carries a user object to provision.
func (e Event) IsUserEvent() bool {
	return e.Type == EventUserCreated || e.Type == EventUserUpdated
}

// User decodes the data of a user.* event.
func (e Event) User() (UserData, error) {
	var u UserData
	if err := json.Unmarshal(e.Data, &u); err != nil {
		return UserData{}, fmt.Errorf("decode user data: %w", err)
	}
	if u.ID == "" {
		return UserData{}, fmt.Errorf("decode user data: missing id")
	}
	return u, nil
}

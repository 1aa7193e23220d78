package shadowauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GoTrueDirectory talks to a GoTrue-compatible admin API
// (GET/POST <base>/admin/users) using a service-role key.
type GoTrueDirectory struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewGoTrueDirectory expects baseURL to point at the auth root, for example
// https://project.supabase.co/auth/v1.
func NewGoTrueDirectory(baseURL, serviceKey string, client *http.Client) (*GoTrueDirectory, error) {
	if baseURL == "" || serviceKey == "" {
		return nil, fmt.Errorf("gotrue admin url and service key are required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoTrueDirectory{baseURL: strings.TrimRight(baseURL, "/"), serviceKey: serviceKey, client: client}, nil
}

type gotrueUser struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
}

type gotrueCreateRequest struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	Password     string                 `json:"password"`
	EmailConfirm bool                   `json:"email_confirm"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
}

func (d *GoTrueDirectory) LookupUser(ctx context.Context, id uuid.UUID) (*User, error) {
	req, err := d.newRequest(ctx, http.MethodGet, "/admin/users/"+id.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	var gu gotrueUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, fmt.Errorf("decode gotrue user: %w", err)
	}
	u := &User{ID: id, Email: gu.Email}
	if ext, ok := gu.UserMetadata["external_id"].(string); ok {
		u.ExternalID = ext
	}
	return u, nil
}

func (d *GoTrueDirectory) CreateUser(ctx context.Context, u NewUser) error {
	body, err := json.Marshal(gotrueCreateRequest{
		ID:           u.ID.String(),
		Email:        u.Email,
		Password:     u.Password,
		EmailConfirm: u.EmailConfirmed,
		UserMetadata: map[string]interface{}{"external_id": u.ExternalID},
	})
	if err != nil {
		return err
	}
	req, err := d.newRequest(ctx, http.MethodPost, "/admin/users", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return ErrUserExists
	}
	return statusError(resp)
}

func (d *GoTrueDirectory) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", d.serviceKey)
	req.Header.Set("Authorization", "Bearer "+d.serviceKey)
	return req, nil
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("gotrue admin: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}

// Package webhook authenticates and decodes identity-provider webhooks.
//
// Deliveries are signed Svix-style: HMAC-SHA256 over "<id>.<timestamp>.<body>"
// with the base64 secret that follows the "whsec_" prefix, sent as one or more
// space separated "v1,<base64 signature>" entries.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"

	secretPrefix = "whsec_"
)

var (
	ErrMissingHeaders   = errors.New("missing webhook signature headers")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrStaleTimestamp   = errors.New("webhook timestamp outside tolerance")
)

type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier decodes a whsec_ secret. tolerance <= 0 means five minutes.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, secretPrefix))
	if err != nil || len(raw) == 0 {
		return nil, fmt.Errorf("invalid webhook secret")
	}
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &Verifier{secret: raw, tolerance: tolerance, now: time.Now}, nil
}

// Verify checks the delivery headers against payload and returns the message id.
func (v *Verifier) Verify(payload []byte, h http.Header) (string, error) {
	id, ts, sigs := h.Get(HeaderID), h.Get(HeaderTimestamp), h.Get(HeaderSignature)
	if id == "" || ts == "" || sigs == "" {
		return "", ErrMissingHeaders
	}
	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", ErrStaleTimestamp
	}
	sent := time.Unix(secs, 0)
	if d := v.now().Sub(sent); d > v.tolerance || d < -v.tolerance {
		return "", ErrStaleTimestamp
	}

	expected := sign(v.secret, id, ts, payload)
	for _, entry := range strings.Fields(sigs) {
		version, sig, ok := strings.Cut(entry, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return id, nil
		}
	}
	return "", ErrInvalidSignature
}

// Sign returns a "v1,<sig>" header value; used by tests and local tooling.
func (v *Verifier) Sign(id string, at time.Time, payload []byte) string {
	return "v1," + sign(v.secret, id, strconv.FormatInt(at.Unix(), 10), payload)
}

func sign(secret []byte, id, ts string, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(id))
	mac.Write([]byte("."))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

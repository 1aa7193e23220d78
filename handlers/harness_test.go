package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/credits"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/database"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/gallery"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/generator"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/models"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/profiles"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// subjectVerifier accepts any token starting with "user_" and uses it as sub.
type subjectVerifier struct{}

type claimsToken map[string]interface{}

func (t claimsToken) Claims(v interface{}) error {
	p, ok := v.(*map[string]interface{})
	if !ok {
		return errors.New("unsupported claims type")
	}
	*p = map[string]interface{}(t)
	return nil
}

func (subjectVerifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	if !strings.HasPrefix(raw, "user_") {
		return nil, errors.New("bad token")
	}
	return claimsToken{"sub": raw, "email": raw + "@example.com"}, nil
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return nil
}

func (m *memStore) PublicURL(key string) string { return "http://cdn.test/emojis/" + key }

func (m *memStore) PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "http://cdn.test/emojis/" + key + "?X-Amz-Signature=abc", nil
}

type fakeGenerator struct {
	calls int
	err   error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (generator.Image, error) {
	f.calls++
	if f.err != nil {
		return generator.Image{}, f.err
	}
	return generator.Image{Bytes: []byte("png:" + prompt), MimeType: "image/png"}, nil
}

type harness struct {
	router   *gin.Engine
	profiles *profiles.Service
	ledger   *credits.Ledger
	store    *memStore
	gen      *fakeGenerator
}

func newHarness(t *testing.T, withGenerator bool) *harness {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, "sqlite::memory:", 0)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, db))

	prepo := profiles.NewGormRepository(db)
	h := &harness{
		profiles: profiles.NewService(prepo, nil, nil, profiles.Defaults{Credits: 3, Tier: models.TierFree}),
		ledger:   credits.NewLedger(prepo, nil),
		store:    &memStore{objects: map[string][]byte{}},
		gen:      &fakeGenerator{},
	}
	var gen generator.Generator
	if withGenerator {
		gen = h.gen
	}
	svc := gallery.NewService(gallery.NewGormRepository(db), h.store, gen, h.ledger, nil, gallery.Options{})

	h.router = gin.New()
	API{
		Verifier:    subjectVerifier{},
		Provisioner: h.profiles,
		Gallery:     svc,
		Ledger:      h.ledger,
		AdminGrant:  10,
		IsAdmin:     func(sub string) bool { return sub == "user_admin" },
	}.Register(h.router)
	return h
}

func newRequest(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func serve(h *harness, req *http.Request) *httptest.ResponseRecorder {
	rw := httptest.NewRecorder()
	h.router.ServeHTTP(rw, req)
	return rw
}

func (h *harness) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	return serve(h, newRequest(t, method, path, token, body, contentType))
}

func (h *harness) postJSON(t *testing.T, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	return h.do(t, http.MethodPost, path, token, strings.NewReader(body), "application/json")
}

func decode(t *testing.T, rw *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), v), rw.Body.String())
}

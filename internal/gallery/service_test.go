package gallery

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/credits"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/database"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/generator"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/models"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/profiles"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	m.types[key] = contentType
	return nil
}

func (m *memStore) PublicURL(key string) string { return "http://cdn.test/emojis/" + key }

func (m *memStore) PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "http://cdn.test/emojis/" + key + "?sig=1&exp=" + expires.String(), nil
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

type fixture struct {
	svc      *Service
	profiles *profiles.Service
	store    *memStore
	gen      *fakeGenerator
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, "sqlite::memory:", 0)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, db))

	prepo := profiles.NewGormRepository(db)
	f := &fixture{
		profiles: profiles.NewService(prepo, nil, nil, profiles.Defaults{Credits: 3, Tier: models.TierFree}),
		store:    newMemStore(),
		gen:      &fakeGenerator{},
		clock:    time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(NewGormRepository(db), f.store, f.gen, credits.NewLedger(prepo, nil), nil, Options{})
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	return f
}

func (f *fixture) profile(t *testing.T, ext string) *models.Profile {
	t.Helper()
	p, err := f.profiles.EnsureProfile(context.Background(), ext, "")
	require.NoError(t, err)
	return p
}

func TestGenerate_SpendsOneCreditAndRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "user_gen")

	e, err := f.svc.Generate(ctx, p, "  happy cat ")
	require.NoError(t, err)
	require.Equal(t, "happy cat", e.Prompt)
	require.Equal(t, p.UserID, e.CreatorUserID)
	require.True(t, strings.HasPrefix(e.ObjectKey, p.UserID.String()+"/"))
	require.True(t, strings.HasSuffix(e.ObjectKey, ".png"))
	require.Equal(t, "http://cdn.test/emojis/"+e.ObjectKey, e.ImageURL)
	require.Equal(t, []byte("png:happy cat"), f.store.objects[e.ObjectKey])
	require.Equal(t, "image/png", f.store.types[e.ObjectKey])

	after, err := f.profiles.Get(ctx, "user_gen")
	require.NoError(t, err)
	require.Equal(t, 2, after.Credits)
}

func TestGenerate_RejectsWithoutCredits(t *testing.T) {
	f := newFixture(t)
	p := f.profile(t, "user_broke")
	p.Credits = 0

	_, err := f.svc.Generate(context.Background(), p, "dog")
	require.ErrorIs(t, err, ErrInsufficientCredits)
	require.Equal(t, 0, f.gen.calls)
}

func TestGenerate_StaleBalanceStillCannotOverspend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "user_stale")
	for i := 0; i < 3; i++ {
		_, err := f.svc.Generate(ctx, p, "x")
		require.NoError(t, err)
	}
	// p still claims 3 credits; the ledger has 0
	_, err := f.svc.Generate(ctx, p, "x")
	require.ErrorIs(t, err, ErrInsufficientCredits)
}

func TestGenerate_GeneratorFailureKeepsCredits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "user_fail")
	f.gen.err = errors.New("model timeout")

	_, err := f.svc.Generate(ctx, p, "dog")
	require.ErrorIs(t, err, ErrGenerationFailed)

	after, err := f.profiles.Get(ctx, "user_fail")
	require.NoError(t, err)
	require.Equal(t, 3, after.Credits)
}

func TestGenerate_InvalidPrompt(t *testing.T) {
	f := newFixture(t)
	p := f.profile(t, "user_p")
	_, err := f.svc.Generate(context.Background(), p, "   ")
	require.ErrorIs(t, err, ErrInvalidPrompt)
	_, err = f.svc.Generate(context.Background(), p, strings.Repeat("a", MaxPromptLength+1))
	require.ErrorIs(t, err, ErrInvalidPrompt)
}

func TestUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "user_up")

	e, err := f.svc.Upload(ctx, p, "", generator.Image{Bytes: []byte("jpg"), MimeType: "image/jpeg"})
	require.NoError(t, err)
	require.Equal(t, DefaultUploadPrompt, e.Prompt)
	require.True(t, strings.HasSuffix(e.ObjectKey, ".jpg"))

	_, err = f.svc.Upload(ctx, p, "x", generator.Image{Bytes: []byte("text"), MimeType: "text/plain"})
	require.ErrorIs(t, err, ErrInvalidImage)

	after, err := f.profiles.Get(ctx, "user_up")
	require.NoError(t, err)
	require.Equal(t, 3, after.Credits)
}

func TestListSortAndFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")

	first, err := f.svc.Upload(ctx, alice, "first", generator.Image{Bytes: []byte("1"), MimeType: "image/png"})
	require.NoError(t, err)
	second, err := f.svc.Upload(ctx, bob, "second", generator.Image{Bytes: []byte("2"), MimeType: "image/png"})
	require.NoError(t, err)
	third, err := f.svc.Upload(ctx, alice, "third", generator.Image{Bytes: []byte("3"), MimeType: "image/png"})
	require.NoError(t, err)

	_, err = f.svc.Like(ctx, alice.UserID, second.ID, true)
	require.NoError(t, err)

	items, err := f.svc.List(ctx, ListQuery{Viewer: alice.UserID})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{third.ID, second.ID, first.ID}, ids(items))
	require.True(t, items[1].Liked)
	require.False(t, items[0].Liked)

	items, err = f.svc.List(ctx, ListQuery{Viewer: alice.UserID, Sort: SortOldest})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{first.ID, second.ID, third.ID}, ids(items))

	items, err = f.svc.List(ctx, ListQuery{Viewer: alice.UserID, LikedOnly: true})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{second.ID}, ids(items))

	items, err = f.svc.List(ctx, ListQuery{Viewer: bob.UserID, LikedOnly: true})
	require.NoError(t, err)
	require.Empty(t, items)

	items, err = f.svc.List(ctx, ListQuery{Viewer: bob.UserID, CreatorID: &alice.UserID, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{third.ID}, ids(items))

	_, err = f.svc.List(ctx, ListQuery{Sort: "popular"})
	require.ErrorIs(t, err, ErrInvalidSort)
}

func TestLikeIsIdempotentPerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")
	e, err := f.svc.Upload(ctx, alice, "x", generator.Image{Bytes: []byte("1"), MimeType: "image/png"})
	require.NoError(t, err)

	got, err := f.svc.Like(ctx, alice.UserID, e.ID, true)
	require.NoError(t, err)
	require.Equal(t, 1, got.LikesCount)
	require.True(t, got.Liked)

	got, err = f.svc.Like(ctx, alice.UserID, e.ID, true)
	require.NoError(t, err)
	require.Equal(t, 1, got.LikesCount)

	got, err = f.svc.Like(ctx, bob.UserID, e.ID, true)
	require.NoError(t, err)
	require.Equal(t, 2, got.LikesCount)

	got, err = f.svc.Like(ctx, alice.UserID, e.ID, false)
	require.NoError(t, err)
	require.Equal(t, 1, got.LikesCount)
	require.False(t, got.Liked)

	_, err = f.svc.Like(ctx, alice.UserID, uuid.New(), true)
	require.ErrorIs(t, err, ErrEmojiNotFound)
}

func TestSignedURL(t *testing.T) {
	f := newFixture(t)
	u, exp, err := f.svc.SignedURL(context.Background(), "/abc/1.png")
	require.NoError(t, err)
	require.Contains(t, u, "abc/1.png?sig=1")
	require.Contains(t, u, "exp=1h0m0s")
	require.False(t, exp.IsZero())

	_, _, err = f.svc.SignedURL(context.Background(), "../secret")
	require.ErrorIs(t, err, ErrInvalidObjectKey)
	_, _, err = f.svc.SignedURL(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidObjectKey)
}

func ids(items []models.Emoji) []uuid.UUID {
	out := make([]uuid.UUID, len(items))
	for i, e := range items {
		out[i] = e.ID
	}
	return out
}

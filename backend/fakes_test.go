package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gitea.kood.tech/petrkubec/linkvibez/internal/config"
	"gitea.kood.tech/petrkubec/linkvibez/internal/media"
	"gitea.kood.tech/petrkubec/linkvibez/internal/metrics"
	"gitea.kood.tech/petrkubec/linkvibez/internal/model"
	"gitea.kood.tech/petrkubec/linkvibez/internal/realtime"
	"gitea.kood.tech/petrkubec/linkvibez/internal/store"
	"gitea.kood.tech/petrkubec/linkvibez/internal/swipe"
	"gitea.kood.tech/petrkubec/linkvibez/internal/wingman"
)

// ============================================================================
// IN-MEMORY STORES
// ============================================================================

type memUsers struct {
	mu     sync.Mutex
	nextID int
	emails map[string]int
	hashes map[string]string
	err    error
}

func (m *memUsers) Create(_ context.Context, email, hash string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	email = strings.ToLower(email)
	if _, ok := m.emails[email]; ok {
		return 0, store.ErrDuplicate
	}
	m.nextID++
	m.emails[email] = m.nextID
	m.hashes[email] = hash
	return m.nextID, nil
}

func (m *memUsers) Credentials(_ context.Context, email string) (int, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, "", m.err
	}
	email = strings.ToLower(email)
	id, ok := m.emails[email]
	if !ok {
		return 0, "", store.ErrNotFound
	}
	return id, m.hashes[email], nil
}

type memProfiles struct {
	mu       sync.Mutex
	profiles map[int]model.Profile
	listErr  error
}

func (m *memProfiles) ListExcept(_ context.Context, viewerID int) ([]model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.Profile
	for id, p := range m.profiles {
		if id != viewerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memProfiles) Get(_ context.Context, id int) (model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return model.Profile{}, store.ErrNotFound
	}
	return p, nil
}

func (m *memProfiles) GetMany(_ context.Context, ids []int) (map[int]model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]model.Profile, len(ids))
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memProfiles) Upsert(_ context.Context, p model.Profile) (model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.profiles[p.ID]; ok {
		p.CreatedAt = old.CreatedAt
	} else {
		p.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	m.profiles[p.ID] = p
	return p, nil
}

func (m *memProfiles) SetImage(_ context.Context, id int, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return store.ErrNotFound
	}
	p.ImageURL = url
	m.profiles[id] = p
	return nil
}

func (m *memProfiles) put(p model.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

type memLikes struct {
	mu    sync.Mutex
	likes []model.Like
	clock int
	err   error
}

func (m *memLikes) Record(_ context.Context, userID, targetID int, isLike bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.clock++
	m.likes = append(m.likes, model.Like{
		UserID:    userID,
		TargetID:  targetID,
		IsLike:    isLike,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, m.clock, 0, time.UTC),
	})
	return nil
}

func (m *memLikes) Matches(_ context.Context, userID int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := map[int]time.Time{}
	for _, l := range m.likes {
		if l.UserID == userID && l.IsLike && l.CreatedAt.After(latest[l.TargetID]) {
			latest[l.TargetID] = l.CreatedAt
		}
	}
	ids := make([]int, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return latest[ids[i]].After(latest[ids[j]]) })
	return ids, nil
}

func (m *memLikes) LikedBy(_ context.Context, targetID int, candidates []int) (map[int]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int]bool{}
	for _, c := range candidates {
		for _, l := range m.likes {
			if l.UserID == c && l.TargetID == targetID && l.IsLike {
				out[c] = true
			}
		}
	}
	return out, nil
}

func (m *memLikes) all() []model.Like {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Like(nil), m.likes...)
}

// memMessages publishes every insert to the broker like the database trigger.
type memMessages struct {
	mu        sync.Mutex
	messages  []model.Message
	broker    *realtime.Broker
	insertErr error
}

func (m *memMessages) Conversation(_ context.Context, a, b int) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Message
	for _, msg := range m.messages {
		if msg.Between(a, b) {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memMessages) Insert(_ context.Context, senderID, receiverID int, content string) (model.Message, error) {
	m.mu.Lock()
	if m.insertErr != nil {
		m.mu.Unlock()
		return model.Message{}, m.insertErr
	}
	msg := model.Message{
		ID:         int64(len(m.messages) + 1),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Date(2026, 1, 1, 12, 0, len(m.messages), 0, time.UTC),
	}
	m.messages = append(m.messages, msg)
	m.mu.Unlock()

	m.broker.Publish(msg)
	return msg, nil
}

type fakePhotos struct {
	mu       sync.Mutex
	uploaded []string
	err      error
}

func (f *fakePhotos) Upload(_ context.Context, filename string, body io.Reader, size int64, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: content type %q", media.ErrValidation, contentType)
	}
	_, _ = io.Copy(io.Discard, body)
	f.uploaded = append(f.uploaded, filename)
	return "http://localhost:9000/avatars/" + filename, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

// scriptedWingman answers vibe checks with vibeReply and tone requests with toneReply.
type scriptedWingman struct {
	mu        sync.Mutex
	vibeReply string
	vibeErr   error
	toneReply string
	toneErr   error
}

func (s *scriptedWingman) Generate(_ context.Context, req wingman.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.HasPrefix(req.Prompt, "Analyze the tone") {
		return s.toneReply, s.toneErr
	}
	return s.vibeReply, s.vibeErr
}

func (s *scriptedWingman) set(fn func(s *scriptedWingman)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// ============================================================================
// TEST ENVIRONMENT
// ============================================================================

const testSecret = "test-secret-key-for-testing"

type testEnv struct {
	app      *app
	handler  http.Handler
	users    *memUsers
	profiles *memProfiles
	likes    *memLikes
	messages *memMessages
	photos   *fakePhotos
	wingman  *scriptedWingman
	broker   *realtime.Broker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Auth.JWTSecret = testSecret
	cfg.S3.MaxUploadBytes = 64 << 10
	cfg.Wingman.Timeout = 2 * time.Second

	log := zap.NewNop()
	m := metrics.New()
	broker := realtime.NewBroker()

	e := &testEnv{
		users:    &memUsers{emails: map[string]int{}, hashes: map[string]string{}},
		profiles: &memProfiles{profiles: map[int]model.Profile{}},
		likes:    &memLikes{},
		messages: &memMessages{broker: broker},
		photos:   &fakePhotos{},
		wingman: &scriptedWingman{
			vibeReply: "Chemistry Score: 92/100. You two would never run out of playlists.",
			toneReply: "Playful and warm.",
		},
		broker: broker,
	}

	annotator := swipe.NewAnnotator(e.wingman, cfg.Wingman.ScoreMode, log, m)
	decks := swipe.NewRegistry(e.profiles, e.likes, annotator, log, m)

	e.app = &app{
		cfg:        &cfg,
		log:        log,
		metrics:    m,
		tokens:     newTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		users:      e.users,
		profiles:   e.profiles,
		likes:      e.likes,
		messages:   e.messages,
		photos:     e.photos,
		db:         fakePinger{},
		feedSource: broker,
		wingman:    e.wingman,
		decks:      decks,
		hub:        newHub(),
		now:        func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) },
	}
	e.handler = e.app.routes()

	t.Cleanup(func() {
		decks.Close()
		broker.Close()
	})
	return e
}

// signUp registers a user and returns their id and token.
func (e *testEnv) signUp(t *testing.T, email string) (int, string) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/register", "", map[string]string{"email": email, "password": "testpass123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
		ID    int    `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.ID, resp.Token
}

// onboard signs a user up and gives them a profile.
func (e *testEnv) onboard(t *testing.T, email, name, bio string) (int, string) {
	t.Helper()
	id, token := e.signUp(t, email)
	w := e.do(t, http.MethodPost, "/me/profile", token, model.Onboarding{
		FullName: name,
		DobYear:  "1998",
		Vibe:     "Chill",
		Bio:      bio,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return id, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]string](t, w)["error"]
}

func itoa(i int) string { return strconv.Itoa(i) }

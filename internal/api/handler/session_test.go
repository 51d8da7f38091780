package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/minervalabs/minerva/internal/domain"
	"github.com/minervalabs/minerva/internal/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRepo is a minimal in-memory domain.SessionRepository for handler tests.
type stubRepo struct {
	sessions map[string]*domain.Session
}

func newStubRepo() *stubRepo {
	return &stubRepo{sessions: make(map[string]*domain.Session)}
}

func (r *stubRepo) Save(_ context.Context, session *domain.Session) error {
	copied := *session
	r.sessions[session.Token] = &copied
	return nil
}

func (r *stubRepo) FindByToken(_ context.Context, token string) (*domain.Session, error) {
	s, ok := r.sessions[token]
	if !ok || s.Expired(time.Now()) {
		return nil, domain.ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *stubRepo) Ping(context.Context) error { return nil }

// stubCache is a domain.SessionCache that never holds anything, forcing
// every read through the repository.
type stubCache struct{}

func (stubCache) Get(context.Context, string) (*domain.Session, error) { return nil, nil }
func (stubCache) Set(context.Context, string, *domain.Session, time.Duration) error {
	return nil
}
func (stubCache) Delete(context.Context, string) error { return nil }

func newTestRouter() http.Handler {
	store := memory.NewStore(newStubRepo(), stubCache{}, memory.DefaultConfig())
	h := NewSessionHandler(store)

	r := chi.NewRouter()
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Route("/{token}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Post("/messages", h.AppendMessage)
			r.Get("/messages", h.GetHistory)
			r.Patch("/progress", h.UpdateProgress)
			r.Put("/story-context", h.UpdateStoryContext)
			r.Post("/personality/analysis", h.Analyze)
			r.Get("/recommendations", h.Recommendations)
		})
	})
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// decodeData unwraps the response envelope's data field into target.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.NoError(t, json.Unmarshal(envelope.Data, target))
}

func createSession(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/sessions", `{"user_id": 42}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	decodeData(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestSessionHandler_Create(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/sessions", `{"user_id": 42}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	decodeData(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), resp.ExpiresAt, time.Minute)
}

func TestSessionHandler_CreateValidation(t *testing.T) {
	router := newTestRouter()

	// Missing user_id
	rec := doJSON(t, router, http.MethodPost, "/sessions", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Malformed body
	rec = doJSON(t, router, http.MethodPost, "/sessions", `{"user_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandler_Get(t *testing.T) {
	router := newTestRouter()
	token := createSession(t, router)

	rec := doJSON(t, router, http.MethodGet, "/sessions/"+token, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var session domain.Session
	decodeData(t, rec, &session)
	assert.Equal(t, token, session.Token)
	assert.Equal(t, int64(42), session.UserID)
}

func TestSessionHandler_GetUnknownToken(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/sessions/no-such-token", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionHandler_AppendAndHistory(t *testing.T) {
	router := newTestRouter()
	token := createSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/sessions/"+token+"/messages",
		`{"role": "user", "content": "hello", "metadata": {"response_time": 3}}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/sessions/"+token+"/messages",
		`{"role": "assistant", "content": "hi there"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/sessions/"+token+"/messages", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var history []domain.Message
	decodeData(t, rec, &history)
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)

	// Limited read
	rec = doJSON(t, router, http.MethodGet, "/sessions/"+token+"/messages?limit=1", "")
	decodeData(t, rec, &history)
	require.Len(t, history, 1)
	assert.Equal(t, "hi there", history[0].Content)
}

func TestSessionHandler_AppendValidation(t *testing.T) {
	router := newTestRouter()
	token := createSession(t, router)

	// Unknown role
	rec := doJSON(t, router, http.MethodPost, "/sessions/"+token+"/messages",
		`{"role": "system", "content": "hello"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Empty content
	rec = doJSON(t, router, http.MethodPost, "/sessions/"+token+"/messages",
		`{"role": "user", "content": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandler_AppendUnknownToken(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/sessions/no-such-token/messages",
		`{"role": "user", "content": "hello"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionHandler_HistoryUnknownTokenIsEmptyList(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/sessions/no-such-token/messages", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var history []domain.Message
	decodeData(t, rec, &history)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestSessionHandler_HistoryInvalidLimit(t *testing.T) {
	router := newTestRouter()
	token := createSession(t, router)

	rec := doJSON(t, router, http.MethodGet, "/sessions/"+token+"/messages?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/sessions/"+token+"/messages?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandler_ProgressAndStoryContext(t *testing.T) {
	router := newTestRouter()
	token := createSession(t, router)

	rec := doJSON(t, router, http.MethodPatch, "/sessions/"+token+"/progress",
		`{"concepts_seen": 2}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, "/sessions/"+token+"/progress",
		`{"chapters_done": 1}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/sessions/"+token+"/story-context",
		`{"chapter": "one"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/sessions/"+token+"/story-context",
		`{"scene": "forest"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/sessions/"+token, "")
	var session domain.Session
	decodeData(t, rec, &session)

	// Progress merged, story context replaced
	assert.Len(t, session.LearningProgress, 2)
	assert.Len(t, session.CurrentStoryContext, 1)
	assert.Contains(t, session.CurrentStoryContext, "scene")
}

func TestSessionHandler_ProgressRejectsNestedValues(t *testing.T) {
	router := newTestRouter()
	token := createSession(t, router)

	rec := doJSON(t, router, http.MethodPatch, "/sessions/"+token+"/progress",
		`{"nested": {"a": 1}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandler_AnalyzeSkipped(t *testing.T) {
	router := newTestRouter()
	token := createSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/sessions/"+token+"/personality/analysis", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Skipped     string       `json:"skipped"`
		Adaptations domain.Attrs `json:"adaptations"`
	}
	decodeData(t, rec, &resp)
	assert.Equal(t, "insufficient_messages", resp.Skipped)
	assert.Empty(t, resp.Adaptations)
}

func TestSessionHandler_AnalyzeAndRecommend(t *testing.T) {
	router := newTestRouter()
	token := createSession(t, router)

	long := strings.Repeat("zq ", 74)
	for i := 0; i < 12; i++ {
		body := fmt.Sprintf(`{"role": "user", "content": %q}`, long)
		rec := doJSON(t, router, http.MethodPost, "/sessions/"+token+"/messages", body)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	rec := doJSON(t, router, http.MethodPost, "/sessions/"+token+"/personality/analysis", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Skipped     string       `json:"skipped"`
		Adaptations domain.Attrs `json:"adaptations"`
	}
	decodeData(t, rec, &resp)
	assert.Empty(t, resp.Skipped)
	assert.Equal(t, "detailed", resp.Adaptations.GetString("communication_preference"))

	rec = doJSON(t, router, http.MethodGet, "/sessions/"+token+"/recommendations", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var bundle domain.RecommendationBundle
	decodeData(t, rec, &bundle)
	assert.Equal(t, "high", bundle.StoryPreferences.DetailLevel)
	assert.Equal(t, "large", bundle.ContentDelivery.ChunkSize)
}

func TestSessionHandler_RecommendUnknownToken(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/sessions/no-such-token/recommendations", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

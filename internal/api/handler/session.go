package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/minervalabs/minerva/internal/api/response"
	"github.com/minervalabs/minerva/internal/domain"
	"github.com/minervalabs/minerva/internal/memory"
)

var validate = validator.New()

// SessionHandler exposes the session store over HTTP
type SessionHandler struct {
	store *memory.Store
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(store *memory.Store) *SessionHandler {
	return &SessionHandler{store: store}
}

type createSessionRequest struct {
	UserID int64 `json:"user_id" validate:"required"`
}

// Create starts a new session for a user
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	token, err := h.store.CreateSession(r.Context(), req.UserID)
	if err != nil {
		response.InternalError(w, "Failed to create session")
		return
	}

	session, err := h.store.GetSession(r.Context(), token)
	if err != nil {
		response.InternalError(w, "Failed to load created session")
		return
	}

	response.Created(w, map[string]any{
		"token":      token,
		"expires_at": session.ExpiresAt,
	})
}

// Get returns the session snapshot for a token
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	session, err := h.store.GetSession(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			response.NotFound(w, "Session not found")
			return
		}
		response.InternalError(w, "Failed to fetch session")
		return
	}

	response.OK(w, session)
}

type appendMessageRequest struct {
	Role     string       `json:"role" validate:"required,oneof=user assistant"`
	Content  string       `json:"content" validate:"required"`
	Metadata domain.Attrs `json:"metadata"`
}

// AppendMessage adds one conversation turn to the session history
func (h *SessionHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req appendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	err := h.store.AppendMessage(r.Context(), token, domain.MessageRole(req.Role), req.Content, req.Metadata)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			response.NotFound(w, "Session not found")
			return
		}
		response.InternalError(w, "Failed to append message")
		return
	}

	response.NoContent(w)
}

// GetHistory returns the session's conversation history. Unknown sessions
// yield an empty list rather than 404.
func (h *SessionHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 0 {
			response.BadRequest(w, "Invalid limit")
			return
		}
		limit = v
	}

	history, err := h.store.GetHistory(r.Context(), token, limit)
	if err != nil {
		response.InternalError(w, "Failed to fetch history")
		return
	}

	response.OK(w, history)
}

// UpdateProgress merges the given indicators into the session's learning
// progress
func (h *SessionHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var progress domain.Attrs
	if err := json.NewDecoder(r.Body).Decode(&progress); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.store.UpdateLearningProgress(r.Context(), token, progress); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			response.NotFound(w, "Session not found")
			return
		}
		response.InternalError(w, "Failed to update progress")
		return
	}

	response.NoContent(w)
}

// UpdateStoryContext replaces the session's story context
func (h *SessionHandler) UpdateStoryContext(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var storyContext domain.Attrs
	if err := json.NewDecoder(r.Body).Decode(&storyContext); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.store.UpdateStoryContext(r.Context(), token, storyContext); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			response.NotFound(w, "Session not found")
			return
		}
		response.InternalError(w, "Failed to update story context")
		return
	}

	response.NoContent(w)
}

// Analyze runs the personality analysis pass over the session history
func (h *SessionHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	result, err := h.store.AnalyzePersonality(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			response.NotFound(w, "Session not found")
			return
		}
		response.InternalError(w, "Failed to analyze session")
		return
	}

	if !result.Analyzed {
		response.OK(w, map[string]any{
			"skipped":     "insufficient_messages",
			"adaptations": result.Adaptations,
		})
		return
	}

	response.OK(w, map[string]any{
		"adaptations": result.Adaptations,
	})
}

// Recommendations returns the preference hints derived from the session
func (h *SessionHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	bundle, err := h.store.GetRecommendations(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			response.NotFound(w, "Session not found")
			return
		}
		response.InternalError(w, "Failed to build recommendations")
		return
	}

	response.OK(w, bundle)
}

package domain

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a token is unknown or the session
// behind it has expired. Expired sessions are indistinguishable from missing
// ones everywhere outside the repository.
var ErrSessionNotFound = errors.New("session not found")

// Session is the server-side record of one user's ongoing conversation,
// addressed by an opaque token. Sessions are never deleted explicitly; they
// become unreachable once ExpiresAt passes.
type Session struct {
	Token                  string    `json:"token"`
	UserID                 int64     `json:"user_id"`
	ConversationHistory    []Message `json:"conversation_history"`
	LearningProgress       Attrs     `json:"learning_progress"`
	CurrentStoryContext    Attrs     `json:"current_story_context"`
	PersonalityAdaptations Attrs     `json:"personality_adaptations"`
	CreatedAt              time.Time `json:"created_at"`
	LastActivity           time.Time `json:"last_activity"`
	ExpiresAt              time.Time `json:"expires_at"`
}

// Expired reports whether the session's lifetime has passed at the given
// instant. ExpiresAt is fixed at creation; activity does not extend it.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionRepository is the durable, authoritative store for sessions.
// Implementations filter expired sessions on lookup: FindByToken returns
// ErrSessionNotFound for tokens whose session has passed its ExpiresAt, even
// if the row is still physically present.
type SessionRepository interface {
	// Save persists the session, inserting or overwriting by token.
	Save(ctx context.Context, session *Session) error
	// FindByToken returns the non-expired session for the token, or
	// ErrSessionNotFound.
	FindByToken(ctx context.Context, token string) (*Session, error)
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}

// SessionCache is the fast, TTL-bounded store holding denormalized copies of
// active sessions. Get returns (nil, nil) on a miss. Every method may fail;
// callers treat cache failures as soft and fall back to the repository.
type SessionCache interface {
	Get(ctx context.Context, token string) (*Session, error)
	Set(ctx context.Context, token string, session *Session, ttl time.Duration) error
	Delete(ctx context.Context, token string) error
}

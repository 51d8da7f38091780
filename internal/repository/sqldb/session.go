package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/minervalabs/minerva/internal/domain"
)

// SessionRepository implements domain.SessionRepository on database/sql.
// Timestamps are stored as RFC 3339 text and the expiry filter is applied
// after the scan, which keeps one code path correct for both dialects.
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save inserts or overwrites the session row by token
func (r *SessionRepository) Save(ctx context.Context, session *domain.Session) error {
	var query string
	switch r.db.driver {
	case DriverMySQL:
		query = `
			INSERT INTO user_sessions
				(token, user_id, conversation_history, learning_progress,
				 current_story_context, personality_adaptations,
				 created_at, last_activity, expires_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				conversation_history = VALUES(conversation_history),
				learning_progress = VALUES(learning_progress),
				current_story_context = VALUES(current_story_context),
				personality_adaptations = VALUES(personality_adaptations),
				last_activity = VALUES(last_activity)
		`
	default:
		query = `
			INSERT INTO user_sessions
				(token, user_id, conversation_history, learning_progress,
				 current_story_context, personality_adaptations,
				 created_at, last_activity, expires_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (token) DO UPDATE SET
				conversation_history = excluded.conversation_history,
				learning_progress = excluded.learning_progress,
				current_story_context = excluded.current_story_context,
				personality_adaptations = excluded.personality_adaptations,
				last_activity = excluded.last_activity
		`
	}

	historyJSON, err := json.Marshal(session.ConversationHistory)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	progressJSON, err := json.Marshal(session.LearningProgress)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	contextJSON, err := json.Marshal(session.CurrentStoryContext)
	if err != nil {
		return fmt.Errorf("failed to marshal story context: %w", err)
	}
	adaptationsJSON, err := json.Marshal(session.PersonalityAdaptations)
	if err != nil {
		return fmt.Errorf("failed to marshal adaptations: %w", err)
	}

	_, err = r.db.conn.ExecContext(ctx, query,
		session.Token,
		session.UserID,
		string(historyJSON),
		string(progressJSON),
		string(contextJSON),
		string(adaptationsJSON),
		session.CreatedAt.UTC().Format(time.RFC3339Nano),
		session.LastActivity.UTC().Format(time.RFC3339Nano),
		session.ExpiresAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// FindByToken returns the session for the token if it has not expired
func (r *SessionRepository) FindByToken(ctx context.Context, token string) (*domain.Session, error) {
	query := `
		SELECT token, user_id, conversation_history, learning_progress,
		       current_story_context, personality_adaptations,
		       created_at, last_activity, expires_at
		FROM user_sessions
		WHERE token = ?
	`

	var s domain.Session
	var historyJSON, progressJSON, contextJSON, adaptationsJSON string
	var createdAt, lastActivity, expiresAt string
	err := r.db.conn.QueryRowContext(ctx, query, token).Scan(
		&s.Token,
		&s.UserID,
		&historyJSON,
		&progressJSON,
		&contextJSON,
		&adaptationsJSON,
		&createdAt,
		&lastActivity,
		&expiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if s.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if s.LastActivity, err = time.Parse(time.RFC3339Nano, lastActivity); err != nil {
		return nil, fmt.Errorf("failed to parse last_activity: %w", err)
	}
	if s.ExpiresAt, err = time.Parse(time.RFC3339Nano, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	if s.Expired(time.Now()) {
		return nil, domain.ErrSessionNotFound
	}

	if err := json.Unmarshal([]byte(historyJSON), &s.ConversationHistory); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	if err := json.Unmarshal([]byte(progressJSON), &s.LearningProgress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
	}
	if err := json.Unmarshal([]byte(contextJSON), &s.CurrentStoryContext); err != nil {
		return nil, fmt.Errorf("failed to unmarshal story context: %w", err)
	}
	if err := json.Unmarshal([]byte(adaptationsJSON), &s.PersonalityAdaptations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal adaptations: %w", err)
	}

	return &s, nil
}

// Ping verifies the backend is reachable
func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

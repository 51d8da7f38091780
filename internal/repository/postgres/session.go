package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minervalabs/minerva/internal/domain"
)

// SessionRepository implements domain.SessionRepository on Postgres. The
// history and attribute maps live in JSONB columns; there is no relational
// structure below the session row.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Save inserts or overwrites the session row by token
func (r *SessionRepository) Save(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO user_sessions
			(token, user_id, conversation_history, learning_progress,
			 current_story_context, personality_adaptations,
			 created_at, last_activity, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (token) DO UPDATE SET
			conversation_history = EXCLUDED.conversation_history,
			learning_progress = EXCLUDED.learning_progress,
			current_story_context = EXCLUDED.current_story_context,
			personality_adaptations = EXCLUDED.personality_adaptations,
			last_activity = EXCLUDED.last_activity
	`

	historyJSON, progressJSON, contextJSON, adaptationsJSON, err := marshalSessionFields(session)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, query,
		session.Token,
		session.UserID,
		historyJSON,
		progressJSON,
		contextJSON,
		adaptationsJSON,
		session.CreatedAt,
		session.LastActivity,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// FindByToken returns the session for the token if it has not expired.
// Expired rows are treated as absent.
func (r *SessionRepository) FindByToken(ctx context.Context, token string) (*domain.Session, error) {
	query := `
		SELECT token, user_id, conversation_history, learning_progress,
		       current_story_context, personality_adaptations,
		       created_at, last_activity, expires_at
		FROM user_sessions
		WHERE token = $1 AND expires_at > now()
	`

	var s domain.Session
	var historyJSON, progressJSON, contextJSON, adaptationsJSON []byte
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&s.Token,
		&s.UserID,
		&historyJSON,
		&progressJSON,
		&contextJSON,
		&adaptationsJSON,
		&s.CreatedAt,
		&s.LastActivity,
		&s.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := unmarshalSessionFields(&s, historyJSON, progressJSON, contextJSON, adaptationsJSON); err != nil {
		return nil, err
	}
	return &s, nil
}

// Ping verifies the backend is reachable
func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func marshalSessionFields(session *domain.Session) (history, progress, storyContext, adaptations []byte, err error) {
	if history, err = json.Marshal(session.ConversationHistory); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal history: %w", err)
	}
	if progress, err = json.Marshal(session.LearningProgress); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal progress: %w", err)
	}
	if storyContext, err = json.Marshal(session.CurrentStoryContext); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal story context: %w", err)
	}
	if adaptations, err = json.Marshal(session.PersonalityAdaptations); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal adaptations: %w", err)
	}
	return history, progress, storyContext, adaptations, nil
}

func unmarshalSessionFields(s *domain.Session, history, progress, storyContext, adaptations []byte) error {
	if err := json.Unmarshal(history, &s.ConversationHistory); err != nil {
		return fmt.Errorf("failed to unmarshal history: %w", err)
	}
	if err := json.Unmarshal(progress, &s.LearningProgress); err != nil {
		return fmt.Errorf("failed to unmarshal progress: %w", err)
	}
	if err := json.Unmarshal(storyContext, &s.CurrentStoryContext); err != nil {
		return fmt.Errorf("failed to unmarshal story context: %w", err)
	}
	if err := json.Unmarshal(adaptations, &s.PersonalityAdaptations); err != nil {
		return fmt.Errorf("failed to unmarshal adaptations: %w", err)
	}
	return nil
}

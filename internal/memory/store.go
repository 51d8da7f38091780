package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minervalabs/minerva/internal/domain"
	"github.com/rs/zerolog/log"
)

// Config holds the session store tunables
type Config struct {
	// SessionLifetime is the fixed distance between a session's creation
	// and its expiry. Activity does not extend it.
	SessionLifetime time.Duration
	// MaxHistory bounds the retained conversation history; oldest
	// messages are dropped first.
	MaxHistory int
	// AnalysisThreshold is the minimum total history length before
	// personality analysis runs.
	AnalysisThreshold int
	// AnalysisWindow is how many of the most recent messages the
	// analyzer looks at.
	AnalysisWindow int
}

// DefaultConfig returns the store defaults
func DefaultConfig() Config {
	return Config{
		SessionLifetime:   24 * time.Hour,
		MaxHistory:        100,
		AnalysisThreshold: 10,
		AnalysisWindow:    20,
	}
}

// Store orchestrates session reads and writes across the cache and the
// durable repository. Reads are cache-aside: check the cache, fall back to
// the repository, repopulate the cache. Mutations write the repository first
// and then overwrite (never merge) the cached copy, so a subsequent read
// through the store observes its own write. Cache failures are soft: the
// store logs them and keeps working against the repository alone.
//
// Concurrent mutations of one token are serialized with a per-token mutex;
// without it two callers could each load a stale snapshot and overwrite the
// other's update in both backends.
type Store struct {
	repo  domain.SessionRepository
	cache domain.SessionCache
	cfg   Config
	locks *tokenLocks
	now   func() time.Time
}

// NewStore creates a session store over the given repository and cache
func NewStore(repo domain.SessionRepository, cache domain.SessionCache, cfg Config) *Store {
	return &Store{
		repo:  repo,
		cache: cache,
		cfg:   cfg,
		locks: newTokenLocks(),
		now:   time.Now,
	}
}

// CreateSession builds a fresh session for the user, persists it and
// populates the cache. The returned token is the session's only handle.
func (s *Store) CreateSession(ctx context.Context, userID int64) (string, error) {
	now := s.now()
	session := &domain.Session{
		Token:                  uuid.NewString(),
		UserID:                 userID,
		ConversationHistory:    []domain.Message{},
		LearningProgress:       domain.Attrs{},
		CurrentStoryContext:    domain.Attrs{},
		PersonalityAdaptations: domain.Attrs{},
		CreatedAt:              now,
		LastActivity:           now,
		ExpiresAt:              now.Add(s.cfg.SessionLifetime),
	}

	if err := s.repo.Save(ctx, session); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	s.cacheSet(ctx, session)

	return session.Token, nil
}

// GetSession returns the session for the token, or domain.ErrSessionNotFound
// if the token is unknown or the session has expired. An expired cache entry
// is purged on sight.
func (s *Store) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	cached, err := s.cache.Get(ctx, token)
	if err != nil {
		log.Warn().Err(err).Msg("session cache read failed")
	}
	if cached != nil {
		if !cached.Expired(s.now()) {
			return cached, nil
		}
		if err := s.cache.Delete(ctx, token); err != nil {
			log.Warn().Err(err).Msg("failed to evict expired session from cache")
		}
	}

	session, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, session)

	return session, nil
}

// AppendMessage adds one conversation turn, stamping it with the current
// time. History beyond the configured bound is truncated from the front.
func (s *Store) AppendMessage(ctx context.Context, token string, role domain.MessageRole, content string, metadata domain.Attrs) error {
	message := domain.Message{
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
		Metadata:  metadata,
	}

	return s.mutate(ctx, token, func(session *domain.Session) {
		history := append(session.ConversationHistory, message)
		if len(history) > s.cfg.MaxHistory {
			history = history[len(history)-s.cfg.MaxHistory:]
		}
		session.ConversationHistory = history
	})
}

// GetHistory returns the session's conversation history, most recent last.
// A positive limit restricts the result to the last limit entries. Unknown
// or expired sessions yield an empty slice, not an error.
func (s *Store) GetHistory(ctx context.Context, token string, limit int) ([]domain.Message, error) {
	session, err := s.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return []domain.Message{}, nil
		}
		return nil, err
	}

	history := session.ConversationHistory
	if limit > 0 && limit < len(history) {
		history = history[len(history)-limit:]
	}
	return history, nil
}

// UpdateLearningProgress merges the given progress indicators into the
// session's existing ones, key-wise.
func (s *Store) UpdateLearningProgress(ctx context.Context, token string, progress domain.Attrs) error {
	return s.mutate(ctx, token, func(session *domain.Session) {
		if session.LearningProgress == nil {
			session.LearningProgress = domain.Attrs{}
		}
		session.LearningProgress.Merge(progress)
	})
}

// UpdateStoryContext replaces the session's story context wholesale.
func (s *Store) UpdateStoryContext(ctx context.Context, token string, storyContext domain.Attrs) error {
	return s.mutate(ctx, token, func(session *domain.Session) {
		session.CurrentStoryContext = storyContext
	})
}

// AnalysisResult is the outcome of a personality analysis pass. Analyzed is
// false when the pass was skipped for lack of messages; Adaptations then
// holds the session's existing adaptations unchanged.
type AnalysisResult struct {
	Adaptations domain.Attrs `json:"adaptations"`
	Analyzed    bool         `json:"analyzed"`
}

// AnalyzePersonality runs the adaptation heuristics over the most recent
// user messages and merges the result into the session's stored adaptations.
// With fewer than the threshold of total history messages the pass is
// skipped and nothing is persisted.
func (s *Store) AnalyzePersonality(ctx context.Context, token string) (AnalysisResult, error) {
	unlock := s.locks.lock(token)
	defer unlock()

	session, err := s.GetSession(ctx, token)
	if err != nil {
		return AnalysisResult{}, err
	}

	history := session.ConversationHistory
	if len(history) < s.cfg.AnalysisThreshold {
		return AnalysisResult{Adaptations: session.PersonalityAdaptations.Clone()}, nil
	}

	window := history
	if len(window) > s.cfg.AnalysisWindow {
		window = window[len(window)-s.cfg.AnalysisWindow:]
	}
	var userMessages []domain.Message
	for _, m := range window {
		if m.Role == domain.RoleUser {
			userMessages = append(userMessages, m)
		}
	}
	if len(userMessages) == 0 {
		return AnalysisResult{Adaptations: session.PersonalityAdaptations.Clone()}, nil
	}

	adaptations := analyzeInteractionPatterns(userMessages, s.now())

	err = s.mutateLocked(ctx, token, func(session *domain.Session) {
		if session.PersonalityAdaptations == nil {
			session.PersonalityAdaptations = domain.Attrs{}
		}
		session.PersonalityAdaptations.Merge(adaptations)
	})
	if err != nil {
		return AnalysisResult{}, err
	}

	return AnalysisResult{Adaptations: adaptations, Analyzed: true}, nil
}

// GetRecommendations derives preference hints from the session's current
// adaptations and learning progress.
func (s *Store) GetRecommendations(ctx context.Context, token string) (*domain.RecommendationBundle, error) {
	session, err := s.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}

	bundle := buildRecommendations(
		session.PersonalityAdaptations,
		session.LearningProgress,
		session.ConversationHistory,
	)
	return &bundle, nil
}

// mutate is the shape behind every state-changing operation: serialize on
// the token, load, apply, stamp activity, write the repository, overwrite
// the cache.
func (s *Store) mutate(ctx context.Context, token string, fn func(*domain.Session)) error {
	unlock := s.locks.lock(token)
	defer unlock()
	return s.mutateLocked(ctx, token, fn)
}

// mutateLocked carries out a mutation for a caller that already holds the
// token's lock.
func (s *Store) mutateLocked(ctx context.Context, token string, fn func(*domain.Session)) error {
	session, err := s.GetSession(ctx, token)
	if err != nil {
		return err
	}

	fn(session)
	session.LastActivity = s.now()

	if err := s.repo.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.cacheSet(ctx, session)

	return nil
}

// cacheSet overwrites the cached copy of the session with a TTL matching
// its remaining lifetime. Best effort: failures are logged, never returned.
func (s *Store) cacheSet(ctx context.Context, session *domain.Session) {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return
	}
	if err := s.cache.Set(ctx, session.Token, session, ttl); err != nil {
		log.Warn().Err(err).Msg("failed to cache session")
	}
}

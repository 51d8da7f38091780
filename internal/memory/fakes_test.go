package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/minervalabs/minerva/internal/domain"
)

var errBackendDown = errors.New("backend down")

// copySession deep-copies through the JSON codec so fakes never alias the
// caller's session.
func copySession(s *domain.Session) *domain.Session {
	data, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	var out domain.Session
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

// fakeRepo is an in-memory domain.SessionRepository. It applies the same
// expiry filtering the real backends do.
type fakeRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	saveErr  error
	findErr  error
	now      func() time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		sessions: make(map[string]*domain.Session),
		now:      time.Now,
	}
}

func (r *fakeRepo) Save(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.sessions[session.Token] = copySession(session)
	return nil
}

func (r *fakeRepo) FindByToken(_ context.Context, token string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	s, ok := r.sessions[token]
	if !ok || s.Expired(r.now()) {
		return nil, domain.ErrSessionNotFound
	}
	return copySession(s), nil
}

func (r *fakeRepo) Ping(context.Context) error { return nil }

// stored returns the raw persisted session, bypassing expiry filtering.
func (r *fakeRepo) stored(token string) *domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	if !ok {
		return nil
	}
	return copySession(s)
}

// put stores a session directly, bypassing Save error injection.
func (r *fakeRepo) put(s *domain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Token] = copySession(s)
}

// fakeCache is an in-memory domain.SessionCache. With down set every
// operation fails, simulating an unreachable backend.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*domain.Session
	down    bool
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*domain.Session)}
}

func (c *fakeCache) Get(_ context.Context, token string) (*domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, errBackendDown
	}
	s, ok := c.entries[token]
	if !ok {
		return nil, nil
	}
	return copySession(s), nil
}

func (c *fakeCache) Set(_ context.Context, token string, session *domain.Session, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errBackendDown
	}
	c.entries[token] = copySession(session)
	c.sets++
	return nil
}

func (c *fakeCache) Delete(_ context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errBackendDown
	}
	delete(c.entries, token)
	return nil
}

// put stores an entry directly, ignoring the down flag.
func (c *fakeCache) put(s *domain.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[s.Token] = copySession(s)
}

// has reports whether an entry exists, ignoring the down flag.
func (c *fakeCache) has(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[token]
	return ok
}

// drop removes an entry directly, simulating an eviction.
func (c *fakeCache) drop(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, token)
}

package memory

import "sync"

// tokenLocks hands out one mutex per session token so that concurrent
// mutations of the same session are serialized instead of racing on a
// read-modify-write. Entries are refcounted and dropped when the last
// holder releases, so the map does not grow with the number of sessions
// ever seen.
type tokenLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newTokenLocks() *tokenLocks {
	return &tokenLocks{entries: make(map[string]*lockEntry)}
}

// lock acquires the mutex for token and returns the release func.
func (l *tokenLocks) lock(token string) func() {
	l.mu.Lock()
	e, ok := l.entries[token]
	if !ok {
		e = &lockEntry{}
		l.entries[token] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, token)
		}
		l.mu.Unlock()
	}
}

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps live sessions in memory, keyed by id. Nothing is
// persisted; a session lives until it idles out or the process exits.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	predictor Predictor
	locator   Locator
	opts      Options
}

func NewStore(predictor Predictor, locator Locator, opts Options) *Store {
	return &Store{
		sessions:  make(map[string]*Session),
		predictor: predictor,
		locator:   locator,
		opts:      opts,
	}
}

// Create registers a fresh session and returns it.
func (st *Store) Create() *Session {
	s := New(uuid.NewString(), st.predictor, st.locator, st.opts)

	st.mu.Lock()
	st.sessions[s.ID()] = s
	st.mu.Unlock()

	return s
}

func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

func (st *Store) Remove(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// StartSweeper starts a background goroutine that drops sessions idle
// for longer than idleAfter.
func (st *Store) StartSweeper(ctx context.Context, idleAfter time.Duration) {
	go func() {
		ticker := time.NewTicker(idleAfter / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st.sweep(idleAfter)
			}
		}
	}()
}

func (st *Store) sweep(idleAfter time.Duration) {
	cutoff := time.Now().Add(-idleAfter)

	st.mu.Lock()
	defer st.mu.Unlock()
	for id, s := range st.sessions {
		if s.LastActive().Before(cutoff) {
			delete(st.sessions, id)
			slog.Debug("swept idle session", "id", id)
		}
	}
}

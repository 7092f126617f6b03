package views

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Registry maps session IDs to their view stores. Sessions live for the
// process lifetime; there is no persistence across restarts.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Store
	log      zerolog.Logger
}

// NewRegistry creates a new session registry
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Store),
		log:      log.With().Str("service", "sessions").Logger(),
	}
}

// Create allocates a new session and returns its ID.
func (r *Registry) Create() (string, *Store) {
	id := uuid.New().String()

	store := NewStore(r.log)

	r.mu.Lock()
	r.sessions[id] = store
	r.mu.Unlock()

	r.log.Debug().Str("session_id", id).Msg("Session created")
	return id, store
}

// Get looks up a session store by ID.
func (r *Registry) Get(id string) (*Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	store, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q not found", id)
	}
	return store, nil
}

// Delete removes a session and its state.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return fmt.Errorf("session %q not found", id)
	}
	delete(r.sessions, id)
	return nil
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Package views holds per-session dashboard state: active filters, display
// preferences, and named view snapshots that can be re-applied later.
package views

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mgalanis/beacon/internal/domain"
)

// Display preference defaults for a fresh session.
const (
	DefaultTheme        = "light"
	DefaultActiveTab    = "sales"
	DefaultExportFormat = "csv"
)

// State is a snapshot of one session's dashboard state.
type State struct {
	Filters      domain.FilterSelection `json:"filters"`
	Theme        string                 `json:"theme"`
	ActiveTab    string                 `json:"active_tab"`
	ShowFilters  bool                   `json:"show_filters"`
	ExportFormat string                 `json:"export_format"`
	LastUpdated  time.Time              `json:"last_updated"`
}

// Update is a partial state change. Nil fields are left untouched.
type Update struct {
	Filters      *domain.FilterSelection `json:"filters,omitempty"`
	Theme        *string                 `json:"theme,omitempty"`
	ActiveTab    *string                 `json:"active_tab,omitempty"`
	ShowFilters  *bool                   `json:"show_filters,omitempty"`
	ExportFormat *string                 `json:"export_format,omitempty"`
}

// Store is the mutable view state of a single session. Safe for concurrent
// use.
type Store struct {
	mu    sync.RWMutex
	state State
	saved map[string]domain.SavedView
	log   zerolog.Logger
}

// NewStore creates a session store with default display preferences.
func NewStore(log zerolog.Logger) *Store {
	return &Store{
		state: State{
			Theme:        DefaultTheme,
			ActiveTab:    DefaultActiveTab,
			ShowFilters:  true,
			ExportFormat: DefaultExportFormat,
			LastUpdated:  time.Now().UTC(),
		},
		saved: make(map[string]domain.SavedView),
		log:   log.With().Str("service", "views").Logger(),
	}
}

// State returns a copy of the current session state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Apply merges a partial update into the session state and returns the
// result. Invalid filter selections are rejected whole.
func (s *Store) Apply(u Update) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Filters != nil {
		if !u.Filters.Valid() {
			return s.state, fmt.Errorf("invalid filters: start date is after end date")
		}
		s.state.Filters = *u.Filters
	}
	if u.Theme != nil {
		if *u.Theme != "light" && *u.Theme != "dark" {
			return s.state, fmt.Errorf("invalid theme %q", *u.Theme)
		}
		s.state.Theme = *u.Theme
	}
	if u.ActiveTab != nil {
		s.state.ActiveTab = *u.ActiveTab
	}
	if u.ShowFilters != nil {
		s.state.ShowFilters = *u.ShowFilters
	}
	if u.ExportFormat != nil {
		s.state.ExportFormat = *u.ExportFormat
	}
	s.state.LastUpdated = time.Now().UTC()

	return s.state, nil
}

// ResetFilters clears the active filter selection.
func (s *Store) ResetFilters() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Filters = domain.FilterSelection{}
	s.state.LastUpdated = time.Now().UTC()
	return s.state
}

// SaveView snapshots the current filters and active tab under a name.
// Saving an existing name overwrites the previous snapshot.
func (s *Store) SaveView(name, description string) (domain.SavedView, error) {
	if name == "" {
		return domain.SavedView{}, fmt.Errorf("view name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	view := domain.SavedView{
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
		Filters:     s.state.Filters,
		ActiveTab:   s.state.ActiveTab,
	}
	s.saved[name] = view
	s.log.Debug().Str("view", name).Msg("View saved")

	return view, nil
}

// LoadView re-applies a saved snapshot to the session state.
func (s *Store) LoadView(name string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, ok := s.saved[name]
	if !ok {
		return s.state, fmt.Errorf("view %q not found", name)
	}

	s.state.Filters = view.Filters
	s.state.ActiveTab = view.ActiveTab
	s.state.LastUpdated = time.Now().UTC()

	return s.state, nil
}

// DeleteView removes a saved snapshot.
func (s *Store) DeleteView(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.saved[name]; !ok {
		return fmt.Errorf("view %q not found", name)
	}
	delete(s.saved, name)
	return nil
}

// ListViews returns the saved snapshots sorted by name.
func (s *Store) ListViews() []domain.SavedView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SavedView, 0, len(s.saved))
	for _, v := range s.saved {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

package views

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers handles session and saved-view HTTP requests
type Handlers struct {
	registry *Registry
	log      zerolog.Logger
}

// NewHandlers creates new session handlers
func NewHandlers(registry *Registry, log zerolog.Logger) *Handlers {
	return &Handlers{
		registry: registry,
		log:      log.With().Str("handler", "sessions").Logger(),
	}
}

// RegisterRoutes registers all session routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.HandleCreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Delete("/", h.HandleDeleteSession)
			r.Get("/state", h.HandleGetState)
			r.Patch("/state", h.HandleUpdateState)
			r.Get("/views", h.HandleListViews)
			r.Post("/views", h.HandleSaveView)
			r.Post("/views/{name}/load", h.HandleLoadView)
			r.Delete("/views/{name}", h.HandleDeleteView)
		})
	})
}

// HandleCreateSession allocates a new session.
func (h *Handlers) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, store := h.registry.Create()
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": id,
		"state":      store.State(),
	})
}

// HandleDeleteSession removes a session.
func (h *Handlers) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(chi.URLParam(r, "sessionID")); err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetState returns the session's current view state.
func (h *Handlers) HandleGetState(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, store.State())
}

// HandleUpdateState merges a partial update into the session state.
func (h *Handlers) HandleUpdateState(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid state update: "+err.Error())
		return
	}

	state, err := store.Apply(update)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}

// HandleListViews returns the session's saved views.
func (h *Handlers) HandleListViews(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, store.ListViews())
}

// HandleSaveView snapshots the current filters under a name.
func (h *Handlers) HandleSaveView(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid save request: "+err.Error())
		return
	}

	view, err := store.SaveView(req.Name, req.Description)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, view)
}

// HandleLoadView re-applies a saved view to the session.
func (h *Handlers) HandleLoadView(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	state, err := store.LoadView(chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}

// HandleDeleteView removes a saved view.
func (h *Handlers) HandleDeleteView(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	if err := store.DeleteView(chi.URLParam(r, "name")); err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Helper methods

func (h *Handlers) store(w http.ResponseWriter, r *http.Request) (*Store, bool) {
	store, err := h.registry.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return store, true
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// Package events provides the typed in-process event bus used to notify
// connected clients about dataset changes.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType identifies a category of event on the bus.
type EventType string

const (
	// DatasetRefreshed fires after the dataset cache has been reloaded
	// (scheduled refresh or manual trigger). Clients recompute on receipt.
	DatasetRefreshed EventType = "dataset.refreshed"
	// DatasetLoadFailed fires when a reload attempt could not produce data.
	DatasetLoadFailed EventType = "dataset.load_failed"
)

// Event is a single bus message.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// DatasetRefreshedData carries the row counts of a fresh load.
type DatasetRefreshedData struct {
	SalesRows    int    `json:"sales_rows"`
	CustomerRows int    `json:"customer_rows"`
	Source       string `json:"source"` // "startup", "schedule", "manual"
}

// DatasetLoadFailedData carries the reason a reload failed.
type DatasetLoadFailedData struct {
	Reason string `json:"reason"`
}

// Handler receives published events. Handlers must not block; slow
// consumers buffer on their own channels.
type Handler func(*Event)

// Bus is a minimal publish/subscribe fan-out.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	log      zerolog.Logger
}

// NewBus creates an event bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
		log:      log.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(t EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Publish delivers an event to all subscribers of its type. Payload
// marshaling errors are logged and the event is dropped.
func (b *Bus) Publish(t EventType, payload interface{}) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			b.log.Error().Err(err).Str("event_type", string(t)).Msg("Failed to marshal event payload")
			return
		}
		raw = data
	}

	evt := &Event{
		Type:      t,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}

	b.mu.RLock()
	subs := b.handlers[t]
	b.mu.RUnlock()

	for _, h := range subs {
		h(evt)
	}
}

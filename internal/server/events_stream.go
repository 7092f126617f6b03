package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/mgalanis/beacon/internal/events"
)

// subscriberBuffer is the per-connection event backlog. A client that
// cannot drain this many events loses the overflow rather than blocking
// the bus.
const subscriberBuffer = 100

// eventStream fans bus events out to websocket clients.
type eventStream struct {
	log  zerolog.Logger
	mu   sync.Mutex
	subs map[chan *events.Event]struct{}
}

func newEventStream(bus *events.Bus, log zerolog.Logger) *eventStream {
	es := &eventStream{
		log:  log.With().Str("component", "event_stream").Logger(),
		subs: make(map[chan *events.Event]struct{}),
	}

	if bus != nil {
		bus.Subscribe(events.DatasetRefreshed, es.broadcast)
		bus.Subscribe(events.DatasetLoadFailed, es.broadcast)
	}

	return es
}

// broadcast is a bus handler; it must not block, so full subscriber
// channels drop the event.
func (es *eventStream) broadcast(evt *events.Event) {
	es.mu.Lock()
	defer es.mu.Unlock()

	for ch := range es.subs {
		select {
		case ch <- evt:
		default:
			es.log.Warn().Str("event_type", string(evt.Type)).Msg("Subscriber buffer full, dropping event")
		}
	}
}

func (es *eventStream) subscribe() chan *events.Event {
	ch := make(chan *events.Event, subscriberBuffer)
	es.mu.Lock()
	es.subs[ch] = struct{}{}
	es.mu.Unlock()
	return ch
}

func (es *eventStream) unsubscribe(ch chan *events.Event) {
	es.mu.Lock()
	delete(es.subs, ch)
	es.mu.Unlock()
}

// Handle upgrades the request to a websocket and forwards bus events as
// JSON text messages until the client goes away.
func (es *eventStream) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		es.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ch := es.subscribe()
	defer es.unsubscribe(ch)

	es.log.Debug().Str("remote", r.RemoteAddr).Msg("Event stream client connected")

	// No client messages are expected; CloseRead watches for the close
	// frame and cancels the context.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case evt := <-ch:
			data, err := json.Marshal(evt)
			if err != nil {
				es.log.Error().Err(err).Msg("Failed to marshal event")
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				es.log.Debug().Err(err).Msg("Event stream client write failed")
				return
			}
		}
	}
}

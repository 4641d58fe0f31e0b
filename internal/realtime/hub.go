package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

// DefaultClientBuffer is the per-client event queue length.
const DefaultClientBuffer = 16

// Hub is the in-process registry of connected realtime clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]chan Event
	buffer  int
	logg    *logger.Logger
	metrics *metrics.RealtimeMetrics
}

// NewHub builds an empty hub. logg and m may be nil.
func NewHub(buffer int, logg *logger.Logger, m *metrics.RealtimeMetrics) *Hub {
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Hub{
		clients: make(map[string]chan Event),
		buffer:  buffer,
		logg:    logg,
		metrics: m,
	}
}

// Subscribe registers a client and returns its id, its event stream and the
// function that unregisters it. The stream is closed on unsubscribe.
func (h *Hub) Subscribe() (string, <-chan Event, func()) {
	id := uuid.NewString()
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	h.clients[id] = ch
	h.mu.Unlock()
	h.metrics.ClientConnected()

	var once sync.Once
	return id, ch, func() {
		once.Do(func() {
			h.mu.Lock()
			if existing, ok := h.clients[id]; ok {
				delete(h.clients, id)
				close(existing)
				h.metrics.ClientDisconnected()
			}
			h.mu.Unlock()
		})
	}
}

// Publish fans ev out without blocking; clients with a full buffer miss it.
// It returns how many clients received the event.
func (h *Hub) Publish(ctx context.Context, ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered, dropped := 0, 0
	for id, ch := range h.clients {
		if !ev.deliverableTo(id) {
			continue
		}
		select {
		case ch <- ev:
			delivered++
		default:
			dropped++
			h.metrics.IncDropped(ev.Name)
		}
	}
	h.metrics.IncBroadcast(ev.Name)

	h.logg.Info(h.logg.WithFields(ctx, map[string]any{
		"event":       ev.Name,
		"subscribers": delivered,
		"dropped":     dropped,
	}), "realtime.broadcast")
	return delivered
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Has reports whether clientID is connected to this hub.
func (h *Hub) Has(clientID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[clientID]
	return ok
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.clients {
		delete(h.clients, id)
		close(ch)
		h.metrics.ClientDisconnected()
	}
}

package sse

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// clientBuffer is how many events a slow admin tab may lag behind before
// events are dropped for it.
const clientBuffer = 32

// Message is one server-sent event.
type Message struct {
	Event string
	Data  json.RawMessage
}

// Subscriber is a connected admin stream.
type Subscriber struct {
	ID       string
	UserID   int
	Messages chan Message
}

// Hub fans order events out to connected admin streams.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*Subscriber
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]*Subscriber)}
}

// Subscribe registers a stream for userID.
func (h *Hub) Subscribe(id string, userID int) *Subscriber {
	s := &Subscriber{ID: id, UserID: userID, Messages: make(chan Message, clientBuffer)}

	h.mu.Lock()
	h.subs[id] = s
	n := len(h.subs)
	h.mu.Unlock()

	log.Info().Str("subscriber", id).Int("user_id", userID).Int("subscribers", n).Msg("Order stream opened")
	return s
}

// Unsubscribe removes the stream and closes its channel. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	s, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
		close(s.Messages)
	}
	n := len(h.subs)
	h.mu.Unlock()

	if ok {
		log.Info().Str("subscriber", id).Int("subscribers", n).Msg("Order stream closed")
	}
}

// Publish encodes payload once and offers it to every subscriber without
// blocking; a full buffer drops the event for that subscriber only.
func (h *Hub) Publish(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Cannot encode stream event")
		return
	}
	msg := Message{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		select {
		case s.Messages <- msg:
		default:
			log.Warn().Str("subscriber", s.ID).Str("event", event).Msg("Order stream buffer full; event dropped")
		}
	}
}

// Len returns the number of open streams.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every open stream.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, s := range h.subs {
		close(s.Messages)
		delete(h.subs, id)
	}
}

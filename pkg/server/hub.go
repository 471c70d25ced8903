package server

import (
	"net/http"
	"sync"

	"github.com/erain9/crossbook/pkg/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// subscriberBuffer bounds the per-connection queue; slow readers lose
// records rather than stalling the broadcast.
const subscriberBuffer = 32

type subscription struct {
	ch chan core.MatchRecord
}

// Hub fans executed pairings out to websocket subscribers
type Hub struct {
	mu       sync.RWMutex
	subs     map[*subscription]struct{}
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHub creates an empty Hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subs: make(map[*subscription]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.With().Str("component", "ws_hub").Logger(),
	}
}

func (h *Hub) subscribe() *subscription {
	sub := &subscription{ch: make(chan core.MatchRecord, subscriberBuffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(sub *subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
	close(sub.ch)
}

// Broadcast sends a record to every subscriber without blocking
func (h *Hub) Broadcast(record core.MatchRecord) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.ch <- record:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

type outboundMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// HandleStream upgrades the connection and streams executed pairings
// until the client disconnects
func (h *Hub) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := h.subscribe()
	defer h.unsubscribe(sub)

	h.logger.Debug().Str("remote_addr", r.RemoteAddr).Msg("Websocket subscriber connected")

	for record := range sub.ch {
		msg := outboundMessage{Type: "match", Data: record}
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	sseChannelBuffer = 16
	sseHeartbeat     = 30 * time.Second
)

// subscriber is a single SSE or WebSocket connection to a game. stale is
// set when an event could not be queued; the connection then owes its
// client a full game_state.
type subscriber struct {
	ch     chan []byte
	gameID string
	stale  atomic.Bool
}

// Broadcaster fans game events out to subscribers grouped by game session.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	logger *zap.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		subs:   make(map[*subscriber]struct{}),
		logger: logger,
	}
}

// Register adds a subscriber for a game session and returns it.
func (b *Broadcaster) Register(gameID string) *subscriber {
	s := &subscriber{
		ch:     make(chan []byte, sseChannelBuffer),
		gameID: gameID,
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Unregister removes a subscriber and closes its channel.
func (b *Broadcaster) Unregister(s *subscriber) {
	b.mu.Lock()
	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
		close(s.ch)
	}
	b.mu.Unlock()
}

// Broadcast sends an event to all subscribers of a game session.
func (b *Broadcaster) Broadcast(gameID string, evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		b.logger.Error("encode event", zap.String("type", evt.Type), zap.Error(err))
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for s := range b.subs {
		if s.gameID == gameID {
			select {
			case s.ch <- data:
			default:
				s.stale.Store(true)
				b.logger.Debug("subscriber full, event dropped",
					zap.String("game", gameID), zap.String("type", evt.Type))
			}
		}
	}
}

// SubscriberCount returns the number of subscribers of a game.
func (b *Broadcaster) SubscriberCount(gameID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for s := range b.subs {
		if s.gameID == gameID {
			n++
		}
	}
	return n
}

// send queues an event for a single subscriber, dropping it when full.
func (s *subscriber) send(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case s.ch <- data:
	default:
		s.stale.Store(true)
	}
}

// takeStale reports whether events were dropped since the last call.
func (s *subscriber) takeStale() bool {
	return s.stale.Swap(false)
}

// ServeSSE handles an SSE connection for a game session. state is sent on
// connect and again whenever events had to be dropped for this client.
func (b *Broadcaster) ServeSSE(w http.ResponseWriter, r *http.Request, gameID string, state func() Event, onConnect, onDisconnect func()) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming non supporté", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s := b.Register(gameID)
	if onConnect != nil {
		onConnect()
	}
	defer func() {
		b.Unregister(s)
		if onDisconnect != nil {
			onDisconnect()
		}
	}()

	writeState := func() {
		data, err := json.Marshal(state())
		if err != nil {
			b.logger.Error("encode game state", zap.String("game", gameID), zap.Error(err))
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
	writeState()

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-s.ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
			if s.takeStale() {
				writeState()
			}
		case <-ticker.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bodul/crossgrid/internal/grid"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsMaxMessage = 1 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Frame is a message sent by a WebSocket client.
type Frame struct {
	Type  string `json:"type"` // "move" or "cursor"
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Value string `json:"value,omitempty"`
}

// GET /api/games/{id}/ws?pseudo=: bidirectional game stream. The client
// receives the same events as the SSE stream and sends move and cursor
// frames.
func (s *Server) handleGameWS(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	pseudo := sanitizePseudo(r.URL.Query().Get("pseudo"))
	if pseudo == "" {
		jsonError(w, "Paramètre 'pseudo' requis", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Debug("websocket upgrade", zap.Error(err))
		return
	}
	log := s.logger.With(zap.String("game", game.ID), zap.String("pseudo", pseudo))
	log.Info("websocket connected")

	sub := s.sse.Register(game.ID)
	sub.send(gameState(game))

	player := game.Connect(pseudo)
	s.sse.Broadcast(game.ID, Event{Type: eventPlayerJoined, Pseudo: player.Pseudo, Color: player.Color})

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wsWriter(conn, sub, game, log)
	}()

	s.wsReader(conn, r.RemoteAddr, game, pseudo, sub, log)

	s.sse.Unregister(sub)
	<-done
	conn.Close()

	if game.Disconnect(pseudo) {
		s.sse.Broadcast(game.ID, Event{Type: eventPlayerLeft, Pseudo: pseudo})
	}
	log.Info("websocket disconnected")
}

// wsReader applies the client's frames. Moves and cursors share the HTTP
// move limit of the client's address.
func (s *Server) wsReader(conn *websocket.Conn, addr string, game *GameSession, pseudo string, sub *subscriber, log *zap.Logger) {
	conn.SetReadLimit(wsMaxMessage)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read", zap.Error(err))
			}
			return
		}

		if (f.Type == "move" || f.Type == "cursor") && !s.moveRL.allow(addr) {
			sub.send(Event{Type: eventError, Error: "Trop de requêtes, réessayez plus tard"})
			continue
		}

		at := grid.Coord{Row: f.Row, Col: f.Col}
		switch f.Type {
		case "move":
			if _, err := s.applyMove(game, pseudo, at, f.Value); err != nil {
				sub.send(Event{Type: eventError, Error: moveErrorMessage(err)})
			}
		case "cursor":
			s.applyCursor(game, pseudo, at)
		default:
			sub.send(Event{Type: eventError, Error: "Type de message inconnu"})
		}
	}
}

// wsWriter forwards queued events. After events were dropped for this
// client it follows up with a full game_state.
func (s *Server) wsWriter(conn *websocket.Conn, sub *subscriber, game *GameSession, log *zap.Logger) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.ch:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			err := conn.WriteMessage(websocket.TextMessage, msg)
			if err == nil && sub.takeStale() {
				log.Debug("resync after dropped events")
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				err = conn.WriteJSON(gameState(game))
			}
			if err != nil {
				log.Debug("websocket write", zap.Error(err))
				// Unblock the reader so the connection is torn down.
				conn.Close()
				drain(sub.ch)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				drain(sub.ch)
				return
			}
		}
	}
}

// drain discards queued messages until ch is closed.
func drain(ch <-chan []byte) {
	for range ch {
	}
}

func moveErrorMessage(err error) string {
	switch {
	case errors.Is(err, errInvalidValue):
		return "Valeur invalide : lettres uniquement"
	case errors.Is(err, grid.ErrBlockedCell):
		return "Case de définition"
	case errors.Is(err, grid.ErrOutOfBounds):
		return "Position hors limites"
	}
	return "Requête invalide"
}

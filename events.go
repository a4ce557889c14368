package main

import (
	"fmt"

	"github.com/bodul/crossgrid/internal/grid"
)

// Event types pushed to SSE and WebSocket subscribers.
const (
	eventGameState    = "game_state"
	eventPlayerJoined = "player_joined"
	eventPlayerLeft   = "player_left"
	eventCellUpdate   = "cell_update"
	eventCursorMoved  = "cursor_moved"
	eventError        = "error"
)

// Event is one message of a game's event stream. Row and Col are set
// together, for cell and cursor events only.
type Event struct {
	Type    string                `json:"type"`
	Pseudo  string                `json:"pseudo,omitempty"`
	Color   string                `json:"color,omitempty"`
	Row     *int                  `json:"row,omitempty"`
	Col     *int                  `json:"col,omitempty"`
	Value   *string               `json:"value,omitempty"`
	State   [][]string            `json:"state,omitempty"`
	Players map[string]Player     `json:"players,omitempty"`
	Cursors map[string]grid.Coord `json:"cursors,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// Coord returns the cell the event is about, if any.
func (e Event) Coord() (grid.Coord, bool) {
	if e.Row == nil || e.Col == nil {
		return grid.Coord{}, false
	}
	return grid.Coord{Row: *e.Row, Col: *e.Col}, true
}

func (e Event) String() string {
	s := e.Type
	if e.Pseudo != "" {
		s += " " + e.Pseudo
	}
	if c, ok := e.Coord(); ok {
		s += " " + c.String()
	}
	if e.Value != nil {
		s += fmt.Sprintf(" %q", *e.Value)
	}
	if e.Error != "" {
		s += ": " + e.Error
	}
	return s
}

func cellUpdate(pseudo string, c grid.Coord, value string) Event {
	return Event{Type: eventCellUpdate, Pseudo: pseudo, Row: &c.Row, Col: &c.Col, Value: &value}
}

func cursorMoved(pseudo string, c grid.Coord) Event {
	return Event{Type: eventCursorMoved, Pseudo: pseudo, Row: &c.Row, Col: &c.Col}
}

func gameState(g *GameSession) Event {
	return Event{
		Type:    eventGameState,
		State:   g.GetState(),
		Players: g.Players(),
		Cursors: g.Cursors(),
	}
}

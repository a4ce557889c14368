package main

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/bodul/crossgrid/internal/collab"
	"github.com/bodul/crossgrid/internal/grid"
)

// Player represents a connected player.
type Player struct {
	Pseudo   string    `json:"pseudo"`
	Color    string    `json:"color"`
	JoinedAt time.Time `json:"joined_at"`
}

// GameSession represents a collaborative game on a grid. The model holds
// the shared letters; cursors holds where each player's cursor is.
type GameSession struct {
	ID        string
	GridID    string
	CreatedAt time.Time

	mu      sync.Mutex
	players map[string]*Player
	conns   map[string]int
	model   *grid.Model
	cursors *collab.Registry
}

// playerColors is the palette assigned to players in order.
var playerColors = []string{
	"#2563eb", "#dc2626", "#16a34a", "#9333ea",
	"#ea580c", "#0891b2", "#c026d3", "#ca8a04",
}

func newGameSession(id, gridID string, m *grid.Model) *GameSession {
	return &GameSession{
		ID:        id,
		GridID:    gridID,
		CreatedAt: time.Now(),
		players:   make(map[string]*Player),
		conns:     make(map[string]int),
		model:     m,
		cursors:   collab.New(),
	}
}

// AddPlayer adds a player to the session and returns the player.
func (g *GameSession) AddPlayer(pseudo string) *Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addPlayerLocked(pseudo)
}

func (g *GameSession) addPlayerLocked(pseudo string) *Player {
	if p, ok := g.players[pseudo]; ok {
		return p
	}

	p := &Player{
		Pseudo:   pseudo,
		Color:    playerColors[len(g.players)%len(playerColors)],
		JoinedAt: time.Now(),
	}
	g.players[pseudo] = p
	return p
}

// Connect records a live connection of pseudo, adding the player if
// needed.
func (g *GameSession) Connect(pseudo string) *Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.conns[pseudo]++
	return g.addPlayerLocked(pseudo)
}

// Disconnect drops one connection of pseudo. The player and their cursor
// are removed with the last connection; it reports whether that happened.
func (g *GameSession) Disconnect(pseudo string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conns[pseudo] > 1 {
		g.conns[pseudo]--
		return false
	}
	delete(g.conns, pseudo)
	delete(g.players, pseudo)
	g.cursors.Remove(pseudo)
	return true
}

// Players returns a copy of the connected players.
func (g *GameSession) Players() map[string]Player {
	g.mu.Lock()
	defer g.mu.Unlock()

	cp := make(map[string]Player, len(g.players))
	for k, p := range g.players {
		cp[k] = *p
	}
	return cp
}

// SetCell writes value at c on behalf of pseudo, or clears the cell when
// value is empty. It fails with grid.ErrOutOfBounds or grid.ErrBlockedCell.
func (g *GameSession) SetCell(c grid.Coord, value, pseudo string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if value == "" {
		return g.model.SetSolution(c, nil)
	}
	return g.model.SetSolution(c, &grid.Entry{Value: value, Author: pseudo})
}

// MoveCursor records the cursor of pseudo and reports whether it changed.
// Positions are not validated.
func (g *GameSession) MoveCursor(pseudo string, c grid.Coord) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if prev, ok := g.cursors.Position(pseudo); ok && prev == c {
		return false
	}
	g.cursors.Upsert(pseudo, c)
	return true
}

// Cursors returns the current cursor of every player that reported one.
func (g *GameSession) Cursors() map[string]grid.Coord {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cursors.Snapshot()
}

// GetState returns a copy of the current game state.
func (g *GameSession) GetState() [][]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.model.Values()
}

type gameSessionJSON struct {
	ID        string                `json:"id"`
	GridID    string                `json:"grid_id"`
	Players   map[string]Player     `json:"players"`
	State     [][]string            `json:"state"`
	Cursors   map[string]grid.Coord `json:"cursors"`
	CreatedAt time.Time             `json:"created_at"`
}

func (g *GameSession) view() gameSessionJSON {
	return gameSessionJSON{
		ID:        g.ID,
		GridID:    g.GridID,
		Players:   g.Players(),
		State:     g.GetState(),
		Cursors:   g.Cursors(),
		CreatedAt: g.CreatedAt,
	}
}

func (g *GameSession) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.view())
}

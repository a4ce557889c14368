package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bodul/crossgrid/internal/grid"
)

func newTestGrid(rows, cols int) *Grid {
	cells := make([][]Cell, rows)
	for i := range cells {
		cells[i] = make([]Cell, cols)
	}
	return &Grid{Rows: rows, Cols: cols, Cells: cells}
}

func mustSaveGrid(t *testing.T, s *Store, g *Grid) *Grid {
	t.Helper()
	g, err := s.SaveGrid(g)
	if err != nil {
		t.Fatalf("save grid: %v", err)
	}
	return g
}

func newTestGame(t *testing.T, rows, cols int) *GameSession {
	t.Helper()
	s := NewStore()
	g := mustSaveGrid(t, s, newTestGrid(rows, cols))
	game, err := s.CreateGame(g.ID)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	return game
}

func TestSaveAndGetGrid(t *testing.T) {
	s := NewStore()
	g := mustSaveGrid(t, s, newTestGrid(10, 10))

	if g.ID == "" {
		t.Fatal("expected grid to have an ID")
	}
	if got := s.GetGrid(g.ID); got == nil {
		t.Fatal("expected to find saved grid")
	}
	if got := s.GetGrid("nonexistent"); got != nil {
		t.Fatal("expected nil for unknown ID")
	}
}

func TestSaveGridRejectsBadShape(t *testing.T) {
	s := NewStore()

	bad := []*Grid{
		{Rows: 0, Cols: 0},
		{Rows: 2, Cols: 2, Cells: [][]Cell{{{}, {}}, {{}}}},
		{Rows: 3, Cols: 2, Cells: [][]Cell{{{}, {}}, {{}, {}}}},
	}
	for i, g := range bad {
		if _, err := s.SaveGrid(g); err == nil {
			t.Errorf("grid %d: expected error", i)
		}
	}
	if n := len(s.ListGrids()); n != 0 {
		t.Fatalf("expected no stored grid, got %d", n)
	}
}

func TestListGrids(t *testing.T) {
	s := NewStore()
	mustSaveGrid(t, s, newTestGrid(5, 5))
	mustSaveGrid(t, s, newTestGrid(8, 8))

	list := s.ListGrids()
	if len(list) != 2 {
		t.Fatalf("expected 2 grids, got %d", len(list))
	}
	// Most recent first.
	if list[0].CreatedAt.Before(list[1].CreatedAt) {
		t.Fatal("expected grids sorted by descending creation time")
	}
}

func TestCreateGame(t *testing.T) {
	s := NewStore()

	// Error on unknown grid.
	if _, err := s.CreateGame("unknown"); err == nil {
		t.Fatal("expected error for unknown grid")
	}

	g := mustSaveGrid(t, s, newTestGrid(3, 4))
	game, err := s.CreateGame(g.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if game.GridID != g.ID {
		t.Fatal("game should reference the grid")
	}
	state := game.GetState()
	if len(state) != 3 || len(state[0]) != 4 {
		t.Fatalf("expected 3x4 state, got %dx%d", len(state), len(state[0]))
	}
	if s.GetGame(game.ID) != game || len(s.ListGames()) != 1 {
		t.Fatal("game should be stored")
	}
}

func TestGameAddPlayer(t *testing.T) {
	game := newTestGame(t, 5, 5)

	p1 := game.AddPlayer("Alice")
	p2 := game.AddPlayer("Bob")

	if p1.Pseudo != "Alice" || p2.Pseudo != "Bob" {
		t.Fatal("unexpected pseudo")
	}
	if p1.Color == p2.Color {
		t.Fatal("players should have different colors")
	}

	// Adding same pseudo returns existing player.
	p1bis := game.AddPlayer("Alice")
	if p1bis.Color != p1.Color {
		t.Fatal("same pseudo should return same player")
	}
}

func TestGameDisconnectDropsCursor(t *testing.T) {
	game := newTestGame(t, 2, 2)
	game.Connect("Alice")
	game.Connect("Bob")
	game.MoveCursor("Alice", grid.Coord{Row: 1})
	game.MoveCursor("Bob", grid.Coord{Col: 1})

	if !game.Disconnect("Alice") {
		t.Fatal("expected Alice's only connection to remove her")
	}

	if _, ok := game.Players()["Alice"]; ok {
		t.Fatal("Alice should be gone")
	}
	cursors := game.Cursors()
	if _, ok := cursors["Alice"]; ok {
		t.Fatal("Alice's cursor should be gone")
	}
	if cursors["Bob"] != (grid.Coord{Col: 1}) {
		t.Fatalf("Bob's cursor should remain, got %v", cursors)
	}
}

func TestGameDisconnectCountsConnections(t *testing.T) {
	game := newTestGame(t, 2, 2)
	p1 := game.Connect("Alice")
	p2 := game.Connect("Alice")
	if p1.Color != p2.Color {
		t.Fatal("second connection should reuse the player")
	}
	game.MoveCursor("Alice", grid.Coord{Row: 1})

	if game.Disconnect("Alice") {
		t.Fatal("Alice still has a connection")
	}
	if _, ok := game.Players()["Alice"]; !ok {
		t.Fatal("Alice should still be playing")
	}
	if _, ok := game.Cursors()["Alice"]; !ok {
		t.Fatal("Alice's cursor should remain")
	}

	if !game.Disconnect("Alice") {
		t.Fatal("last connection should remove Alice")
	}
	if len(game.Players()) != 0 || len(game.Cursors()) != 0 {
		t.Fatal("expected no player and no cursor left")
	}
}

func TestGameMoveCursorReportsChange(t *testing.T) {
	game := newTestGame(t, 2, 2)

	if !game.MoveCursor("Alice", grid.Coord{Row: 1}) {
		t.Fatal("first position should be a change")
	}
	if game.MoveCursor("Alice", grid.Coord{Row: 1}) {
		t.Fatal("same position should not be a change")
	}
	if !game.MoveCursor("Alice", grid.Coord{Row: 1, Col: 1}) {
		t.Fatal("new position should be a change")
	}
}

func TestGameSessionJSON(t *testing.T) {
	game := newTestGame(t, 1, 2)
	game.Connect("Alice")
	game.MoveCursor("Alice", grid.Coord{Col: 1})
	game.SetCell(grid.Coord{}, "A", "Alice")

	data, err := json.Marshal(game)
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		ID      string                `json:"id"`
		Players map[string]Player     `json:"players"`
		State   [][]string            `json:"state"`
		Cursors map[string]grid.Coord `json:"cursors"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != game.ID || got.State[0][0] != "A" || got.Cursors["Alice"] != (grid.Coord{Col: 1}) {
		t.Fatalf("unexpected encoding %s", data)
	}
	if _, ok := got.Players["Alice"]; !ok {
		t.Fatalf("expected Alice in %s", data)
	}

	// Sessions are encode-only: decoding one would lose its grid and players.
	if _, ok := any(game).(json.Unmarshaler); ok {
		t.Fatal("GameSession should not be decodable")
	}
}

func TestGameSetCell(t *testing.T) {
	s := NewStore()
	g := newTestGrid(3, 3)
	g.Cells[1][1].Black = true
	g = mustSaveGrid(t, s, g)
	game, _ := s.CreateGame(g.ID)

	if err := game.SetCell(grid.Coord{}, "A", "Alice"); err != nil {
		t.Fatalf("expected SetCell to succeed: %v", err)
	}
	if err := game.SetCell(grid.Coord{Row: -1}, "X", "Alice"); !errors.Is(err, grid.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds for negative row, got %v", err)
	}
	if err := game.SetCell(grid.Coord{Col: 3}, "X", "Alice"); !errors.Is(err, grid.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds for col 3, got %v", err)
	}
	if err := game.SetCell(grid.Coord{Row: 1, Col: 1}, "X", "Alice"); !errors.Is(err, grid.ErrBlockedCell) {
		t.Fatalf("expected ErrBlockedCell, got %v", err)
	}

	state := game.GetState()
	if state[0][0] != "A" {
		t.Fatalf("expected 'A', got %q", state[0][0])
	}

	if err := game.SetCell(grid.Coord{}, "", "Bob"); err != nil {
		t.Fatalf("erase: %v", err)
	}
	if got := game.GetState()[0][0]; got != "" {
		t.Fatalf("expected erased cell, got %q", got)
	}
}

func TestGetStateCopy(t *testing.T) {
	game := newTestGame(t, 2, 2)
	game.SetCell(grid.Coord{}, "X", "Alice")

	state := game.GetState()
	state[0][0] = "Z" // mutate the copy

	original := game.GetState()
	if original[0][0] != "X" {
		t.Fatal("GetState should return a copy, not a reference")
	}
}

func TestConcurrentAccess(t *testing.T) {
	game := newTestGame(t, 10, 10)

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pseudo := fmt.Sprintf("player%d", i%26)
			game.SetCell(grid.Coord{Row: i % 10, Col: i % 10}, "A", pseudo)
			game.GetState()
			game.AddPlayer(pseudo)
			game.MoveCursor(pseudo, grid.Coord{Row: i % 10})
			game.Cursors()
		}(i)
	}
	wg.Wait()

	if n := len(game.Players()); n != 26 {
		t.Fatalf("expected 26 players, got %d", n)
	}
}

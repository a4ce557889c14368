package main

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds all grids and game sessions in memory.
type Store struct {
	mu    sync.RWMutex
	grids map[string]*Grid
	games map[string]*GameSession
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		grids: make(map[string]*Grid),
		games: make(map[string]*GameSession),
	}
}

// SaveGrid validates a grid, stores it and returns it with a generated ID.
func (s *Store) SaveGrid(g *Grid) (*Grid, error) {
	if _, err := g.Model(); err != nil {
		return nil, fmt.Errorf("invalid grid: %w", err)
	}
	g.ID = uuid.NewString()
	g.CreatedAt = time.Now()

	s.mu.Lock()
	s.grids[g.ID] = g
	s.mu.Unlock()

	return g, nil
}

// GetGrid returns a grid by ID, or nil if not found.
func (s *Store) GetGrid(id string) *Grid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grids[id]
}

// ListGrids returns all grids, most recent first.
func (s *Store) ListGrids() []*Grid {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*Grid, 0, len(s.grids))
	for _, g := range s.grids {
		list = append(list, g)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

// CreateGame creates a new game session for a given grid.
// Returns an error if the grid does not exist.
func (s *Store) CreateGame(gridID string) (*GameSession, error) {
	s.mu.RLock()
	g := s.grids[gridID]
	s.mu.RUnlock()

	if g == nil {
		return nil, fmt.Errorf("grid not found: %s", gridID)
	}

	m, err := g.Model()
	if err != nil {
		return nil, fmt.Errorf("grid %s: %w", gridID, err)
	}
	game := newGameSession(uuid.NewString(), gridID, m)

	s.mu.Lock()
	s.games[game.ID] = game
	s.mu.Unlock()

	return game, nil
}

// GetGame returns a game session by ID, or nil if not found.
func (s *Store) GetGame(id string) *GameSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.games[id]
}

// ListGames returns all game sessions.
func (s *Store) ListGames() []*GameSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*GameSession, 0, len(s.games))
	for _, g := range s.games {
		list = append(list, g)
	}
	return list
}

// Package remote talks to a crossgrid server: it fetches and joins games
// over HTTP and keeps a WebSocket open to exchange cell and cursor changes
// with the other players.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bodul/crossgrid/internal/grid"
)

// Client is a crossgrid API client acting for one player.
type Client struct {
	BaseURL string
	Pseudo  string
	HTTP    *http.Client
}

// New returns a client for the server at baseURL.
func New(baseURL, pseudo string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Pseudo:  pseudo,
		HTTP:    http.DefaultClient,
	}
}

// Cell is a grid cell as served by the API.
type Cell struct {
	Black  bool   `json:"black"`
	Letter string `json:"letter,omitempty"`
}

// Grid is a grid as served by the API.
type Grid struct {
	ID    string   `json:"id"`
	Rows  int      `json:"rows"`
	Cols  int      `json:"cols"`
	Cells [][]Cell `json:"cells"`
}

// Player is a player connected to a game.
type Player struct {
	Pseudo string `json:"pseudo"`
	Color  string `json:"color"`
}

// Game is the state of a game as returned by the API.
type Game struct {
	ID      string                `json:"id"`
	GridID  string                `json:"grid_id"`
	State   [][]string            `json:"state"`
	Players map[string]Player     `json:"players"`
	Cursors map[string]grid.Coord `json:"cursors"`
	Grid    *Grid                 `json:"grid"`
}

// Model builds a grid model from the game's grid and fills in the letters
// entered so far.
func (g *Game) Model() (*grid.Model, error) {
	if g.Grid == nil {
		return nil, fmt.Errorf("game %s has no grid", g.ID)
	}
	shape := make([][]grid.Cell, len(g.Grid.Cells))
	for i, row := range g.Grid.Cells {
		shape[i] = make([]grid.Cell, len(row))
		for j, c := range row {
			shape[i][j] = grid.Cell{Blocked: c.Black, Prefill: c.Letter}
		}
	}
	m, err := grid.New(shape)
	if err != nil {
		return nil, err
	}
	for r, row := range g.State {
		for c, v := range row {
			if v == "" {
				continue
			}
			if err := m.SetSolution(grid.Coord{Row: r, Col: c}, &grid.Entry{Value: v}); err != nil {
				return nil, fmt.Errorf("game %s state: %w", g.ID, err)
			}
		}
	}
	return m, nil
}

// APIError is an error response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// CreateTextGrid uploads a text shape and returns the new grid's ID.
func (c *Client) CreateTextGrid(ctx context.Context, shape string) (string, error) {
	var g Grid
	if err := c.do(ctx, http.MethodPost, "/api/grids/text", map[string]string{"shape": shape}, &g); err != nil {
		return "", fmt.Errorf("create grid: %w", err)
	}
	return g.ID, nil
}

// CreateGame starts a game on gridID and returns the game's ID.
func (c *Client) CreateGame(ctx context.Context, gridID string) (string, error) {
	var g Game
	if err := c.do(ctx, http.MethodPost, "/api/games", map[string]string{"grid_id": gridID}, &g); err != nil {
		return "", fmt.Errorf("create game: %w", err)
	}
	return g.ID, nil
}

// Game fetches a game with its grid.
func (c *Client) Game(ctx context.Context, id string) (*Game, error) {
	var g Game
	if err := c.do(ctx, http.MethodGet, "/api/games/"+url.PathEscape(id), nil, &g); err != nil {
		return nil, fmt.Errorf("get game %s: %w", id, err)
	}
	return &g, nil
}

// Join registers the client's pseudo in a game.
func (c *Client) Join(ctx context.Context, id string) (*Player, error) {
	var p Player
	path := "/api/games/" + url.PathEscape(id) + "/join"
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"pseudo": c.Pseudo}, &p); err != nil {
		return nil, fmt.Errorf("join game %s: %w", id, err)
	}
	return &p, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

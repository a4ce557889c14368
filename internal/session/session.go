// Package session wires a grid, its numbering, the local cursor, the
// collaborator registry and the input router for one solver.
//
// A Session is not safe for concurrent use. Remote updates must be applied
// on the same goroutine that handles local input so a snapshot never sees
// a half-applied change.
package session

import (
	"github.com/bodul/crossgrid/internal/collab"
	"github.com/bodul/crossgrid/internal/cursor"
	"github.com/bodul/crossgrid/internal/grid"
	"github.com/bodul/crossgrid/internal/input"
)

// Session is one solver's view of a shared grid.
type Session struct {
	model  *grid.Model
	cursor *cursor.Controller
	remote *collab.Registry
	router *input.Router
}

type options struct {
	start    cursor.State
	author   string
	geometry input.Geometry
}

// Option configures a Session.
type Option func(*options)

// WithStart sets the initial cursor.
func WithStart(s cursor.State) Option {
	return func(o *options) { o.start = s }
}

// WithAuthor stamps locally entered letters with author.
func WithAuthor(author string) Option {
	return func(o *options) { o.author = author }
}

// WithGeometry sets the point to cell translation used for taps.
func WithGeometry(g input.Geometry) Option {
	return func(o *options) { o.geometry = g }
}

// New creates a session over m. The cursor starts at cursor.Default unless
// WithStart says otherwise; a start that is not an open cell falls back to
// the first open cell in row-major order.
func New(m *grid.Model, opts ...Option) (*Session, error) {
	o := options{start: cursor.Default}
	for _, opt := range opts {
		opt(&o)
	}

	if m.IsBlocked(o.start.Coord) {
		first, err := m.FirstOpen()
		if err != nil {
			return nil, err
		}
		o.start.Coord = first
	}

	c := cursor.New(m, o.start)
	var ropts []input.Option
	if o.author != "" {
		ropts = append(ropts, input.WithAuthor(o.author))
	}
	if o.geometry != nil {
		ropts = append(ropts, input.WithGeometry(o.geometry))
	}

	return &Session{
		model:  m,
		cursor: c,
		remote: collab.New(),
		router: input.NewRouter(m, c, ropts...),
	}, nil
}

// Handle applies a local input event.
func (s *Session) Handle(ev input.Event) error {
	return s.router.Handle(ev)
}

// Subscribe registers o for local cell and cursor changes.
func (s *Session) Subscribe(o input.Observer) {
	s.router.Subscribe(o)
}

// SetGeometry replaces the point to cell translation used for taps.
func (s *Session) SetGeometry(g input.Geometry) {
	s.router.SetGeometry(g)
}

// ApplyRemoteCursor records that collaborator id moved to c.
func (s *Session) ApplyRemoteCursor(id string, c grid.Coord) {
	s.remote.Upsert(id, c)
}

// RemoveRemoteCursor forgets collaborator id.
func (s *Session) RemoveRemoteCursor(id string) {
	s.remote.Remove(id)
}

// ApplyRemoteCell applies a letter entered by a collaborator. An empty
// value clears the cell.
func (s *Session) ApplyRemoteCell(c grid.Coord, value, author string) error {
	if value == "" {
		return s.router.ApplyRemoteCell(c, nil)
	}
	return s.router.ApplyRemoteCell(c, &grid.Entry{Value: value, Author: author})
}

// ApplyRemoteState replaces the letters of every open cell with values and
// the collaborator cursors with cursors, as received when joining a game.
// Rows or columns missing from values are left empty.
func (s *Session) ApplyRemoteState(values [][]string, cursors map[string]grid.Coord) {
	rows, cols := s.model.Dimensions()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			at := grid.Coord{Row: r, Col: c}
			if s.model.IsBlocked(at) {
				continue
			}
			value := ""
			if r < len(values) && c < len(values[r]) {
				value = values[r][c]
			}
			if prev, _ := s.model.Solution(at); prev.Value == value {
				continue
			}
			// at is open and in bounds, so this cannot fail.
			_ = s.ApplyRemoteCell(at, value, "")
		}
	}

	for id := range s.remote.Snapshot() {
		s.remote.Remove(id)
	}
	for id, at := range cursors {
		s.remote.Upsert(id, at)
	}
}

// Cursor returns the local cursor.
func (s *Session) Cursor() cursor.State {
	return s.cursor.State()
}

// Model returns the grid model. Callers must not write to it.
func (s *Session) Model() *grid.Model {
	return s.model
}

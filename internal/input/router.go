// Package input turns raw solver input into grid edits and cursor moves.
package input

import (
	"errors"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bodul/crossgrid/internal/cursor"
	"github.com/bodul/crossgrid/internal/grid"
)

// ErrNoGeometry is returned for a tap when the router has no geometry.
var ErrNoGeometry = errors.New("input: tap without geometry")

// Router applies input events to a grid model and its cursor controller.
// It is the only writer of the model's solution.
type Router struct {
	model     *grid.Model
	cursor    *cursor.Controller
	geometry  Geometry
	author    string
	upper     cases.Caser
	observers []Observer
}

// Option configures a Router.
type Option func(*Router)

// WithGeometry sets the point to cell translation used for taps.
func WithGeometry(g Geometry) Option {
	return func(r *Router) { r.geometry = g }
}

// WithAuthor stamps entries written by this router with author.
func WithAuthor(author string) Option {
	return func(r *Router) { r.author = author }
}

// NewRouter creates a router driving m and c.
func NewRouter(m *grid.Model, c *cursor.Controller, opts ...Option) *Router {
	r := &Router{
		model:  m,
		cursor: c,
		upper:  cases.Upper(language.Und),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers o for change notifications.
func (r *Router) Subscribe(o Observer) {
	r.observers = append(r.observers, o)
}

// SetGeometry replaces the point to cell translation, e.g. after a resize.
func (r *Router) SetGeometry(g Geometry) {
	r.geometry = g
}

// Handle applies one event. Navigation that cannot move is not an error.
// An error means the cursor sits on a cell that cannot hold a value, or a
// tap arrived without geometry.
func (r *Router) Handle(ev Event) error {
	switch ev.Kind {
	case KindChar:
		return r.char(ev.Text)
	case KindBackspace:
		return r.backspace()
	case KindTap:
		return r.tap(ev.Point)
	}
	return fmt.Errorf("input: unknown event kind %d", ev.Kind)
}

func (r *Router) char(text string) error {
	switch text {
	case "":
		return nil
	case " ":
		r.cursor.ToggleDirection()
		return nil
	case "\n", "\r", "\r\n":
		r.advance()
		return nil
	}

	at := r.cursor.State().Coord
	value := r.upper.String(text)
	if err := r.model.SetSolution(at, &grid.Entry{Value: value, Author: r.author}); err != nil {
		return err
	}
	r.cellChanged(at, value, true)
	r.advance()
	return nil
}

// backspace retreats first and clears the cell it lands on.
func (r *Router) backspace() error {
	if r.cursor.Retreat() {
		r.cursorMoved()
	}
	at := r.cursor.State().Coord
	if err := r.model.SetSolution(at, nil); err != nil {
		return err
	}
	r.cellChanged(at, "", false)
	return nil
}

func (r *Router) tap(p Point) error {
	if r.geometry == nil {
		return ErrNoGeometry
	}
	at, ok := r.geometry.CellAt(p)
	if !ok {
		return nil
	}
	if r.cursor.SelectByTap(at) {
		r.cursorMoved()
	}
	return nil
}

func (r *Router) advance() {
	if r.cursor.Advance() {
		r.cursorMoved()
	}
}

// ApplyRemoteCell writes a collaborator's entry at c, or clears it when e
// is nil. Observers are not notified so the change is not echoed back.
func (r *Router) ApplyRemoteCell(c grid.Coord, e *grid.Entry) error {
	return r.model.SetSolution(c, e)
}

func (r *Router) cellChanged(c grid.Coord, value string, ok bool) {
	for _, o := range r.observers {
		o.CellChanged(c, value, ok)
	}
}

func (r *Router) cursorMoved() {
	c := r.cursor.State().Coord
	for _, o := range r.observers {
		o.LocalCursorMoved(c)
	}
}

package input

import (
	"fmt"

	"github.com/bodul/crossgrid/internal/grid"
)

// Kind identifies an input event.
type Kind int

const (
	KindChar Kind = iota
	KindBackspace
	KindTap
)

// Point is a position on the rendered surface, in renderer units.
type Point struct {
	X, Y int
}

// Event is one raw input from the solver.
type Event struct {
	Kind  Kind
	Text  string
	Point Point
}

// Char is a typed character. A space toggles direction, a newline
// advances, anything else is written to the current cell.
func Char(text string) Event { return Event{Kind: KindChar, Text: text} }

// Backspace is a backward delete.
func Backspace() Event { return Event{Kind: KindBackspace} }

// Tap is a tap or click at p.
func Tap(p Point) Event { return Event{Kind: KindTap, Point: p} }

func (e Event) String() string {
	switch e.Kind {
	case KindChar:
		return fmt.Sprintf("char(%q)", e.Text)
	case KindBackspace:
		return "backspace"
	case KindTap:
		return fmt.Sprintf("tap(%d,%d)", e.Point.X, e.Point.Y)
	}
	return "unknown"
}

// Geometry translates a point on the rendered surface to a cell. It belongs
// to the renderer.
type Geometry interface {
	CellAt(p Point) (grid.Coord, bool)
}

// GeometryFunc adapts a function to Geometry.
type GeometryFunc func(p Point) (grid.Coord, bool)

// CellAt calls f(p).
func (f GeometryFunc) CellAt(p Point) (grid.Coord, bool) { return f(p) }

// Observer is notified synchronously of every change the router makes, in
// the order the changes happen.
type Observer interface {
	// CellChanged reports a new value at c. ok is false when the cell was
	// cleared.
	CellChanged(c grid.Coord, value string, ok bool)
	// LocalCursorMoved reports the new coordinates of the local cursor.
	LocalCursorMoved(c grid.Coord)
}

// Funcs adapts a pair of functions to Observer. Nil fields are skipped.
type Funcs struct {
	OnCellChanged      func(c grid.Coord, value string, ok bool)
	OnLocalCursorMoved func(c grid.Coord)
}

func (f Funcs) CellChanged(c grid.Coord, value string, ok bool) {
	if f.OnCellChanged != nil {
		f.OnCellChanged(c, value, ok)
	}
}

func (f Funcs) LocalCursorMoved(c grid.Coord) {
	if f.OnLocalCursorMoved != nil {
		f.OnLocalCursorMoved(c)
	}
}

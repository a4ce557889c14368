// Package cursor implements the local solver's cursor: a position and a
// direction over a grid, moved by taps and by stepping along the current
// direction while skipping blocked cells.
package cursor

import (
	"fmt"

	"github.com/bodul/crossgrid/internal/grid"
)

// State is the position and direction of the local cursor.
type State struct {
	Coord     grid.Coord     `json:"coord"`
	Direction grid.Direction `json:"direction"`
}

// Default is the cursor a session starts with when none is supplied.
var Default = State{Coord: grid.Coord{}, Direction: grid.Down}

// String returns a string representation of the state.
func (s State) String() string {
	return fmt.Sprintf("Cursor(%s %s)", s.Coord, s.Direction)
}

// Controller owns the local cursor. It never mutates the grid.
type Controller struct {
	model *grid.Model
	state State
}

// New creates a controller over m starting at initial. The initial
// position is taken as given.
func New(m *grid.Model, initial State) *Controller {
	return &Controller{model: m, state: initial}
}

// State returns the current cursor.
func (c *Controller) State() State {
	return c.state
}

// ToggleDirection swaps Across and Down in place.
func (c *Controller) ToggleDirection() {
	c.state.Direction = c.state.Direction.Opposite()
}

// SelectByTap handles a tap on at. Tapping the current cell flips the
// direction; tapping another open cell moves there keeping the direction.
// Taps on blocked or missing cells are ignored. It reports whether the
// coordinates changed.
func (c *Controller) SelectByTap(at grid.Coord) bool {
	if !c.model.InBounds(at) || c.model.IsBlocked(at) {
		return false
	}
	if at == c.state.Coord {
		c.ToggleDirection()
		return false
	}
	c.state.Coord = at
	return true
}

// Advance moves to the next open cell along the current direction. It does
// not move when the step would leave the grid or when only blocked cells
// remain before the edge. It reports whether the cursor moved.
func (c *Controller) Advance() bool {
	return c.move(false)
}

// Retreat moves to the previous open cell along the current direction.
//
// Unlike Advance, the search also stops, leaving the cursor in place, when
// the candidate sits on the last row (Down) or last column (Across) and
// already holds a value. That check runs before blocked cells are skipped.
func (c *Controller) Retreat() bool {
	return c.move(true)
}

func (c *Controller) move(backward bool) bool {
	start := c.state.Coord
	dir := c.state.Direction
	last := c.model.Last(dir)

	candidate := start
	for {
		candidate = dir.Step(candidate, backward)
		if !c.model.InBounds(candidate) {
			return false
		}
		if backward && index(candidate, dir) == last && c.model.Filled(candidate) {
			return false
		}
		if candidate == start {
			return false
		}
		if !c.model.IsBlocked(candidate) {
			c.state.Coord = candidate
			return true
		}
	}
}

func index(at grid.Coord, d grid.Direction) int {
	if d == grid.Down {
		return at.Row
	}
	return at.Col
}

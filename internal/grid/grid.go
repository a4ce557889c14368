// Package grid holds the shape of a crossword puzzle, the letters entered
// into it, and the clue numbering derived from the shape.
//
// The shape is fixed when a Model is built. Only solution entries change
// afterwards, and only through SetSolution.
package grid

import "fmt"

// Cell is the static kind of one grid position: blocked, or open with an
// optional prefilled letter baked into the puzzle.
type Cell struct {
	Blocked bool   `json:"blocked"`
	Prefill string `json:"prefill,omitempty"`
}

// Open returns an open cell with no prefilled letter.
func Open() Cell { return Cell{} }

// Prefilled returns an open cell carrying a given letter.
func Prefilled(letter string) Cell { return Cell{Prefill: letter} }

// Blocked returns a blocked cell.
func Blocked() Cell { return Cell{Blocked: true} }

// Entry is the value currently entered in an open cell. Value is normally a
// single glyph but may hold a rebus.
type Entry struct {
	Value  string `json:"value"`
	Author string `json:"author,omitempty"`
}

// Model is a puzzle shape plus the per-cell solution.
type Model struct {
	rows, cols int
	shape      [][]Cell
	solution   [][]*Entry
	numbering  *Numbering
}

// New builds a model from rows of cells. All rows must be non-empty and of
// equal length. The shape is copied.
func New(shape [][]Cell) (*Model, error) {
	if len(shape) == 0 || len(shape[0]) == 0 {
		return nil, ErrEmptyShape
	}
	cols := len(shape[0])
	for i, row := range shape {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrRaggedShape, i, len(row), cols)
		}
	}

	m := &Model{
		rows:     len(shape),
		cols:     cols,
		shape:    make([][]Cell, len(shape)),
		solution: make([][]*Entry, len(shape)),
	}
	for i, row := range shape {
		m.shape[i] = make([]Cell, cols)
		copy(m.shape[i], row)
		m.solution[i] = make([]*Entry, cols)
	}
	m.numbering = ComputeNumbering(m)
	return m, nil
}

// Dimensions returns the number of rows and columns.
func (m *Model) Dimensions() (rows, cols int) {
	return m.rows, m.cols
}

// InBounds reports whether c addresses a cell of the grid.
func (m *Model) InBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < m.rows && c.Col >= 0 && c.Col < m.cols
}

// Kind returns the static kind of the cell at c. The second result is
// false when c is out of bounds.
func (m *Model) Kind(c Coord) (Cell, bool) {
	if !m.InBounds(c) {
		return Cell{}, false
	}
	return m.shape[c.Row][c.Col], true
}

// IsBlocked reports whether c is blocked. Out-of-bounds coordinates are
// reported as blocked since nothing can be entered there.
func (m *Model) IsBlocked(c Coord) bool {
	if !m.InBounds(c) {
		return true
	}
	return m.shape[c.Row][c.Col].Blocked
}

// Solution returns the entry at c, if any.
func (m *Model) Solution(c Coord) (Entry, bool) {
	if !m.InBounds(c) {
		return Entry{}, false
	}
	e := m.solution[c.Row][c.Col]
	if e == nil {
		return Entry{}, false
	}
	return *e, true
}

// Filled reports whether c holds a non-empty solution value.
func (m *Model) Filled(c Coord) bool {
	e, ok := m.Solution(c)
	return ok && e.Value != ""
}

// SetSolution writes e at c, or clears the cell when e is nil. Writing to a
// blocked or out-of-range cell is a caller bug and returns ErrBlockedCell or
// ErrOutOfBounds without touching the model.
func (m *Model) SetSolution(c Coord, e *Entry) error {
	if !m.InBounds(c) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, c)
	}
	if m.shape[c.Row][c.Col].Blocked {
		return fmt.Errorf("%w: %s", ErrBlockedCell, c)
	}
	if e == nil {
		m.solution[c.Row][c.Col] = nil
		return nil
	}
	cp := *e
	m.solution[c.Row][c.Col] = &cp
	return nil
}

// Numbering returns the clue numbering of the shape.
func (m *Model) Numbering() *Numbering {
	return m.numbering
}

// Shape returns a copy of the static shape.
func (m *Model) Shape() [][]Cell {
	cp := make([][]Cell, m.rows)
	for i, row := range m.shape {
		cp[i] = make([]Cell, m.cols)
		copy(cp[i], row)
	}
	return cp
}

// Values returns a copy of the entered values, "" for empty cells.
func (m *Model) Values() [][]string {
	cp := make([][]string, m.rows)
	for i, row := range m.solution {
		cp[i] = make([]string, m.cols)
		for j, e := range row {
			if e != nil {
				cp[i][j] = e.Value
			}
		}
	}
	return cp
}

// FirstOpen returns the first open cell in row-major order.
func (m *Model) FirstOpen() (Coord, error) {
	for r, row := range m.shape {
		for c, cell := range row {
			if !cell.Blocked {
				return Coord{Row: r, Col: c}, nil
			}
		}
	}
	return Coord{}, ErrNoOpenCell
}

// Last returns the last index along d: the last row for Down, the last
// column for Across.
func (m *Model) Last(d Direction) int {
	if d == Down {
		return m.rows - 1
	}
	return m.cols - 1
}

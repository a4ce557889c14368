package session

import (
	"github.com/bodul/crossgrid/internal/cursor"
	"github.com/bodul/crossgrid/internal/grid"
)

// CellView is everything a renderer needs to draw one cell.
type CellView struct {
	Blocked bool        `json:"blocked"`
	Prefill string      `json:"prefill,omitempty"`
	Entry   *grid.Entry `json:"entry,omitempty"`
	Number  int         `json:"number,omitempty"`
}

// Snapshot is a read-only copy of a session, detached from later changes.
type Snapshot struct {
	Rows          int                   `json:"rows"`
	Cols          int                   `json:"cols"`
	Cells         [][]CellView          `json:"cells"`
	Numbers       map[grid.Coord]int    `json:"-"`
	Cursor        cursor.State          `json:"cursor"`
	Collaborators map[string]grid.Coord `json:"collaborators"`
}

// Snapshot copies the current state for rendering.
func (s *Session) Snapshot() Snapshot {
	rows, cols := s.model.Dimensions()
	numbering := s.model.Numbering()

	cells := make([][]CellView, rows)
	for r := range cells {
		cells[r] = make([]CellView, cols)
		for c := range cells[r] {
			at := grid.Coord{Row: r, Col: c}
			kind, _ := s.model.Kind(at)
			v := CellView{Blocked: kind.Blocked, Prefill: kind.Prefill}
			if e, ok := s.model.Solution(at); ok {
				v.Entry = &e
			}
			v.Number, _ = numbering.Number(at)
			cells[r][c] = v
		}
	}

	return Snapshot{
		Rows:          rows,
		Cols:          cols,
		Cells:         cells,
		Numbers:       numbering.Map(),
		Cursor:        s.cursor.State(),
		Collaborators: s.remote.Snapshot(),
	}
}

// At returns the view of the cell at c, or a blocked view outside the grid.
func (s Snapshot) At(c grid.Coord) CellView {
	if c.Row < 0 || c.Row >= s.Rows || c.Col < 0 || c.Col >= s.Cols {
		return CellView{Blocked: true}
	}
	return s.Cells[c.Row][c.Col]
}

// ActiveEntry returns the cells of the entry the local cursor is in: the
// run of open cells through the cursor along its direction.
func (s Snapshot) ActiveEntry() []grid.Coord {
	d := s.Cursor.Direction
	start := s.Cursor.Coord
	if s.At(start).Blocked {
		return nil
	}
	for prev := d.Step(start, true); !s.At(prev).Blocked; prev = d.Step(prev, true) {
		start = prev
	}
	var out []grid.Coord
	for c := start; !s.At(c).Blocked; c = d.Step(c, false) {
		out = append(out, c)
	}
	return out
}

// CollaboratorsAt returns the collaborators whose cursor is on c.
func (s Snapshot) CollaboratorsAt(c grid.Coord) []string {
	var ids []string
	for id, at := range s.Collaborators {
		if at == c {
			ids = append(ids, id)
		}
	}
	return ids
}

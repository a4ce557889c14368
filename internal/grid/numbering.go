package grid

import "sort"

// Numbering maps the cells that start an entry to their clue number.
// Numbers are dense, start at 1 and increase in row-major order.
type Numbering struct {
	numbers map[Coord]int
	order   []Coord
	starts  map[Coord][]Direction
}

// ComputeNumbering scans m row by row, left to right. An open cell gets the
// next number when it sits in row 0 or column 0, or when the cell above or
// to the left is blocked.
func ComputeNumbering(m *Model) *Numbering {
	n := &Numbering{
		numbers: make(map[Coord]int),
		starts:  make(map[Coord][]Direction),
	}
	next := 1
	for r := 0; r < m.rows; r++ {
		for c := 0; c < m.cols; c++ {
			here := Coord{Row: r, Col: c}
			if m.IsBlocked(here) {
				continue
			}
			above := Coord{Row: r - 1, Col: c}
			left := Coord{Row: r, Col: c - 1}
			if r != 0 && c != 0 && !m.IsBlocked(above) && !m.IsBlocked(left) {
				continue
			}
			n.numbers[here] = next
			n.order = append(n.order, here)
			next++

			// An entry only starts where it has room for a second letter.
			if left.Col < 0 || m.IsBlocked(left) {
				if !m.IsBlocked(Across.Step(here, false)) {
					n.starts[here] = append(n.starts[here], Across)
				}
			}
			if above.Row < 0 || m.IsBlocked(above) {
				if !m.IsBlocked(Down.Step(here, false)) {
					n.starts[here] = append(n.starts[here], Down)
				}
			}
		}
	}
	return n
}

// Number returns the clue number at c.
func (n *Numbering) Number(c Coord) (int, bool) {
	v, ok := n.numbers[c]
	return v, ok
}

// Len returns how many cells are numbered.
func (n *Numbering) Len() int {
	return len(n.order)
}

// Cells returns the numbered cells in ascending number order.
func (n *Numbering) Cells() []Coord {
	cp := make([]Coord, len(n.order))
	copy(cp, n.order)
	return cp
}

// Map returns a copy of the coordinate to number mapping.
func (n *Numbering) Map() map[Coord]int {
	cp := make(map[Coord]int, len(n.numbers))
	for k, v := range n.numbers {
		cp[k] = v
	}
	return cp
}

// Starts returns the directions of the multi-cell entries beginning at c.
// A numbered cell may start none when it is isolated by blocked cells.
func (n *Numbering) Starts(c Coord) []Direction {
	return append([]Direction(nil), n.starts[c]...)
}

// Clue is one numbered entry of the grid.
type Clue struct {
	Number    int       `json:"number"`
	Direction Direction `json:"direction"`
	Start     Coord     `json:"start"`
	Length    int       `json:"length"`
}

// Clues lists every entry of m, across entries first, each group ordered
// by number.
func (n *Numbering) Clues(m *Model) []Clue {
	var out []Clue
	for _, c := range n.order {
		for _, d := range n.starts[c] {
			length := 0
			for p := c; !m.IsBlocked(p); p = d.Step(p, false) {
				length++
			}
			out = append(out, Clue{Number: n.numbers[c], Direction: d, Start: c, Length: length})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Direction != out[j].Direction {
			return out[i].Direction == Across
		}
		return out[i].Number < out[j].Number
	})
	return out
}

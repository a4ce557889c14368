package grid

import "fmt"

// Coord addresses a cell by row and column. It is a value type and may be
// compared with ==.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// String returns a string representation of the coordinate.
func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Direction is the orientation of an entry.
type Direction int

const (
	Across Direction = iota
	Down
)

// Opposite swaps Across and Down.
func (d Direction) Opposite() Direction {
	if d == Across {
		return Down
	}
	return Across
}

// Step returns the coordinate one cell further along d, or one cell back
// when backward is set. The result may be out of bounds.
func (d Direction) Step(c Coord, backward bool) Coord {
	delta := 1
	if backward {
		delta = -1
	}
	if d == Down {
		c.Row += delta
	} else {
		c.Col += delta
	}
	return c
}

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "across"
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(b []byte) error {
	switch string(b) {
	case "across", "right":
		*d = Across
	case "down":
		*d = Down
	default:
		return fmt.Errorf("unknown direction %q", b)
	}
	return nil
}

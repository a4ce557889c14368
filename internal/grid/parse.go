package grid

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseShape reads a shape from text, one row per line. '#' marks a
// blocked cell, '.' an empty open cell, and a letter an open cell with that
// letter prefilled. Blank lines and surrounding spaces are ignored; any
// other character is an ErrInvalidShape naming its line and column.
func ParseShape(text string) (*Model, error) {
	var shape [][]Cell
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		indent := utf8.RuneCountInString(raw) - utf8.RuneCountInString(strings.TrimLeftFunc(raw, unicode.IsSpace))
		row := make([]Cell, 0, len(line))
		for _, r := range line {
			switch {
			case r == '#':
				row = append(row, Blocked())
			case r == '.':
				row = append(row, Open())
			case unicode.IsLetter(r):
				row = append(row, Prefilled(string(unicode.ToUpper(r))))
			default:
				return nil, fmt.Errorf("%w %q at line %d, column %d", ErrInvalidShape, r, i+1, indent+len(row)+1)
			}
		}
		shape = append(shape, row)
	}
	return New(shape)
}

package grid

import "errors"

var (
	// ErrEmptyShape is returned when a shape has no rows or no columns.
	ErrEmptyShape = errors.New("grid: empty shape")

	// ErrRaggedShape is returned when shape rows differ in length.
	ErrRaggedShape = errors.New("grid: rows of unequal length")

	// ErrInvalidShape is returned when shape text holds a character that
	// is neither '#', '.' nor a letter.
	ErrInvalidShape = errors.New("grid: invalid shape character")

	// ErrOutOfBounds is returned when a coordinate lies outside the grid.
	// It signals a caller bug, typically in point-to-cell translation.
	ErrOutOfBounds = errors.New("grid: coordinate out of bounds")

	// ErrBlockedCell is returned when a solution is written to a blocked cell.
	ErrBlockedCell = errors.New("grid: cell is blocked")

	// ErrNoOpenCell is returned when a grid has no playable cell.
	ErrNoOpenCell = errors.New("grid: no open cell")
)

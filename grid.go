package main

import (
	"fmt"
	"time"

	"github.com/bodul/crossgrid/internal/grid"
)

// Definition is a clue embedded in a definition cell (mots fléchés).
type Definition struct {
	Text      string         `json:"text"`
	Direction grid.Direction `json:"direction"`
}

// Cell represents a single cell in the crossword grid.
// A cell is either a definition cell (Black=true, with Definitions)
// or a letter cell (Black=false, where players write). A letter cell may
// carry a given Letter.
type Cell struct {
	Black       bool         `json:"black"`
	Definitions []Definition `json:"definitions,omitempty"`
	Letter      string       `json:"letter,omitempty"`
}

// Grid represents a crossword grid, extracted from an image or typed in.
type Grid struct {
	ID        string    `json:"id"`
	Rows      int       `json:"rows"`
	Cols      int       `json:"cols"`
	Cells     [][]Cell  `json:"cells"`
	CreatedAt time.Time `json:"created_at"`
}

// Shape converts the grid into the cell kinds of a grid model.
func (g *Grid) Shape() [][]grid.Cell {
	shape := make([][]grid.Cell, len(g.Cells))
	for i, row := range g.Cells {
		shape[i] = make([]grid.Cell, len(row))
		for j, c := range row {
			shape[i][j] = grid.Cell{Blocked: c.Black, Prefill: c.Letter}
		}
	}
	return shape
}

// Model builds a fresh grid model from the grid, validating its shape
// against the declared dimensions.
func (g *Grid) Model() (*grid.Model, error) {
	m, err := grid.New(g.Shape())
	if err != nil {
		return nil, err
	}
	if rows, cols := m.Dimensions(); rows != g.Rows || cols != g.Cols {
		return nil, fmt.Errorf("grid declares %dx%d but has %dx%d cells", g.Rows, g.Cols, rows, cols)
	}
	return m, nil
}

// gridFromModel converts a parsed shape back into the API representation.
func gridFromModel(m *grid.Model) *Grid {
	rows, cols := m.Dimensions()
	g := &Grid{Rows: rows, Cols: cols, Cells: make([][]Cell, rows)}
	for i, row := range m.Shape() {
		g.Cells[i] = make([]Cell, cols)
		for j, c := range row {
			g.Cells[i][j] = Cell{Black: c.Blocked, Letter: c.Prefill}
		}
	}
	return g
}

// numberedGrid is the API view of a grid with its clue numbering.
type numberedGrid struct {
	*Grid
	Numbers []numberedCell `json:"numbers"`
	Clues   []grid.Clue    `json:"clues"`
}

type numberedCell struct {
	grid.Coord
	Number int `json:"number"`
}

func numberGrid(g *Grid) (*numberedGrid, error) {
	m, err := g.Model()
	if err != nil {
		return nil, err
	}
	n := m.Numbering()
	out := &numberedGrid{Grid: g, Numbers: make([]numberedCell, 0, n.Len()), Clues: n.Clues(m)}
	for _, c := range n.Cells() {
		num, _ := n.Number(c)
		out.Numbers = append(out.Numbers, numberedCell{Coord: c, Number: num})
	}
	return out, nil
}

package input

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bodul/crossgrid/internal/cursor"
	"github.com/bodul/crossgrid/internal/grid"
)

type recorder struct {
	events []string
}

func (r *recorder) CellChanged(c grid.Coord, value string, ok bool) {
	if !ok {
		r.events = append(r.events, fmt.Sprintf("clear %s", c))
		return
	}
	r.events = append(r.events, fmt.Sprintf("cell %s=%s", c, value))
}

func (r *recorder) LocalCursorMoved(c grid.Coord) {
	r.events = append(r.events, fmt.Sprintf("move %s", c))
}

func setup(t *testing.T, text string, start cursor.State, opts ...Option) (*grid.Model, *cursor.Controller, *Router, *recorder) {
	t.Helper()
	m, err := grid.ParseShape(text)
	require.NoError(t, err)
	c := cursor.New(m, start)
	r := NewRouter(m, c, opts...)
	rec := &recorder{}
	r.Subscribe(rec)
	return m, c, r, rec
}

func at(row, col int) grid.Coord { return grid.Coord{Row: row, Col: col} }

func TestCharWritesUppercaseAndAdvances(t *testing.T) {
	m, c, r, rec := setup(t, "..\n..", cursor.Default, WithAuthor("me"))

	require.NoError(t, r.Handle(Char("x")))

	e, ok := m.Solution(at(0, 0))
	require.True(t, ok)
	assert.Equal(t, grid.Entry{Value: "X", Author: "me"}, e)
	assert.Equal(t, at(1, 0), c.State().Coord)
	assert.Equal(t, []string{"cell (0,0)=X", "move (1,0)"}, rec.events)
}

func TestCharThenBackspace(t *testing.T) {
	m, c, r, rec := setup(t, "..\n..", cursor.Default)

	require.NoError(t, r.Handle(Char("x")))
	require.NoError(t, r.Handle(Char("y")))
	assert.Equal(t, at(1, 0), c.State().Coord, "advance is a no-op at the bottom edge")

	rec.events = nil
	require.NoError(t, r.Handle(Backspace()))

	assert.Equal(t, at(0, 0), c.State().Coord)
	_, ok := m.Solution(at(0, 0))
	assert.False(t, ok, "the landed-on cell is cleared")
	e, ok := m.Solution(at(1, 0))
	require.True(t, ok, "the starting cell is left intact")
	assert.Equal(t, "Y", e.Value)
	assert.Equal(t, []string{"move (0,0)", "clear (0,0)"}, rec.events)
}

func TestBackspaceWithoutRetreatClearsCurrent(t *testing.T) {
	m, c, r, rec := setup(t, "..", cursor.State{Direction: grid.Across})
	require.NoError(t, m.SetSolution(at(0, 0), &grid.Entry{Value: "A"}))

	require.NoError(t, r.Handle(Backspace()))

	assert.Equal(t, at(0, 0), c.State().Coord)
	_, ok := m.Solution(at(0, 0))
	assert.False(t, ok)
	assert.Equal(t, []string{"clear (0,0)"}, rec.events)
}

func TestSpaceTogglesDirection(t *testing.T) {
	m, c, r, rec := setup(t, "..", cursor.Default)

	require.NoError(t, r.Handle(Char(" ")))

	assert.Equal(t, grid.Across, c.State().Direction)
	assert.Equal(t, [][]string{{"", ""}}, m.Values())
	assert.Empty(t, rec.events)
}

func TestNewlineAdvances(t *testing.T) {
	m, c, r, rec := setup(t, "...", cursor.State{Direction: grid.Across})

	require.NoError(t, r.Handle(Char("\n")))
	require.NoError(t, r.Handle(Char("\r")))
	require.NoError(t, r.Handle(Char("\n")))

	assert.Equal(t, at(0, 2), c.State().Coord)
	assert.Equal(t, [][]string{{"", "", ""}}, m.Values())
	assert.Equal(t, []string{"move (0,1)", "move (0,2)"}, rec.events, "no notification when the cursor stays")
}

func TestRebusAndUnicodeUppercase(t *testing.T) {
	m, _, r, _ := setup(t, "...", cursor.State{Direction: grid.Across})

	require.NoError(t, r.Handle(Char("star")))
	require.NoError(t, r.Handle(Char("é")))

	assert.Equal(t, [][]string{{"STAR", "É", ""}}, m.Values())
}

func TestCharOnBlockedCellIsPreconditionError(t *testing.T) {
	m, c, r, rec := setup(t, "#.", cursor.Default)

	err := r.Handle(Char("a"))
	assert.ErrorIs(t, err, grid.ErrBlockedCell)
	assert.Equal(t, cursor.Default, c.State())
	assert.Equal(t, [][]string{{"", ""}}, m.Values())
	assert.Empty(t, rec.events)
}

func TestTap(t *testing.T) {
	geo := GeometryFunc(func(p Point) (grid.Coord, bool) {
		if p.X < 0 || p.Y < 0 {
			return grid.Coord{}, false
		}
		return grid.Coord{Row: p.Y / 10, Col: p.X / 10}, true
	})
	_, c, r, rec := setup(t, ".#\n..", cursor.Default, WithGeometry(geo))

	require.NoError(t, r.Handle(Tap(Point{X: 15, Y: 5})))
	assert.Equal(t, cursor.Default, c.State(), "blocked cell is a no-op")

	require.NoError(t, r.Handle(Tap(Point{X: -1, Y: 3})))
	require.NoError(t, r.Handle(Tap(Point{X: 95, Y: 95})))
	assert.Equal(t, cursor.Default, c.State(), "points outside the grid are no-ops")

	require.NoError(t, r.Handle(Tap(Point{X: 12, Y: 18})))
	assert.Equal(t, cursor.State{Coord: at(1, 1), Direction: grid.Down}, c.State())

	require.NoError(t, r.Handle(Tap(Point{X: 12, Y: 18})))
	assert.Equal(t, cursor.State{Coord: at(1, 1), Direction: grid.Across}, c.State())

	assert.Equal(t, []string{"move (1,1)"}, rec.events)
}

func TestTapWithoutGeometry(t *testing.T) {
	_, _, r, _ := setup(t, "..", cursor.Default)
	assert.ErrorIs(t, r.Handle(Tap(Point{})), ErrNoGeometry)
}

func TestApplyRemoteCellDoesNotNotify(t *testing.T) {
	m, _, r, rec := setup(t, "..", cursor.Default)

	require.NoError(t, r.ApplyRemoteCell(at(0, 1), &grid.Entry{Value: "Q", Author: "bob"}))
	e, ok := m.Solution(at(0, 1))
	require.True(t, ok)
	assert.Equal(t, "bob", e.Author)
	assert.Empty(t, rec.events)

	assert.ErrorIs(t, r.ApplyRemoteCell(at(7, 7), nil), grid.ErrOutOfBounds)
}

func TestFuncsObserver(t *testing.T) {
	var cells, moves int
	_, _, r, _ := setup(t, "..\n..", cursor.Default)
	r.Subscribe(Funcs{
		OnCellChanged:      func(grid.Coord, string, bool) { cells++ },
		OnLocalCursorMoved: func(grid.Coord) { moves++ },
	})
	r.Subscribe(Funcs{})

	require.NoError(t, r.Handle(Char("a")))
	assert.Equal(t, 1, cells)
	assert.Equal(t, 1, moves)
}

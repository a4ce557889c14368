package grid

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, text string) *Model {
	t.Helper()
	m, err := ParseShape(text)
	require.NoError(t, err)
	return m
}

func TestNewRejectsMalformedShapes(t *testing.T) {
	t.Run("no rows", func(t *testing.T) {
		_, err := New(nil)
		assert.ErrorIs(t, err, ErrEmptyShape)
	})

	t.Run("empty first row", func(t *testing.T) {
		_, err := New([][]Cell{{}})
		assert.ErrorIs(t, err, ErrEmptyShape)
	})

	t.Run("ragged rows", func(t *testing.T) {
		_, err := New([][]Cell{{Open(), Open()}, {Open()}})
		assert.ErrorIs(t, err, ErrRaggedShape)
	})
}

func TestModelQueries(t *testing.T) {
	m := mustParse(t, `
		.#
		.Q
		..
	`)

	rows, cols := m.Dimensions()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, cols)

	assert.True(t, m.InBounds(Coord{Row: 2, Col: 1}))
	assert.False(t, m.InBounds(Coord{Row: 3, Col: 0}))
	assert.False(t, m.InBounds(Coord{Row: 0, Col: -1}))

	assert.True(t, m.IsBlocked(Coord{Row: 0, Col: 1}))
	assert.True(t, m.IsBlocked(Coord{Row: 9, Col: 9}), "out of bounds counts as blocked")
	assert.False(t, m.IsBlocked(Coord{Row: 1, Col: 1}))

	kind, ok := m.Kind(Coord{Row: 1, Col: 1})
	require.True(t, ok)
	assert.Equal(t, "Q", kind.Prefill)

	_, ok = m.Kind(Coord{Row: -1, Col: 0})
	assert.False(t, ok)
}

func TestSetSolution(t *testing.T) {
	m := mustParse(t, ".#\n..")
	c := Coord{Row: 1, Col: 0}

	_, ok := m.Solution(c)
	assert.False(t, ok, "new cells start empty")

	require.NoError(t, m.SetSolution(c, &Entry{Value: "A", Author: "alice"}))
	e, ok := m.Solution(c)
	require.True(t, ok)
	assert.Equal(t, Entry{Value: "A", Author: "alice"}, e)
	assert.True(t, m.Filled(c))

	require.NoError(t, m.SetSolution(c, nil))
	_, ok = m.Solution(c)
	assert.False(t, ok)
	assert.False(t, m.Filled(c))

	err := m.SetSolution(Coord{Row: 0, Col: 1}, &Entry{Value: "B"})
	assert.True(t, errors.Is(err, ErrBlockedCell))
	_, ok = m.Solution(Coord{Row: 0, Col: 1})
	assert.False(t, ok, "blocked cells never hold an entry")

	err = m.SetSolution(Coord{Row: 5, Col: 0}, &Entry{Value: "B"})
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestSetSolutionCopiesEntry(t *testing.T) {
	m := mustParse(t, "..")
	e := &Entry{Value: "A"}
	require.NoError(t, m.SetSolution(Coord{}, e))
	e.Value = "Z"

	got, _ := m.Solution(Coord{})
	assert.Equal(t, "A", got.Value)
}

func TestRebusValue(t *testing.T) {
	m := mustParse(t, "..")
	require.NoError(t, m.SetSolution(Coord{Col: 1}, &Entry{Value: "STAR"}))
	assert.Equal(t, [][]string{{"", "STAR"}}, m.Values())
}

func TestShapeIsCopied(t *testing.T) {
	src := [][]Cell{{Open(), Blocked()}}
	m, err := New(src)
	require.NoError(t, err)

	src[0][1] = Open()
	assert.True(t, m.IsBlocked(Coord{Col: 1}), "model must not alias the input shape")

	shape := m.Shape()
	shape[0][1] = Open()
	assert.True(t, m.IsBlocked(Coord{Col: 1}), "Shape must return a copy")
}

func TestFirstOpen(t *testing.T) {
	m := mustParse(t, "##\n#.")
	c, err := m.FirstOpen()
	require.NoError(t, err)
	assert.Equal(t, Coord{Row: 1, Col: 1}, c)

	m = mustParse(t, "##")
	_, err = m.FirstOpen()
	assert.ErrorIs(t, err, ErrNoOpenCell)
}

func TestDirection(t *testing.T) {
	assert.Equal(t, Down, Across.Opposite())
	assert.Equal(t, Across, Down.Opposite())

	c := Coord{Row: 2, Col: 2}
	assert.Equal(t, Coord{Row: 3, Col: 2}, Down.Step(c, false))
	assert.Equal(t, Coord{Row: 1, Col: 2}, Down.Step(c, true))
	assert.Equal(t, Coord{Row: 2, Col: 3}, Across.Step(c, false))
	assert.Equal(t, Coord{Row: 2, Col: 1}, Across.Step(c, true))

	var d Direction
	require.NoError(t, d.UnmarshalText([]byte("down")))
	assert.Equal(t, Down, d)
	require.NoError(t, d.UnmarshalText([]byte("right")))
	assert.Equal(t, Across, d)
	assert.Error(t, d.UnmarshalText([]byte("diagonal")))
}

func TestParseShape(t *testing.T) {
	m := mustParse(t, "a#\n.b")
	shape := m.Shape()
	want := [][]Cell{
		{Prefilled("A"), Blocked()},
		{Open(), Prefilled("B")},
	}
	if diff := cmp.Diff(want, shape); diff != "" {
		t.Errorf("shape mismatch (-want +got):\n%s", diff)
	}

	_, err := ParseShape("..\n.")
	assert.ErrorIs(t, err, ErrRaggedShape)

	_, err = ParseShape("\n  \n")
	assert.ErrorIs(t, err, ErrEmptyShape)
}

func TestParseShapeRejectsUnknownCharacters(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"..\n.5", `'5' at line 2, column 2`},
		{"\n  #é-\n...", `'-' at line 2, column 5`},
		{"a b", `' ' at line 1, column 2`},
	}
	for _, tt := range tests {
		m, err := ParseShape(tt.text)
		assert.Nil(t, m)
		require.ErrorIs(t, err, ErrInvalidShape, tt.text)
		assert.Contains(t, err.Error(), tt.want)
	}
}

// Package tui is a terminal renderer for a crossword session. It draws
// session snapshots, turns key presses and mouse clicks into input events,
// and applies collaborators' changes inside the bubbletea update loop so
// they never race with local input.
package tui

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/bodul/crossgrid/internal/grid"
	"github.com/bodul/crossgrid/internal/input"
	"github.com/bodul/crossgrid/internal/session"
)

const (
	cellWidth  = 4
	cellHeight = 2
	gridTop    = 2 // title line and a blank line
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	openStyle    = lipgloss.NewStyle().Background(lipgloss.Color("255")).Foreground(lipgloss.Color("0"))
	blockedStyle = lipgloss.NewStyle().Background(lipgloss.Color("0")).Foreground(lipgloss.Color("0"))
	entryStyle   = lipgloss.NewStyle().Background(lipgloss.Color("153")).Foreground(lipgloss.Color("0"))
	cursorStyle  = lipgloss.NewStyle().Background(lipgloss.Color("220")).Foreground(lipgloss.Color("0")).Bold(true)
	prefillStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// collaboratorColors is the palette for remote cursors, picked by a hash of
// the collaborator's identity.
var collaboratorColors = []lipgloss.Color{"33", "160", "34", "93", "208", "37", "170", "178"}

// Messages carrying collaborators' changes into the update loop.
type (
	RemoteStateMsg struct {
		Values  [][]string
		Cursors map[string]grid.Coord
	}
	RemoteCellMsg struct {
		Coord  grid.Coord
		Value  string
		Author string
	}
	RemoteCursorMsg struct {
		ID    string
		Coord grid.Coord
	}
	RemoteCursorGoneMsg struct {
		ID string
	}
	// DisconnectedMsg reports that the sync connection ended.
	DisconnectedMsg struct {
		Err error
	}
)

// Forwarder turns collaborator callbacks into messages for a running
// program, typically (*tea.Program).Send.
type Forwarder struct {
	Send func(tea.Msg)
}

func (f Forwarder) RemoteState(values [][]string, cursors map[string]grid.Coord) {
	f.Send(RemoteStateMsg{Values: values, Cursors: cursors})
}

func (f Forwarder) RemoteCell(c grid.Coord, value, author string) {
	f.Send(RemoteCellMsg{Coord: c, Value: value, Author: author})
}

func (f Forwarder) RemoteCursor(id string, c grid.Coord) {
	f.Send(RemoteCursorMsg{ID: id, Coord: c})
}

func (f Forwarder) RemoteCursorGone(id string) {
	f.Send(RemoteCursorGoneMsg{ID: id})
}

// Geometry maps terminal cells to grid cells for the layout drawn by View.
type Geometry struct {
	Rows, Cols int
}

// CellAt implements input.Geometry.
func (g Geometry) CellAt(p input.Point) (grid.Coord, bool) {
	if p.X < 0 || p.Y < gridTop {
		return grid.Coord{}, false
	}
	c := grid.Coord{Row: (p.Y - gridTop) / cellHeight, Col: p.X / cellWidth}
	if c.Row >= g.Rows || c.Col >= g.Cols {
		return grid.Coord{}, false
	}
	return c, true
}

// Model is the bubbletea model of a solving session.
type Model struct {
	sess   *session.Session
	title  string
	status string
	err    error
}

// New creates a model rendering sess. It installs its geometry on the
// session so mouse clicks resolve to cells.
func New(sess *session.Session, title string) Model {
	rows, cols := sess.Model().Dimensions()
	sess.SetGeometry(Geometry{Rows: rows, Cols: cols})
	return Model{sess: sess, title: title}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			m.err = m.sess.Handle(input.Tap(input.Point{X: msg.X, Y: msg.Y}))
		}

	case RemoteStateMsg:
		m.sess.ApplyRemoteState(msg.Values, msg.Cursors)

	case RemoteCellMsg:
		if err := m.sess.ApplyRemoteCell(msg.Coord, msg.Value, msg.Author); err != nil {
			m.status = fmt.Sprintf("ignored update from %s: %v", msg.Author, err)
		}

	case RemoteCursorMsg:
		m.sess.ApplyRemoteCursor(msg.ID, msg.Coord)

	case RemoteCursorGoneMsg:
		m.sess.RemoveRemoteCursor(msg.ID)

	case DisconnectedMsg:
		if msg.Err != nil {
			m.err = fmt.Errorf("disconnected: %w", msg.Err)
		} else {
			m.status = "disconnected"
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var ev input.Event
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeySpace:
		ev = input.Char(" ")
	case tea.KeyEnter:
		ev = input.Char("\n")
	case tea.KeyBackspace, tea.KeyDelete:
		ev = input.Backspace()
	case tea.KeyRunes:
		text := string(msg.Runes)
		if text == " " {
			ev = input.Char(" ")
			break
		}
		for _, r := range msg.Runes {
			if !unicode.IsLetter(r) {
				return m, nil
			}
		}
		ev = input.Char(text)
	default:
		return m, nil
	}
	m.err = m.sess.Handle(ev)
	return m, nil
}

func (m Model) View() string {
	snap := m.sess.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	active := make(map[grid.Coord]bool)
	for _, c := range snap.ActiveEntry() {
		active[c] = true
	}

	for r := 0; r < snap.Rows; r++ {
		var top, bottom strings.Builder
		for c := 0; c < snap.Cols; c++ {
			at := grid.Coord{Row: r, Col: c}
			t, bt := renderCell(snap, at, active[at])
			top.WriteString(t)
			bottom.WriteString(bt)
		}
		b.WriteString(top.String())
		b.WriteString("\n")
		b.WriteString(bottom.String())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(statusStyle.Render(statusLine(snap)))
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.status))
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err.Error()))
	}
	b.WriteString("\n")
	return b.String()
}

// renderCell draws both lines of one cell: the clue number, then the
// letter.
func renderCell(snap session.Snapshot, at grid.Coord, inEntry bool) (string, string) {
	v := snap.At(at)
	if v.Blocked {
		blank := strings.Repeat(" ", cellWidth)
		return blockedStyle.Render(blank), blockedStyle.Render(blank)
	}

	style := openStyle
	switch {
	case at == snap.Cursor.Coord:
		style = cursorStyle
	case inEntry:
		style = entryStyle
	}
	if ids := snap.CollaboratorsAt(at); len(ids) > 0 && at != snap.Cursor.Coord {
		sort.Strings(ids)
		style = style.Background(colorFor(ids[0])).Foreground(lipgloss.Color("255"))
	}

	number := ""
	if v.Number > 0 {
		number = fmt.Sprint(v.Number)
	}

	letter := ""
	letterStyle := style
	switch {
	case v.Entry != nil:
		letter = v.Entry.Value
	case v.Prefill != "":
		letter = v.Prefill
		letterStyle = style.Inherit(prefillStyle)
	}

	return style.Render(fit(number, false)), letterStyle.Render(fit(letter, true))
}

// fit pads or truncates s to the cell width, centering when asked. Rebus
// values wider than the cell are cut with an ellipsis.
func fit(s string, center bool) string {
	if runewidth.StringWidth(s) > cellWidth {
		s = runewidth.Truncate(s, cellWidth, "…")
	}
	pad := cellWidth - runewidth.StringWidth(s)
	if !center {
		return s + strings.Repeat(" ", pad)
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}

func statusLine(snap session.Snapshot) string {
	cur := snap.Cursor
	parts := []string{fmt.Sprintf("%s %s", cur.Coord, cur.Direction)}
	if entry := snap.ActiveEntry(); len(entry) > 0 {
		if n := snap.At(entry[0]).Number; n > 0 {
			parts[0] = fmt.Sprintf("%d %s %s", n, cur.Direction, cur.Coord)
		}
	}

	ids := make([]string, 0, len(snap.Collaborators))
	for id := range snap.Collaborators {
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		sort.Strings(ids)
		parts = append(parts, "with "+strings.Join(ids, ", "))
	}
	parts = append(parts, "space: direction · enter: next · esc: quit")
	return strings.Join(parts, " | ")
}

func colorFor(id string) lipgloss.Color {
	h := fnv.New32a()
	h.Write([]byte(id))
	return collaboratorColors[h.Sum32()%uint32(len(collaboratorColors))]
}

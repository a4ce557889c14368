package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bodul/crossgrid/internal/grid"
)

const (
	writeWait = 10 * time.Second

	// Frames waiting for the writer goroutine.
	sendQueueSize = 64
)

var errSendQueueFull = errors.New("remote: send queue full")

// Handler receives what other players do. Events caused by the client's
// own pseudo are filtered out before they reach it.
type Handler interface {
	RemoteState(values [][]string, cursors map[string]grid.Coord)
	RemoteCell(c grid.Coord, value, author string)
	RemoteCursor(id string, c grid.Coord)
	RemoteCursorGone(id string)
}

// event mirrors the server's event stream.
type event struct {
	Type    string                `json:"type"`
	Pseudo  string                `json:"pseudo"`
	Row     *int                  `json:"row"`
	Col     *int                  `json:"col"`
	Value   *string               `json:"value"`
	State   [][]string            `json:"state"`
	Cursors map[string]grid.Coord `json:"cursors"`
	Error   string                `json:"error"`
}

func (e event) coord() (grid.Coord, bool) {
	if e.Row == nil || e.Col == nil {
		return grid.Coord{}, false
	}
	return grid.Coord{Row: *e.Row, Col: *e.Col}, true
}

type frame struct {
	Type  string `json:"type"`
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Value string `json:"value,omitempty"`
}

// Conn is a live WebSocket to a game. It implements input.Observer, so a
// session can publish local edits and cursor moves through it. Frames are
// queued and written by a separate goroutine; Close stops it.
type Conn struct {
	ws     *websocket.Conn
	pseudo string
	logger *zap.Logger

	out        chan frame
	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
	closeErr   error

	mu  sync.Mutex
	err error
}

func newConn(ws *websocket.Conn, pseudo string, logger *zap.Logger) *Conn {
	c := &Conn{
		ws:         ws,
		pseudo:     pseudo,
		logger:     logger,
		out:        make(chan frame, sendQueueSize),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// Dial opens the game's WebSocket.
func (c *Client) Dial(ctx context.Context, gameID string, logger *zap.Logger) (*Conn, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/games/" + url.PathEscape(gameID) + "/ws"
	u.RawQuery = url.Values{"pseudo": {c.Pseudo}}.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return newConn(ws, c.Pseudo, logger), nil
}

// CellChanged sends a letter, or an erase when ok is false.
func (c *Conn) CellChanged(at grid.Coord, value string, ok bool) {
	if !ok {
		value = ""
	}
	c.write(frame{Type: "move", Row: at.Row, Col: at.Col, Value: value})
}

// LocalCursorMoved sends the local cursor position.
func (c *Conn) LocalCursorMoved(at grid.Coord) {
	c.write(frame{Type: "cursor", Row: at.Row, Col: at.Col})
}

// Err returns the first send error, if any.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Conn) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

// write queues f without waiting on the network. Once a send has failed,
// or the connection is closed, frames are dropped.
func (c *Conn) write(f frame) {
	if c.Err() != nil {
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.out <- f:
	default:
		c.fail(errSendQueueFull)
		c.logger.Warn("send queue full, dropping frame", zap.String("type", f.Type))
	}
}

func (c *Conn) writeLoop() {
	defer close(c.writerDone)
	for {
		select {
		case f := <-c.out:
			if !c.send(f) {
				return
			}
		case <-c.done:
			// Flush what was queued before Close.
			for {
				select {
				case f := <-c.out:
					if !c.send(f) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (c *Conn) send(f frame) bool {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(f); err != nil {
		c.fail(err)
		c.logger.Warn("send frame", zap.String("type", f.Type), zap.Error(err))
		return false
	}
	return true
}

// Run reads server events and hands other players' changes to h until ctx
// is done or the connection drops. It returns nil on a clean shutdown.
func (c *Conn) Run(ctx context.Context, h Handler) error {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		var ev event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logger.Warn("decode event", zap.Error(err))
			continue
		}
		c.dispatch(ev, h)
	}
}

func (c *Conn) dispatch(ev event, h Handler) {
	switch ev.Type {
	case "game_state":
		cursors := make(map[string]grid.Coord, len(ev.Cursors))
		for id, at := range ev.Cursors {
			if id != c.pseudo {
				cursors[id] = at
			}
		}
		h.RemoteState(ev.State, cursors)
	case "cell_update":
		at, ok := ev.coord()
		if !ok || ev.Pseudo == c.pseudo {
			return
		}
		value := ""
		if ev.Value != nil {
			value = *ev.Value
		}
		h.RemoteCell(at, value, ev.Pseudo)
	case "cursor_moved":
		at, ok := ev.coord()
		if !ok || ev.Pseudo == c.pseudo {
			return
		}
		h.RemoteCursor(ev.Pseudo, at)
	case "player_left":
		if ev.Pseudo != c.pseudo {
			h.RemoteCursorGone(ev.Pseudo)
		}
	case "error":
		c.logger.Warn("server rejected frame", zap.String("error", ev.Error))
	}
}

// Close flushes queued frames and closes the connection, telling the
// server first when it can. It is safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		<-c.writerDone
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

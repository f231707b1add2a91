package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"grot_arena/internal/logger"
	"grot_arena/internal/session"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	sendBuffer = 256
	opTimeout  = 5 * time.Second
)

// Client streams one session's events to one user and feeds that user's
// move and skip messages back into the session.
type Client struct {
	User    session.User
	Conn    *websocket.Conn
	Session *session.Session
	Send    chan []byte

	done     chan struct{}
	doneOnce sync.Once
	log      *slog.Logger
}

func NewClient(user session.User, conn *websocket.Conn, s *session.Session) *Client {
	return &Client{
		User:    user,
		Conn:    conn,
		Session: s,
		Send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		log:     logger.With("user", user.ID, "session_id", s.ID()),
	}
}

// Run blocks until the connection closes or the session stops.
func (c *Client) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	changes, stopChanges := c.Session.OnChange().Subscribe()
	defer stopChanges()
	progress, stopProgress := c.Session.OnProgress().Subscribe()
	defer stopProgress()
	ends, stopEnds := c.Session.OnEnd().Subscribe()
	defer stopEnds()

	go c.writePump()

	ready := Outbound{Type: MsgReady}
	c.attachStatus(ctx, &ready)
	c.attachSelf(ctx, &ready)
	c.push(ready)

	go c.readPump(ctx)

	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			c.close()
			return
		case ev, ok := <-changes:
			if !ok {
				c.close()
				return
			}
			c.forward(ctx, MsgChange, ev)
		case ev, ok := <-progress:
			if !ok {
				c.close()
				return
			}
			c.forward(ctx, MsgProgress, ev)
		case ev, ok := <-ends:
			if !ok {
				c.close()
				return
			}
			c.forward(ctx, MsgEnd, ev)
		}
	}
}

func (c *Client) forward(ctx context.Context, typ string, ev session.Event) {
	out := Outbound{Type: typ, Event: &ev}
	switch {
	case typ != MsgChange:
		c.attachStatus(ctx, &out)
		c.attachSelf(ctx, &out)
	case ev.Participant == c.User.ID:
		c.attachSelf(ctx, &out)
	}
	c.push(out)
}

func (c *Client) attachStatus(ctx context.Context, out *Outbound) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if st, err := c.Session.Status(ctx); err == nil {
		out.Status = &st
	}
}

// attachSelf adds the user's own snapshot, board included, when the user is
// a participant.
func (c *Client) attachSelf(ctx context.Context, out *Outbound) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if snap, err := c.Session.Participant(ctx, c.User.ID, true); err == nil {
		out.Self = &snap
	}
}

// handle applies one inbound message.
func (c *Client) handle(ctx context.Context, raw []byte) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		c.push(Outbound{Type: MsgError, Error: "bad message"})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var err error
	switch in.Type {
	case MsgMove:
		err = c.Session.Move(ctx, c.User.ID, in.X, in.Y)
	case MsgSkip:
		err = c.Session.Skip(ctx, c.User.ID)
	case MsgPing:
		c.push(Outbound{Type: MsgPong})
		return
	default:
		c.push(Outbound{Type: MsgError, Error: "unknown message type: " + in.Type})
		return
	}

	if err != nil {
		c.log.Debug("ws action rejected", "type", in.Type, "error", err)
		c.push(Outbound{Type: MsgError, Error: err.Error()})
		return
	}
	out := Outbound{Type: MsgAck}
	c.attachSelf(ctx, &out)
	c.push(out)
}

// push queues a message. A client that cannot keep up is disconnected.
func (c *Client) push(out Outbound) {
	b, err := json.Marshal(out)
	if err != nil {
		c.log.Error("ws marshal failed", "error", err)
		return
	}
	select {
	case c.Send <- b:
	case <-c.done:
	default:
		c.log.Warn("ws send buffer full, dropping client")
		c.close()
	}
}

func (c *Client) close() {
	c.doneOnce.Do(func() {
		close(c.done)
		_ = c.Conn.Close()
	})
}

//read
func (c *Client) readPump(ctx context.Context) {
	defer c.close()

	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("ws read error", "error", err)
			}
			return
		}
		c.handle(ctx, msg)
	}
}

//write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.Conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return
		case msg := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("ws write error", "error", err)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package opponent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"grot_arena/internal/game"
	"grot_arena/internal/logger"
	"grot_arena/internal/ws"

	"github.com/gorilla/websocket"
)

// Player is an automated participant speaking the public HTTP and websocket API.
type Player struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Rand    *rand.Rand
}

// Play joins sessionID and moves on every round until the session ends,
// the connection drops or ctx is cancelled.
func (p *Player) Play(ctx context.Context, sessionID string) error {
	log := logger.With("session_id", sessionID, "role", "opponent")
	if p.HTTP == nil {
		p.HTTP = &http.Client{Timeout: 10 * time.Second}
	}
	if p.Rand == nil {
		p.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	if err := p.join(ctx, sessionID); err != nil {
		return err
	}

	conn, err := p.dial(ctx, sessionID)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	round := 0
	for {
		var msg ws.Outbound
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}

		switch msg.Type {
		case ws.MsgEnd:
			log.Info("session ended")
			return nil
		case ws.MsgReady, ws.MsgProgress:
			if msg.Status == nil || !msg.Status.Started || msg.Status.Round == round {
				continue
			}
			if msg.Self == nil || !msg.Self.Active || msg.Self.Ready {
				continue
			}
			round = msg.Status.Round
			if err := p.act(conn, msg.Self.Board, log); err != nil {
				return err
			}
		case ws.MsgError:
			// the move was refused; the round still counts it, wait for the next one
			log.Debug("move refused", "error", msg.Error)
		}
	}
}

func (p *Player) act(conn *websocket.Conn, board [][]game.Cell, log *slog.Logger) error {
	in := ws.Inbound{Type: ws.MsgSkip}
	if x, y, ok := PickMove(board, p.Rand); ok {
		in = ws.Inbound{Type: ws.MsgMove, X: x, Y: y}
	}
	log.Debug("opponent acting", "type", in.Type, "x", in.X, "y", in.Y)
	return conn.WriteJSON(in)
}

// PickMove chooses a random cell among those worth the most points.
func PickMove(board [][]game.Cell, r *rand.Rand) (x, y int, ok bool) {
	best := 0
	var candidates [][2]int
	for cy, row := range board {
		for cx, cell := range row {
			switch {
			case cell.Points > best:
				best = cell.Points
				candidates = append(candidates[:0], [2]int{cx, cy})
			case cell.Points == best && best > 0:
				candidates = append(candidates, [2]int{cx, cy})
			}
		}
	}
	if len(candidates) == 0 {
		return 0, 0, false
	}
	c := candidates[r.IntN(len(candidates))]
	return c[0], c[1], true
}

func (p *Player) join(ctx context.Context, sessionID string) error {
	u := strings.TrimRight(p.BaseURL, "/") + "/api/v1/sessions/" + url.PathEscape(sessionID) + "/join"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(nil))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.Token)

	res, err := p.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("join: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(res.Body).Decode(&body)
		return fmt.Errorf("join: status %d: %s", res.StatusCode, body.Error)
	}
	return nil
}

func (p *Player) dial(ctx context.Context, sessionID string) (*websocket.Conn, error) {
	base, err := url.Parse(p.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	switch base.Scheme {
	case "https":
		base.Scheme = "wss"
	default:
		base.Scheme = "ws"
	}
	base.Path = strings.TrimRight(base.Path, "/") + "/api/v1/sessions/" + url.PathEscape(sessionID) + "/ws"
	base.RawQuery = url.Values{"token": {p.Token}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial ws: %w", err)
	}
	return conn, nil
}

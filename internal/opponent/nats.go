package opponent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"grot_arena/internal/logger"

	"github.com/nats-io/nats.go"
)

const DefaultSubject = "arena.opponent.request"

// Connect dials NATS with reconnects and logging handlers.
func Connect(url string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("grot-arena"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS error", "error", err)
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// NATSRequester publishes a Request on Subject. Whoever subscribes (see
// cmd/bot -listen) is expected to join the session.
type NATSRequester struct {
	nc      *nats.Conn
	subject string
}

func NewNATSRequester(nc *nats.Conn, subject string) *NATSRequester {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSRequester{nc: nc, subject: subject}
}

func (r *NATSRequester) RequestOpponent(_ context.Context, sessionID string) error {
	data, err := json.Marshal(Request{SessionID: sessionID, RequestedAt: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	msg := &nats.Msg{
		Subject: r.subject,
		Data:    data,
		Header:  nats.Header{"Session-ID": []string{sessionID}},
	}
	if err := r.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish opponent request: %w", err)
	}
	logger.Debug("opponent request published", "subject", r.subject, "session_id", sessionID)
	return nil
}

// Subscribe calls fn for every opponent request on subject until the
// returned subscription is drained.
func Subscribe(nc *nats.Conn, subject string, fn func(Request)) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	return nc.Subscribe(subject, func(m *nats.Msg) {
		var req Request
		if err := json.Unmarshal(m.Data, &req); err != nil || req.SessionID == "" {
			logger.Warn("bad opponent request", "subject", m.Subject, "error", err)
			return
		}
		fn(req)
	})
}

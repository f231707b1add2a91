// Package opponent provides the ways a duel asks for an automated player.
package opponent

import (
	"context"
	"errors"

	"grot_arena/internal/session"
)

// Request is the payload published for every opponent request.
type Request struct {
	SessionID   string `json:"session_id"`
	RequestedAt int64  `json:"requested_at"`
}

// Multi asks every requester in turn and joins their errors.
type Multi []session.Requester

func (m Multi) RequestOpponent(ctx context.Context, sessionID string) error {
	var errs []error
	for _, r := range m {
		if err := r.RequestOpponent(ctx, sessionID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package session

import "errors"

var (
	ErrNotQualified       = errors.New("user is not qualified for this session")
	ErrAlreadyJoined      = errors.New("user already joined")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrSessionFull        = errors.New("session is full")
	ErrNotRunning         = errors.New("session is not running")
	ErrAlreadyActed       = errors.New("participant already acted this round")
	ErrClosed             = errors.New("session closed")

	// ErrInvalidState marks a coordinator sequencing bug; callers are not expected to recover.
	ErrInvalidState = errors.New("invalid session state")
)

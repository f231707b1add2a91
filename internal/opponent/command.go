package opponent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"grot_arena/internal/logger"
)

// CommandRequester starts an external process per request, with the session
// id appended as the last argument. The process is reaped in the background
// and never waited on by the caller.
type CommandRequester struct {
	Path string
	Args []string
	Env  []string
}

func NewCommandRequester(argv []string) (*CommandRequester, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, errors.New("opponent command is empty")
	}
	return &CommandRequester{Path: argv[0], Args: argv[1:]}, nil
}

func (c *CommandRequester) RequestOpponent(_ context.Context, sessionID string) error {
	args := append(append([]string(nil), c.Args...), sessionID)
	cmd := exec.Command(c.Path, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start opponent %s: %w", c.Path, err)
	}
	logger.Info("opponent process started", "session_id", sessionID, "pid", cmd.Process.Pid)

	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Warn("opponent process exited", "session_id", sessionID, "error", err)
		}
	}()
	return nil
}

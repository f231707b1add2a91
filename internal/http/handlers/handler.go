package handlers

import (
	"context"
	"errors"
	"net/http"

	"grot_arena/internal/domain"
	"grot_arena/internal/game"
	"grot_arena/internal/hub"
	"grot_arena/internal/repository"
	"grot_arena/internal/session"

	"github.com/gin-gonic/gin"
)

// PlayerStore is the persistence the handlers need; *repository.PlayerRepository
// satisfies it. It is nil when the service runs without a database.
type PlayerStore interface {
	Ensure(ctx context.Context, id, name string) error
	GetByID(ctx context.Context, id string) (*domain.Player, error)
	GetResults(ctx context.Context, playerID string, limit int) ([]*domain.SessionResult, error)
	Leaderboard(ctx context.Context, limit int) ([]*domain.Player, error)
}

type Handler struct {
	Hub     *hub.Hub
	Players PlayerStore
}

func NewHandler(h *hub.Hub, players PlayerStore) *Handler {
	return &Handler{Hub: h, Players: players}
}

// getUser извлекает пользователя из контекста Gin (JWT middleware)
func getUser(c *gin.Context) (session.User, bool) {
	id := c.GetString("user_id")
	if id == "" {
		return session.User{}, false
	}
	return session.User{ID: id, Name: c.GetString("user_name")}, true
}

// sessionFromPath resolves :id, writing a 404 when it is unknown.
func (h *Handler) sessionFromPath(c *gin.Context) (*session.Session, bool) {
	s, err := h.Hub.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return s, true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, hub.ErrNotFound),
		errors.Is(err, session.ErrUnknownParticipant),
		errors.Is(err, repository.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotQualified):
		return http.StatusForbidden
	case errors.Is(err, session.ErrAlreadyJoined),
		errors.Is(err, session.ErrSessionFull),
		errors.Is(err, session.ErrNotRunning),
		errors.Is(err, session.ErrAlreadyActed),
		errors.Is(err, session.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, game.ErrIllegalMove),
		errors.Is(err, session.ErrInvalidUser):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(code, gin.H{"error": msg})
}

package handlers

import (
	"net/http"

	"grot_arena/internal/logger"
	"grot_arena/internal/session"

	"github.com/gin-gonic/gin"
)

type CreateSessionRequest struct {
	Kind session.Kind `json:"kind"`
}

type MoveRequest struct {
	X *int `json:"x" binding:"required"`
	Y *int `json:"y" binding:"required"`
}

// CreateSession starts a new session. An empty kind means standard.
func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
	}

	s, err := h.Hub.Create(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st, err := s.Status(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *Handler) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.Hub.List(c.Request.Context())})
}

func (h *Handler) SessionStatus(c *gin.Context) {
	s, ok := h.sessionFromPath(c)
	if !ok {
		return
	}
	st, err := s.Status(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) JoinSession(c *gin.Context) {
	user, ok := getUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	s, ok := h.sessionFromPath(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if h.Players != nil {
		// a failed upsert only costs the player's profile, not the join
		if err := h.Players.Ensure(ctx, user.ID, user.Name); err != nil {
			logger.Warn("player upsert failed", "user", user.ID, "error", err)
		}
	}

	snap, err := s.Join(ctx, user)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) BeginSession(c *gin.Context) {
	s, ok := h.sessionFromPath(c)
	if !ok {
		return
	}
	if err := s.Begin(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	st, err := s.Status(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Move records a move. An illegal move still uses the participant's turn;
// the response carries the error together with the updated snapshot.
func (h *Handler) Move(c *gin.Context) {
	user, ok := getUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "x and y are required"})
		return
	}
	s, ok := h.sessionFromPath(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	moveErr := s.Move(ctx, user.ID, *req.X, *req.Y)
	h.respondAction(c, s, user.ID, moveErr)
}

func (h *Handler) Skip(c *gin.Context) {
	user, ok := getUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	s, ok := h.sessionFromPath(c)
	if !ok {
		return
	}
	h.respondAction(c, s, user.ID, s.Skip(c.Request.Context(), user.ID))
}

func (h *Handler) respondAction(c *gin.Context, s *session.Session, userID string, actionErr error) {
	snap, err := s.Participant(c.Request.Context(), userID, true)
	if err != nil {
		if actionErr == nil {
			actionErr = err
		}
		writeError(c, actionErr)
		return
	}
	if actionErr != nil {
		c.JSON(statusFor(actionErr), gin.H{"error": actionErr.Error(), "self": snap})
		return
	}
	c.JSON(http.StatusOK, gin.H{"self": snap})
}

// Players returns the ranking; sandbox sessions have none.
func (h *Handler) Players(c *gin.Context) {
	s, ok := h.sessionFromPath(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var (
		players []session.Snapshot
		err     error
	)
	switch c.Query("filter") {
	case "active":
		players, err = s.ActiveParticipants(ctx)
	case "unready":
		players, err = s.UnreadyActiveParticipants(ctx)
	default:
		players, err = s.Players(ctx)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"players": players})
}

// Self returns the caller's own snapshot with the board.
func (h *Handler) Self(c *gin.Context) {
	user, ok := getUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	s, ok := h.sessionFromPath(c)
	if !ok {
		return
	}
	snap, err := s.Participant(c.Request.Context(), user.ID, c.DefaultQuery("board", "1") != "0")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

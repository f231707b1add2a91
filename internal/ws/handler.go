package ws

import (
	"context"
	"errors"
	"net/http"

	"grot_arena/internal/hub"
	"grot_arena/internal/logger"
	"grot_arena/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Sessions resolves a session id; *hub.Hub satisfies it.
type Sessions interface {
	Get(id string) (*session.Session, error)
}

// HandleWS upgrades an authenticated request and streams the session named
// by the :id path parameter. The JWT middleware must run first.
func HandleWS(ctx context.Context, sessions Sessions, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" || allowedOrigin == "*" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		s, err := sessions.Get(c.Param("id"))
		if errors.Is(err, hub.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session lookup failed"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade error", "error", err)
			return
		}

		user := session.User{ID: userID, Name: c.GetString("user_name")}
		client := NewClient(user, conn, s)
		go client.Run(ctx)
	}
}

package handlers

import (
	"net/http"
	"strings"

	"grot_arena/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuthRequest struct {
	Name string `json:"name"`
}

// Guest issues a token for a fresh anonymous identity.
func (h *Handler) Guest(c *gin.Context) {
	var req AuthRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
	}

	name := strings.TrimSpace(req.Name)
	if len(name) > 32 {
		name = name[:32]
	}
	id := "guest-" + uuid.NewString()

	token, err := service.GenerateJWT(id, name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	if h.Players != nil {
		if err := h.Players.Ensure(c.Request.Context(), id, name); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create player"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":   id,
			"name": name,
		},
	})
}

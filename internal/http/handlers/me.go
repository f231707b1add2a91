package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Me returns the caller's profile and recent results when a database is
// configured, and the token identity otherwise.
func (h *Handler) Me(c *gin.Context) {
	user, ok := getUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	if h.Players == nil {
		c.JSON(http.StatusOK, gin.H{"id": user.ID, "name": user.Name})
		return
	}

	ctx := c.Request.Context()
	p, err := h.Players.GetByID(ctx, user.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	results, err := h.Players.GetResults(ctx, user.ID, 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get results"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           p.ID,
		"name":         p.Name,
		"games_played": p.GamesPlayed,
		"best_score":   p.BestScore,
		"created_at":   p.CreatedAt,
		"results":      results,
	})
}

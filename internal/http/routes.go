package http

import (
	"context"
	"time"

	"grot_arena/internal/http/handlers"
	"grot_arena/internal/http/middleware"
	"grot_arena/internal/hub"
	"grot_arena/internal/ws"

	"github.com/gin-gonic/gin"
)

const (
	apiRateLimit  = 300
	apiRateWindow = time.Minute
)

type Deps struct {
	// Ctx bounds websocket clients; cancel it on shutdown.
	Ctx     context.Context
	Hub     *hub.Hub
	Players handlers.PlayerStore
	Limiter *middleware.RateLimiter
	Checks  map[string]handlers.Check

	Version        string
	AllowedOrigin  string
	MoveRateLimit  int
	MoveRateWindow time.Duration
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	if d.Ctx == nil {
		d.Ctx = context.Background()
	}
	if d.Limiter == nil {
		d.Limiter = middleware.NewRateLimiter("", "", 0)
	}
	if d.MoveRateLimit <= 0 {
		d.MoveRateLimit = 30
	}
	if d.MoveRateWindow <= 0 {
		d.MoveRateWindow = 10 * time.Second
	}

	h := handlers.NewHandler(d.Hub, d.Players)
	healthHandler := handlers.NewHealthHandler(d.Version, d.Checks, d.Hub.Len)

	r.Use(middleware.Metrics())

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	v1 := r.Group("/api/v1")
	v1.Use(d.Limiter.PerIP(apiRateLimit, apiRateWindow))

	v1.POST("/auth/guest", h.Guest)
	v1.GET("/me", middleware.JWT(), h.Me)
	v1.GET("/leaderboard", h.GetLeaderboard)

	// Move rate limiting (per user, not per IP)
	moveRL := d.Limiter.PerUser("move", d.MoveRateLimit, d.MoveRateWindow)

	sessions := v1.Group("/sessions")
	{
		sessions.GET("", h.ListSessions)
		sessions.POST("", middleware.JWT(), h.CreateSession)
		sessions.GET("/:id", h.SessionStatus)
		sessions.GET("/:id/players", h.Players)
		sessions.GET("/:id/me", middleware.JWT(), h.Self)
		sessions.POST("/:id/join", middleware.JWT(), h.JoinSession)
		sessions.POST("/:id/begin", middleware.JWT(), h.BeginSession)
		sessions.POST("/:id/move", middleware.JWT(), moveRL, h.Move)
		sessions.POST("/:id/skip", middleware.JWT(), moveRL, h.Skip)
		sessions.GET("/:id/ws", middleware.JWT(), ws.HandleWS(d.Ctx, d.Hub, d.AllowedOrigin))
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"grot_arena/internal/config"
	"grot_arena/internal/db"
	httpServer "grot_arena/internal/http"
	"grot_arena/internal/http/handlers"
	"grot_arena/internal/http/middleware"
	"grot_arena/internal/hub"
	"grot_arena/internal/logger"
	"grot_arena/internal/opponent"
	"grot_arena/internal/repository"
	"grot_arena/internal/service"
	"grot_arena/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.Check{}

	var (
		players   handlers.PlayerStore
		results   hub.ResultStore
		qualifier session.Qualifier
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database unavailable", "error", err)
		}
		defer pool.Close()

		repo := repository.NewPlayerRepository(pool)
		players, results = repo, repo
		qualifier = repo.Qualifier(cfg.MinContestGames)
		checks["database"] = pool.Ping
	} else {
		logger.Warn("DATABASE_URL not set: contests admit everyone and results are not stored")
	}

	limiter := middleware.NewRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer limiter.Close()
	if rc := limiter.Redis(); rc != nil {
		checks["redis"] = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
	}

	var requesters opponent.Multi
	if len(cfg.OpponentCommand) > 0 {
		cmd, err := opponent.NewCommandRequester(cfg.OpponentCommand)
		if err != nil {
			logger.Fatal("bad OPPONENT_COMMAND", "error", err)
		}
		requesters = append(requesters, cmd)
	}
	if cfg.NATSURL != "" {
		nc, err := opponent.Connect(cfg.NATSURL)
		if err != nil {
			logger.Fatal("NATS unavailable", "error", err)
		}
		defer nc.Drain()
		requesters = append(requesters, opponent.NewNATSRequester(nc, cfg.OpponentSubject))
		checks["nats"] = func(context.Context) error {
			if !nc.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}
	}
	var opponents session.Requester
	if len(requesters) > 0 {
		opponents = requesters
	}

	arena := hub.New(ctx, hub.Config{
		Timeout:    cfg.RoundTimeout,
		BoardSize:  cfg.BoardSize,
		BoardMoves: cfg.BoardMoves,
		TTL:        cfg.SessionTTL,
		Qualifier:  qualifier,
		Opponents:  opponents,
		Results:    results,
	})
	defer arena.Close()
	arena.StartCleanup(time.Minute)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer.RegisterRoutes(r, httpServer.Deps{
		Ctx:            ctx,
		Hub:            arena,
		Players:        players,
		Limiter:        limiter,
		Checks:         checks,
		Version:        version,
		AllowedOrigin:  cfg.AllowedOrigin,
		MoveRateLimit:  cfg.MoveRateLimit,
		MoveRateWindow: cfg.MoveRateWindow,
	})

	// CORS for production (frontend on different domain)
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: cfg.AllowedOrigin != "*",
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: c.Handler(r),
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"grot_arena/internal/logger"
	"grot_arena/internal/opponent"
	"grot_arena/internal/service"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type botConfig struct {
	ArenaURL  string `env:"ARENA_URL" envDefault:"http://localhost:8080"`
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
	NATSURL   string `env:"NATS_URL"`
	Subject   string `env:"OPPONENT_SUBJECT" envDefault:"arena.opponent.request"`
	Name      string `env:"BOT_NAME" envDefault:"grot"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// Usage:
//
//	bot <session-id>   join one session and play it to the end
//	bot -listen        play every session requested over NATS
func main() {
	listen := flag.Bool("listen", false, "serve opponent requests from NATS")
	flag.Parse()

	_ = godotenv.Load()
	var cfg botConfig
	if err := env.Parse(&cfg); err != nil {
		logger.Fatal("parse env", "error", err)
	}
	logger.Init(cfg.LogLevel, false)
	service.InitJWT(cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	newPlayer := func() (*opponent.Player, error) {
		tok, err := service.GenerateJWT("bot-"+uuid.NewString(), cfg.Name)
		if err != nil {
			return nil, err
		}
		return &opponent.Player{BaseURL: cfg.ArenaURL, Token: tok}, nil
	}

	play := func(sessionID string) error {
		p, err := newPlayer()
		if err != nil {
			return err
		}
		return p.Play(ctx, sessionID)
	}

	if !*listen {
		if flag.NArg() != 1 {
			logger.Error("usage: bot <session-id> | bot -listen")
			os.Exit(2)
		}
		if err := play(flag.Arg(0)); err != nil {
			logger.Fatal("play failed", "session_id", flag.Arg(0), "error", err)
		}
		return
	}

	if cfg.NATSURL == "" {
		logger.Fatal("NATS_URL is required with -listen")
	}
	nc, err := opponent.Connect(cfg.NATSURL)
	if err != nil {
		logger.Fatal("NATS unavailable", "error", err)
	}
	defer nc.Drain()

	var wg sync.WaitGroup
	sub, err := opponent.Subscribe(nc, cfg.Subject, func(req opponent.Request) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("opponent requested", "session_id", req.SessionID)
			if err := play(req.SessionID); err != nil && ctx.Err() == nil {
				logger.Warn("play failed", "session_id", req.SessionID, "error", err)
			}
		}()
	})
	if err != nil {
		logger.Fatal("subscribe", "subject", cfg.Subject, "error", err)
	}
	logger.Info("bot listening", "subject", cfg.Subject, "arena", cfg.ArenaURL)

	<-ctx.Done()
	_ = sub.Unsubscribe()
	wg.Wait()
	logger.Info("bot stopped", "status", nc.Status().String())
}

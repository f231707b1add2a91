package config

import (
	"fmt"
	"time"

	"grot_arena/internal/logger"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort       string `env:"APP_PORT" envDefault:"8080"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"*"`
	JWTSecret     string `env:"JWT_SECRET,required,notEmpty"`

	// Optional stores. An empty DATABASE_URL opens contests to everyone,
	// an empty REDIS_ADDR keeps rate limits in process memory.
	DatabaseURL   string `env:"DATABASE_URL"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	NATSURL       string `env:"NATS_URL"`

	// Sessions
	RoundTimeout    time.Duration `env:"ROUND_TIMEOUT" envDefault:"10s"`
	BoardSize       int           `env:"BOARD_SIZE" envDefault:"5"`
	BoardMoves      int           `env:"BOARD_MOVES" envDefault:"5"`
	MinContestGames int           `env:"MIN_CONTEST_GAMES" envDefault:"3"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"30m"`

	// Duel opponents
	OpponentCommand []string `env:"OPPONENT_COMMAND" envSeparator:" "`
	OpponentSubject string   `env:"OPPONENT_SUBJECT" envDefault:"arena.opponent.request"`

	// Move limits: at most MoveRateLimit actions per MoveRateWindow per user
	MoveRateLimit  int           `env:"MOVE_RATE_LIMIT" envDefault:"30"`
	MoveRateWindow time.Duration `env:"MOVE_RATE_WINDOW" envDefault:"10s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"false"`
}

// Parse reads the environment (and .env, when present) into a Config.
func Parse() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.BoardSize <= 0 || cfg.BoardMoves <= 0 {
		return nil, fmt.Errorf("BOARD_SIZE and BOARD_MOVES must be positive")
	}
	if cfg.RoundTimeout <= 0 {
		return nil, fmt.Errorf("ROUND_TIMEOUT must be positive")
	}
	return &cfg, nil
}

// Загрузка конфига из env
func Load() *Config {
	cfg, err := Parse()
	if err != nil {
		logger.Fatal("config load failed", "error", err)
	}
	return cfg
}

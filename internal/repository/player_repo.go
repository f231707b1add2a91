package repository

import (
	"context"
	"errors"
	"fmt"

	"grot_arena/internal/domain"
	"grot_arena/internal/session"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrPlayerNotFound = errors.New("player not found")

type PlayerRepository struct {
	db *pgxpool.Pool
}

func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Ensure creates the player on first sight and refreshes the display name.
func (r *PlayerRepository) Ensure(ctx context.Context, id, name string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO players (id, name)
		 VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET name = CASE WHEN EXCLUDED.name = '' THEN players.name ELSE EXCLUDED.name END`,
		id, name,
	)
	return err
}

func (r *PlayerRepository) GetByID(ctx context.Context, id string) (*domain.Player, error) {
	var p domain.Player
	err := r.db.QueryRow(ctx,
		`SELECT id, name, games_played, best_score, banned, created_at
		 FROM players
		 WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.GamesPlayed, &p.BestScore, &p.Banned, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Qualified reports whether the player is not banned and has finished at
// least minGames sessions. Unknown players are not qualified.
func (r *PlayerRepository) Qualified(ctx context.Context, id string, minGames int) (bool, error) {
	p, err := r.GetByID(ctx, id)
	if errors.Is(err, ErrPlayerNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !p.Banned && p.GamesPlayed >= minGames, nil
}

// Qualifier adapts Qualified to the contest admission hook.
func (r *PlayerRepository) Qualifier(minGames int) session.Qualifier {
	return session.QualifierFunc(func(ctx context.Context, u session.User) (bool, error) {
		return r.Qualified(ctx, u.ID, minGames)
	})
}

// RecordResults stores the final standings of a session and bumps each
// player's counters. Re-recording a session is a no-op per player.
func (r *PlayerRepository) RecordResults(ctx context.Context, results []domain.SessionResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, res := range results {
		if _, err := tx.Exec(ctx,
			`INSERT INTO players (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
			res.PlayerID, res.Name,
		); err != nil {
			return fmt.Errorf("ensure player %s: %w", res.PlayerID, err)
		}

		tag, err := tx.Exec(ctx,
			`INSERT INTO session_results (session_id, kind, player_id, place, score, moves_left, rounds)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (session_id, player_id) DO NOTHING`,
			res.SessionID, res.Kind, res.PlayerID, res.Place, res.Score, res.MovesLeft, res.Rounds,
		)
		if err != nil {
			return fmt.Errorf("insert result %s: %w", res.PlayerID, err)
		}
		if tag.RowsAffected() == 0 {
			continue
		}

		if _, err := tx.Exec(ctx,
			`UPDATE players
			 SET games_played = games_played + 1, best_score = GREATEST(best_score, $2)
			 WHERE id = $1`,
			res.PlayerID, res.Score,
		); err != nil {
			return fmt.Errorf("update player %s: %w", res.PlayerID, err)
		}
	}

	return tx.Commit(ctx)
}

// GetResults возвращает последние результаты игрока
func (r *PlayerRepository) GetResults(ctx context.Context, playerID string, limit int) ([]*domain.SessionResult, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, kind, player_id, place, score, moves_left, rounds, created_at
		 FROM session_results
		 WHERE player_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		playerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.SessionResult
	for rows.Next() {
		var res domain.SessionResult
		if err := rows.Scan(
			&res.ID,
			&res.SessionID,
			&res.Kind,
			&res.PlayerID,
			&res.Place,
			&res.Score,
			&res.MovesLeft,
			&res.Rounds,
			&res.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}

// Leaderboard returns the players with the highest best score.
func (r *PlayerRepository) Leaderboard(ctx context.Context, limit int) ([]*domain.Player, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, name, games_played, best_score, banned, created_at
		 FROM players
		 WHERE NOT banned
		 ORDER BY best_score DESC, games_played DESC, id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Player
	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.GamesPlayed, &p.BestScore, &p.Banned, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

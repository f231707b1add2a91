package domain

import "time"

// Player is the persisted profile behind a session participant.
type Player struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	GamesPlayed int       `db:"games_played" json:"games_played"`
	BestScore   int       `db:"best_score" json:"best_score"`
	Banned      bool      `db:"banned" json:"banned"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// SessionResult - итог участника в завершённой сессии
type SessionResult struct {
	ID        int64     `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	Kind      string    `db:"kind" json:"kind"`
	PlayerID  string    `db:"player_id" json:"player_id"`
	Name      string    `db:"-" json:"name,omitempty"`
	Place     int       `db:"place" json:"place"`
	Score     int       `db:"score" json:"score"`
	MovesLeft int       `db:"moves_left" json:"moves_left"`
	Rounds    int       `db:"rounds" json:"rounds"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

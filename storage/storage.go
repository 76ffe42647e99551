package storage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS players (
	player_id    TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_active  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS player_stats (
	player_id   TEXT PRIMARY KEY REFERENCES players(player_id),
	total_games INT NOT NULL DEFAULT 0,
	wins        INT NOT NULL DEFAULT 0,
	losses      INT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_player_stats_wins ON player_stats(wins DESC);
`

// Store persists player identities and win/loss records.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to Postgres and ensures the player tables exist.
// If databaseURL is empty, NewStore returns (nil, nil) and no persistence
// occurs; all methods are safe on a nil receiver.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to Postgres", "tag", "storage")
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// GetOrCreatePlayer ensures a row (and stats row) exists for playerID,
// refreshing last_active and the display name when provided.
func (s *Store) GetOrCreatePlayer(ctx context.Context, playerID, displayName string) error {
	if s == nil || s.pool == nil {
		return nil
	}
	name := displayName
	if name == "" {
		name = FallbackDisplayName(playerID)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO players (player_id, display_name) VALUES ($1, $2)
		ON CONFLICT (player_id) DO UPDATE
			SET display_name = CASE WHEN $2 <> '' THEN $2 ELSE players.display_name END,
			    last_active = now()`,
		playerID, name)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO player_stats (player_id) VALUES ($1)
		ON CONFLICT (player_id) DO NOTHING`,
		playerID)
	return err
}

// RecordGameResult increments the player's game counters. Unknown players
// are logged and skipped rather than surfaced as gameplay failures.
func (s *Store) RecordGameResult(ctx context.Context, playerID string, isWin bool) error {
	if s == nil || s.pool == nil {
		return nil
	}
	winInc, lossInc := 0, 1
	if isWin {
		winInc, lossInc = 1, 0
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE player_stats
		SET total_games = total_games + 1, wins = wins + $1, losses = losses + $2
		WHERE player_id = $3`,
		winInc, lossInc, playerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		slog.Warn("no stats row for player", "tag", "storage", "playerId", playerID)
		return nil
	}
	_, err = s.pool.Exec(ctx, `UPDATE players SET last_active = now() WHERE player_id = $1`, playerID)
	return err
}

// PlayerStats is one player's aggregate record.
type PlayerStats struct {
	PlayerID    string  `json:"playerId"`
	DisplayName string  `json:"displayName"`
	TotalGames  int     `json:"totalGames"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"winRate"`
}

// GetStats returns the record for one player, or (nil, nil) if unknown.
func (s *Store) GetStats(ctx context.Context, playerID string) (*PlayerStats, error) {
	if s == nil || s.pool == nil {
		return nil, nil
	}
	var ps PlayerStats
	err := s.pool.QueryRow(ctx, `
		SELECT p.player_id, p.display_name, st.total_games, st.wins, st.losses
		FROM players p
		JOIN player_stats st ON st.player_id = p.player_id
		WHERE p.player_id = $1`,
		playerID).Scan(&ps.PlayerID, &ps.DisplayName, &ps.TotalGames, &ps.Wins, &ps.Losses)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	ps.WinRate = WinRate(ps.Wins, ps.TotalGames)
	return &ps, nil
}

// Leaderboard returns players with at least one game, best record first:
// wins descending, then win rate descending, then losses ascending.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]PlayerStats, error) {
	if s == nil || s.pool == nil {
		return []PlayerStats{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT p.player_id, p.display_name, st.total_games, st.wins, st.losses
		FROM player_stats st
		JOIN players p ON p.player_id = st.player_id
		WHERE st.total_games > 0
		ORDER BY st.wins DESC,
			(st.wins::float / st.total_games) DESC,
			st.losses ASC
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PlayerStats
	for rows.Next() {
		var ps PlayerStats
		if err := rows.Scan(&ps.PlayerID, &ps.DisplayName, &ps.TotalGames, &ps.Wins, &ps.Losses); err != nil {
			return nil, err
		}
		ps.WinRate = WinRate(ps.Wins, ps.TotalGames)
		out = append(out, ps)
	}
	return out, rows.Err()
}

// WinRate returns the win percentage (0-100) for wins out of total.
func WinRate(wins, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}

// FallbackDisplayName derives a placeholder name from a playerId.
func FallbackDisplayName(playerID string) string {
	if len(playerID) > 6 {
		playerID = playerID[:6]
	}
	return "Player_" + playerID
}

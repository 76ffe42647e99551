package storage

import "context"

// StatsStore is the persistence surface consumed by the lobby and API
// layers. A nil *Store satisfies it as a no-op, so callers never branch
// on whether a database is configured.
type StatsStore interface {
	GetOrCreatePlayer(ctx context.Context, playerID, displayName string) error
	RecordGameResult(ctx context.Context, playerID string, isWin bool) error
	GetStats(ctx context.Context, playerID string) (*PlayerStats, error)
	Leaderboard(ctx context.Context, limit int) ([]PlayerStats, error)
}

var _ StatsStore = (*Store)(nil)

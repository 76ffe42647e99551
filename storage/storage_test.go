package storage

import (
	"context"
	"testing"
)

func TestWinRate(t *testing.T) {
	cases := []struct {
		wins, total int
		want        float64
	}{
		{0, 0, 0},
		{0, 10, 0},
		{5, 10, 50},
		{10, 10, 100},
		{1, 3, float64(1) / 3 * 100},
	}
	for _, tc := range cases {
		if got := WinRate(tc.wins, tc.total); got != tc.want {
			t.Errorf("WinRate(%d, %d) = %v, want %v", tc.wins, tc.total, got, tc.want)
		}
	}
}

func TestNilStoreIsNoOp(t *testing.T) {
	var s *Store
	ctx := context.Background()

	if err := s.GetOrCreatePlayer(ctx, "p1", "Alice"); err != nil {
		t.Errorf("GetOrCreatePlayer on nil store: %v", err)
	}
	if err := s.RecordGameResult(ctx, "p1", true); err != nil {
		t.Errorf("RecordGameResult on nil store: %v", err)
	}
	if stats, err := s.GetStats(ctx, "p1"); err != nil || stats != nil {
		t.Errorf("GetStats on nil store = %v, %v", stats, err)
	}
	if entries, err := s.Leaderboard(ctx, 10); err != nil || len(entries) != 0 {
		t.Errorf("Leaderboard on nil store = %v, %v", entries, err)
	}
	s.Close()
}

func TestNewStoreWithoutURL(t *testing.T) {
	s, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore(\"\") returned error: %v", err)
	}
	if s != nil {
		t.Fatal("NewStore(\"\") should return a nil store")
	}
}

func TestFallbackDisplayName(t *testing.T) {
	if got := FallbackDisplayName("abcdef123456"); got != "Player_abcdef" {
		t.Errorf("got %q", got)
	}
	if got := FallbackDisplayName("ab"); got != "Player_ab" {
		t.Errorf("got %q", got)
	}
}

package config

import "testing"

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.MaxPlayers != 5 {
		t.Errorf("MaxPlayers = %d, want 5", cfg.MaxPlayers)
	}
	if cfg.MinPlayers != 2 {
		t.Errorf("MinPlayers = %d, want 2", cfg.MinPlayers)
	}
	if cfg.HandSize != 7 {
		t.Errorf("HandSize = %d, want 7", cfg.HandSize)
	}
	if cfg.RestartDelaySec != 5 {
		t.Errorf("RestartDelaySec = %d, want 5", cfg.RestartDelaySec)
	}
	if cfg.WSPort != 8080 {
		t.Errorf("WSPort = %d, want 8080", cfg.WSPort)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MAX_PLAYERS", "8")
	t.Setenv("HAND_SIZE", "5")
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("WS_PORT", "not-a-number")

	cfg := Load()
	if cfg.MaxPlayers != 8 {
		t.Errorf("MaxPlayers = %d, want 8", cfg.MaxPlayers)
	}
	if cfg.HandSize != 5 {
		t.Errorf("HandSize = %d, want 5", cfg.HandSize)
	}
	if cfg.DatabaseURL != "postgres://test" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.WSPort != 8080 {
		t.Errorf("invalid WS_PORT should keep the default, got %d", cfg.WSPort)
	}
	if cfg.MinPlayers != 2 {
		t.Errorf("untouched field changed: MinPlayers = %d", cfg.MinPlayers)
	}
}

package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
)

// Config holds all configurable server parameters.
type Config struct {
	// MaxPlayers is the seat limit per lobby.
	MaxPlayers int `json:"max_players"`
	// MinPlayers is the minimum number of seated players required to start.
	MinPlayers int `json:"min_players"`
	// HandSize is the number of cards dealt to each seat at round start.
	HandSize int `json:"hand_size"`
	// RestartDelaySec is the pause between game over and the next round.
	RestartDelaySec int `json:"restart_delay_sec"`
	// LogTail is how many trailing game-log lines are sent in each snapshot.
	LogTail int `json:"log_tail"`

	MaxNameLength int `json:"max_name_length"`
	WSPort        int `json:"ws_port"`

	// DatabaseURL enables the Postgres stats store when non-empty.
	DatabaseURL string `json:"database_url"`
	// AuthJWKSURL enables validation of externally issued identity tokens.
	AuthJWKSURL string `json:"auth_jwks_url"`
	// AuthTokenSecret enables locally issued HS256 identity tokens.
	AuthTokenSecret string `json:"auth_token_secret"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		MaxPlayers:      5,
		MinPlayers:      2,
		HandSize:        7,
		RestartDelaySec: 5,
		LogTail:         5,
		MaxNameLength:   24,
		WSPort:          8080,
	}
}

// Load reads configuration from an optional config.json file,
// then applies environment variable overrides. Fields not set
// in either source retain their default values.
func Load() *Config {
	cfg := Defaults()

	// Try to load from config.json
	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			slog.Warn("failed to parse config.json", "tag", "config", "err", err)
		}
	}

	// Environment variable overrides
	overrideInt(&cfg.MaxPlayers, "MAX_PLAYERS")
	overrideInt(&cfg.MinPlayers, "MIN_PLAYERS")
	overrideInt(&cfg.HandSize, "HAND_SIZE")
	overrideInt(&cfg.RestartDelaySec, "RESTART_DELAY_SEC")
	overrideInt(&cfg.LogTail, "LOG_TAIL")
	overrideInt(&cfg.MaxNameLength, "MAX_NAME_LENGTH")
	overrideInt(&cfg.WSPort, "WS_PORT")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.AuthJWKSURL, "AUTH_JWKS_URL")
	overrideString(&cfg.AuthTokenSecret, "AUTH_TOKEN_SECRET")

	return cfg
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			slog.Warn("invalid value for env override", "tag", "config", "key", envKey, "value", val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

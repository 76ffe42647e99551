package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"colorcard-server/auth"
	"colorcard-server/config"
	"colorcard-server/storage"
)

const bearerPrefix = "Bearer "

// Handler holds dependencies for API handlers.
type Handler struct {
	Config *config.Config
	Stats  storage.StatsStore
}

// NewHandler creates a new API handler with the given dependencies.
func NewHandler(cfg *config.Config, stats storage.StatsStore) *Handler {
	return &Handler{
		Config: cfg,
		Stats:  stats,
	}
}

// CORS sets CORS headers on the response. Call before writing body.
func CORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// extractPlayerID validates the Authorization header and returns the
// player ID, or empty string on failure.
func (h *Handler) extractPlayerID(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return ""
	}
	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	playerID, err := auth.ResolvePlayerID(h.Config.AuthJWKSURL, h.Config.AuthTokenSecret, token)
	if err != nil {
		return ""
	}
	return playerID
}

// PlayerStatsHandler returns the win/loss record of the authenticated player.
func (h *Handler) PlayerStatsHandler(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	playerID := h.extractPlayerID(r)
	if playerID == "" {
		http.Error(w, "authorization required", http.StatusUnauthorized)
		return
	}

	stats := &storage.PlayerStats{PlayerID: playerID}
	if h.Stats != nil {
		found, err := h.Stats.GetStats(r.Context(), playerID)
		if err != nil {
			slog.Error("GetStats failed", "tag", "api", "error", err)
			http.Error(w, "failed to load stats", http.StatusInternalServerError)
			return
		}
		if found != nil {
			stats = found
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		slog.Error("encode stats response failed", "tag", "api", "error", err)
	}
}

// LeaderboardResponse is the JSON structure for /api/leaderboard.
type LeaderboardResponse struct {
	Entries []storage.PlayerStats `json:"entries"`
}

// LeaderboardHandler returns the global leaderboard ranked by wins.
func (h *Handler) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 10
	}

	entries := []storage.PlayerStats{}
	if h.Stats != nil {
		var err error
		entries, err = h.Stats.Leaderboard(r.Context(), limit)
		if err != nil {
			slog.Error("Leaderboard failed", "tag", "api", "error", err)
			http.Error(w, "failed to load leaderboard", http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []storage.PlayerStats{}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(LeaderboardResponse{Entries: entries}); err != nil {
		slog.Error("encode leaderboard response failed", "tag", "api", "error", err)
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"colorcard-server/api"
	"colorcard-server/config"
	"colorcard-server/lobby"
	"colorcard-server/loghandler"
	"colorcard-server/storage"
	"colorcard-server/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		if err2 := godotenv.Load("server/.env"); err2 != nil {
			slog.Info("No .env file found; using environment variables. For local dev, run from server/ or set DATABASE_URL and WS_PORT.")
		}
	}

	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stdout, slog.LevelInfo)))

	cfg := config.Load()

	slog.Info(fmt.Sprintf("Configuration: MaxPlayers=%d, MinPlayers=%d, HandSize=%d, RestartDelaySec=%d, WSPort=%d",
		cfg.MaxPlayers, cfg.MinPlayers, cfg.HandSize, cfg.RestartDelaySec, cfg.WSPort), "tag", "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to Postgres; stats disabled", "tag", "main", "error", err)
	}
	if store == nil && err == nil && cfg.DatabaseURL == "" {
		slog.Info("DATABASE_URL not set; player stats are disabled", "tag", "main")
	}
	defer store.Close()

	registry := lobby.NewRegistry(cfg, store)
	defer registry.Shutdown()

	hub := ws.NewHub(cfg, registry)
	go hub.Run(ctx)

	apiHandler := api.NewHandler(cfg, store)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r)
	})
	mux.HandleFunc("/api/stats", apiHandler.PlayerStatsHandler)
	mux.HandleFunc("/api/leaderboard", apiHandler.LeaderboardHandler)

	addr := fmt.Sprintf(":%d", cfg.WSPort)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down", "tag", "main")
		_ = server.Shutdown(context.Background())
	}()

	slog.Info("Color card server listening on "+addr, "tag", "main")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server stopped", "tag", "main", "error", err)
		os.Exit(1)
	}
}

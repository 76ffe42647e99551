package lobby

import (
	"log/slog"
	"sync"

	"colorcard-server/config"
)

// Registry is the process-wide code -> lobby map. It is constructed
// explicitly and injected wherever lobbies are resolved; the map itself
// only needs concurrent lookup/insert, lobby contents are guarded by each
// lobby's own actor.
type Registry struct {
	mu      sync.RWMutex
	lobbies map[string]*Lobby
	cfg     *config.Config
	stats   StatsRecorder
}

// NewRegistry creates an empty registry. stats may be nil when no stats
// backend is configured.
func NewRegistry(cfg *config.Config, stats StatsRecorder) *Registry {
	return &Registry{
		lobbies: make(map[string]*Lobby),
		cfg:     cfg,
		stats:   stats,
	}
}

// GetOrCreate returns the lobby for code, creating it (and starting its
// actor goroutine) on first use. The creating connection becomes the host.
func (r *Registry) GetOrCreate(code, creatorConnID string) *Lobby {
	r.mu.RLock()
	l, ok := r.lobbies[code]
	r.mu.RUnlock()
	if ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.lobbies[code]; ok {
		return l
	}
	l = New(code, creatorConnID, r.cfg, r.stats, nil)
	r.lobbies[code] = l
	go l.Run()
	slog.Info("lobby created", "tag", "registry", "code", code)
	return l
}

// Get returns the lobby for code, if any.
func (r *Registry) Get(code string) (*Lobby, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lobbies[code]
	return l, ok
}

// Len returns the number of live lobbies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lobbies)
}

// Shutdown stops every lobby actor. Used on process stop and in tests;
// lobbies are otherwise never evicted.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for code, l := range r.lobbies {
		l.Stop()
		delete(r.lobbies, code)
	}
}

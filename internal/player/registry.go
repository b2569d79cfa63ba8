package player

import (
	"sync"

	"github.com/vuongmanhnghia/tacobot/internal/playlist"
	"github.com/vuongmanhnghia/tacobot/pkg/logger"
)

// Registry owns the guild to actor mapping. Actors are created lazily and
// live for the rest of the process.
type Registry struct {
	mu     sync.Mutex
	actors map[string]*Actor

	chat     Chat
	resolver Resolver
	store    playlist.Store
	logger   *logger.Logger
}

// NewRegistry creates an empty registry sharing one set of collaborators
// across all actors.
func NewRegistry(chat Chat, res Resolver, store playlist.Store, log *logger.Logger) *Registry {
	return &Registry{
		actors:   make(map[string]*Actor),
		chat:     chat,
		resolver: res,
		store:    store,
		logger:   log,
	}
}

// GetOrCreate returns the guild's actor, creating it on first access.
// Concurrent first access still yields exactly one actor per guild.
func (r *Registry) GetOrCreate(guildID, guildName string) *Actor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.actors[guildID]; ok {
		return a
	}
	a := NewActor(guildID, guildName, r.chat, r.resolver, r.store, r.logger)
	r.actors[guildID] = a
	r.logger.WithField("guild", guildID).Info("Created playback actor")
	return a
}

// Get returns the guild's actor if one exists.
func (r *Registry) Get(guildID string) (*Actor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.actors[guildID]
	return a, ok
}

// Shutdown disconnects every actor's voice connection.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.actors {
		a.mu.Lock()
		a.disconnectLocked()
		a.mu.Unlock()
	}
}

package chat

import (
	"github.com/Horizonnns/vue-chat-server/utils"
)

// Store is the full persistence gateway surface the chat core depends on.
type Store interface {
	MessageStore
	LastSeenStore
}

// Service owns the realtime core. All state lives in objects constructed
// here and injected into handlers; there is no package-level registry.
type Service struct {
	Registry *Registry
	Presence *Presence
	Rooms    *Rooms
	Router   *Router

	logger *utils.Logger
}

// NewService wires the registry, presence tracker, room manager and
// message router together. Pass a nil cache to run without the Redis
// presence mirror.
func NewService(store Store, cache *PresenceCache, logger *utils.Logger) *Service {
	registry := NewRegistry(logger)
	presence := NewPresence(registry, store, cache, logger)
	registry.Subscribe(presence)

	rooms := NewRooms(registry, presence, logger)
	router := NewRouter(registry, rooms, store, logger)

	return &Service{
		Registry: registry,
		Presence: presence,
		Rooms:    rooms,
		Router:   router,
		logger:   logger,
	}
}

package chat

import (
	"sync"

	"github.com/Horizonnns/vue-chat-server/utils"
)

// Handle is an addressable live transport endpoint for push delivery.
type Handle interface {
	// ID returns the per-connection socket id.
	ID() string
	// Send enqueues an event for delivery and reports whether it was
	// accepted. A full or closed connection returns false.
	Send(event string, data any) bool
	// Close terminates the underlying transport.
	Close()
}

// Observer is notified of online/offline transitions derived from registry
// changes.
type Observer interface {
	UserOnline(userID int64)
	UserOffline(userID int64)
}

// Registry is the in-memory identity-to-handle map, the single source of
// truth for who is online right now. One identity maps to at most one
// handle; a re-register supersedes and closes the previous transport.
type Registry struct {
	mu       sync.RWMutex
	conns    map[int64]Handle
	observer Observer
	logger   *utils.Logger
}

func NewRegistry(logger *utils.Logger) *Registry {
	return &Registry{
		conns:  make(map[int64]Handle),
		logger: logger.With("component", "registry"),
	}
}

// Subscribe installs the transition observer. Must be called before the
// registry starts receiving connections.
func (r *Registry) Subscribe(o Observer) {
	r.observer = o
}

// Register installs or replaces the handle for a user. A superseded handle
// is closed so a stale session cannot keep receiving messages.
func (r *Registry) Register(userID int64, h Handle) {
	r.mu.Lock()
	old := r.conns[userID]
	r.conns[userID] = h
	count := len(r.conns)
	r.mu.Unlock()

	if old != nil && old != h {
		old.Close()
		r.logger.Debug("superseded previous connection", "userId", userID)
	}

	r.logger.Info("user connected", "userId", userID, "socketId", h.ID(), "online", count)

	if r.observer != nil {
		r.observer.UserOnline(userID)
	}
}

// Unregister removes the mapping for a user. No-op on unknown ids.
func (r *Registry) Unregister(userID int64) {
	r.mu.Lock()
	_, ok := r.conns[userID]
	if ok {
		delete(r.conns, userID)
	}
	count := len(r.conns)
	r.mu.Unlock()

	if !ok {
		return
	}

	r.logger.Info("user disconnected", "userId", userID, "online", count)

	if r.observer != nil {
		r.observer.UserOffline(userID)
	}
}

// Release unregisters only if h is still the current handle for the user.
// A superseded connection tearing itself down must not evict its
// replacement.
func (r *Registry) Release(userID int64, h Handle) {
	r.mu.Lock()
	current, ok := r.conns[userID]
	if !ok || current != h {
		r.mu.Unlock()
		return
	}
	delete(r.conns, userID)
	count := len(r.conns)
	r.mu.Unlock()

	r.logger.Info("user disconnected", "userId", userID, "online", count)

	if r.observer != nil {
		r.observer.UserOffline(userID)
	}
}

// Lookup returns the live handle for a user, if any. Safe to call
// concurrently with Register/Unregister.
func (r *Registry) Lookup(userID int64) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.conns[userID]
	return h, ok
}

// Contains reports whether the user has a live connection.
func (r *Registry) Contains(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[userID]
	return ok
}

// Snapshot returns all live handles.
func (r *Registry) Snapshot() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := make([]Handle, 0, len(r.conns))
	for _, h := range r.conns {
		handles = append(handles, h)
	}
	return handles
}

// OnlineIDs returns the ids of all connected users.
func (r *Registry) OnlineIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

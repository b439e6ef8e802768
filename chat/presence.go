package chat

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Horizonnns/vue-chat-server/utils"
)

// LastSeenStore is the slice of the persistence gateway presence needs.
type LastSeenStore interface {
	UpdateLastSeen(ctx context.Context, userID int64, seenAt time.Time) error
}

// Presence derives online/offline transitions from registry changes,
// persists last-seen timestamps, mirrors state into Redis and fans a full
// update_users map out to every connected client on each transition.
type Presence struct {
	registry *Registry
	store    LastSeenStore
	cache    *PresenceCache
	logger   *utils.Logger

	mu   sync.Mutex
	seen map[int64]*UserStatus
}

func NewPresence(registry *Registry, store LastSeenStore, cache *PresenceCache, logger *utils.Logger) *Presence {
	return &Presence{
		registry: registry,
		store:    store,
		cache:    cache,
		logger:   logger.With("component", "presence"),
		seen:     make(map[int64]*UserStatus),
	}
}

var _ Observer = (*Presence)(nil)

// UserOnline handles the Offline -> Online transition.
func (p *Presence) UserOnline(userID int64) {
	now := time.Now().UTC()

	status := UserStatus{IsOnline: true, LastSeen: &now}
	if h, ok := p.registry.Lookup(userID); ok {
		status.SocketID = h.ID()
	}

	p.mu.Lock()
	p.seen[userID] = &status
	snapshot := p.snapshotLocked()
	p.mu.Unlock()

	p.persistLastSeen(userID, now)

	if p.cache != nil {
		if err := p.cache.SetOnline(context.Background(), userID, status); err != nil {
			p.logger.Warn("presence mirror update failed", "userId", userID, "error", err)
		}
	}

	p.broadcast(snapshot)
}

// UserOffline handles the Online -> Offline transition. Persistence of
// last_seen is fire-and-forget: a failing store must never block
// disconnect handling.
func (p *Presence) UserOffline(userID int64) {
	now := time.Now().UTC()

	p.mu.Lock()
	status, ok := p.seen[userID]
	if !ok {
		status = &UserStatus{}
		p.seen[userID] = status
	}
	status.IsOnline = false
	status.LastSeen = &now
	snapshot := p.snapshotLocked()
	p.mu.Unlock()

	p.persistLastSeen(userID, now)

	if p.cache != nil {
		if err := p.cache.SetOffline(context.Background(), userID); err != nil {
			p.logger.Warn("presence mirror clear failed", "userId", userID, "error", err)
		}
	}

	p.broadcast(snapshot)
}

// IsOnline reflects registry state at call time.
func (p *Presence) IsOnline(userID int64) bool {
	return p.registry.Contains(userID)
}

// StatusFor returns a copy of the last observed status for a user.
func (p *Presence) StatusFor(userID int64) (UserStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.seen[userID]
	if !ok {
		return UserStatus{}, false
	}
	return *status, true
}

// BroadcastUsers pushes the current update_users map to every connected
// client, outside of a transition. Used when a client announces itself.
func (p *Presence) BroadcastUsers() {
	p.mu.Lock()
	snapshot := p.snapshotLocked()
	p.mu.Unlock()

	p.broadcast(snapshot)
}

// Run keeps Redis presence entries alive for long-lived connections by
// rewriting them before their TTL lapses. Returns once ctx is cancelled.
// No-op when the mirror is disabled.
func (p *Presence) Run(ctx context.Context) {
	if p.cache == nil {
		return
	}

	ticker := time.NewTicker(p.cache.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refreshMirror(ctx)
		}
	}
}

func (p *Presence) refreshMirror(ctx context.Context) {
	for _, userID := range p.registry.OnlineIDs() {
		status, ok := p.StatusFor(userID)
		if !ok {
			continue
		}
		if err := p.cache.SetOnline(ctx, userID, status); err != nil {
			p.logger.Warn("presence mirror refresh failed", "userId", userID, "error", err)
		}
	}
}

// snapshotLocked builds the identity -> status map. Caller holds p.mu.
func (p *Presence) snapshotLocked() map[string]UserStatus {
	snapshot := make(map[string]UserStatus, len(p.seen))
	for id, status := range p.seen {
		snapshot[strconv.FormatInt(id, 10)] = *status
	}
	return snapshot
}

func (p *Presence) broadcast(snapshot map[string]UserStatus) {
	for _, h := range p.registry.Snapshot() {
		h.Send(EventUpdateUsers, snapshot)
	}
}

func (p *Presence) persistLastSeen(userID int64, seenAt time.Time) {
	go func() {
		if err := p.store.UpdateLastSeen(context.Background(), userID, seenAt); err != nil {
			p.logger.Error("failed to persist last_seen", "userId", userID, "error", err)
		}
	}()
}

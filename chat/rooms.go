package chat

import (
	"sync"
	"time"

	"github.com/Horizonnns/vue-chat-server/utils"
)

// roomMember records who is in a room. Rooms are keyed by display name, as
// the frontend protocol dictates; the user id is kept alongside so fan-out
// can go through the connection registry, and the joining handle so a
// disconnect removes only the memberships of that particular connection.
type roomMember struct {
	name     string
	userID   int64
	joinedBy Handle
}

type room struct {
	creator   string
	creatorID int64
	members   []roomMember
	createdAt time.Time
}

// Rooms manages ephemeral password-keyed group chats. A room lives only in
// process memory and disappears when its last member leaves or on an
// explicit delete. The password is both the key and the access control.
type Rooms struct {
	mu       sync.Mutex
	rooms    map[string]*room
	registry *Registry
	presence *Presence
	logger   *utils.Logger
}

func NewRooms(registry *Registry, presence *Presence, logger *utils.Logger) *Rooms {
	return &Rooms{
		rooms:    make(map[string]*room),
		registry: registry,
		presence: presence,
		logger:   logger.With("component", "rooms"),
	}
}

// Create makes a new room keyed by password with the creator as its first
// member. Fails with ErrRoomExists if the key is taken.
func (rm *Rooms) Create(password, userName string, userID int64, h Handle) (*RoomInfo, error) {
	rm.mu.Lock()
	if _, exists := rm.rooms[password]; exists {
		rm.mu.Unlock()
		return nil, ErrRoomExists
	}

	r := &room{
		creator:   userName,
		creatorID: userID,
		members:   []roomMember{{name: userName, userID: userID, joinedBy: h}},
		createdAt: time.Now().UTC(),
	}
	rm.rooms[password] = r
	targets := snapshotMembers(r)
	rm.mu.Unlock()

	rm.logger.Info("room created", "creator", userName, "roomMembers", 1)

	rm.deliver(targets, EventUserJoined, userName)

	return rm.roomInfo(userName, userID), nil
}

// Join adds a user to an existing room. Duplicate display names within the
// same room are rejected.
func (rm *Rooms) Join(password, userName string, userID int64, h Handle) (*RoomInfo, error) {
	rm.mu.Lock()
	r, exists := rm.rooms[password]
	if !exists {
		rm.mu.Unlock()
		return nil, ErrRoomNotFound
	}

	for _, m := range r.members {
		if m.name == userName {
			rm.mu.Unlock()
			return nil, ErrAlreadyMember
		}
	}

	others := snapshotMembers(r)
	r.members = append(r.members, roomMember{name: userName, userID: userID, joinedBy: h})
	creator, creatorID := r.creator, r.creatorID
	size := len(r.members)
	rm.mu.Unlock()

	rm.logger.Info("user joined room", "userName", userName, "roomMembers", size)

	// Notify existing members; the joiner learns about the room from the ack.
	rm.deliver(others, EventUserJoined, userName)

	return rm.roomInfo(creator, creatorID), nil
}

// Leave removes a member by name. The room is destroyed once its
// membership empties; remaining members are notified otherwise.
func (rm *Rooms) Leave(password, userName string) {
	rm.mu.Lock()
	r, exists := rm.rooms[password]
	if !exists {
		rm.mu.Unlock()
		return
	}

	filtered := r.members[:0]
	removed := false
	for _, m := range r.members {
		if m.name == userName {
			removed = true
			continue
		}
		filtered = append(filtered, m)
	}
	r.members = filtered

	if len(r.members) == 0 {
		delete(rm.rooms, password)
		rm.mu.Unlock()
		if removed {
			rm.logger.Info("room emptied and destroyed", "userName", userName)
		}
		return
	}

	targets := snapshotMembers(r)
	rm.mu.Unlock()

	if removed {
		rm.deliver(targets, EventUserLeft, userName)
	}
}

// Delete tears a room down for everyone. Knowing the password is the only
// authorization required.
func (rm *Rooms) Delete(password string) {
	rm.mu.Lock()
	r, exists := rm.rooms[password]
	if !exists {
		rm.mu.Unlock()
		return
	}
	targets := snapshotMembers(r)
	delete(rm.rooms, password)
	rm.mu.Unlock()

	rm.logger.Info("room deleted", "roomMembers", len(targets))

	rm.deliver(targets, EventRoomDeleted, nil)
}

// LeaveAll removes every membership that was joined over the given
// connection. Called on disconnect so dead handles never linger in rooms.
func (rm *Rooms) LeaveAll(h Handle) {
	type departure struct {
		password string
		name     string
	}

	rm.mu.Lock()
	var departures []departure
	for password, r := range rm.rooms {
		for _, m := range r.members {
			if m.joinedBy == h {
				departures = append(departures, departure{password: password, name: m.name})
			}
		}
	}
	rm.mu.Unlock()

	for _, d := range departures {
		rm.Leave(d.password, d.name)
	}
}

// Broadcast sends an event to every connection registered under any member
// of the room, including the sender. Reports whether the room exists.
func (rm *Rooms) Broadcast(password string, event string, data any) bool {
	rm.mu.Lock()
	r, exists := rm.rooms[password]
	if !exists {
		rm.mu.Unlock()
		return false
	}
	targets := snapshotMembers(r)
	rm.mu.Unlock()

	rm.deliver(targets, event, data)
	return true
}

// Members returns the display names currently in the room.
func (rm *Rooms) Members(password string) ([]string, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	r, exists := rm.rooms[password]
	if !exists {
		return nil, false
	}

	names := make([]string, len(r.members))
	for i, m := range r.members {
		names[i] = m.name
	}
	return names, true
}

// Exists reports whether a room key is live.
func (rm *Rooms) Exists(password string) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	_, ok := rm.rooms[password]
	return ok
}

func (rm *Rooms) roomInfo(creator string, creatorID int64) *RoomInfo {
	info := &RoomInfo{Creator: creator}
	if status, ok := rm.presence.StatusFor(creatorID); ok {
		info.CreatorStatus = &status
	}
	return info
}

func (rm *Rooms) deliver(targets []roomMember, event string, data any) {
	for _, m := range targets {
		if h, ok := rm.registry.Lookup(m.userID); ok {
			h.Send(event, data)
		}
	}
}

func snapshotMembers(r *room) []roomMember {
	targets := make([]roomMember, len(r.members))
	copy(targets, r.members)
	return targets
}

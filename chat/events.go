// Package chat implements the realtime core: the connection registry,
// presence tracking, the message router and password-keyed rooms.
package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event names spoken over the WebSocket. The vocabulary matches the wire
// protocol the Vue frontend uses.
const (
	// Inbound
	EventUserConnected = "user_connected"
	EventJoin          = "join"
	EventSendMessage   = "send message"
	EventCreateRoom    = "create_room"
	EventJoinRoom      = "join_room"
	EventRoomMessage   = "send_message"
	EventLeaveRoom     = "leave_room"
	EventDeleteRoom    = "delete_room"
	EventSendFile      = "send_file"

	// Outbound
	EventReceiveMessage = "receive message"
	EventMessageSent    = "message sent"
	EventError          = "error"
	EventUpdateUsers    = "update_users"
	EventRoomCreated    = "room_created"
	EventRoomJoined     = "room_joined"
	EventUserJoined     = "user_joined"
	EventUserLeft       = "user_left"
	EventRoomDeleted    = "room_deleted"
	EventNewMessage     = "new_message"
	EventNewFile        = "new_file"
)

// Envelope frames every message on the wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func marshalEvent(event string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %q payload: %w", event, err)
		}
		raw = encoded
	}

	return json.Marshal(Envelope{Event: event, Data: raw})
}

// UserStatus is the presence snapshot published in update_users maps.
// LastSeen stays nil until the user's first observed transition.
type UserStatus struct {
	SocketID string     `json:"socketId"`
	LastSeen *time.Time `json:"lastSeen"`
	IsOnline bool       `json:"isOnline"`
}

// Inbound payloads
type DirectMessage struct {
	SenderID   int64  `json:"senderId"`
	ReceiverID int64  `json:"receiverId"`
	Content    string `json:"content"`
}

type RoomRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

type RoomMessage struct {
	Password    string `json:"password"`
	UserName    string `json:"userName"`
	Message     string `json:"message"`
	CurrentTime string `json:"currentTime"`
}

type DeleteRoomRequest struct {
	Password string `json:"password"`
}

type Announcement struct {
	UserName string `json:"userName"`
}

// Outbound payloads
type ReceivedMessage struct {
	SenderID  int64     `json:"senderId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type SentConfirmation struct {
	ReceiverID int64     `json:"receiverId"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

type RoomBroadcast struct {
	UserName string `json:"userName"`
	Message  string `json:"message"`
	Time     string `json:"time"`
}

// RoomInfo acknowledges a successful create_room or join_room, carrying the
// creator and a snapshot of the creator's presence.
type RoomInfo struct {
	Creator       string      `json:"creator"`
	CreatorStatus *UserStatus `json:"creatorStatus,omitempty"`
}

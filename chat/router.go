package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Horizonnns/vue-chat-server/models"
	"github.com/Horizonnns/vue-chat-server/utils"
)

// MessageStore is the slice of the persistence gateway the router needs.
type MessageStore interface {
	UserExists(ctx context.Context, id int64) (bool, error)
	SaveMessage(ctx context.Context, message *models.Message) error
}

// Router accepts outbound message intents, persists direct messages before
// delivery, and fans room messages out through the registry. An offline
// recipient is not an error: the message stays in durable storage for the
// history query.
type Router struct {
	registry *Registry
	rooms    *Rooms
	store    MessageStore
	logger   *utils.Logger

	// sendMu serializes timestamp assignment with the durable write so
	// persisted order matches timestamp order for any sender/receiver pair.
	sendMu sync.Mutex
}

func NewRouter(registry *Registry, rooms *Rooms, store MessageStore, logger *utils.Logger) *Router {
	return &Router{
		registry: registry,
		rooms:    rooms,
		store:    store,
		logger:   logger.With("component", "router"),
	}
}

// SendDirect validates the recipient, persists the message and delivers it
// to the recipient's handle when connected. The returned timestamp is
// authoritative; callers acknowledge the sender with it regardless of the
// recipient's online status.
func (r *Router) SendDirect(ctx context.Context, senderID, receiverID int64, content string) (time.Time, error) {
	exists, err := r.store.UserExists(ctx, receiverID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to check recipient: %w", err)
	}
	if !exists {
		return time.Time{}, ErrRecipientNotFound
	}

	r.sendMu.Lock()
	timestamp := time.Now().UTC()
	err = r.store.SaveMessage(ctx, &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Timestamp:  timestamp,
	})
	r.sendMu.Unlock()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to persist message: %w", err)
	}

	if h, ok := r.registry.Lookup(receiverID); ok {
		delivered := h.Send(EventReceiveMessage, ReceivedMessage{
			SenderID:  senderID,
			Content:   content,
			Timestamp: timestamp,
		})
		if !delivered {
			r.logger.Warn("delivery dropped, recipient send buffer unavailable", "receiverId", receiverID)
		}
	}

	return timestamp, nil
}

// SendToRoom broadcasts a room message to every member connection,
// including the sender. Unknown rooms are a silent no-op; room messages
// are ephemeral and never persisted.
func (r *Router) SendToRoom(password, userName, message, currentTime string) {
	delivered := r.rooms.Broadcast(password, EventNewMessage, RoomBroadcast{
		UserName: userName,
		Message:  message,
		Time:     currentTime,
	})
	if !delivered {
		r.logger.Debug("room message for unknown room dropped", "userName", userName)
	}
}

// ShareFile rebroadcasts an opaque file payload to every connected client.
// Files are not persisted by this subsystem.
func (r *Router) ShareFile(data json.RawMessage) {
	var meta struct {
		FileName string `json:"fileName"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		r.logger.Warn("malformed file payload dropped", "error", err)
		return
	}

	r.logger.Info("file shared", "fileName", meta.FileName)

	for _, h := range r.registry.Snapshot() {
		h.Send(EventNewFile, data)
	}
}

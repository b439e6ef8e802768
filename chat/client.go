package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Horizonnns/vue-chat-server/utils"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = 54 * time.Second

	maxMessageSize = 64 * 1024

	sendBufferSize = 256
)

// Client binds an authenticated identity to a live WebSocket connection
// and dispatches the inbound event protocol to the chat core.
type Client struct {
	id     uuid.UUID
	userID int64
	name   string
	conn   *websocket.Conn
	svc    *Service
	logger *utils.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool

	closeOnce sync.Once
}

func NewClient(svc *Service, conn *websocket.Conn, userID int64, logger *utils.Logger) *Client {
	return &Client{
		id:     uuid.New(),
		userID: userID,
		conn:   conn,
		svc:    svc,
		logger: logger.With("component", "client", "userId", userID),
		send:   make(chan []byte, sendBufferSize),
	}
}

var _ Handle = (*Client)(nil)

// ID returns the socket id for this connection.
func (c *Client) ID() string {
	return c.id.String()
}

// Send enqueues an event for the write pump. Returns false when the
// connection is closed or its buffer is full.
func (c *Client) Send(event string, data any) bool {
	payload, err := marshalEvent(event, data)
	if err != nil {
		c.logger.Error("failed to encode event", "event", event, "error", err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Close terminates the transport. The read pump observes the closed
// connection and runs the normal teardown path.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}

// Run registers the client and blocks pumping the connection until it
// disconnects. Teardown deterministically releases the registry entry and
// any room memberships joined over this connection.
func (c *Client) Run() {
	c.svc.Registry.Register(c.userID, c)

	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.svc.Rooms.LeaveAll(c)
		c.svc.Registry.Release(c.userID, c)
		c.Close()

		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("unexpected connection error", "error", err)
			}
			return
		}

		c.handleEvent(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleEvent dispatches one inbound envelope. Every failure is reported
// back as an error event; nothing here may take the process down.
func (c *Client) handleEvent(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.sendError("Invalid message format")
		return
	}

	switch env.Event {
	case EventUserConnected:
		c.handleAnnounce(env.Data, false)

	case EventJoin:
		c.handleAnnounce(env.Data, true)

	case EventSendMessage:
		c.handleDirectMessage(env.Data)

	case EventCreateRoom:
		c.handleCreateRoom(env.Data)

	case EventJoinRoom:
		c.handleJoinRoom(env.Data)

	case EventRoomMessage:
		c.handleRoomMessage(env.Data)

	case EventLeaveRoom:
		c.handleLeaveRoom(env.Data)

	case EventDeleteRoom:
		c.handleDeleteRoom(env.Data)

	case EventSendFile:
		c.svc.Router.ShareFile(env.Data)

	default:
		c.logger.Debug("unknown event ignored", "event", env.Event)
	}
}

// handleAnnounce records the display name this connection goes by. The
// join variant additionally tells everyone else a user arrived.
func (c *Client) handleAnnounce(data json.RawMessage, notifyOthers bool) {
	name, ok := decodeUserName(data)
	if !ok {
		c.sendError("Invalid payload")
		return
	}

	c.name = name

	if notifyOthers {
		for _, h := range c.svc.Registry.Snapshot() {
			if h != Handle(c) {
				h.Send(EventUserConnected, name)
			}
		}
	}

	c.svc.Presence.BroadcastUsers()
}

func (c *Client) handleDirectMessage(data json.RawMessage) {
	var msg DirectMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("Invalid payload")
		return
	}

	// The authenticated identity is the sender; a spoofed senderId in the
	// payload is ignored.
	timestamp, err := c.svc.Router.SendDirect(c.ctx(), c.userID, msg.ReceiverID, msg.Content)
	if err != nil {
		if errors.Is(err, ErrRecipientNotFound) {
			c.sendError("Recipient not found")
			return
		}
		c.logger.Error("direct send failed", "receiverId", msg.ReceiverID, "error", err)
		c.sendError("Failed to send message")
		return
	}

	c.Send(EventMessageSent, SentConfirmation{
		ReceiverID: msg.ReceiverID,
		Content:    msg.Content,
		Timestamp:  timestamp,
	})
}

func (c *Client) handleCreateRoom(data json.RawMessage) {
	var req RoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("Invalid payload")
		return
	}

	info, err := c.svc.Rooms.Create(req.Password, c.displayName(req.UserName), c.userID, c)
	if err != nil {
		c.sendError("Room with this password already exists.")
		return
	}

	c.Send(EventRoomCreated, info)
}

func (c *Client) handleJoinRoom(data json.RawMessage) {
	var req RoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("Invalid payload")
		return
	}

	info, err := c.svc.Rooms.Join(req.Password, c.displayName(req.UserName), c.userID, c)
	if err != nil {
		switch {
		case errors.Is(err, ErrRoomNotFound):
			c.sendError("Room with this password does not exist.")
		case errors.Is(err, ErrAlreadyMember):
			c.sendError("User with this name is already connected.")
		default:
			c.sendError("Failed to join room")
		}
		return
	}

	c.Send(EventRoomJoined, info)
}

func (c *Client) handleRoomMessage(data json.RawMessage) {
	var msg RoomMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("Invalid payload")
		return
	}

	c.svc.Router.SendToRoom(msg.Password, c.displayName(msg.UserName), msg.Message, msg.CurrentTime)
}

func (c *Client) handleLeaveRoom(data json.RawMessage) {
	var req RoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("Invalid payload")
		return
	}

	c.svc.Rooms.Leave(req.Password, c.displayName(req.UserName))
}

func (c *Client) handleDeleteRoom(data json.RawMessage) {
	var req DeleteRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("Invalid payload")
		return
	}

	c.svc.Rooms.Delete(req.Password)
}

// displayName prefers the name carried in the payload and remembers it;
// an empty payload name falls back to the one announced over this
// connection via join/user_connected.
func (c *Client) displayName(fromPayload string) string {
	if fromPayload != "" {
		c.name = fromPayload
		return fromPayload
	}
	return c.name
}

func (c *Client) sendError(message string) {
	c.Send(EventError, message)
}

func (c *Client) ctx() context.Context {
	return context.Background()
}

// decodeUserName accepts either a bare JSON string or {"userName": ...},
// both of which the frontend sends depending on the screen.
func decodeUserName(data json.RawMessage) (string, bool) {
	var name string
	if err := json.Unmarshal(data, &name); err == nil && name != "" {
		return name, true
	}

	var a Announcement
	if err := json.Unmarshal(data, &a); err == nil && a.UserName != "" {
		return a.UserName, true
	}

	return "", false
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Horizonnns/vue-chat-server/auth"
	"github.com/Horizonnns/vue-chat-server/chat"
	"github.com/Horizonnns/vue-chat-server/middleware"
	"github.com/Horizonnns/vue-chat-server/models"
)

// fakeChatStore is an in-memory chat.Store for driving the realtime core
// without a database.
type fakeChatStore struct {
	mu       sync.Mutex
	users    map[int64]bool
	messages []models.Message
}

func newFakeChatStore(userIDs ...int64) *fakeChatStore {
	users := make(map[int64]bool)
	for _, id := range userIDs {
		users[id] = true
	}
	return &fakeChatStore{users: users}
}

func (s *fakeChatStore) UserExists(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id], nil
}

func (s *fakeChatStore) SaveMessage(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *m)
	return nil
}

func (s *fakeChatStore) UpdateLastSeen(context.Context, int64, time.Time) error {
	return nil
}

func (s *fakeChatStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func setupWSServer(t *testing.T, store chat.Store) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := chat.NewService(store, nil, testLogger())
	h := NewWSHandler(svc, "", testLogger())

	r := gin.New()
	r.GET("/ws", middleware.Auth("test-secret"), h.Serve)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server, userID int64) *websocket.Conn {
	t.Helper()

	token, err := auth.GenerateToken(userID, []byte("test-secret"), time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	env := chat.Envelope{Event: event, Data: payload}
	require.NoError(t, conn.WriteJSON(env))
}

// pendingFrames holds frames read past while waiting for a different
// event, so out-of-order arrivals are not lost between awaitEvent calls.
var (
	pendingMu     sync.Mutex
	pendingFrames = make(map[*websocket.Conn][]chat.Envelope)
)

// awaitEvent reads frames until one with the wanted event name arrives,
// buffering interleaved frames (e.g. presence broadcasts) for later calls.
func awaitEvent(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()

	pendingMu.Lock()
	queue := pendingFrames[conn]
	for i, env := range queue {
		if env.Event == event {
			pendingFrames[conn] = append(queue[:i:i], queue[i+1:]...)
			pendingMu.Unlock()
			return env.Data
		}
	}
	pendingMu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))

	for {
		var env chat.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("waiting for %q: %v", event, err)
		}
		if env.Event == event {
			return env.Data
		}
		pendingMu.Lock()
		pendingFrames[conn] = append(pendingFrames[conn], env)
		pendingMu.Unlock()
	}
}

func TestWSRequiresToken(t *testing.T) {
	srv := setupWSServer(t, newFakeChatStore(1))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSPresenceBroadcastOnConnect(t *testing.T) {
	srv := setupWSServer(t, newFakeChatStore(1))

	conn := dialWS(t, srv, 1)

	data := awaitEvent(t, conn, chat.EventUpdateUsers)

	var users map[string]chat.UserStatus
	require.NoError(t, json.Unmarshal(data, &users))
	require.Contains(t, users, "1")
	assert.True(t, users["1"].IsOnline)
	assert.NotEmpty(t, users["1"].SocketID)
}

func TestWSDirectMessageDelivery(t *testing.T) {
	store := newFakeChatStore(1, 2)
	srv := setupWSServer(t, store)

	sender := dialWS(t, srv, 1)
	receiver := dialWS(t, srv, 2)

	// Both sides see presence before messaging starts.
	awaitEvent(t, sender, chat.EventUpdateUsers)
	awaitEvent(t, receiver, chat.EventUpdateUsers)

	sendEvent(t, sender, chat.EventSendMessage, chat.DirectMessage{
		ReceiverID: 2,
		Content:    "hello there",
	})

	var received chat.ReceivedMessage
	require.NoError(t, json.Unmarshal(awaitEvent(t, receiver, chat.EventReceiveMessage), &received))
	assert.Equal(t, int64(1), received.SenderID)
	assert.Equal(t, "hello there", received.Content)

	var ack chat.SentConfirmation
	require.NoError(t, json.Unmarshal(awaitEvent(t, sender, chat.EventMessageSent), &ack))
	assert.Equal(t, int64(2), ack.ReceiverID)
	assert.Equal(t, "hello there", ack.Content)
	assert.Equal(t, received.Timestamp, ack.Timestamp)

	assert.Equal(t, 1, store.messageCount())
}

func TestWSUnknownRecipientError(t *testing.T) {
	store := newFakeChatStore(1)
	srv := setupWSServer(t, store)

	conn := dialWS(t, srv, 1)

	sendEvent(t, conn, chat.EventSendMessage, chat.DirectMessage{
		ReceiverID: 99,
		Content:    "into the void",
	})

	var msg string
	require.NoError(t, json.Unmarshal(awaitEvent(t, conn, chat.EventError), &msg))
	assert.Equal(t, "Recipient not found", msg)
	assert.Equal(t, 0, store.messageCount())
}

func TestWSRoomLifecycle(t *testing.T) {
	srv := setupWSServer(t, newFakeChatStore(1, 2))

	alice := dialWS(t, srv, 1)
	carol := dialWS(t, srv, 2)

	sendEvent(t, alice, chat.EventCreateRoom, chat.RoomRequest{UserName: "alice", Password: "pw123"})

	var created chat.RoomInfo
	require.NoError(t, json.Unmarshal(awaitEvent(t, alice, chat.EventRoomCreated), &created))
	assert.Equal(t, "alice", created.Creator)

	// The creator is announced to the room she now occupies alone.
	var selfArrival string
	require.NoError(t, json.Unmarshal(awaitEvent(t, alice, chat.EventUserJoined), &selfArrival))
	assert.Equal(t, "alice", selfArrival)

	sendEvent(t, carol, chat.EventJoinRoom, chat.RoomRequest{UserName: "carol", Password: "pw123"})

	var joined chat.RoomInfo
	require.NoError(t, json.Unmarshal(awaitEvent(t, carol, chat.EventRoomJoined), &joined))
	assert.Equal(t, "alice", joined.Creator)

	var arrival string
	require.NoError(t, json.Unmarshal(awaitEvent(t, alice, chat.EventUserJoined), &arrival))
	assert.Equal(t, "carol", arrival)

	// Room broadcast reaches every member, including the sender.
	sendEvent(t, carol, chat.EventRoomMessage, chat.RoomMessage{
		Password:    "pw123",
		UserName:    "carol",
		Message:     "hi room",
		CurrentTime: "12:30",
	})

	for _, conn := range []*websocket.Conn{alice, carol} {
		var msg chat.RoomBroadcast
		require.NoError(t, json.Unmarshal(awaitEvent(t, conn, chat.EventNewMessage), &msg))
		assert.Equal(t, "carol", msg.UserName)
		assert.Equal(t, "hi room", msg.Message)
	}

	// Deleting the room notifies everybody.
	sendEvent(t, alice, chat.EventDeleteRoom, chat.DeleteRoomRequest{Password: "pw123"})
	awaitEvent(t, alice, chat.EventRoomDeleted)
	awaitEvent(t, carol, chat.EventRoomDeleted)
}

func TestWSRoomFallsBackToAnnouncedName(t *testing.T) {
	srv := setupWSServer(t, newFakeChatStore(1))

	dave := dialWS(t, srv, 1)

	sendEvent(t, dave, chat.EventJoin, "dave")
	awaitEvent(t, dave, chat.EventUpdateUsers)

	// create_room without a userName uses the name announced via join.
	sendEvent(t, dave, chat.EventCreateRoom, chat.RoomRequest{Password: "pw123"})

	var created chat.RoomInfo
	require.NoError(t, json.Unmarshal(awaitEvent(t, dave, chat.EventRoomCreated), &created))
	assert.Equal(t, "dave", created.Creator)

	var arrival string
	require.NoError(t, json.Unmarshal(awaitEvent(t, dave, chat.EventUserJoined), &arrival))
	assert.Equal(t, "dave", arrival)
}

func TestWSDuplicateRoomKeyRejected(t *testing.T) {
	srv := setupWSServer(t, newFakeChatStore(1, 2))

	alice := dialWS(t, srv, 1)
	bob := dialWS(t, srv, 2)

	sendEvent(t, alice, chat.EventCreateRoom, chat.RoomRequest{UserName: "alice", Password: "pw123"})
	awaitEvent(t, alice, chat.EventRoomCreated)

	sendEvent(t, bob, chat.EventCreateRoom, chat.RoomRequest{UserName: "bob", Password: "pw123"})

	var msg string
	require.NoError(t, json.Unmarshal(awaitEvent(t, bob, chat.EventError), &msg))
	assert.Contains(t, msg, "already exists")
}

package chat

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Horizonnns/vue-chat-server/models"
	"github.com/Horizonnns/vue-chat-server/utils"
)

func testLogger() *utils.Logger {
	return &utils.Logger{Logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

type recordedEvent struct {
	name string
	data any
}

// fakeHandle is an in-memory Handle that records everything sent to it.
type fakeHandle struct {
	id string

	mu     sync.Mutex
	events []recordedEvent
	closed bool
	full   bool
}

func newFakeHandle(id string) *fakeHandle {
	return &fakeHandle{id: id}
}

func (f *fakeHandle) ID() string { return f.id }

func (f *fakeHandle) Send(event string, data any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.full {
		return false
	}
	f.events = append(f.events, recordedEvent{name: event, data: data})
	return true
}

func (f *fakeHandle) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeHandle) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeHandle) eventsNamed(name string) []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedEvent
	for _, e := range f.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

// fakeStore is an in-memory persistence gateway.
type fakeStore struct {
	mu       sync.Mutex
	users    map[int64]bool
	messages []models.Message
	lastSeen map[int64]time.Time

	existsErr error
	saveErr   error
}

func newFakeStore(userIDs ...int64) *fakeStore {
	users := make(map[int64]bool)
	for _, id := range userIDs {
		users[id] = true
	}
	return &fakeStore{
		users:    users,
		lastSeen: make(map[int64]time.Time),
	}
}

func (s *fakeStore) UserExists(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return s.users[id], nil
}

func (s *fakeStore) SaveMessage(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.messages = append(s.messages, *m)
	return nil
}

func (s *fakeStore) UpdateLastSeen(_ context.Context, userID int64, seenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen[userID] = seenAt
	return nil
}

func (s *fakeStore) savedMessages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *fakeStore) lastSeenFor(userID int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.lastSeen[userID]
	return ts, ok
}

func newTestService(store *fakeStore) *Service {
	return NewService(store, nil, testLogger())
}

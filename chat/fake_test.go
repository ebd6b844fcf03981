package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeDirectory is an in-memory RoomDirectory and UserDirectory with
// failure injection.
type fakeDirectory struct {
	mu           sync.Mutex
	rooms        map[string]Room
	participants map[string][]string
	messages     map[string][]MessageRecord
	users        map[string]string
	nextID       uint

	appendErr error
	findHook  func(roomID string)
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		rooms:        make(map[string]Room),
		participants: make(map[string][]string),
		messages:     make(map[string][]MessageRecord),
		users:        make(map[string]string),
	}
}

func (f *fakeDirectory) addRoom(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[id] = Room{ID: id, Name: name, IsActive: true, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeDirectory) addUser(id, username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = username
}

func (f *fakeDirectory) FindRoom(_ context.Context, roomID string) (Room, error) {
	f.mu.Lock()
	hook := f.findHook
	f.mu.Unlock()
	if hook != nil {
		hook(roomID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok {
		return Room{}, ErrNotFound
	}
	return room, nil
}

func (f *fakeDirectory) ListParticipants(_ context.Context, roomID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.participants[roomID]...), nil
}

func (f *fakeDirectory) AddParticipant(_ context.Context, roomID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Deliberately not idempotent: duplicates here would expose a lost update in the registry.
	f.participants[roomID] = append(f.participants[roomID], userID)
	return nil
}

func (f *fakeDirectory) ListMessages(_ context.Context, roomID string) ([]MessageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MessageRecord(nil), f.messages[roomID]...), nil
}

func (f *fakeDirectory) AppendMessage(_ context.Context, record *MessageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.nextID++
	record.ID = f.nextID
	f.messages[record.RoomID] = append(f.messages[record.RoomID], *record)
	return nil
}

func (f *fakeDirectory) LastMessageTime(_ context.Context, roomID string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[roomID]
	if len(msgs) == 0 {
		return time.Time{}, nil
	}
	return msgs[len(msgs)-1].CreatedAt, nil
}

func (f *fakeDirectory) Resolve(_ context.Context, userID string) (UserRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.users[userID]
	if !ok {
		return UserRef{}, errors.New("no such user")
	}
	return UserRef{ID: userID, Username: name}, nil
}

func (f *fakeDirectory) participantsOf(roomID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.participants[roomID]...)
}

func (f *fakeDirectory) log(roomID string) []MessageRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MessageRecord(nil), f.messages[roomID]...)
}

// nextEvent waits for the next frame queued on s.
func nextEvent(t *testing.T, s *Session) Event {
	t.Helper()
	select {
	case frame := <-s.Outbound():
		var ev Event
		require.NoError(t, json.Unmarshal(frame, &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("session %s: no event received", s.UserID)
		return Event{}
	}
}

// drain returns every frame currently queued on s without waiting.
func drain(t *testing.T, s *Session) []Event {
	t.Helper()
	var events []Event
	for {
		select {
		case frame := <-s.Outbound():
			var ev Event
			require.NoError(t, json.Unmarshal(frame, &ev))
			events = append(events, ev)
		default:
			return events
		}
	}
}

func ofType(events []Event, eventType string) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func decodePayload[T any](t *testing.T, ev Event) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(ev.Payload, &v))
	return v
}

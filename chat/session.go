package chat

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Session is the live state of one authenticated connection. Outbound frames
// are queued on a buffered channel drained by the transport's writer.
type Session struct {
	ID     string
	UserID string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	closed bool
	rooms  map[string]struct{}
}

func newSession(userID string, buffer int) *Session {
	return &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
		rooms:  make(map[string]struct{}),
	}
}

// Outbound returns the queue of encoded frames waiting to be written.
func (s *Session) Outbound() <-chan []byte {
	return s.send
}

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close marks the session closed. Nothing is delivered to it afterwards.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *Session) IsClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Rooms lists the rooms the session is subscribed to, sorted.
func (s *Session) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		rooms = append(rooms, id)
	}
	sort.Strings(rooms)
	return rooms
}

// Emit encodes and queues a single event for this session only.
func (s *Session) Emit(eventType string, payload interface{}) bool {
	frame, err := encodeEvent(eventType, payload)
	if err != nil {
		return false
	}
	return s.deliver(frame)
}

// addRoom fails once the session is closed, so a join racing with a
// disconnect never leaves a stale subscription behind.
func (s *Session) addRoom(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.rooms[roomID] = struct{}{}
	return true
}

func (s *Session) removeRoom(roomID string) {
	s.mu.Lock()
	delete(s.rooms, roomID)
	s.mu.Unlock()
}

// deliver never blocks. A full queue means the peer is not keeping up; the
// session is closed so the transport tears the connection down.
func (s *Session) deliver(frame []byte) bool {
	if s.IsClosed() {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		s.Close()
		return false
	}
}

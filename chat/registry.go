// Package chat coordinates live room subscriptions, ordered message appends
// and broadcast fan-out for connected sessions.
package chat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultMaxContentLength = 4000
	defaultSendBuffer       = 256
)

// Options tune a Registry. Zero values fall back to defaults.
type Options struct {
	MaxContentLength int
	SendBuffer       int
	Now              func() time.Time
}

// Registry owns the live subscription map. Every operation on a room runs
// inside that room's critical section; different rooms never contend.
type Registry struct {
	rooms RoomDirectory
	users UserDirectory
	log   *zap.Logger

	maxContentLength int
	sendBuffer       int
	now              func() time.Time

	mu       sync.Mutex
	states   map[string]*roomState
	sessions map[*Session]struct{}
}

// roomState is the in-memory side of one room. refs counts operations
// holding or waiting for mu; the state is evicted when refs drops to zero
// with no subscribers left.
type roomState struct {
	mu          sync.Mutex
	refs        int
	subscribers map[*Session]struct{}
	lastAppend  time.Time
}

func NewRegistry(rooms RoomDirectory, users UserDirectory, log *zap.Logger, opts Options) *Registry {
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = defaultMaxContentLength
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		rooms:            rooms,
		users:            users,
		log:              log,
		maxContentLength: opts.MaxContentLength,
		sendBuffer:       opts.SendBuffer,
		now:              opts.Now,
		states:           make(map[string]*roomState),
		sessions:         make(map[*Session]struct{}),
	}
}

// Open creates a session for an already verified user.
func (r *Registry) Open(userID string) *Session {
	s := newSession(userID, r.sendBuffer)

	r.mu.Lock()
	r.sessions[s] = struct{}{}
	r.mu.Unlock()

	r.log.Debug("session opened", zap.String("session_id", s.ID), zap.String("user_id", userID))
	return s
}

func (r *Registry) lockRoom(roomID string) *roomState {
	r.mu.Lock()
	st, ok := r.states[roomID]
	if !ok {
		st = &roomState{subscribers: make(map[*Session]struct{})}
		r.states[roomID] = st
	}
	st.refs++
	r.mu.Unlock()

	st.mu.Lock()
	return st
}

func (r *Registry) unlockRoom(roomID string, st *roomState) {
	st.mu.Unlock()

	r.mu.Lock()
	st.refs--
	if st.refs == 0 && len(st.subscribers) == 0 {
		delete(r.states, roomID)
	}
	r.mu.Unlock()
}

// Join subscribes s to roomID, records the user as a participant if needed and
// queues the room-joined snapshot to s before any later broadcast of the room.
func (r *Registry) Join(ctx context.Context, s *Session, roomID string) (RoomSnapshot, error) {
	if s.IsClosed() {
		return RoomSnapshot{}, ErrSessionClosed
	}

	st := r.lockRoom(roomID)
	defer r.unlockRoom(roomID, st)

	log := r.log.With(zap.String("room_id", roomID), zap.String("user_id", s.UserID))

	room, err := r.findRoom(ctx, roomID)
	if err != nil {
		return RoomSnapshot{}, err
	}

	participants, err := r.rooms.ListParticipants(ctx, roomID)
	if err != nil {
		log.Error("list participants failed", zap.Error(err))
		return RoomSnapshot{}, wrapPersistence(err)
	}
	if !contains(participants, s.UserID) {
		if err := r.rooms.AddParticipant(ctx, roomID, s.UserID); err != nil {
			log.Error("add participant failed", zap.Error(err))
			return RoomSnapshot{}, wrapPersistence(err)
		}
		participants = append(participants, s.UserID)
	}

	records, err := r.rooms.ListMessages(ctx, roomID)
	if err != nil {
		log.Error("list messages failed", zap.Error(err))
		return RoomSnapshot{}, wrapPersistence(err)
	}
	if n := len(records); n > 0 && records[n-1].CreatedAt.After(st.lastAppend) {
		st.lastAppend = records[n-1].CreatedAt
	}

	_, already := st.subscribers[s]
	if !s.addRoom(roomID) {
		return RoomSnapshot{}, ErrSessionClosed
	}
	st.subscribers[s] = struct{}{}

	snapshot := r.snapshot(ctx, room, participants, records)
	s.Emit(EventRoomJoined, snapshot)
	if !already {
		r.broadcast(st, EventUserJoined, s.UserID, s)
		log.Info("user joined room", zap.Int("subscribers", len(st.subscribers)))
	}
	return snapshot, nil
}

// Leave drops the live subscription only; the user stays a participant.
func (r *Registry) Leave(s *Session, roomID string) {
	st := r.lockRoom(roomID)
	defer r.unlockRoom(roomID, st)

	r.leaveLocked(st, s, roomID)
}

func (r *Registry) leaveLocked(st *roomState, s *Session, roomID string) {
	if _, ok := st.subscribers[s]; !ok {
		return
	}
	delete(st.subscribers, s)
	s.removeRoom(roomID)
	r.broadcast(st, EventUserLeft, s.UserID, nil)

	r.log.Info("user left room",
		zap.String("room_id", roomID),
		zap.String("user_id", s.UserID),
		zap.Int("subscribers", len(st.subscribers)))
}

// Disconnect closes s, unsubscribes it from every room and forgets it. It is
// safe to call more than once.
func (r *Registry) Disconnect(s *Session) {
	s.Close()

	for _, roomID := range s.Rooms() {
		st := r.lockRoom(roomID)
		r.leaveLocked(st, s, roomID)
		r.unlockRoom(roomID, st)
	}

	r.mu.Lock()
	_, known := r.sessions[s]
	delete(r.sessions, s)
	r.mu.Unlock()

	if known {
		r.log.Debug("session closed", zap.String("session_id", s.ID), zap.String("user_id", s.UserID))
	}
}

// Shutdown disconnects every open session.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		r.Disconnect(s)
	}
	r.log.Info("chat registry shut down", zap.Int("sessions", len(sessions)))
}

// Stats reports the number of open sessions and rooms with live state.
func (r *Registry) Stats() (sessions, rooms int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions), len(r.states)
}

// Subscribers returns the number of sessions subscribed to roomID.
func (r *Registry) Subscribers(roomID string) int {
	r.mu.Lock()
	st, ok := r.states[roomID]
	r.mu.Unlock()
	if !ok {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.subscribers)
}

// broadcast queues one event to every subscriber of the room except skip.
// Callers hold st.mu, which keeps per-room delivery in append order.
func (r *Registry) broadcast(st *roomState, eventType string, payload interface{}, skip *Session) int {
	frame, err := encodeEvent(eventType, payload)
	if err != nil {
		r.log.Error("encode event failed", zap.String("type", eventType), zap.Error(err))
		return 0
	}

	delivered := 0
	for sub := range st.subscribers {
		if sub == skip {
			continue
		}
		if sub.deliver(frame) {
			delivered++
		} else {
			r.log.Debug("dropped frame for closed or slow session",
				zap.String("session_id", sub.ID), zap.String("type", eventType))
		}
	}
	return delivered
}

func (r *Registry) findRoom(ctx context.Context, roomID string) (Room, error) {
	room, err := r.rooms.FindRoom(ctx, roomID)
	switch {
	case err == nil:
		return room, nil
	case isNotFound(err):
		return Room{}, ErrNotFound
	default:
		r.log.Error("find room failed", zap.String("room_id", roomID), zap.Error(err))
		return Room{}, wrapPersistence(err)
	}
}

func (r *Registry) snapshot(ctx context.Context, room Room, participants []string, records []MessageRecord) RoomSnapshot {
	resolve := r.resolver(ctx)

	snapshot := RoomSnapshot{
		Room:         room,
		Participants: make([]UserRef, 0, len(participants)),
		Messages:     make([]MessageView, 0, len(records)),
	}
	for _, id := range participants {
		snapshot.Participants = append(snapshot.Participants, resolve(id))
	}
	for _, rec := range records {
		snapshot.Messages = append(snapshot.Messages, view(rec, resolve(rec.UserID)))
	}
	return snapshot
}

// resolver memoises user lookups for the duration of one snapshot.
func (r *Registry) resolver(ctx context.Context) func(string) UserRef {
	cache := make(map[string]UserRef)
	return func(userID string) UserRef {
		if ref, ok := cache[userID]; ok {
			return ref
		}
		ref := r.resolveUser(ctx, userID)
		cache[userID] = ref
		return ref
	}
}

func (r *Registry) resolveUser(ctx context.Context, userID string) UserRef {
	ref, err := r.users.Resolve(ctx, userID)
	if err != nil {
		r.log.Warn("resolve user failed", zap.String("user_id", userID), zap.Error(err))
		return UserRef{ID: userID}
	}
	return ref
}

func view(rec MessageRecord, author UserRef) MessageView {
	return MessageView{
		ID:        rec.ID,
		RoomID:    rec.RoomID,
		User:      author,
		Content:   rec.Content,
		CreatedAt: rec.CreatedAt,
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

package chat

import (
	"context"
	"time"
)

// Room is the durable room metadata as seen by the chat core.
type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Topic       string    `json:"topic"`
	Description string    `json:"description"`
	CreatorID   string    `json:"creatorId"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MessageRecord is one entry of a room's message log. It is never changed after append.
type MessageRecord struct {
	ID        uint
	RoomID    string
	UserID    string
	Content   string
	CreatedAt time.Time
}

// UserRef identifies a user together with its display name.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// RoomDirectory is the durable store behind rooms. FindRoom returns ErrNotFound
// for unknown ids. ListMessages returns records in append order.
// LastMessageTime returns the zero time for a room with no messages.
type RoomDirectory interface {
	FindRoom(ctx context.Context, roomID string) (Room, error)
	ListParticipants(ctx context.Context, roomID string) ([]string, error)
	AddParticipant(ctx context.Context, roomID, userID string) error
	ListMessages(ctx context.Context, roomID string) ([]MessageRecord, error)
	AppendMessage(ctx context.Context, record *MessageRecord) error
	LastMessageTime(ctx context.Context, roomID string) (time.Time, error)
}

// UserDirectory resolves user ids to display names.
type UserDirectory interface {
	Resolve(ctx context.Context, userID string) (UserRef, error)
}

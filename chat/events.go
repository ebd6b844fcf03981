package chat

import (
	"encoding/json"
	"time"
)

// Client to server events
const (
	EventJoinRoom    = "join-room"
	EventLeaveRoom   = "leave-room"
	EventSendMessage = "send-message"
)

// Server to client events
const (
	EventRoomJoined = "room-joined"
	EventUserJoined = "user-joined"
	EventUserLeft   = "user-left"
	EventNewMessage = "new-message"
	EventError      = "error"
)

// Event is the envelope of every frame on the wire.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type SendMessagePayload struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
}

// MessageView is a message record joined with its author's display name.
type MessageView struct {
	ID        uint      `json:"id"`
	RoomID    string    `json:"roomId"`
	User      UserRef   `json:"user"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoomSnapshot is returned on join: the room, everyone who ever joined it and its full log.
type RoomSnapshot struct {
	Room
	Participants []UserRef     `json:"participants"`
	Messages     []MessageView `json:"messages"`
}

func encodeEvent(eventType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: eventType, Payload: raw})
}

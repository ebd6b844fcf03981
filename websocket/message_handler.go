package websocket

import (
	"encoding/json"
	"errors"

	"github.com/CUknot/forum_backend/chat"
	"go.uber.org/zap"
)

// HandleIncomingMessage decodes one client event and runs it against the
// registry. Failures are reported to this client only.
func HandleIncomingMessage(c *Client, raw []byte) {
	var event chat.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		c.log.Debug("malformed event", zap.Error(err))
		c.session.Emit(chat.EventError, "Invalid event")
		return
	}

	switch event.Type {
	case chat.EventJoinRoom:
		roomID, ok := decodeRoomID(event.Payload)
		if !ok {
			c.session.Emit(chat.EventError, "Invalid event")
			return
		}
		if _, err := c.registry.Join(c.ctx, c.session, roomID); err != nil {
			c.reportError(err, "Failed to join room")
		}
	case chat.EventLeaveRoom:
		roomID, ok := decodeRoomID(event.Payload)
		if !ok {
			c.session.Emit(chat.EventError, "Invalid event")
			return
		}
		c.registry.Leave(c.session, roomID)
	case chat.EventSendMessage:
		var payload chat.SendMessagePayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.RoomID == "" {
			c.session.Emit(chat.EventError, "Invalid event")
			return
		}
		if _, err := c.registry.Send(c.ctx, c.session, payload.RoomID, payload.Content); err != nil {
			c.reportError(err, "Failed to send message")
		}
	default:
		c.log.Debug("unknown event type", zap.String("type", event.Type))
		c.session.Emit(chat.EventError, "Invalid event")
	}
}

func (c *Client) reportError(err error, fallback string) {
	if errors.Is(err, chat.ErrSessionClosed) {
		return
	}
	c.session.Emit(chat.EventError, chat.Reason(err, fallback))
}

func decodeRoomID(payload json.RawMessage) (string, bool) {
	var roomID string
	if err := json.Unmarshal(payload, &roomID); err != nil || roomID == "" {
		return "", false
	}
	return roomID, true
}

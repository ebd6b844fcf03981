package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Send appends content to the room's log as s's user and fans the stored
// record out to every subscriber, s included.
func (r *Registry) Send(ctx context.Context, s *Session, roomID, content string) (MessageView, error) {
	if s.IsClosed() {
		return MessageView{}, ErrSessionClosed
	}
	return r.send(ctx, s.UserID, s, roomID, content)
}

// Post is Send for callers without a live session, such as the REST API.
func (r *Registry) Post(ctx context.Context, userID, roomID, content string) (MessageView, error) {
	return r.send(ctx, userID, nil, roomID, content)
}

func (r *Registry) send(ctx context.Context, userID string, origin *Session, roomID, content string) (MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return MessageView{}, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > r.maxContentLength {
		return MessageView{}, ErrContentTooLong
	}

	st := r.lockRoom(roomID)
	defer r.unlockRoom(roomID, st)

	if _, err := r.findRoom(ctx, roomID); err != nil {
		return MessageView{}, err
	}

	// A fresh or evicted room state has no mark yet; seed it from the log.
	if st.lastAppend.IsZero() {
		last, err := r.rooms.LastMessageTime(ctx, roomID)
		if err != nil {
			r.log.Error("load last message time failed", zap.String("room_id", roomID), zap.Error(err))
			return MessageView{}, wrapPersistence(err)
		}
		st.lastAppend = last
	}

	// Timestamps within a room never go backwards, even if the wall clock does.
	createdAt := r.now().UTC()
	if createdAt.Before(st.lastAppend) {
		createdAt = st.lastAppend
	}

	record := MessageRecord{
		RoomID:    roomID,
		UserID:    userID,
		Content:   content,
		CreatedAt: createdAt,
	}
	if err := r.rooms.AppendMessage(ctx, &record); err != nil {
		r.log.Error("append message failed",
			zap.String("room_id", roomID), zap.String("user_id", userID), zap.Error(err))
		return MessageView{}, wrapPersistence(err)
	}
	st.lastAppend = createdAt

	msg := view(record, r.resolveUser(ctx, userID))
	delivered := r.broadcast(st, EventNewMessage, msg, nil)
	if origin != nil {
		if _, subscribed := st.subscribers[origin]; !subscribed {
			origin.Emit(EventNewMessage, msg)
		}
	}

	r.log.Debug("message broadcast",
		zap.String("room_id", roomID), zap.Uint("message_id", record.ID), zap.Int("delivered", delivered))
	return msg, nil
}

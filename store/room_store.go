// Package store implements the chat directories on top of gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CUknot/forum_backend/chat"
	"github.com/CUknot/forum_backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomStore is the durable room directory.
type RoomStore struct {
	db *gorm.DB
}

func NewRoomStore(db *gorm.DB) *RoomStore {
	return &RoomStore{db: db}
}

func (s *RoomStore) FindRoom(ctx context.Context, roomID string) (chat.Room, error) {
	var room models.Room
	if err := s.db.WithContext(ctx).First(&room, "id = ?", roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Room{}, chat.ErrNotFound
		}
		return chat.Room{}, fmt.Errorf("find room %s: %w", roomID, err)
	}

	return chat.Room{
		ID:          room.ID,
		Name:        room.Name,
		Topic:       room.Topic,
		Description: room.Description,
		CreatorID:   room.CreatorID,
		IsActive:    room.IsActive,
		CreatedAt:   room.CreatedAt,
	}, nil
}

func (s *RoomStore) ListParticipants(ctx context.Context, roomID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.RoomParticipant{}).
		Where("room_id = ?", roomID).
		Order("created_at ASC, user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list participants of %s: %w", roomID, err)
	}
	return ids, nil
}

// AddParticipant is idempotent: the composite primary key plus ON CONFLICT DO
// NOTHING keeps a user from appearing twice.
func (s *RoomStore) AddParticipant(ctx context.Context, roomID, userID string) error {
	participant := models.RoomParticipant{RoomID: roomID, UserID: userID}
	err := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&participant).Error
	if err != nil {
		return fmt.Errorf("add participant %s to %s: %w", userID, roomID, err)
	}
	return nil
}

func (s *RoomStore) ListMessages(ctx context.Context, roomID string) ([]chat.MessageRecord, error) {
	var messages []models.Message
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Order("id ASC").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages of %s: %w", roomID, err)
	}

	records := make([]chat.MessageRecord, 0, len(messages))
	for _, m := range messages {
		records = append(records, chat.MessageRecord{
			ID:        m.ID,
			RoomID:    m.RoomID,
			UserID:    m.UserID,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return records, nil
}

func (s *RoomStore) LastMessageTime(ctx context.Context, roomID string) (time.Time, error) {
	var last models.Message
	err := s.db.WithContext(ctx).Select("created_at").
		Where("room_id = ?", roomID).Order("id DESC").Limit(1).Find(&last).Error
	if err != nil {
		return time.Time{}, fmt.Errorf("last message of %s: %w", roomID, err)
	}
	return last.CreatedAt, nil
}

func (s *RoomStore) AppendMessage(ctx context.Context, record *chat.MessageRecord) error {
	message := models.Message{
		RoomID:    record.RoomID,
		UserID:    record.UserID,
		Content:   record.Content,
		CreatedAt: record.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&message).Error; err != nil {
		return fmt.Errorf("append message to %s: %w", record.RoomID, err)
	}
	record.ID = message.ID
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Room struct {
	ID           string            `gorm:"primaryKey;size:36" json:"id"`
	Name         string            `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Topic        string            `gorm:"size:255;not null" json:"topic"`
	Description  string            `gorm:"type:text;not null" json:"description"`
	CreatorID    string            `gorm:"size:36;not null;index" json:"creator_id"`
	Creator      User              `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	IsActive     bool              `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Participants []RoomParticipant `gorm:"constraint:OnDelete:CASCADE" json:"participants,omitempty"`
	Messages     []Message         `gorm:"constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// RoomParticipant records that a user has joined a room at least once.
// Rows are never removed when the user leaves.
type RoomParticipant struct {
	RoomID    string    `gorm:"primaryKey;size:36" json:"room_id"`
	UserID    string    `gorm:"primaryKey;size:36" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

package models

import (
	"time"
)

// Message is an append-only chat record. ID order is append order.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoomID    string    `gorm:"size:36;not null;index" json:"room_id"`
	UserID    string    `gorm:"size:36;not null" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/CUknot/forum_backend/chat"
	"github.com/CUknot/forum_backend/models"
	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// UserStore resolves display names for the chat core.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Resolve(ctx context.Context, userID string) (chat.UserRef, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("id", "username").First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.UserRef{}, ErrUserNotFound
		}
		return chat.UserRef{}, fmt.Errorf("resolve user %s: %w", userID, err)
	}
	return chat.UserRef{ID: user.ID, Username: user.Username}, nil
}

package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/CUknot/forum_backend/chat"
	"github.com/CUknot/forum_backend/middleware"
	"github.com/gin-gonic/gin"
)

// MessagePoster is the send path shared with websocket clients.
type MessagePoster interface {
	Post(ctx context.Context, userID, roomID, content string) (chat.MessageView, error)
}

type MessageController struct {
	poster MessagePoster
}

func NewMessageController(poster MessagePoster) *MessageController {
	return &MessageController{poster: poster}
}

type CreateMessageInput struct {
	Content string `json:"content" binding:"required" example:"Hello, everyone!"`
}

// CreateMessage godoc
// @Summary Post a message to a room
// @Description Persists a message and broadcasts it to every live subscriber of the room
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Param message body CreateMessageInput true "Message"
// @Success 201 {object} chat.MessageView "Message created"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Room not found"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/rooms/{id}/messages [post]
func (mc *MessageController) CreateMessage(c *gin.Context) {
	var input CreateMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString(middleware.ContextUserID)
	msg, err := mc.poster.Post(c.Request.Context(), userID, c.Param("id"), input.Content)
	if err != nil {
		reason := chat.Reason(err, "Failed to send message")
		switch {
		case errors.Is(err, chat.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": reason})
		case errors.Is(err, chat.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": reason})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": reason})
		}
		return
	}

	c.JSON(http.StatusCreated, msg)
}

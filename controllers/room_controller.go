package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/CUknot/forum_backend/middleware"
	"github.com/CUknot/forum_backend/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RoomController struct {
	db *gorm.DB
}

func NewRoomController(db *gorm.DB) *RoomController {
	return &RoomController{db: db}
}

type CreateRoomInput struct {
	Name        string `json:"name" binding:"required,max=255" example:"general"`
	Topic       string `json:"topic" binding:"required,max=255" example:"Anything goes"`
	Description string `json:"description" binding:"required" example:"Talk about anything"`
}

type UpdateRoomInput struct {
	Name        string `json:"name" binding:"max=255" example:"general-chat"`
	Topic       string `json:"topic" binding:"max=255" example:"Anything goes"`
	Description string `json:"description" example:"Talk about anything"`
}

// GetRooms godoc
// @Summary List rooms
// @Description Returns every room, newest first, with its creator
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "List of rooms"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/rooms [get]
func (rc *RoomController) GetRooms(c *gin.Context) {
	var rooms []models.Room
	if err := rc.db.Preload("Creator").Order("created_at DESC").Find(&rooms).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rooms"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// CreateRoom godoc
// @Summary Create a new chat room
// @Description Creates a room; the creator becomes its first participant
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param room body CreateRoomInput true "Room Creation"
// @Success 201 {object} map[string]interface{} "Room created successfully"
// @Failure 400 {object} map[string]string "Invalid input or duplicate name"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/rooms [post]
func (rc *RoomController) CreateRoom(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	var input CreateRoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room name is required"})
		return
	}

	taken, err := rc.nameTaken(name, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}
	if taken {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room name already exists"})
		return
	}

	room := models.Room{
		Name:        name,
		Topic:       input.Topic,
		Description: input.Description,
		CreatorID:   userID,
		IsActive:    true,
	}
	err = rc.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		return tx.Create(&models.RoomParticipant{RoomID: room.ID, UserID: userID}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Room name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}

	rc.db.Preload("Creator").First(&room, "id = ?", room.ID)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Room created successfully",
		"room":    room,
	})
}

// GetRoom godoc
// @Summary Get details of a specific room
// @Description Returns a room with its participants and full message log
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Success 200 {object} map[string]interface{} "Room details"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Room not found"
// @Router /api/rooms/{id} [get]
func (rc *RoomController) GetRoom(c *gin.Context) {
	var room models.Room
	err := rc.db.
		Preload("Creator").
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Participants.User").
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Messages.User").
		First(&room, "id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch room"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room})
}

// UpdateRoom godoc
// @Summary Update a room's details
// @Description Renames or re-describes a room. Only the creator may do this.
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Param room body UpdateRoomInput true "Room Update"
// @Success 200 {object} map[string]interface{} "Room updated successfully"
// @Failure 400 {object} map[string]string "Invalid input or duplicate name"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Room not found"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/rooms/{id} [put]
func (rc *RoomController) UpdateRoom(c *gin.Context) {
	room, ok := rc.ownedRoom(c)
	if !ok {
		return
	}

	var input UpdateRoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if name := strings.TrimSpace(input.Name); name != "" && name != room.Name {
		taken, err := rc.nameTaken(name, room.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update room"})
			return
		}
		if taken {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Room name already exists"})
			return
		}
		updates["name"] = name
	}
	if input.Topic != "" {
		updates["topic"] = input.Topic
	}
	if input.Description != "" {
		updates["description"] = input.Description
	}

	if len(updates) > 0 {
		if err := rc.db.Model(&room).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Room name already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update room"})
			return
		}
	}

	rc.db.Preload("Creator").First(&room, "id = ?", room.ID)

	c.JSON(http.StatusOK, gin.H{"message": "Room updated successfully", "room": room})
}

// DeleteRoom godoc
// @Summary Delete a room
// @Description Deletes a room with its participants and messages. Only the creator may do this.
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Success 200 {object} map[string]string "Room deleted successfully"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Room not found"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/rooms/{id} [delete]
func (rc *RoomController) DeleteRoom(c *gin.Context) {
	room, ok := rc.ownedRoom(c)
	if !ok {
		return
	}

	err := rc.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", room.ID).Delete(&models.RoomParticipant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", room.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&room).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete room"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Room deleted successfully"})
}

// ownedRoom loads the room named by the path and checks the caller created it.
// It writes the error response itself and reports whether to continue.
func (rc *RoomController) ownedRoom(c *gin.Context) (models.Room, bool) {
	var room models.Room
	if err := rc.db.First(&room, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch room"})
		}
		return room, false
	}

	if room.CreatorID != c.GetString(middleware.ContextUserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
		return room, false
	}
	return room, true
}

func (rc *RoomController) nameTaken(name, exceptID string) (bool, error) {
	query := rc.db.Model(&models.Room{}).Where("name = ?", name)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

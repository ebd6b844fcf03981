package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/CUknot/forum_backend/chat"
	"github.com/CUknot/forum_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Every pooled connection to ":memory:" would get its own empty database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Room{}, &models.RoomParticipant{}, &models.Message{}))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{Username: username, Email: username + "@example.com", Password: "secret123"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedRoom(t *testing.T, db *gorm.DB, name string, creator models.User) models.Room {
	t.Helper()
	room := models.Room{Name: name, Topic: "talk", Description: "a room", CreatorID: creator.ID, IsActive: true}
	require.NoError(t, db.Create(&room).Error)
	return room
}

func TestRoomStore_FindRoom(t *testing.T) {
	db := setupTestDB(t)
	rooms := NewRoomStore(db)
	alice := seedUser(t, db, "alice")
	general := seedRoom(t, db, "general", alice)

	room, err := rooms.FindRoom(context.Background(), general.ID)
	require.NoError(t, err)
	assert.Equal(t, "general", room.Name)
	assert.Equal(t, alice.ID, room.CreatorID)
	assert.True(t, room.IsActive)

	_, err = rooms.FindRoom(context.Background(), "nonexistent-id")
	assert.ErrorIs(t, err, chat.ErrNotFound)
}

func TestRoomStore_AddParticipantIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	rooms := NewRoomStore(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	general := seedRoom(t, db, "general", alice)

	for i := 0; i < 3; i++ {
		require.NoError(t, rooms.AddParticipant(ctx, general.ID, bob.ID))
	}
	require.NoError(t, rooms.AddParticipant(ctx, general.ID, alice.ID))

	ids, err := rooms.ListParticipants(ctx, general.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{alice.ID, bob.ID}, ids)
}

func TestRoomStore_AppendMessageKeepsOrder(t *testing.T) {
	db := setupTestDB(t)
	rooms := NewRoomStore(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	general := seedRoom(t, db, "general", alice)

	for i := 0; i < 5; i++ {
		record := chat.MessageRecord{RoomID: general.ID, UserID: alice.ID, Content: fmt.Sprintf("m%d", i)}
		require.NoError(t, rooms.AppendMessage(ctx, &record))
		assert.NotZero(t, record.ID)
	}

	records, err := rooms.ListMessages(ctx, general.ID)
	require.NoError(t, err)
	require.Len(t, records, 5)
	for i, rec := range records {
		assert.Equal(t, fmt.Sprintf("m%d", i), rec.Content)
		assert.Equal(t, alice.ID, rec.UserID)
	}
}

func TestRoomStore_LastMessageTime(t *testing.T) {
	db := setupTestDB(t)
	rooms := NewRoomStore(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	general := seedRoom(t, db, "general", alice)

	last, err := rooms.LastMessageTime(ctx, general.ID)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for _, ts := range []time.Time{base.Add(time.Minute), base} {
		record := chat.MessageRecord{RoomID: general.ID, UserID: alice.ID, Content: "hi", CreatedAt: ts}
		require.NoError(t, rooms.AppendMessage(ctx, &record))
	}

	// The latest append wins, not the latest timestamp.
	last, err = rooms.LastMessageTime(ctx, general.ID)
	require.NoError(t, err)
	assert.True(t, base.Equal(last), "got %s", last)
}

func TestUserStore_Resolve(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserStore(db)
	alice := seedUser(t, db, "alice")

	ref, err := users.Resolve(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.UserRef{ID: alice.ID, Username: "alice"}, ref)

	_, err = users.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRegistryOverStore_ConcurrentSends(t *testing.T) {
	db := setupTestDB(t)
	rooms := NewRoomStore(db)
	registry := chat.NewRegistry(rooms, NewUserStore(db), nil, chat.Options{})
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	general := seedRoom(t, db, "general", alice)

	const senders = 10
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		user := seedUser(t, db, fmt.Sprintf("user%d", i))
		session := registry.Open(user.ID)
		_, err := registry.Join(ctx, session, general.ID)
		require.NoError(t, err)

		wg.Add(1)
		go func(s *chat.Session, content string) {
			defer wg.Done()
			_, err := registry.Send(ctx, s, general.ID, content)
			assert.NoError(t, err)
		}(session, fmt.Sprintf("hello %d", i))
	}
	wg.Wait()

	records, err := rooms.ListMessages(ctx, general.ID)
	require.NoError(t, err)
	require.Len(t, records, senders)

	seen := make(map[string]int)
	for i, rec := range records {
		seen[rec.Content]++
		if i > 0 {
			assert.False(t, rec.CreatedAt.Before(records[i-1].CreatedAt), "timestamps must not go backwards")
		}
	}
	for i := 0; i < senders; i++ {
		assert.Equal(t, 1, seen[fmt.Sprintf("hello %d", i)])
	}

	participants, err := rooms.ListParticipants(ctx, general.ID)
	require.NoError(t, err)
	assert.Len(t, participants, senders)
}

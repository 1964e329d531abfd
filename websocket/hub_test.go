package websocket

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kibet254/chat_space/database"
)

func setupTestDB(t *testing.T) (sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	previous := database.DB
	database.DB = gormDB
	cleanup := func() {
		database.DB = previous
		db.Close()
	}
	return mock, cleanup
}

func TestRecipientsOverrideSkipsLookup(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	event := &Event{
		Table:      "contacts",
		Event:      EventInsert,
		Recipients: []uuid.UUID{a, b},
	}

	got, err := recipientsFor(event)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, got)
}

func TestConversationEventsGoToParticipants(t *testing.T) {
	mock, cleanup := setupTestDB(t)
	defer cleanup()

	convID := uuid.New()
	p1, p2 := uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT "user_id" FROM "conversation_participants"`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).
			AddRow(p1.String()).
			AddRow(p2.String()))

	event := &Event{Table: "messages", Event: EventInsert, ConversationID: convID}
	got, err := recipientsFor(event)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{p1, p2}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnscopedEventsGoToConnectedClients(t *testing.T) {
	userID := uuid.New()
	clientsMu.Lock()
	clients[userID] = nil
	clientsMu.Unlock()
	defer func() {
		clientsMu.Lock()
		delete(clients, userID)
		clientsMu.Unlock()
	}()

	event := &Event{Table: "profiles", Event: EventUpdate}
	got, err := recipientsFor(event)
	require.NoError(t, err)
	assert.Contains(t, got, userID)
}

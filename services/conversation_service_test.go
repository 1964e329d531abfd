package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kibet254/chat_space/models"
)

func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
	}

	return gormDB, mock, cleanup
}

func participantColumns() []string {
	return []string{"id", "conversation_id", "user_id", "joined_at", "last_read_at"}
}

func conversationColumns() []string {
	return []string{"id", "type", "name", "created_by", "created_at", "updated_at"}
}

func messageColumns() []string {
	return []string{"id", "conversation_id", "sender_id", "content", "created_at", "updated_at"}
}

func profileColumns() []string {
	return []string{"id", "email", "display_name", "status", "password", "created_at", "updated_at"}
}

func TestListForUserAggregation(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	me := uuid.New()
	peer := uuid.New()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// Three conversations:
	//   convA - marker set, three messages, one older than the marker
	//   convB - never read, two messages, both unread
	//   convC - no messages at all
	convA, convB, convC := uuid.New(), uuid.New(), uuid.New()
	markerA := base

	mock.ExpectQuery(`SELECT \* FROM "conversation_participants" WHERE user_id`).
		WillReturnRows(sqlmock.NewRows(participantColumns()).
			AddRow(uuid.New().String(), convA.String(), me.String(), base, markerA).
			AddRow(uuid.New().String(), convB.String(), me.String(), base, nil).
			AddRow(uuid.New().String(), convC.String(), me.String(), base, nil))

	mock.ExpectQuery(`SELECT \* FROM "conversations" WHERE id IN`).
		WillReturnRows(sqlmock.NewRows(conversationColumns()).
			AddRow(convA.String(), "private", nil, me.String(), base.Add(-3*time.Hour), base).
			AddRow(convB.String(), "private", nil, peer.String(), base.Add(-2*time.Hour), base).
			AddRow(convC.String(), "group", "quiet room", me.String(), base.Add(-1*time.Hour), base))

	mock.ExpectQuery(`SELECT \* FROM "conversation_participants" WHERE conversation_id IN`).
		WillReturnRows(sqlmock.NewRows(participantColumns()).
			AddRow(uuid.New().String(), convA.String(), me.String(), base, markerA).
			AddRow(uuid.New().String(), convA.String(), peer.String(), base, nil).
			AddRow(uuid.New().String(), convB.String(), me.String(), base, nil).
			AddRow(uuid.New().String(), convB.String(), peer.String(), base, nil).
			AddRow(uuid.New().String(), convC.String(), me.String(), base, nil))

	mock.ExpectQuery(`SELECT \* FROM "profiles"`).
		WillReturnRows(sqlmock.NewRows(profileColumns()).
			AddRow(me.String(), "me@example.com", "Me", "online", "x", base, base).
			AddRow(peer.String(), "peer@example.com", "Peer", "offline", "x", base, base))

	// Newest first, across both conversations that have messages.
	mock.ExpectQuery(`SELECT \* FROM "messages" WHERE conversation_id IN`).
		WillReturnRows(sqlmock.NewRows(messageColumns()).
			AddRow(uuid.New().String(), convA.String(), peer.String(), "newest in A", base.Add(2*time.Hour), base.Add(2*time.Hour)).
			AddRow(uuid.New().String(), convB.String(), peer.String(), "newest in B", base.Add(1*time.Hour), base.Add(1*time.Hour)).
			AddRow(uuid.New().String(), convA.String(), me.String(), "mid A", base.Add(30*time.Minute), base.Add(30*time.Minute)).
			AddRow(uuid.New().String(), convB.String(), peer.String(), "old B", base.Add(-30*time.Minute), base.Add(-30*time.Minute)).
			AddRow(uuid.New().String(), convA.String(), peer.String(), "exactly at marker", base, base).
			AddRow(uuid.New().String(), convA.String(), peer.String(), "read already", base.Add(-1*time.Hour), base.Add(-1*time.Hour)))

	summaries, err := ListForUser(db, me)
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	// Ordered by last-message time, falling back to conversation creation.
	assert.Equal(t, convA, summaries[0].Conversation.ID)
	assert.Equal(t, convB, summaries[1].Conversation.ID)
	assert.Equal(t, convC, summaries[2].Conversation.ID)

	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "newest in A", summaries[0].LastMessage.Content)
	assert.EqualValues(t, 2, summaries[0].UnreadCount, "message at the marker and older do not count")

	require.NotNil(t, summaries[1].LastMessage)
	assert.EqualValues(t, 2, summaries[1].UnreadCount, "never-read conversation counts every message")

	assert.Nil(t, summaries[2].LastMessage)
	assert.EqualValues(t, 0, summaries[2].UnreadCount)

	assert.Len(t, summaries[0].Participants, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForUserNoConversations(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "conversation_participants" WHERE user_id`).
		WillReturnRows(sqlmock.NewRows(participantColumns()))

	summaries, err := ListForUser(db, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestFindOrCreatePrivateReturnsExisting(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	me := uuid.New()
	peer := uuid.New()
	convID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM "conversations" JOIN conversation_participants cp1`).
		WillReturnRows(sqlmock.NewRows(conversationColumns()).
			AddRow(convID.String(), "private", nil, me.String(), now, now))

	conversation, created, err := FindOrCreatePrivate(db, me, peer)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, convID, conversation.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOrCreatePrivateCreatesPairRows(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	me := uuid.New()
	peer := uuid.New()
	convID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "conversations" JOIN conversation_participants cp1`).
		WillReturnRows(sqlmock.NewRows(conversationColumns()))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "conversations"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(convID.String()))
	mock.ExpectQuery(`INSERT INTO "conversation_participants"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).
			AddRow(uuid.New().String()).
			AddRow(uuid.New().String()))
	mock.ExpectCommit()

	conversation, created, err := FindOrCreatePrivate(db, me, peer)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, convID, conversation.ID)
	assert.Equal(t, models.ConversationTypePrivate, conversation.Type)
	assert.Equal(t, me, conversation.CreatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOrCreatePrivateRejectsSelf(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()

	me := uuid.New()
	_, _, err := FindOrCreatePrivate(db, me, me)
	assert.Error(t, err)
}

func TestCreateGroupRequiresName(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := CreateGroup(db, uuid.New(), "", []uuid.UUID{uuid.New()})
	assert.Error(t, err)
}

func TestAddParticipantOnlyByCreator(t *testing.T) {
	convID := uuid.New()

	t.Run("creator adds a member", func(t *testing.T) {
		db, mock, cleanup := setupTestDB(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "conversations"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`INSERT INTO "conversation_participants"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))

		participant, err := AddParticipant(db, uuid.New(), convID, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, convID, participant.ConversationID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-creator denied", func(t *testing.T) {
		db, mock, cleanup := setupTestDB(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "conversations"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		_, err := AddParticipant(db, uuid.New(), convID, uuid.New())
		assert.ErrorIs(t, err, ErrForbidden)
		assert.NoError(t, mock.ExpectationsWereMet(), "no insert reaches the database")
	})
}

func TestMarkReadRequiresParticipation(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "conversation_participants"`).
		WillReturnRows(sqlmock.NewRows(participantColumns()))

	_, err := MarkRead(db, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestLeaveDeletesOwnRowOnly(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	me := uuid.New()
	convID := uuid.New()
	rowID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT \* FROM "conversation_participants"`).
		WillReturnRows(sqlmock.NewRows(participantColumns()).
			AddRow(rowID.String(), convID.String(), me.String(), now, nil))
	mock.ExpectExec(`DELETE FROM "conversation_participants"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	participant, err := Leave(db, me, convID)
	require.NoError(t, err)
	assert.Equal(t, rowID, participant.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

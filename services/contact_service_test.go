package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contactColumns() []string {
	return []string{"id", "user_id", "contact_id", "created_at"}
}

func TestAddContactPairCreatesBothDirections(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	me := uuid.New()
	other := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "contacts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectQuery(`INSERT INTO "contacts" .* ON CONFLICT DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	contact, err := AddContactPair(db, me, other)
	require.NoError(t, err)
	assert.Equal(t, me, contact.UserID)
	assert.Equal(t, other, contact.ContactID)
	assert.NoError(t, mock.ExpectationsWereMet(), "both directions are written")
}

func TestAddContactPairRejectsSelf(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()

	me := uuid.New()
	_, err := AddContactPair(db, me, me)
	assert.Error(t, err)
}

func TestDeleteContactRemovesOneDirectionOnly(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	me := uuid.New()
	other := uuid.New()
	rowID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "contacts"`).
		WillReturnRows(sqlmock.NewRows(contactColumns()).
			AddRow(rowID.String(), me.String(), other.String(), time.Now().UTC()))
	// A single DELETE by primary key; the reverse row is never touched.
	mock.ExpectExec(`DELETE FROM "contacts" WHERE "contacts"\."id"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	contact, err := DeleteContact(db, me, rowID)
	require.NoError(t, err)
	assert.Equal(t, rowID, contact.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteContactDeniedForForeignRow(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	me := uuid.New()
	owner := uuid.New()
	rowID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "contacts"`).
		WillReturnRows(sqlmock.NewRows(contactColumns()).
			AddRow(rowID.String(), owner.String(), me.String(), time.Now().UTC()))

	_, err := DeleteContact(db, me, rowID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet(), "no delete reaches the database")
}

package chat

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveRecordMessage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewArchiveStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conversations").
		WithArgs("conv-1", "web", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO conversation_messages").
		WithArgs(sqlmock.AnyArg(), "conv-1", RoleUser, "hola", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = store.RecordMessage(context.Background(), "conv-1", "web", RoleUser, "hola")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRecordMessageRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewArchiveStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conversations").
		WithArgs("conv-1", "web", sqlmock.AnyArg()).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = store.RecordMessage(context.Background(), "conv-1", "web", RoleUser, "hola")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveHistory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewArchiveStore(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "conversation_id", "role", "content", "created_at"}).
		AddRow(uuid.NewString(), "conv-1", RoleUser, "hola", now).
		AddRow(uuid.NewString(), "conv-1", RoleAssistant, "buenas", now.Add(time.Second))
	mock.ExpectQuery("SELECT id, conversation_id, role, content, created_at").
		WithArgs("conv-1", 100).
		WillReturnRows(rows)

	msgs, err := store.History(context.Background(), "conv-1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hola", msgs[0].Content)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveNilStoreIsNoOp(t *testing.T) {
	var store *ArchiveStore
	require.NoError(t, store.RecordMessage(context.Background(), "conv-1", "web", RoleUser, "hola"))
	msgs, err := store.History(context.Background(), "conv-1", 10)
	require.NoError(t, err)
	assert.Nil(t, msgs)
}

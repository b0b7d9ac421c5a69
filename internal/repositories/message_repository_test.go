package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { sqlxDB.Close() })
	return sqlxDB, mock
}

func TestMessageRepoCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO messages`).
		WithArgs(sqlmock.AnyArg(), "dm|alice|bob", "alice", "hi", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id", "sender", "body", "media_url", "created_at"}).
			AddRow("m1", "dm|alice|bob", "alice", "hi", "", now))

	msg, err := repo.Create(context.Background(), "dm|alice|bob", "alice", "hi", "")
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "dm|alice|bob", msg.ConversationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepoListByConversation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM messages WHERE conversation_id=\$1 ORDER BY created_at ASC`).
		WithArgs("dm|alice|bob").
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id", "sender", "body", "media_url", "created_at"}).
			AddRow("m1", "dm|alice|bob", "alice", "hi", "", now).
			AddRow("m2", "dm|alice|bob", "bob", "hello", "", now.Add(time.Second)))

	msgs, err := repo.ListByConversation(context.Background(), "dm|alice|bob")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "bob", msgs[1].Sender)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepoListForParticipant(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectQuery(`SELECT .+ FROM messages WHERE conversation_id LIKE \$1 OR conversation_id LIKE \$2`).
		WithArgs("dm|alice|%", "dm|%|alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id", "sender", "body", "media_url", "created_at"}))

	msgs, err := repo.ListForParticipant(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepoGetMessageNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectQuery(`SELECT .+ FROM messages WHERE id=\$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id", "sender", "body", "media_url", "created_at"}))

	_, err := repo.GetMessage(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestMessageRepoDeleteConversation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectExec(`DELETE FROM messages WHERE conversation_id=\$1`).
		WithArgs("dm|alice|bob").
		WillReturnResult(sqlmock.NewResult(0, 4))

	require.NoError(t, repo.DeleteConversation(context.Background(), "dm|alice|bob"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

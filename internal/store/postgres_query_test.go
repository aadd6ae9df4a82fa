package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/feedback-app/internal/models"
)

var feedbackColumns = []string{"id", "title", "content", "username"}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{db: mock}, mock
}

func quoted(s string) string { return regexp.QuoteMeta(s) }

func TestDeleteUser_FeedbackThenUserInOneTransaction(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(quoted("DELETE FROM feedback WHERE username = $1")).
		WithArgs("alice").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(quoted("DELETE FROM users WHERE username = $1")).
		WithArgs("alice").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	require.NoError(t, s.DeleteUser(context.Background(), "alice"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUser_MissingRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(quoted("DELETE FROM feedback WHERE username = $1")).
		WithArgs("ghost").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(quoted("DELETE FROM users WHERE username = $1")).
		WithArgs("ghost").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	err := s.DeleteUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUser_FailedFeedbackDeleteRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectExec(quoted("DELETE FROM feedback WHERE username = $1")).
		WithArgs("alice").
		WillReturnError(boom)
	mock.ExpectRollback()

	err := s.DeleteUser(context.Background(), "alice")
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUser_LeavesNoFeedback(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(quoted("DELETE FROM feedback WHERE username = $1")).
		WithArgs("alice").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(quoted("DELETE FROM users WHERE username = $1")).
		WithArgs("alice").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()
	mock.ExpectQuery(quoted("SELECT id, title, content, username FROM feedback WHERE username = $1 ORDER BY id")).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(feedbackColumns))

	require.NoError(t, s.DeleteUser(ctx, "alice"))
	items, err := s.ListFeedback(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(quoted("INSERT INTO users (username, password, email, first_name, last_name)")).
		WithArgs("alice", "hash", "a@example.com", "Alice", "Liddell").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "users_email_key"})

	err := s.CreateUser(context.Background(), &models.User{
		Username: "alice", Password: "hash", Email: "a@example.com", FirstName: "Alice", LastName: "Liddell",
	})
	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "email", dup.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFeedback_ScansReturnedID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(quoted("INSERT INTO feedback (title, content, username)")).
		WithArgs("Title", "Body", "alice").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	f := &models.Feedback{Title: "Title", Content: "Body", Username: "alice"}
	require.NoError(t, s.CreateFeedback(context.Background(), f))
	assert.Equal(t, int64(7), f.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFeedback_UnknownOwner(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(quoted("INSERT INTO feedback (title, content, username)")).
		WithArgs("Title", "Body", "ghost").
		WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation})

	err := s.CreateFeedback(context.Background(), &models.Feedback{Title: "Title", Content: "Body", Username: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFeedback(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(quoted("SELECT id, title, content, username FROM feedback WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(feedbackColumns).AddRow(int64(7), "Title", "Body", "alice"))
	mock.ExpectQuery(quoted("SELECT id, title, content, username FROM feedback WHERE id = $1")).
		WithArgs(int64(8)).
		WillReturnRows(pgxmock.NewRows(feedbackColumns))

	f, err := s.GetFeedback(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.Feedback{ID: 7, Title: "Title", Content: "Body", Username: "alice"}, *f)

	_, err = s.GetFeedback(ctx, 8)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFeedback_MatchesOwner(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	update := quoted("UPDATE feedback SET title = $1, content = $2 WHERE id = $3 AND username = $4")

	mock.ExpectExec(update).
		WithArgs("New", "Body", int64(7), "alice").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(update).
		WithArgs("New", "Body", int64(7), "bob").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, s.UpdateFeedback(ctx, &models.Feedback{ID: 7, Title: "New", Content: "Body", Username: "alice"}))
	err := s.UpdateFeedback(ctx, &models.Feedback{ID: 7, Title: "New", Content: "Body", Username: "bob"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteFeedback_MatchesOwner(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	del := quoted("DELETE FROM feedback WHERE id = $1 AND username = $2")

	mock.ExpectExec(del).
		WithArgs(int64(7), "bob").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(del).
		WithArgs(int64(7), "alice").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.ErrorIs(t, s.DeleteFeedback(ctx, 7, "bob"), ErrNotFound)
	assert.NoError(t, s.DeleteFeedback(ctx, 7, "alice"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

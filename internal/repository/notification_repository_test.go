package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/college-admin-api/internal/models"
)

func newNotificationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestNotificationRepositoryBulkCreate(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO notifications").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO notifications").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	batch := []models.Notification{
		{RecipientID: "s1", Title: "New class", Message: "OS on Monday", Type: models.NotificationClassScheduled},
		{RecipientID: "s2", Title: "New class", Message: "OS on Monday", Type: models.NotificationClassScheduled},
	}
	require.NoError(t, repo.BulkCreate(context.Background(), batch))
	assert.NotEmpty(t, batch[0].ID)
	assert.NotEmpty(t, batch[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryBulkCreateEmpty(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	require.NoError(t, repo.BulkCreate(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryListByRecipient(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "recipient_id", "title", "message", "type", "read", "attachment", "created_at"}).
		AddRow("n1", "u1", "Title", "Body", "general", false, nil, time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+notificationColumns+" FROM notifications WHERE recipient_id = $1 ORDER BY created_at DESC LIMIT 50")).
		WithArgs("u1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read = FALSE")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	notifications, unread, err := repo.ListByRecipient(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
	assert.Equal(t, 3, unread)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkRead(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2")).
		WithArgs("n1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.MarkRead(context.Background(), "n1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryDeleteScopedToRecipient(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notifications WHERE id = $1 AND recipient_id = $2")).
		WithArgs("n1", "other").
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.Delete(context.Background(), "n1", "other")
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package history

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symptom-dx-server/internal/domain"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	store, err := NewPostgresStore(nil)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestPostgresStore_Record(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	store, err := NewPostgresStore(db)
	require.NoError(t, err)

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO diagnosis_history").
		WithArgs(
			"req-1",
			"fever, caugh",
			`["fever","cough"]`,
			`{"caugh":"cough"}`,
			OutcomeCompleted,
			"flu",
			`[{"disease":"flu","confidence":0.6},{"disease":"cold","confidence":0.3}]`,
			sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))

	record := completedRecord("fever, caugh")
	err = store.Record(context.Background(), record)

	require.NoError(t, err)
	assert.Equal(t, int64(42), record.ID)
	assert.Equal(t, created, record.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordError(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	store, err := NewPostgresStore(db)
	require.NoError(t, err)

	mock.ExpectQuery("INSERT INTO diagnosis_history").
		WillReturnError(errors.New("connection reset"))

	err = store.Record(context.Background(), &Record{Input: "x", Outcome: domain.ErrCodeEmptyInput})

	assert.ErrorContains(t, err, "failed to record diagnosis")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	store, err := NewPostgresStore(db)
	require.NoError(t, err)

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "request_id", "input", "resolved", "suggestions",
		"outcome", "top_label", "candidates", "created_at",
	}).AddRow(
		int64(7), "req-7", "fevr", `[]`, `{"fevr":"fever"}`,
		domain.ErrCodeNoValidSymptoms, "", `[]`, created,
	)

	mock.ExpectQuery("SELECT (.+) FROM diagnosis_history").
		WithArgs(5, 0).
		WillReturnRows(rows)

	records, err := store.List(context.Background(), 5, 0)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(7), records[0].ID)
	assert.Equal(t, domain.ErrCodeNoValidSymptoms, records[0].Outcome)
	suggested, ok := records[0].Suggestions.Get("fevr")
	assert.True(t, ok)
	assert.Equal(t, "fever", suggested)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	store, err := NewPostgresStore(db)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	count, err := store.Count(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

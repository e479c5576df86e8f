package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symptom-dx-server/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	return store
}

func completedRecord(input string) *Record {
	var suggestions domain.Suggestions
	suggestions.Set("caugh", "cough")
	return &Record{
		RequestID:   "req-1",
		Input:       input,
		Resolved:    []string{"fever", "cough"},
		Suggestions: suggestions,
		Outcome:     OutcomeCompleted,
		TopLabel:    "flu",
		Candidates: []domain.Candidate{
			{Disease: "flu", Confidence: 0.6},
			{Disease: "cold", Confidence: 0.3},
		},
	}
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "history.db")

	store, err := NewSQLiteStore(dbPath)

	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_Record(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	record := completedRecord("fever, caugh")

	err := store.Record(context.Background(), record)

	require.NoError(t, err)
	assert.NotZero(t, record.ID, "ID should be assigned")
	assert.False(t, record.CreatedAt.IsZero(), "CreatedAt should be set")
}

func TestSQLiteStore_ListRoundTrip(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, completedRecord("fever, caugh")))

	records, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "fever, caugh", got.Input)
	assert.Equal(t, []string{"fever", "cough"}, got.Resolved)
	assert.Equal(t, map[string]string{"caugh": "cough"}, got.Suggestions.Map())
	assert.Equal(t, "flu", got.TopLabel)
	require.Len(t, got.Candidates, 2)
	assert.Equal(t, "cold", got.Candidates[1].Disease)
	assert.InDelta(t, 0.3, got.Candidates[1].Confidence, 1e-9)
}

func TestSQLiteStore_FailedOutcome(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	record := &Record{Input: "zzz", Outcome: domain.ErrCodeNoValidSymptoms}
	require.NoError(t, store.Record(ctx, record))

	records, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.ErrCodeNoValidSymptoms, records[0].Outcome)
	assert.Empty(t, records[0].Resolved)
	assert.Empty(t, records[0].Candidates)
	assert.Equal(t, 0, records[0].Suggestions.Len())
}

func TestSQLiteStore_ListPagination(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	for _, input := range []string{"first", "second", "third"} {
		require.NoError(t, store.Record(ctx, completedRecord(input)))
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	page, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "third", page[0].Input, "newest record comes first")
	assert.Equal(t, "second", page[1].Input)

	rest, err := store.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "first", rest[0].Input)
}

func TestOpen(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		for _, driver := range []string{"", "none", "NONE"} {
			store, err := Open(domain.HistoryConfig{Driver: driver})
			require.NoError(t, err)
			assert.Nil(t, store)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		store, err := Open(domain.HistoryConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(t.TempDir(), "h.db"),
		})
		require.NoError(t, err)
		require.NotNil(t, store)
		assert.NoError(t, store.Close())
	})

	t.Run("missing dsn", func(t *testing.T) {
		_, err := Open(domain.HistoryConfig{Driver: "sqlite"})
		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(domain.HistoryConfig{Driver: "mongo"})
		assert.ErrorContains(t, err, "unknown history driver")
	})
}

package repositories_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tugasku/internal/database"
	"tugasku/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func setupTestStore(t *testing.T) *repositories.Store {
	t.Helper()
	connector, err := database.NewConnector(&database.ConnConfig{
		Driver:   database.DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "tasks.db") + "?_busy_timeout=1000",
		LogLevel: logger.Silent,
	}, nil)
	require.NoError(t, err)

	store := repositories.NewStore(connector, nil)
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func brokenStore(t *testing.T) *repositories.Store {
	t.Helper()
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	connector, err := database.NewConnector(&database.ConnConfig{
		Driver:   database.DriverSQLite,
		DSN:      filepath.Join(blocker, "tasks.db"),
		LogLevel: logger.Silent,
	}, nil)
	require.NoError(t, err)
	return repositories.NewStore(connector, nil)
}

func insertRecord(t *testing.T, store *repositories.Store, subject, deadline, status string) int64 {
	t.Helper()
	id, err := store.Insert(context.Background(), &repositories.TaskRecord{
		Subject:     subject,
		Description: "desc " + subject,
		Deadline:    repositories.DateString(deadline),
		Priority:    "Medium",
		Status:      status,
	})
	require.NoError(t, err)
	return id
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	id := insertRecord(t, store, "Kalkulus", "2024-12-31", "Pending")

	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx))

	record, err := store.FetchOne(ctx, "SELECT * FROM tugas WHERE id = ?", id)
	require.NoError(t, err)
	assert.Equal(t, "Kalkulus", record.Subject)
}

func TestInsert_AssignsIncreasingIDs(t *testing.T) {
	store := setupTestStore(t)

	first := insertRecord(t, store, "A", "2024-01-01", "Pending")
	second := insertRecord(t, store, "B", "2024-01-02", "Pending")

	assert.Greater(t, first, int64(0))
	assert.Greater(t, second, first)
}

func TestExecute_RowsAffected(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	id := insertRecord(t, store, "A", "2024-01-01", "Pending")

	result, err := store.Execute(ctx, "UPDATE tugas SET status = ? WHERE id = ?", "Complete", id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.RowsAffected)

	result, err = store.Execute(ctx, "DELETE FROM tugas WHERE id = ?", id+100)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.RowsAffected)
}

func TestExecute_FailureRollsBack(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	id := insertRecord(t, store, "A", "2024-01-01", "Pending")

	_, err := store.Execute(ctx, "UPDATE tugas SET deskripsi = NULL WHERE id = ?", id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, repositories.ErrStatement))

	record, err := store.FetchOne(ctx, "SELECT * FROM tugas WHERE id = ?", id)
	require.NoError(t, err)
	assert.Equal(t, "desc A", record.Description)
}

func TestFetch_CanonicalDeadline(t *testing.T) {
	store := setupTestStore(t)
	insertRecord(t, store, "B", "2024-12-31", "Pending")
	insertRecord(t, store, "A", "2024-01-15", "Complete")

	records, err := store.Fetch(context.Background(), "SELECT * FROM tugas ORDER BY deadline ASC, id ASC")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "A", records[0].Subject)
	assert.Equal(t, repositories.DateString("2024-01-15"), records[0].Deadline)
	assert.Equal(t, repositories.DateString("2024-12-31"), records[1].Deadline)
}

func TestFetchOne_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.FetchOne(context.Background(), "SELECT * FROM tugas WHERE id = ?", 42)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestScan_Count(t *testing.T) {
	store := setupTestStore(t)
	insertRecord(t, store, "A", "2024-01-01", "Pending")
	insertRecord(t, store, "B", "2024-01-01", "Pending")

	var count int64
	require.NoError(t, store.Scan(context.Background(), &count, "SELECT COUNT(*) FROM tugas"))
	assert.Equal(t, int64(2), count)
}

func TestFetchTable_Projection(t *testing.T) {
	store := setupTestStore(t)
	id := insertRecord(t, store, "Basis Data", "2024-06-01", "Pending")

	table := store.FetchTable(context.Background(), "SELECT id, matkul, deadline, status FROM tugas")

	assert.Equal(t, []string{"id", "matkul", "deadline", "status"}, table.Columns)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, []interface{}{id, "Basis Data", "2024-06-01", "Pending"}, table.Rows[0])
	assert.Equal(t, []interface{}{"Basis Data"}, table.Column("matkul"))
	assert.Nil(t, table.Column("missing"))
}

func TestFetchTable_FailureYieldsEmptyTable(t *testing.T) {
	store := setupTestStore(t)

	table := store.FetchTable(context.Background(), "SELECT nope FROM missing_table")
	assert.True(t, table.Empty())
	assert.NotNil(t, table.Columns)
	assert.NotNil(t, table.Rows)
}

func TestConnectionFailure(t *testing.T) {
	store := brokenStore(t)
	ctx := context.Background()

	err := store.EnsureSchema(ctx)
	assert.True(t, errors.Is(err, repositories.ErrConnection))

	_, err = store.Insert(ctx, &repositories.TaskRecord{Subject: "A"})
	assert.True(t, errors.Is(err, repositories.ErrConnection))

	assert.True(t, store.FetchTable(ctx, "SELECT * FROM tugas").Empty())
}

func TestDateString_Scan(t *testing.T) {
	var d repositories.DateString

	require.NoError(t, d.Scan([]byte("2024-02-03")))
	assert.Equal(t, repositories.DateString("2024-02-03"), d)

	require.NoError(t, d.Scan(nil))
	assert.Equal(t, repositories.DateString(""), d)

	assert.Error(t, d.Scan(3.5))
}

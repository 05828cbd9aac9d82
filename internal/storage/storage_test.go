package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatali-fataliyev/spending_insights/internal/contextutil"
	"github.com/fatali-fataliyev/spending_insights/internal/insights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "insights.db")
	db, err := Init(context.Background(), DriverSQLite, path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insert(t *testing.T, db *sql.DB, id, typ string, amount float64, category, date, user string) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO transactions (id, type, amount, category, description, date, userId) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, typ, amount, category, "note "+id, date, user)
	require.NoError(t, err)
}

func TestTransactionsByUser(t *testing.T) {
	db := openTestDB(t)
	insert(t, db, "t2", "EXPENSE", 20, "food", "2025-03-02 10:00:00", "u1")
	insert(t, db, "t1", "INCOME", 1000, "other", "2025-03-01T08:00:00Z", "u1")
	insert(t, db, "t3", "EXPENSE", 35.5, "Rent", "2025-03-03", "u1")
	insert(t, db, "t4", "EXPENSE", 10, "food", "2025-03-01", "u2")

	src := NewSQLTransactions(db)
	ctx := contextutil.WithTraceID(context.Background(), "test")
	txs, err := src.TransactionsByUser(ctx, "u1")
	require.NoError(t, err)

	require.Len(t, txs, 3)
	assert.Equal(t, "t1", txs[0].ID)
	assert.Equal(t, insights.TypeIncome, txs[0].Type)
	assert.Equal(t, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), txs[0].Date)

	assert.Equal(t, insights.CategoryFood, txs[1].Category)
	assert.Equal(t, "note t2", txs[1].Description)
	assert.Equal(t, time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC), txs[1].Date)

	// unknown categories are filed under other
	assert.Equal(t, insights.CategoryOther, txs[2].Category)
	assert.Equal(t, 35.5, txs[2].Amount)
}

func TestTransactionsByUserSkipsBadRows(t *testing.T) {
	db := openTestDB(t)
	insert(t, db, "ok", "EXPENSE", 12, "food", "2025-03-01", "u1")
	insert(t, db, "negative", "EXPENSE", -3, "food", "2025-03-01", "u1")
	insert(t, db, "transfer", "TRANSFER", 7, "food", "2025-03-01", "u1")
	insert(t, db, "bad-date", "EXPENSE", 7, "food", "yesterday", "u1")

	txs, err := NewSQLTransactions(db).TransactionsByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "ok", txs[0].ID)
}

func TestTransactionsByUserEmpty(t *testing.T) {
	db := openTestDB(t)
	txs, err := NewSQLTransactions(db).TransactionsByUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, txs)
	assert.Empty(t, txs)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, runMigrations(db))

	// the migrator must leave the shared handle open
	require.NoError(t, db.Ping())
	insert(t, db, "t1", "EXPENSE", 5, "food", "2025-03-01", "u1")
}

func TestInitReopensMigratedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insights.db")
	first, err := Init(context.Background(), DriverSQLite, path)
	require.NoError(t, err)
	insert(t, first, "t1", "EXPENSE", 5, "food", "2025-03-01", "u1")
	require.NoError(t, first.Close())

	second, err := Init(context.Background(), DriverSQLite, path)
	require.NoError(t, err)
	defer second.Close()

	txs, err := NewSQLTransactions(second).TransactionsByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestInitRejectsUnknownDriver(t *testing.T) {
	_, err := Init(context.Background(), "postgres", "dsn")
	require.Error(t, err)

	_, err = Init(context.Background(), DriverMySQL, "")
	require.Error(t, err)

	_, err = Init(context.Background(), DriverMySQL, "not a dsn")
	require.Error(t, err)
}

func TestDBTimeScan(t *testing.T) {
	var d dbTime
	require.NoError(t, d.Scan([]byte("2025-03-01 12:30:00")))
	assert.Equal(t, time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC), d.Time)

	require.NoError(t, d.Scan(time.Date(2025, 3, 1, 12, 30, 0, 0, time.FixedZone("x", 3600))))
	assert.Equal(t, time.Date(2025, 3, 1, 11, 30, 0, 0, time.UTC), d.Time)

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
}

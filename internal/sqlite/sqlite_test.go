package sqlite_test

import (
	"context"
	"github.com/myrjola/resqlink/internal/sqlite"
	"github.com/myrjola/resqlink/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"path/filepath"
	"testing"
)

func newTestDatabase(t *testing.T, url string) *sqlite.Database {
	t.Helper()
	db, err := sqlite.NewDatabase(context.Background(), url, testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

func TestNewDatabase_Seeds(t *testing.T) {
	t.Parallel()
	db := newTestDatabase(t, ":memory:")
	ctx := context.Background()

	tests := []struct {
		table string
		want  int
	}{
		{table: "cases", want: 3},
		{table: "tips", want: 2},
		{table: "users", want: 2},
		{table: "rewards", want: 3},
		{table: "redemptions", want: 2},
		{table: "reports", want: 2},
	}
	for _, tt := range tests {
		var got int
		require.NoError(t, db.ReadOnly.GetContext(ctx, &got, "SELECT count(*) FROM "+tt.table))
		require.Equal(t, tt.want, got, tt.table)
	}
}

func TestNewDatabase_InMemoryDatabasesAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	first := newTestDatabase(t, ":memory:")
	second := newTestDatabase(t, ":memory:")

	_, err := first.ReadWrite.ExecContext(ctx, "DELETE FROM tips")
	require.NoError(t, err)

	var got int
	require.NoError(t, second.ReadOnly.GetContext(ctx, &got, "SELECT count(*) FROM tips"))
	require.Equal(t, 2, got)
}

func TestNewDatabase_Constraints(t *testing.T) {
	t.Parallel()
	db := newTestDatabase(t, ":memory:")
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
	}{
		{name: "unknown status", query: "UPDATE cases SET status = 'Lost' WHERE id = 1"},
		{name: "unknown urgency", query: "UPDATE cases SET urgency = 'Critical' WHERE id = 1"},
		{name: "dangling tip", query: "INSERT INTO tips (case_id, content) VALUES (99, 'nowhere')"},
		{name: "negative score", query: "UPDATE users SET score = -1 WHERE id = 1"},
		{name: "invalid medals", query: "UPDATE users SET medals = 'gold' WHERE id = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.ReadWrite.ExecContext(ctx, tt.query)
			require.Error(t, err)
		})
	}
}

func TestNewDatabase_FileIsSeededOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "resqlink.sqlite")

	db, err := sqlite.NewDatabase(ctx, path, testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	_, err = db.ReadWrite.ExecContext(ctx, "UPDATE users SET score = 500 WHERE id = 2")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened := newTestDatabase(t, path)
	var score int
	require.NoError(t, reopened.ReadOnly.GetContext(ctx, &score, "SELECT score FROM users WHERE id = 2"))
	require.Equal(t, 500, score)
}

package testhelpers

import (
	"context"
	"github.com/myrjola/resqlink/internal/mockbackend"
	"github.com/myrjola/resqlink/internal/sqlite"
	"io"
	"net/http/httptest"
	"testing"
)

// StartBackend serves a freshly seeded in-memory mock backend for the duration of the test.
// It returns the backend and its API base URL.
func StartBackend(t *testing.T) (*mockbackend.Backend, string) {
	t.Helper()
	logger := NewLogger(io.Discard)
	db, err := sqlite.NewDatabase(context.Background(), ":memory:", logger)
	if err != nil {
		t.Fatalf("open mock backend database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	backend := mockbackend.New(mockbackend.NewRepository(db, logger), logger)
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)
	return backend, srv.URL + "/api"
}

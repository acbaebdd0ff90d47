package main

import (
	"context"
	"encoding/json"
	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/resqlink/internal/e2etest"
	"github.com/myrjola/resqlink/internal/mockbackend"
	"github.com/myrjola/resqlink/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"testing"
	"time"
)

func testLookupEnv(apiURL string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		switch key {
		case "RESQ_ADDR":
			return "localhost:0", true
		case "RESQ_API_BASE_URL":
			return apiURL, true
		case "RESQ_POLL_INTERVAL":
			// Tests drive synchronisation explicitly.
			return "1h", true
		case "RESQ_REQUEST_TIMEOUT":
			return "2s", true
		default:
			return "", false
		}
	}
}

type testDashboard struct {
	server  *e2etest.Server
	backend *mockbackend.Backend
	apiURL  string
}

// startDashboard starts the dashboard against a mock backend and waits for the first sync cycle.
func startDashboard(t *testing.T) testDashboard {
	t.Helper()
	backend, apiURL := testhelpers.StartBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server, err := e2etest.StartServer(ctx, io.Discard, testLookupEnv(apiURL), run, "/api/healthy")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		m := getMetrics(t, server)
		return m.Loaded && !m.Syncing
	}, 5*time.Second, 20*time.Millisecond)

	return testDashboard{server: server, backend: backend, apiURL: apiURL}
}

func getMetrics(t *testing.T, server *e2etest.Server) metricsResponse {
	t.Helper()
	resp, err := server.Client().Get(context.Background(), "/api/metrics")
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var m metricsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return m
}

// readDoc parses a response that is expected to carry a rendered page regardless of its status.
func readDoc(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

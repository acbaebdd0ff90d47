package api_test

import (
	"context"
	"encoding/json"
	"github.com/myrjola/resqlink/internal/api"
	"github.com/myrjola/resqlink/internal/models"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type recordedRequest struct {
	method string
	path   string
	body   string
}

type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *recorder) all() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.requests...)
}

func newBackend(t *testing.T, handler http.HandlerFunc) (*api.Client, *recorder) {
	t.Helper()
	rec := &recorder{} //nolint:exhaustruct // zero value is ready
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.requests = append(rec.requests, recordedRequest{method: r.Method, path: r.URL.Path, body: string(body)})
		rec.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL+"/api/", time.Second), rec
}

func TestClient_Reads(t *testing.T) {
	client, requests := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/cases":
			_, _ = w.Write([]byte(`[{"id":1,"name":"Sarah Johnson","urgency":"High","status":"Pending",
"reliability":72,"created_at":"2024-05-10T12:00:00Z"}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	})
	ctx := context.Background()

	cases, err := client.Cases(ctx)
	require.NoError(t, err)
	require.Equal(t, []models.Case{{
		ID:          1,
		Name:        "Sarah Johnson",
		Reliability: 72,
		Urgency:     models.UrgencyHigh,
		Status:      models.CaseStatusPending,
		CreatedAt:   time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
	}}, cases)

	reports, err := client.Reports(ctx)
	require.NoError(t, err)
	require.NotNil(t, reports)
	require.Empty(t, reports)

	_, err = client.Tips(ctx)
	require.NoError(t, err)
	_, err = client.Users(ctx)
	require.NoError(t, err)
	_, err = client.Rewards(ctx)
	require.NoError(t, err)
	_, err = client.Redemptions(ctx)
	require.NoError(t, err)

	var paths []string
	for _, r := range requests.all() {
		require.Equal(t, http.MethodGet, r.method)
		paths = append(paths, r.path)
	}
	require.Equal(t, []string{
		"/api/cases", "/api/reports/", "/api/tips", "/api/users", "/api/rewards", "/api/rewards/redemptions",
	}, paths)
}

func TestClient_ReadFailures(t *testing.T) {
	client, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/cases":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/api/users":
			_, _ = w.Write([]byte(`null`))
		default:
			_, _ = w.Write([]byte(`{"not":"a list"`))
		}
	})
	ctx := context.Background()

	_, err := client.Cases(ctx)
	require.ErrorIs(t, err, api.ErrUnexpectedStatus)

	_, err = client.Tips(ctx)
	require.ErrorIs(t, err, api.ErrDecode)

	users, err := client.Users(ctx)
	require.ErrorIs(t, err, api.ErrDecode)
	require.Nil(t, users)
}

func TestClient_Writes(t *testing.T) {
	client, requests := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/users/100/points" {
			_, _ = w.Write([]byte(`{"id":100,"name":"admin_user","score":130,"medals":["Bronze Rescuer"]}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	ctx := context.Background()

	require.NoError(t, client.UpdateCaseStatus(ctx, 1, models.CaseStatusActive))
	require.NoError(t, client.VerifyTip(ctx, 10))
	require.NoError(t, client.ReviewRedemption(ctx, 20, models.RedemptionStatusApproved))
	require.NoError(t, client.ReviewReport(ctx, 30, models.ReportStatusRejected))
	user, err := client.AwardPoints(ctx, 100, 10, models.PointsModeAdd)
	require.NoError(t, err)
	require.Equal(t, models.User{ID: 100, Name: "admin_user", Score: 130, Medals: []string{"Bronze Rescuer"}}, user)

	require.Equal(t, []recordedRequest{
		{method: http.MethodPut, path: "/api/cases/1/status", body: `{"status":"Active"}`},
		{method: http.MethodPut, path: "/api/tips/10/verify", body: ""},
		{method: http.MethodPatch, path: "/api/rewards/redemptions/20/review", body: `{"status":"Approved"}`},
		{method: http.MethodPatch, path: "/api/reports/30/review/", body: `{"status":"Rejected"}`},
		{method: http.MethodPost, path: "/api/users/100/points", body: `{"points":10,"mode":"add"}`},
	}, requests.all())
}

func TestClient_AwardPointsFailure(t *testing.T) {
	client, _ := newBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "invalid points"})
	})
	_, err := client.AwardPoints(context.Background(), 100, 10, models.PointsModeSet)
	require.ErrorIs(t, err, api.ErrUnexpectedStatus)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	client := api.NewClient(srv.URL, 50*time.Millisecond)
	_, err := client.Cases(context.Background())
	require.Error(t, err)
}

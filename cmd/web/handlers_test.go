package main

import (
	"context"
	"github.com/alexedwards/scs/v2"
	"github.com/donseba/go-htmx"
	"github.com/myrjola/resqlink/internal/assistant"
	"github.com/myrjola/resqlink/internal/engine"
	"github.com/myrjola/resqlink/internal/models"
	"github.com/myrjola/resqlink/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

// newTestApplication wires an application to a mock backend without the HTTP middleware, so handlers can be
// called directly.
func newTestApplication(t *testing.T) *application {
	t.Helper()
	_, apiURL := testhelpers.StartBackend(t)
	logger := testhelpers.NewLogger(io.Discard)
	cfg, err := engine.LoadConfig(testLookupEnv(apiURL))
	require.NoError(t, err)
	eng, err := engine.New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(eng.Stop)
	require.True(t, eng.Refresh(context.Background()))

	return &application{
		logger:         logger,
		engine:         eng,
		assistant:      assistant.New(assistant.Config{}, logger), //nolint:exhaustruct // disabled assistant
		sessionManager: scs.New(),
		htmx:           htmx.New(),
		pollInterval:   cfg.PollInterval,
	}
}

func postForm(target string, values url.Values, pathID string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.SetPathValue("id", pathID)
	return r
}

func TestSetPointsInput(t *testing.T) {
	app := newTestApplication(t)

	tests := []struct {
		name       string
		id         string
		hxRequest  bool
		wantStatus int
	}{
		{name: "htmx", id: "1", hxRequest: true, wantStatus: http.StatusNoContent},
		{name: "plain form", id: "2", hxRequest: false, wantStatus: http.StatusSeeOther},
		{name: "invalid id", id: "abc", hxRequest: true, wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := postForm("/users/"+tt.id+"/points-input", url.Values{"points": {"42"}}, tt.id)
			if tt.hxRequest {
				r.Header.Set("HX-Request", "true")
			}
			w := httptest.NewRecorder()
			app.setPointsInput(w, r)
			require.Equal(t, tt.wantStatus, w.Code)
		})
	}
	inputs := app.engine.View().PointInputs
	require.Equal(t, map[int64]string{1: "42", 2: "42"}, inputs)
}

func TestActionStatus(t *testing.T) {
	app := newTestApplication(t)
	ctx := context.Background()

	_, err := app.engine.Mutator.AwardPoints(ctx, 99, "5", models.PointsModeAdd)
	require.Equal(t, http.StatusNotFound, actionStatus(err))
	require.Equal(t, "entity not found", operatorMessage(err))

	err = app.engine.Mutator.ReviewReport(ctx, 2, models.ReportStatusAccepted)
	require.Equal(t, http.StatusUnprocessableEntity, actionStatus(err))
	require.Equal(t, "review outcome not allowed", operatorMessage(err))

	err = app.engine.Mutator.VerifyTip(ctx, 2)
	require.Equal(t, http.StatusUnprocessableEntity, actionStatus(err))

	app.engine.Stop()
	err = app.engine.Mutator.VerifyTip(ctx, 1)
	require.Equal(t, http.StatusServiceUnavailable, actionStatus(err))
}

func TestTimeoutHandler(t *testing.T) {
	slow := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	w := httptest.NewRecorder()
	timeoutHandler(slow, 600*time.Millisecond).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/overview", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), "did not respond in time")
}

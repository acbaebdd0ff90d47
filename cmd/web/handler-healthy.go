package main

import (
	"encoding/json"
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/myrjola/resqlink/internal/metrics"
	"github.com/myrjola/resqlink/internal/models"
	"net/http"
	"time"
)

// healthy responds with a JSON object indicating that the server is healthy.
func (app *application) healthy(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type rankedCase struct {
	ID      int64             `json:"id"`
	Name    string            `json:"name"`
	Urgency models.Urgency    `json:"urgency"`
	Status  models.CaseStatus `json:"status"`
	Score   float64           `json:"score"`
}

type metricsResponse struct {
	Loaded        bool            `json:"loaded"`
	Syncing       bool            `json:"syncing"`
	LastRefreshed time.Time       `json:"lastRefreshed"`
	SkippedCycles int64           `json:"skippedCycles"`
	Metrics       metrics.Metrics `json:"metrics"`
	Ranked        []rankedCase    `json:"ranked"`
}

// metrics responds with the aggregate metrics, chart series and case ranking of the current view.
func (app *application) metrics(w http.ResponseWriter, r *http.Request) {
	d := app.engine.Dashboard()
	resp := metricsResponse{
		Loaded:        d.View.Loaded,
		Syncing:       app.engine.Scheduler.InFlight(),
		LastRefreshed: d.View.LastRefreshed,
		SkippedCycles: app.engine.Scheduler.Skipped(),
		Metrics:       d.Metrics,
		Ranked:        make([]rankedCase, 0, len(d.Ranked)),
	}
	for _, rc := range d.Ranked {
		resp.Ranked = append(resp.Ranked, rankedCase{
			ID:      rc.Case.ID,
			Name:    rc.Case.Name,
			Urgency: rc.Case.Urgency,
			Status:  rc.Case.Status,
			Score:   rc.Score,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		app.serverError(w, r, errors.Wrap(err, "encode metrics"))
	}
}

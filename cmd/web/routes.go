package main

import (
	"github.com/justinas/alice"
	"github.com/myrjola/resqlink/ui"
	"net/http"
	"time"
)

func (app *application) routes(defaultTimeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", cacheHeaders(http.FileServerFS(ui.Files)))

	mux.HandleFunc("GET /api/healthy", app.healthy)
	mux.HandleFunc("GET /api/metrics", app.metrics)

	session := alice.New(app.sessionManager.LoadAndSave, noSurf, commonContext)

	mux.Handle("GET /{$}", session.ThenFunc(app.home))
	mux.Handle("GET /{tab}", session.ThenFunc(app.dashboard))

	mux.Handle("POST /refresh", session.ThenFunc(app.refresh))
	mux.Handle("POST /cases/{id}/status", session.ThenFunc(app.changeCaseStatus))
	mux.Handle("POST /tips/{id}/verify", session.ThenFunc(app.verifyTip))
	mux.Handle("POST /redemptions/{id}/review", session.ThenFunc(app.reviewRedemption))
	mux.Handle("POST /reports/{id}/review", session.ThenFunc(app.reviewReport))
	mux.Handle("POST /users/{id}/points-input", session.ThenFunc(app.setPointsInput))
	mux.Handle("POST /users/{id}/points", session.ThenFunc(app.awardPoints))
	mux.Handle("POST /assistant", session.ThenFunc(app.askAssistant))

	common := alice.New(app.recoverPanic, app.logRequest, app.secureHeaders)
	return common.Then(timeoutHandler(mux, defaultTimeout))
}

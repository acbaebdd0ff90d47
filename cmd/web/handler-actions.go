package main

import (
	"fmt"
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/myrjola/resqlink/internal/models"
	"github.com/myrjola/resqlink/internal/mutator"
	"github.com/myrjola/resqlink/internal/store"
	"log/slog"
	"net/http"
)

// operatorErrors are the failures an operator can act upon. Their messages are shown as they are.
var operatorErrors = []error{
	mutator.ErrNotFound,
	mutator.ErrTransitionNotAllowed,
	mutator.ErrAlreadyVerified,
	mutator.ErrInvalidReview,
	mutator.ErrInvalidPoints,
	mutator.ErrInvalidMode,
	store.ErrClosed,
}

func operatorMessage(err error) string {
	for _, target := range operatorErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "the backend did not accept the change"
}

// actionStatus maps a failed operator action to a response status. Anything not caused by the operator's input is
// a failure of the backend.
func actionStatus(err error) int {
	switch {
	case errors.Is(err, mutator.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, mutator.ErrTransitionNotAllowed),
		errors.Is(err, mutator.ErrAlreadyVerified),
		errors.Is(err, mutator.ErrInvalidReview),
		errors.Is(err, mutator.ErrInvalidPoints),
		errors.Is(err, mutator.ErrInvalidMode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// actionError re-renders tab t with the reason the action was rejected.
func (app *application) actionError(w http.ResponseWriter, r *http.Request, t tab, prefix string, err error) {
	status := actionStatus(err)
	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	app.logger.LogAttrs(r.Context(), level, "operator action failed",
		slog.Int("status", status), errors.SlogError(err))
	app.renderTab(w, r, status, t, prefix+operatorMessage(err))
}

func (app *application) refresh(w http.ResponseWriter, r *http.Request) {
	t, ok := findTab(r.PostFormValue("tab"))
	if !ok {
		t = overviewTab
	}
	if !app.engine.Refresh(r.Context()) {
		app.putFlash(r, "A refresh is already in progress.")
	}
	app.redirectToTab(w, r, t)
}

func (app *application) changeCaseStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := app.pathID(w, r)
	if !ok {
		return
	}
	status := models.CaseStatus(r.PostFormValue("status"))
	if err := app.engine.Mutator.ChangeCaseStatus(r.Context(), id, status); err != nil {
		app.actionError(w, r, casesTab, "", err)
		return
	}
	app.putFlash(r, fmt.Sprintf("Case #%d marked %s.", id, status))
	app.redirectToTab(w, r, casesTab)
}

func (app *application) verifyTip(w http.ResponseWriter, r *http.Request) {
	id, ok := app.pathID(w, r)
	if !ok {
		return
	}
	if err := app.engine.Mutator.VerifyTip(r.Context(), id); err != nil {
		app.actionError(w, r, tipsTab, "", err)
		return
	}
	app.putFlash(r, fmt.Sprintf("Tip #%d verified.", id))
	app.redirectToTab(w, r, tipsTab)
}

func (app *application) reviewRedemption(w http.ResponseWriter, r *http.Request) {
	id, ok := app.pathID(w, r)
	if !ok {
		return
	}
	status := models.RedemptionStatus(r.PostFormValue("status"))
	if err := app.engine.Mutator.ReviewRedemption(r.Context(), id, status); err != nil {
		app.actionError(w, r, rewardsTab, "", err)
		return
	}
	app.putFlash(r, fmt.Sprintf("Redemption #%d %s.", id, status))
	app.redirectToTab(w, r, rewardsTab)
}

func (app *application) reviewReport(w http.ResponseWriter, r *http.Request) {
	id, ok := app.pathID(w, r)
	if !ok {
		return
	}
	status := models.ReportStatus(r.PostFormValue("status"))
	if err := app.engine.Mutator.ReviewReport(r.Context(), id, status); err != nil {
		app.actionError(w, r, sightingsTab, "", err)
		return
	}
	app.putFlash(r, fmt.Sprintf("Sighting report #%d %s.", id, status))
	app.redirectToTab(w, r, sightingsTab)
}

// setPointsInput keeps what the operator is typing so that polling re-renders do not lose it.
func (app *application) setPointsInput(w http.ResponseWriter, r *http.Request) {
	id, ok := app.pathID(w, r)
	if !ok {
		return
	}
	if err := app.engine.Mutator.SetPointsInput(id, r.PostFormValue("points")); err != nil {
		app.clientError(w, r, actionStatus(err))
		return
	}
	if app.htmx.NewHandler(w, r).IsHxRequest() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	app.redirectToTab(w, r, honourTab)
}

func (app *application) awardPoints(w http.ResponseWriter, r *http.Request) {
	id, ok := app.pathID(w, r)
	if !ok {
		return
	}
	const failurePrefix = "Failed to update points: "
	var (
		ctx  = r.Context()
		raw  = r.PostFormValue("points")
		mode = models.PointsMode(r.PostFormValue("mode"))
	)
	// Keep the value around so that it is still in the form if the award fails.
	if err := app.engine.Mutator.SetPointsInput(id, raw); err != nil {
		app.actionError(w, r, honourTab, failurePrefix, err)
		return
	}
	user, err := app.engine.Mutator.AwardPoints(ctx, id, raw, mode)
	if err != nil {
		app.actionError(w, r, honourTab, failurePrefix, err)
		return
	}
	verb := "added"
	if mode == models.PointsModeSet {
		verb = "set"
	}
	app.putFlash(r, fmt.Sprintf("Points %s successfully! New score: %d", verb, user.Score))
	app.redirectToTab(w, r, honourTab)
}

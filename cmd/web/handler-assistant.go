package main

import (
	"github.com/myrjola/resqlink/internal/assistant"
	"github.com/myrjola/resqlink/internal/errors"
	"log/slog"
	"net/http"
	"strings"
)

// askAssistant answers an operator question about the current view. The last answer is kept in the session and
// shown on the overview.
func (app *application) askAssistant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	question := strings.TrimSpace(r.PostFormValue("question"))
	d := app.engine.Dashboard()

	answer, err := app.assistant.Ask(ctx, question, assistant.Briefing(d.View, d.Metrics, d.Ranked))
	switch {
	case errors.Is(err, assistant.ErrDisabled):
		app.putFlash(r, "The assistant is not configured.")
	case errors.Is(err, assistant.ErrEmptyQuestion):
		app.putFlash(r, "Please enter a question for the assistant.")
	case err != nil:
		app.logger.LogAttrs(ctx, slog.LevelError, "assistant failed", errors.SlogError(err))
		app.putFlash(r, "The assistant could not answer right now.")
	default:
		app.sessionManager.Put(ctx, assistantQuestionSessionKey, question)
		app.sessionManager.Put(ctx, assistantAnswerSessionKey, answer)
	}
	app.redirectToTab(w, r, overviewTab)
}

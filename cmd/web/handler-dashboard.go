package main

import (
	"github.com/myrjola/resqlink/internal/engine"
	"github.com/myrjola/resqlink/internal/models"
	"net/http"
)

type assistantTemplateData struct {
	Enabled  bool
	Question string
	Answer   string
}

type dashboardTemplateData struct {
	BaseTemplateData
	engine.Dashboard

	// CaseNames resolves the case references of tips and sighting reports.
	CaseNames          map[int64]string
	RedemptionOutcomes []models.RedemptionStatus
	ReportOutcomes     []models.ReportStatus
	Assistant          assistantTemplateData
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	app.redirectToTab(w, r, overviewTab)
}

func (app *application) dashboard(w http.ResponseWriter, r *http.Request) {
	t, ok := findTab(r.PathValue("tab"))
	if !ok {
		app.notFound(w, r)
		return
	}
	app.renderTab(w, r, http.StatusOK, t, "")
}

// renderTab renders tab t from a fresh read of the view. A non-empty flash replaces the one stored in the session.
func (app *application) renderTab(w http.ResponseWriter, r *http.Request, status int, t tab, flash string) {
	ctx := r.Context()
	d := app.engine.Dashboard()
	caseNames := make(map[int64]string, len(d.View.Cases))
	for _, c := range d.View.Cases {
		caseNames[c.ID] = c.Name
	}
	data := dashboardTemplateData{
		BaseTemplateData:   app.newBaseTemplateData(r, t, flash),
		Dashboard:          d,
		CaseNames:          caseNames,
		RedemptionOutcomes: models.RedemptionReviewOutcomes,
		ReportOutcomes:     models.ReportReviewOutcomes,
		Assistant: assistantTemplateData{
			Enabled:  app.assistant.Enabled(),
			Question: app.sessionManager.GetString(ctx, assistantQuestionSessionKey),
			Answer:   app.sessionManager.GetString(ctx, assistantAnswerSessionKey),
		},
	}
	app.render(w, r, status, t.Name, data)
}

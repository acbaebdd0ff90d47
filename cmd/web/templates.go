package main

import (
	"net/http"
	"time"
)

const (
	flashSessionKey             = "flash"
	assistantQuestionSessionKey = "assistantQuestion"
	assistantAnswerSessionKey   = "assistantAnswer"
)

type tab struct {
	Name  string
	Title string
}

var (
	overviewTab  = tab{Name: "overview", Title: "Overview"}
	casesTab     = tab{Name: "cases", Title: "Cases"}
	tipsTab      = tab{Name: "tips", Title: "Tips"}
	analyticsTab = tab{Name: "analytics", Title: "Analytics"}
	honourTab    = tab{Name: "honour", Title: "Honour board"}
	rewardsTab   = tab{Name: "rewards", Title: "Rewards"}
	sightingsTab = tab{Name: "sightings", Title: "Sightings"}
)

var tabs = []tab{overviewTab, casesTab, tipsTab, analyticsTab, honourTab, rewardsTab, sightingsTab}

func findTab(name string) (tab, bool) {
	for _, t := range tabs {
		if t.Name == name {
			return t, true
		}
	}
	return tab{}, false
}

type BaseTemplateData struct {
	Tab         string
	TabTitle    string
	Tabs        []tab
	Flash       string
	PollSeconds int
}

// newBaseTemplateData prepares the data shared by every tab. Without an explicit flash the one stored in the
// session is shown and consumed.
func (app *application) newBaseTemplateData(r *http.Request, t tab, flash string) BaseTemplateData {
	if flash == "" {
		flash = app.sessionManager.PopString(r.Context(), flashSessionKey)
	}
	return BaseTemplateData{
		Tab:         t.Name,
		TabTitle:    t.Title,
		Tabs:        tabs,
		Flash:       flash,
		PollSeconds: max(1, int(app.pollInterval/time.Second)),
	}
}

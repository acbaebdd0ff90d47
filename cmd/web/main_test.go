package main

import (
	"context"
	"github.com/myrjola/resqlink/internal/api"
	"github.com/myrjola/resqlink/internal/models"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

func Test_tabs(t *testing.T) {
	d := startDashboard(t)
	ctx := context.Background()

	tests := []struct {
		tab      string
		title    string
		contains string
	}{
		{tab: "overview", title: "Overview", contains: "Highest priority"},
		{tab: "cases", title: "Cases", contains: "Michael Chen"},
		{tab: "tips", title: "Tips", contains: "Seen near the east entrance"},
		{tab: "analytics", title: "Analytics", contains: "Cases by urgency"},
		{tab: "honour", title: "Honour board", contains: "admin_user"},
		{tab: "rewards", title: "Rewards", contains: "Volunteer T-shirt"},
		{tab: "sightings", title: "Sightings", contains: "Bethesda Fountain"},
	}
	for _, tt := range tests {
		t.Run(tt.tab, func(t *testing.T) {
			doc, err := d.server.Client().GetDoc(ctx, "/"+tt.tab)
			require.NoError(t, err)

			require.Equal(t, 7, doc.Find("nav.tabs a").Length())
			require.Equal(t, tt.title, doc.Find("nav.tabs a.active").Text())
			require.Contains(t, doc.Find("main#content").Text(), tt.contains)
			require.Equal(t, "/"+tt.tab, doc.Find("main#content").AttrOr("hx-get", ""))
			// Custom elements are expanded before the page leaves the server.
			require.Zero(t, doc.Find("status-badge, urgency-badge, reliability-badge, button-primary").Length())
		})
	}
}

func Test_home_redirectsToOverview(t *testing.T) {
	d := startDashboard(t)

	doc, err := d.server.Client().GetDoc(context.Background(), "/")
	require.NoError(t, err)
	require.Equal(t, "Overview", doc.Find("nav.tabs a.active").Text())
}

func Test_unknownTab(t *testing.T) {
	d := startDashboard(t)

	resp, err := d.server.Client().Get(context.Background(), "/archive")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func Test_secureHeaders(t *testing.T) {
	d := startDashboard(t)

	resp, err := d.server.Client().Get(context.Background(), "/overview")
	require.NoError(t, err)
	csp := resp.Header.Get("Content-Security-Policy")
	doc := readDoc(t, resp)

	nonce, ok := doc.Find("script").Attr("nonce")
	require.True(t, ok)
	require.NotEmpty(t, nonce)
	require.Contains(t, csp, "'nonce-"+nonce+"'")
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func Test_fragment(t *testing.T) {
	d := startDashboard(t)

	doc, err := d.server.Client().GetFragment(context.Background(), "/cases")
	require.NoError(t, err)

	require.Zero(t, doc.Find("nav").Length())
	require.Equal(t, 3, doc.Find("tr[data-case-id]").Length())
	require.Equal(t, "Pending", doc.Find("tr[data-case-id='1'] span.badge-status").Text())
	require.Equal(t, "72%", doc.Find("tr[data-case-id='1'] span.badge-reliability-medium").Text())
}

func Test_changeCaseStatus(t *testing.T) {
	d := startDashboard(t)
	ctx := context.Background()

	doc, err := d.server.Client().SubmitForm(ctx, "/cases", "/cases/1/status", url.Values{"status": {"Active"}})
	require.NoError(t, err)
	require.Equal(t, "Case #1 marked Active.", strings.TrimSpace(doc.Find(".flash").Text()))
	require.Equal(t, "Active", doc.Find("tr[data-case-id='1'] span.badge-status").Text())
	require.Equal(t, 1, doc.Find("form[action='/cases/1/status'] input[value='Solved']").Length())

	client := api.NewClient(d.apiURL, time.Second)
	require.Eventually(t, func() bool {
		cases, casesErr := client.Cases(ctx)
		if casesErr != nil {
			return false
		}
		for _, c := range cases {
			if c.ID == 1 {
				return c.Status == models.CaseStatusActive
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
}

func Test_changeCaseStatus_rejected(t *testing.T) {
	d := startDashboard(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		action string
		status string
		want   int
		flash  string
	}{
		{
			name:   "transition not allowed",
			action: "/cases/1/status",
			status: "Solved",
			want:   http.StatusUnprocessableEntity,
			flash:  "case status transition not allowed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := d.server.Client().PostForm(ctx, "/cases", tt.action, url.Values{"status": {tt.status}})
			require.NoError(t, err)
			require.Equal(t, tt.want, resp.StatusCode)
			doc := readDoc(t, resp)
			require.Equal(t, tt.flash, strings.TrimSpace(doc.Find(".flash").Text()))
			require.Equal(t, "Pending", doc.Find("tr[data-case-id='1'] span.badge-status").Text())
		})
	}
}

func Test_verifyTip_rollsBackFailedWrite(t *testing.T) {
	d := startDashboard(t)
	ctx := context.Background()
	d.backend.FailWrites(true)

	doc, err := d.server.Client().SubmitForm(ctx, "/tips", "/tips/1/verify", nil)
	require.NoError(t, err)
	require.Equal(t, "Tip #1 verified.", strings.TrimSpace(doc.Find(".flash").Text()))

	require.Eventually(t, func() bool {
		doc, err = d.server.Client().GetDoc(ctx, "/tips")
		if err != nil {
			return false
		}
		return strings.Contains(doc.Find(".notices").Text(), "Verifying tip #1 failed.")
	}, 5*time.Second, 20*time.Millisecond)
	require.Equal(t, 1, doc.Find("form[action='/tips/1/verify']").Length())
	require.Equal(t, "Unverified", doc.Find("tr[data-tip-id='1'] span.badge-status").Text())
}

func Test_reviews(t *testing.T) {
	d := startDashboard(t)
	ctx := context.Background()

	doc, err := d.server.Client().SubmitForm(ctx, "/rewards", "/redemptions/1/review",
		url.Values{"status": {"Approved"}})
	require.NoError(t, err)
	require.Equal(t, "Redemption #1 Approved.", strings.TrimSpace(doc.Find(".flash").Text()))
	require.Equal(t, "Approved", doc.Find("tr[data-redemption-id='1'] span.badge-status").Text())
	require.Zero(t, doc.Find("form[action='/redemptions/1/review']").Length())

	doc, err = d.server.Client().SubmitForm(ctx, "/sightings", "/reports/1/review",
		url.Values{"status": {"Accepted"}})
	require.NoError(t, err)
	require.Equal(t, "Sighting report #1 Accepted.", strings.TrimSpace(doc.Find(".flash").Text()))
	require.Equal(t, "Accepted", doc.Find("tr[data-report-id='1'] span.badge-status").Text())
}

func Test_awardPoints(t *testing.T) {
	d := startDashboard(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		points     string
		mode       string
		failWrites bool
		wantStatus int
		wantFlash  string
		wantScore  string
	}{
		{
			name:       "add",
			points:     "5",
			mode:       "add",
			wantStatus: http.StatusOK,
			wantFlash:  "Points added successfully! New score: 125",
			wantScore:  "125",
		},
		{
			name:       "set",
			points:     "200",
			mode:       "set",
			wantStatus: http.StatusOK,
			wantFlash:  "Points set successfully! New score: 200",
			wantScore:  "200",
		},
		{
			name:       "not a number",
			points:     "lots",
			mode:       "add",
			wantStatus: http.StatusUnprocessableEntity,
			wantFlash:  "Failed to update points: points must be a finite number",
			wantScore:  "200",
		},
		{
			name:       "unknown mode",
			points:     "1",
			mode:       "multiply",
			wantStatus: http.StatusUnprocessableEntity,
			wantFlash:  "Failed to update points: points mode must be add or set",
			wantScore:  "200",
		},
		{
			name:       "backend failure",
			points:     "1",
			mode:       "add",
			failWrites: true,
			wantStatus: http.StatusBadGateway,
			wantFlash:  "Failed to update points: the backend did not accept the change",
			wantScore:  "200",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d.backend.FailWrites(tt.failWrites)
			resp, err := d.server.Client().PostForm(ctx, "/honour", "/users/1/points",
				url.Values{"points": {tt.points}, "mode": {tt.mode}})
			require.NoError(t, err)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			doc := readDoc(t, resp)
			require.Equal(t, tt.wantFlash, strings.TrimSpace(doc.Find(".flash").Text()))
			require.Equal(t, tt.wantScore, doc.Find("tr[data-user-id='1'] td.score").Text())

			input := doc.Find("tr[data-user-id='1'] input[name=points]").AttrOr("value", "")
			if tt.wantStatus == http.StatusOK {
				require.Empty(t, input)
			} else {
				require.Equal(t, tt.points, input)
			}
		})
	}
}

func Test_refresh(t *testing.T) {
	d := startDashboard(t)
	ctx := context.Background()
	before := getMetrics(t, d.server).LastRefreshed

	doc, err := d.server.Client().SubmitForm(ctx, "/tips", "/refresh", nil)
	require.NoError(t, err)
	require.Equal(t, "Tips", doc.Find("nav.tabs a.active").Text())
	require.True(t, getMetrics(t, d.server).LastRefreshed.After(before))
}

func Test_metrics(t *testing.T) {
	d := startDashboard(t)

	m := getMetrics(t, d.server)
	require.Equal(t, 3, m.Metrics.Cases.Total)
	require.Equal(t, 2, m.Metrics.Cases.WithStatus(models.CaseStatusActive))
	require.Equal(t, []int{2, 1, 0}, m.Metrics.UrgencyChart.Data)
	require.Equal(t, 2, m.Metrics.Tips.Total)
	require.Equal(t, int64(195), m.Metrics.Users.TotalScore)
	require.Len(t, m.Ranked, 3)
	// Both high urgency cases outrank the older medium one, the newest first.
	require.Equal(t, []int64{2, 1, 3}, []int64{m.Ranked[0].ID, m.Ranked[1].ID, m.Ranked[2].ID})
}

func Test_assistant_disabled(t *testing.T) {
	d := startDashboard(t)

	doc, err := d.server.Client().SubmitForm(context.Background(), "/overview", "/assistant",
		url.Values{"question": {"Which case needs attention first?"}})
	require.NoError(t, err)
	require.Equal(t, "The assistant is not configured.", strings.TrimSpace(doc.Find(".flash").Text()))
	require.Equal(t, 1, doc.Find(".assistant .disabled").Length())
}

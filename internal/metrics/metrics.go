// Package metrics derives the dashboard's aggregate counts and chart series from the view.
package metrics

import (
	"github.com/myrjola/resqlink/internal/models"
	"github.com/myrjola/resqlink/internal/store"
	"maps"
	"sync"
)

// ChartSeries is the data of one chart. Labels and Data have equal length.
type ChartSeries struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

type CaseCounts struct {
	Total     int                       `json:"total"`
	ByStatus  map[models.CaseStatus]int `json:"byStatus"`
	ByUrgency map[models.Urgency]int    `json:"byUrgency"`
}

func CountCases(cases []models.Case) CaseCounts {
	counts := CaseCounts{
		Total:     len(cases),
		ByStatus:  make(map[models.CaseStatus]int, len(models.CaseStatuses)),
		ByUrgency: make(map[models.Urgency]int, len(models.Urgencies)),
	}
	for _, status := range models.CaseStatuses {
		counts.ByStatus[status] = 0
	}
	for _, urgency := range models.Urgencies {
		counts.ByUrgency[urgency] = 0
	}
	for _, c := range cases {
		if _, ok := counts.ByStatus[c.Status]; ok {
			counts.ByStatus[c.Status]++
		}
		if _, ok := counts.ByUrgency[c.Urgency]; ok {
			counts.ByUrgency[c.Urgency]++
		}
	}
	return counts
}

// Clone returns a copy of c that shares no maps with it.
func (c CaseCounts) Clone() CaseCounts {
	c.ByStatus = maps.Clone(c.ByStatus)
	c.ByUrgency = maps.Clone(c.ByUrgency)
	return c
}

// WithStatus returns the number of cases in status.
func (c CaseCounts) WithStatus(status models.CaseStatus) int {
	return c.ByStatus[status]
}

// WithUrgency returns the number of cases with urgency.
func (c CaseCounts) WithUrgency(urgency models.Urgency) int {
	return c.ByUrgency[urgency]
}

// UrgencyChart returns the case urgency distribution in High, Medium, Low order.
func (c CaseCounts) UrgencyChart() ChartSeries {
	series := ChartSeries{Labels: make([]string, 0, len(models.Urgencies)), Data: make([]int, 0, len(models.Urgencies))}
	for _, urgency := range models.Urgencies {
		series.Labels = append(series.Labels, string(urgency))
		series.Data = append(series.Data, c.ByUrgency[urgency])
	}
	return series
}

// StatusChart returns the case status distribution in Pending, Active, Solved, Rejected order.
func (c CaseCounts) StatusChart() ChartSeries {
	series := ChartSeries{
		Labels: make([]string, 0, len(models.CaseStatuses)),
		Data:   make([]int, 0, len(models.CaseStatuses)),
	}
	for _, status := range models.CaseStatuses {
		series.Labels = append(series.Labels, string(status))
		series.Data = append(series.Data, c.ByStatus[status])
	}
	return series
}

type TipCounts struct {
	Total      int `json:"total"`
	Verified   int `json:"verified"`
	Unverified int `json:"unverified"`
}

func CountTips(tips []models.Tip) TipCounts {
	counts := TipCounts{Total: len(tips), Verified: 0, Unverified: 0}
	for _, t := range tips {
		if t.Verified {
			counts.Verified++
		} else {
			counts.Unverified++
		}
	}
	return counts
}

type UserCounts struct {
	Total       int   `json:"total"`
	TotalScore  int64 `json:"totalScore"`
	TotalMedals int   `json:"totalMedals"`
}

func CountUsers(users []models.User) UserCounts {
	counts := UserCounts{Total: len(users), TotalScore: 0, TotalMedals: 0}
	for _, u := range users {
		counts.TotalScore += u.Score
		counts.TotalMedals += len(u.Medals)
	}
	return counts
}

type RewardCounts struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

func CountRewards(rewards []models.Reward) RewardCounts {
	counts := RewardCounts{Total: len(rewards), Active: 0}
	for _, r := range rewards {
		if r.IsActive {
			counts.Active++
		}
	}
	return counts
}

type RedemptionCounts struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
}

func CountRedemptions(redemptions []models.Redemption) RedemptionCounts {
	counts := RedemptionCounts{Total: len(redemptions), Pending: 0}
	for _, r := range redemptions {
		if r.Status == models.RedemptionStatusPending {
			counts.Pending++
		}
	}
	return counts
}

type ReportCounts struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
}

func CountReports(reports []models.Report) ReportCounts {
	counts := ReportCounts{Total: len(reports), Pending: 0}
	for _, r := range reports {
		if r.Status == models.ReportStatusPending {
			counts.Pending++
		}
	}
	return counts
}

// Metrics is every aggregate shown on the dashboard.
type Metrics struct {
	Cases        CaseCounts       `json:"cases"`
	Tips         TipCounts        `json:"tips"`
	Users        UserCounts       `json:"users"`
	Rewards      RewardCounts     `json:"rewards"`
	Redemptions  RedemptionCounts `json:"redemptions"`
	Reports      ReportCounts     `json:"reports"`
	UrgencyChart ChartSeries      `json:"urgencyChart"`
	StatusChart  ChartSeries      `json:"statusChart"`
}

// Compute derives the metrics of v without memoisation.
func Compute(v store.View) Metrics {
	cases := CountCases(v.Cases)
	return Metrics{
		Cases:        cases,
		Tips:         CountTips(v.Tips),
		Users:        CountUsers(v.Users),
		Rewards:      CountRewards(v.Rewards),
		Redemptions:  CountRedemptions(v.Redemptions),
		Reports:      CountReports(v.Reports),
		UrgencyChart: cases.UrgencyChart(),
		StatusChart:  cases.StatusChart(),
	}
}

type memo[T any] struct {
	valid   bool
	version uint64
	value   T
}

// get returns the memoised value for version or recomputes it. It reports whether it recomputed.
func (m *memo[T]) get(version uint64, compute func() T) (T, bool) {
	if m.valid && m.version == version {
		return m.value, false
	}
	m.value = compute()
	m.version = version
	m.valid = true
	return m.value, true
}

// Aggregator memoises metrics per collection so that only collections whose version changed are recounted.
// It is safe for concurrent use. Every returned Metrics owns its maps.
type Aggregator struct {
	mu          sync.Mutex
	cases       memo[CaseCounts]
	tips        memo[TipCounts]
	users       memo[UserCounts]
	rewards     memo[RewardCounts]
	redemptions memo[RedemptionCounts]
	reports     memo[ReportCounts]
	recomputed  map[models.Resource]int
}

func NewAggregator() *Aggregator {
	return &Aggregator{recomputed: make(map[models.Resource]int)} //nolint:exhaustruct // zero memos are empty
}

func (a *Aggregator) Metrics(v store.View) Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()

	cases := track(a, models.ResourceCases, &a.cases, v, func() CaseCounts { return CountCases(v.Cases) }).Clone()
	return Metrics{
		Cases: cases,
		Tips:  track(a, models.ResourceTips, &a.tips, v, func() TipCounts { return CountTips(v.Tips) }),
		Users: track(a, models.ResourceUsers, &a.users, v, func() UserCounts { return CountUsers(v.Users) }),
		Rewards: track(a, models.ResourceRewards, &a.rewards, v, func() RewardCounts {
			return CountRewards(v.Rewards)
		}),
		Redemptions: track(a, models.ResourceRedemptions, &a.redemptions, v, func() RedemptionCounts {
			return CountRedemptions(v.Redemptions)
		}),
		Reports: track(a, models.ResourceReports, &a.reports, v, func() ReportCounts {
			return CountReports(v.Reports)
		}),
		UrgencyChart: cases.UrgencyChart(),
		StatusChart:  cases.StatusChart(),
	}
}

// Recomputed returns how often the counts of resource have been computed.
func (a *Aggregator) Recomputed(resource models.Resource) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recomputed[resource]
}

func track[T any](a *Aggregator, resource models.Resource, m *memo[T], v store.View, compute func() T) T {
	value, recomputed := m.get(v.Versions[resource], compute)
	if recomputed {
		a.recomputed[resource]++
	}
	return value
}

// Package scoring derives a case's priority from its urgency tier and how recently it was created.
package scoring

import (
	"cmp"
	"github.com/myrjola/resqlink/internal/models"
	"math"
	"slices"
	"time"
)

const (
	urgencyFactor = 0.65
	recencyFactor = 0.35
	// recencyWindow is how long it takes for a case to lose all of its recency bonus.
	recencyWindow = 72 * time.Hour
)

// UrgencyWeight maps an urgency tier to its weight. Unknown tiers weigh like Low.
func UrgencyWeight(u models.Urgency) float64 {
	switch u {
	case models.UrgencyHigh:
		return 1.0
	case models.UrgencyMedium:
		return 0.7 //nolint:mnd // tier weight
	case models.UrgencyLow:
		return 0.4 //nolint:mnd // tier weight
	default:
		return 0.4 //nolint:mnd // tier weight
	}
}

// Score returns the priority of c at time now in [0, 1], rounded to two decimals.
//
// A case created in the future counts as created now. A zero CreatedAt yields no recency bonus.
func Score(c models.Case, now time.Time) float64 {
	hoursAgo := max(0, now.Sub(c.CreatedAt).Hours())
	recency := max(0, 1-hoursAgo/recencyWindow.Hours())
	score := UrgencyWeight(c.Urgency)*urgencyFactor + recency*recencyFactor
	return math.Round(score*100) / 100 //nolint:mnd // two decimals
}

type Ranked struct {
	Case  models.Case
	Score float64
}

// Rank scores every case at time now and orders them by descending score.
// Ties are broken by newer CreatedAt first and then by ascending ID.
func Rank(cases []models.Case, now time.Time) []Ranked {
	ranked := make([]Ranked, 0, len(cases))
	for _, c := range cases {
		ranked = append(ranked, Ranked{Case: c, Score: Score(c, now)})
	}
	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		if n := cmp.Compare(b.Score, a.Score); n != 0 {
			return n
		}
		if n := b.Case.CreatedAt.Compare(a.Case.CreatedAt); n != 0 {
			return n
		}
		return cmp.Compare(a.Case.ID, b.Case.ID)
	})
	return ranked
}

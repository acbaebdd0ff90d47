package store

import "github.com/myrjola/resqlink/internal/models"

// Result is the outcome of reading one collection. Items are only meaningful when Err is nil.
type Result[T any] struct {
	Items []T
	Err   error
}

func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Snapshot holds the outcome of the six reads of one sync cycle.
type Snapshot struct {
	Cases       Result[models.Case]
	Tips        Result[models.Tip]
	Users       Result[models.User]
	Rewards     Result[models.Reward]
	Redemptions Result[models.Redemption]
	Reports     Result[models.Report]
}

// Errors returns the failed reads keyed by resource.
func (s Snapshot) Errors() map[models.Resource]error {
	errs := make(map[models.Resource]error)
	for resource, err := range map[models.Resource]error{
		models.ResourceCases:       s.Cases.Err,
		models.ResourceTips:        s.Tips.Err,
		models.ResourceUsers:       s.Users.Err,
		models.ResourceRewards:     s.Rewards.Err,
		models.ResourceRedemptions: s.Redemptions.Err,
		models.ResourceReports:     s.Reports.Err,
	} {
		if err != nil {
			errs[resource] = err
		}
	}
	return errs
}

// Succeeded reports how many of the reads succeeded.
func (s Snapshot) Succeeded() int {
	return len(models.Resources) - len(s.Errors())
}

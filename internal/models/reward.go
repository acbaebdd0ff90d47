package models

import (
	"slices"
	"time"
)

type Reward struct {
	ID             int64  `json:"id"              db:"id"`
	Name           string `json:"name"            db:"name"`
	Description    string `json:"description"     db:"description"`
	PointsRequired int64  `json:"points_required" db:"points_required"`
	IsActive       bool   `json:"is_active"       db:"is_active"`
}

func (r Reward) Key() int64 {
	return r.ID
}

type RedemptionStatus string

const (
	RedemptionStatusPending  RedemptionStatus = "Pending"
	RedemptionStatusApproved RedemptionStatus = "Approved"
	RedemptionStatusRejected RedemptionStatus = "Rejected"
)

var RedemptionReviewOutcomes = []RedemptionStatus{RedemptionStatusApproved, RedemptionStatusRejected}

// CanReviewTo reports whether a redemption in status s may be reviewed to outcome.
func (s RedemptionStatus) CanReviewTo(outcome RedemptionStatus) bool {
	return s == RedemptionStatusPending && slices.Contains(RedemptionReviewOutcomes, outcome)
}

// Redemption is a user's request to exchange honour points for a reward.
type Redemption struct {
	ID          int64            `json:"id"           db:"id"`
	Reward      int64            `json:"reward"       db:"reward_id"`
	RewardName  string           `json:"rewardName"   db:"reward_name"`
	UserID      int64            `json:"userId"       db:"user_id"`
	UserName    string           `json:"userName"     db:"user_name"`
	Status      RedemptionStatus `json:"status"       db:"status"`
	RequestedAt time.Time        `json:"requested_at" db:"requested_at"`
}

func (r Redemption) Key() int64 {
	return r.ID
}

package models

import (
	"slices"
	"time"
)

type CaseStatus string

const (
	CaseStatusPending  CaseStatus = "Pending"
	CaseStatusActive   CaseStatus = "Active"
	CaseStatusSolved   CaseStatus = "Solved"
	CaseStatusRejected CaseStatus = "Rejected"
)

// CaseStatuses lists every case status in display order.
var CaseStatuses = []CaseStatus{CaseStatusPending, CaseStatusActive, CaseStatusSolved, CaseStatusRejected}

// caseTransitions is the set of status changes an operator may request. The backend is the final authority.
var caseTransitions = map[CaseStatus][]CaseStatus{
	CaseStatusPending: {CaseStatusActive, CaseStatusRejected},
	CaseStatusActive:  {CaseStatusSolved},
}

func (s CaseStatus) Valid() bool {
	return slices.Contains(CaseStatuses, s)
}

// NextStatuses returns the statuses reachable from s. Solved and Rejected are terminal.
func (s CaseStatus) NextStatuses() []CaseStatus {
	return slices.Clone(caseTransitions[s])
}

// CanTransitionTo reports whether an operator may move a case from s to next.
func (s CaseStatus) CanTransitionTo(next CaseStatus) bool {
	return slices.Contains(caseTransitions[s], next)
}

type Urgency string

const (
	UrgencyHigh   Urgency = "High"
	UrgencyMedium Urgency = "Medium"
	UrgencyLow    Urgency = "Low"
)

var Urgencies = []Urgency{UrgencyHigh, UrgencyMedium, UrgencyLow}

// Case is a missing-person case.
type Case struct {
	ID          int64      `json:"id"          db:"id"`
	Name        string     `json:"name"        db:"name"`
	Age         int        `json:"age"         db:"age"`
	Location    string     `json:"location"    db:"location"`
	Description string     `json:"description" db:"description"`
	Reliability int        `json:"reliability" db:"reliability"`
	Urgency     Urgency    `json:"urgency"     db:"urgency"`
	Status      CaseStatus `json:"status"      db:"status"`
	CreatedAt   time.Time  `json:"created_at"  db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"  db:"updated_at"`
}

func (c Case) Key() int64 {
	return c.ID
}

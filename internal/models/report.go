package models

import (
	"slices"
	"time"
)

type ReportStatus string

const (
	ReportStatusPending ReportStatus = "Pending"
	// ReportStatusReviewed is only ever read from the backend.
	ReportStatusReviewed ReportStatus = "Reviewed"
	ReportStatusAccepted ReportStatus = "Accepted"
	ReportStatusRejected ReportStatus = "Rejected"
)

var ReportReviewOutcomes = []ReportStatus{ReportStatusAccepted, ReportStatusRejected}

// CanReviewTo reports whether a report in status s may be reviewed to outcome.
func (s ReportStatus) CanReviewTo(outcome ReportStatus) bool {
	return s == ReportStatusPending && slices.Contains(ReportReviewOutcomes, outcome)
}

// Report is a public sighting report tied to a case.
type Report struct {
	ID            int64        `json:"id"              db:"id"`
	MissingCaseID int64        `json:"missing_case_id" db:"missing_case_id"`
	ReporterName  string       `json:"reporter_name"   db:"reporter_name"`
	Description   string       `json:"description"     db:"description"`
	Latitude      float64      `json:"latitude"        db:"latitude"`
	Longitude     float64      `json:"longitude"       db:"longitude"`
	Status        ReportStatus `json:"status"          db:"status"`
	CreatedAt     time.Time    `json:"created_at"      db:"created_at"`
}

func (r Report) Key() int64 {
	return r.ID
}

package models

import "time"

// Tip is a piece of information submitted by the public about a case. Verified only ever moves from false to true.
type Tip struct {
	ID          int64     `json:"id"           db:"id"`
	CaseID      int64     `json:"caseId"       db:"case_id"`
	Reporter    string    `json:"reporter"     db:"reporter"`
	Content     string    `json:"content"      db:"content"`
	IsAnonymous bool      `json:"is_anonymous" db:"is_anonymous"`
	Verified    bool      `json:"verified"     db:"verified"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
}

func (t Tip) Key() int64 {
	return t.ID
}

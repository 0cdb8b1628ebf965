package models

import "time"

// RunStatus enumerates the run lifecycle states.
type RunStatus string

const (
	RunInProgress RunStatus = "in_progress"
	RunSubmitted  RunStatus = "submitted"
	RunApproved   RunStatus = "approved"
)

// Valid reports whether the status is one of the three lifecycle states.
func (s RunStatus) Valid() bool {
	switch s {
	case RunInProgress, RunSubmitted, RunApproved:
		return true
	}
	return false
}

// Run is one execution instance of a template. It always references the live
// template definition; TemplateVersion records the version seen at start.
type Run struct {
	ID                  string     `db:"id" json:"id"`
	TemplateID          string     `db:"template_id" json:"template_id"`
	TemplateVersion     int        `db:"template_version" json:"template_version"`
	Status              RunStatus  `db:"status" json:"status"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	StartedAt           time.Time  `db:"started_at" json:"started_at"`
	CompletedAt         *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedByEmployeeID *string    `db:"created_by_employee_id" json:"created_by_employee_id,omitempty"`
}

// RunFilter captures filtering criteria for listing runs. Date bounds are
// inclusive on both ends.
type RunFilter struct {
	Status     *RunStatus
	TemplateID string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

package models

import "time"

// ExportFormat enumerates supported export renderings.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// Valid reports whether the format is supported.
func (f ExportFormat) Valid() bool {
	return f == ExportFormatCSV || f == ExportFormatPDF
}

// ExportStatus enumerates export job states.
type ExportStatus string

const (
	ExportPending    ExportStatus = "pending"
	ExportProcessing ExportStatus = "processing"
	ExportCompleted  ExportStatus = "completed"
	ExportFailed     ExportStatus = "failed"
)

// ExportJob is an asynchronous export request. A job targets either a single
// run (RunID set) or every run matching the stored filter columns.
type ExportJob struct {
	ID           string       `db:"id" json:"id"`
	Format       ExportFormat `db:"format" json:"format"`
	Status       ExportStatus `db:"status" json:"status"`
	RunID        *string      `db:"run_id" json:"run_id,omitempty"`
	TemplateID   *string      `db:"template_id" json:"template_id,omitempty"`
	RunStatus    *RunStatus   `db:"run_status" json:"run_status,omitempty"`
	From         *time.Time   `db:"from_date" json:"from,omitempty"`
	To           *time.Time   `db:"to_date" json:"to,omitempty"`
	FilePath     *string      `db:"file_path" json:"-"`
	ErrorMessage *string      `db:"error_message" json:"error_message,omitempty"`
	RequestedBy  *string      `db:"requested_by" json:"requested_by,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
	CompletedAt  *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
}

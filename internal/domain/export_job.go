package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExportFormat enumerates supported export output formats.
type ExportFormat string

const (
	ExportFormatCSV   ExportFormat = "csv"
	ExportFormatExcel ExportFormat = "excel"
	ExportFormatJSON  ExportFormat = "json"
)

// ExportJobStatus captures lifecycle state for an export job.
type ExportJobStatus string

const (
	ExportJobStatusPending   ExportJobStatus = "pending"
	ExportJobStatusRunning   ExportJobStatus = "running"
	ExportJobStatusCompleted ExportJobStatus = "completed"
	ExportJobStatusFailed    ExportJobStatus = "failed"
	ExportJobStatusCancelled ExportJobStatus = "cancelled"
)

// ExportJob mirrors persisted export job metadata for dashboards and the
// background worker.
type ExportJob struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	EntityType     string          `json:"entity_type"`
	ExportName     string          `json:"export_name"`
	Columns        []string        `json:"columns"`
	Format         ExportFormat    `json:"format"`
	IncludeHeaders bool            `json:"include_headers"`
	RowsRequested  int             `json:"rows_requested"`
	RowsExported   int             `json:"rows_exported"`
	BytesWritten   int64           `json:"bytes_written"`
	FilePath       *string         `json:"file_path,omitempty"`
	FileMimeType   *string         `json:"file_mime_type,omitempty"`
	FileByteSize   *int64          `json:"file_byte_size,omitempty"`
	Status         ExportJobStatus `json:"status"`
	ErrorMessage   *string         `json:"error_message,omitempty"`
	CreatedBy      *uuid.UUID      `json:"created_by,omitempty"`
	EnqueuedAt     time.Time       `json:"enqueued_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ColumnsToJSON marshals the explicit column list for JSONB storage.
func (j ExportJob) ColumnsToJSON() (json.RawMessage, error) {
	columns := j.Columns
	if columns == nil {
		columns = []string{}
	}
	return json.Marshal(columns)
}

// ExportColumnsFromJSON hydrates a stored column list.
func ExportColumnsFromJSON(data []byte) ([]string, error) {
	if len(data) == 0 {
		return []string{}, nil
	}
	var columns []string
	if err := json.Unmarshal(data, &columns); err != nil {
		return nil, err
	}
	if columns == nil {
		columns = []string{}
	}
	return columns, nil
}

// MimeType returns the content type for the job's format.
func (f ExportFormat) MimeType() string {
	switch f {
	case ExportFormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ExportFormatJSON:
		return "application/json"
	default:
		return "text/csv"
	}
}

// FileExtension returns the file suffix for the job's format.
func (f ExportFormat) FileExtension() string {
	switch f {
	case ExportFormatExcel:
		return ".xlsx"
	case ExportFormatJSON:
		return ".json"
	default:
		return ".csv"
	}
}

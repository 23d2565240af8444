package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ImportJobStatus captures lifecycle state for an import job.
type ImportJobStatus string

const (
	ImportJobStatusPending    ImportJobStatus = "pending"
	ImportJobStatusProcessing ImportJobStatus = "processing"
	ImportJobStatusCompleted  ImportJobStatus = "completed"
	ImportJobStatusFailed     ImportJobStatus = "failed"
)

// ErrorHandlingMode controls how an import run reacts to invalid rows.
type ErrorHandlingMode string

const (
	ErrorHandlingSkip ErrorHandlingMode = "skip"
	ErrorHandlingStop ErrorHandlingMode = "stop"
	ErrorHandlingFlag ErrorHandlingMode = "flag"
)

// ImportOptions carries per-job behavior flags.
type ImportOptions struct {
	ErrorHandling           ErrorHandlingMode `json:"error_handling"`
	CreateMissingReferences bool              `json:"create_missing_references"`
	UpdateExisting          bool              `json:"update_existing"`
}

// DefaultImportOptions matches the UI defaults: skip bad rows, never create
// missing parents, never overwrite.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{ErrorHandling: ErrorHandlingSkip}
}

// ImportJob mirrors a persisted import job for dashboards and the worker.
type ImportJob struct {
	ID             uuid.UUID         `json:"id"`
	OrganizationID uuid.UUID         `json:"organization_id"`
	EntityType     string            `json:"entity_type"`
	FileName       string            `json:"file_name"`
	FieldMapping   map[string]string `json:"field_mapping"`
	Options        ImportOptions     `json:"options"`
	TotalRows      int               `json:"total_rows"`
	ProcessedRows  int               `json:"processed_rows"`
	ErrorRows      int               `json:"error_rows"`
	Status         ImportJobStatus   `json:"status"`
	ErrorMessage   *string           `json:"error_message,omitempty"`
	CreatedBy      *uuid.UUID        `json:"created_by,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	StartedAt      *time.Time        `json:"started_at,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// FieldMappingToJSON marshals the column mapping for JSONB storage.
func (j ImportJob) FieldMappingToJSON() (json.RawMessage, error) {
	mapping := j.FieldMapping
	if mapping == nil {
		mapping = map[string]string{}
	}
	return json.Marshal(mapping)
}

// FieldMappingFromJSON hydrates a stored column mapping.
func FieldMappingFromJSON(data []byte) (map[string]string, error) {
	if len(data) == 0 {
		return map[string]string{}, nil
	}
	var mapping map[string]string
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, err
	}
	if mapping == nil {
		mapping = map[string]string{}
	}
	return mapping, nil
}

// OptionsToJSON marshals import options for JSONB storage.
func (j ImportJob) OptionsToJSON() (json.RawMessage, error) {
	options := j.Options
	if options.ErrorHandling == "" {
		options.ErrorHandling = ErrorHandlingSkip
	}
	return json.Marshal(options)
}

// ImportOptionsFromJSON hydrates stored import options.
func ImportOptionsFromJSON(data []byte) (ImportOptions, error) {
	if len(data) == 0 {
		return DefaultImportOptions(), nil
	}
	var options ImportOptions
	if err := json.Unmarshal(data, &options); err != nil {
		return ImportOptions{}, err
	}
	if options.ErrorHandling == "" {
		options.ErrorHandling = ErrorHandlingSkip
	}
	return options, nil
}

// ImportLogEntry captures row-level issues that occur during an import run.
type ImportLogEntry struct {
	ID             uuid.UUID `json:"id"`
	ImportJobID    uuid.UUID `json:"import_job_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	RowNumber      *int      `json:"row_number,omitempty"`
	FieldName      string    `json:"field_name,omitempty"`
	ErrorMessage   string    `json:"error_message"`
	CreatedAt      time.Time `json:"created_at"`
}

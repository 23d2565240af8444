package repository

import (
	"context"
	"time"

	"github.com/rpattn/talentcrm/internal/domain"

	"github.com/google/uuid"
)

// ChangeEventRepository persists the append-only history event store.
// Events are inserted and read; never updated or deleted.
type ChangeEventRepository interface {
	Insert(ctx context.Context, event domain.ChangeEvent) error
	// InsertBatch writes all events in a single round-trip; either every
	// row persists or none do.
	InsertBatch(ctx context.Context, events []domain.ChangeEvent) error
	// Latest returns the most recent event for (org, entity type, entity id,
	// field), or nil when none exists.
	Latest(ctx context.Context, organizationID uuid.UUID, entityType string, entityID uuid.UUID, fieldName string) (*domain.ChangeEvent, error)
	ListByEntity(ctx context.Context, organizationID uuid.UUID, entityType string, entityID uuid.UUID, limit int, offset int) ([]domain.ChangeEvent, error)
}

// UserProfileRepository resolves actors. Both lookups tolerate "no such
// user" by returning nil rather than an error.
type UserProfileRepository interface {
	DisplayName(ctx context.Context, id uuid.UUID) (*string, error)
	ByExternalID(ctx context.Context, externalID string) (*uuid.UUID, error)
}

// ImportJobRepository stores import job lifecycle records.
type ImportJobRepository interface {
	Create(ctx context.Context, job domain.ImportJob) (domain.ImportJob, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.ImportJob, error)
	List(ctx context.Context, organizationID uuid.UUID, statuses []domain.ImportJobStatus, limit int, offset int) ([]domain.ImportJob, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	UpdateProgress(ctx context.Context, id uuid.UUID, processedRows int, errorRows int) error
	MarkCompleted(ctx context.Context, id uuid.UUID, processedRows int, errorRows int) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
}

// ImportLogRepository stores row-level import errors for observability.
type ImportLogRepository interface {
	Record(ctx context.Context, entry domain.ImportLogEntry) error
	List(ctx context.Context, importJobID uuid.UUID, limit int, offset int) ([]domain.ImportLogEntry, error)
}

// ExportJobRepository stores export job lifecycle records.
type ExportJobRepository interface {
	Create(ctx context.Context, job domain.ExportJob) (domain.ExportJob, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.ExportJob, error)
	List(ctx context.Context, organizationID *uuid.UUID, statuses []domain.ExportJobStatus, limit int, offset int) ([]domain.ExportJob, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	UpdateProgress(ctx context.Context, id uuid.UUID, rowsExported int, bytesWritten int64) error
	MarkCompleted(ctx context.Context, id uuid.UUID, result ExportResult) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
	MarkCancelled(ctx context.Context, id uuid.UUID, reason string) error
}

// ExportResult returns final file metadata for a completed export.
type ExportResult struct {
	RowsExported int
	BytesWritten int64
	FilePath     *string
	FileMimeType *string
	FileByteSize *int64
	ExpiresAt    *time.Time
}

// EntityRowRepository reads and writes rows of the per-entity CRM tables
// generically, driven by an EntityConfig. Import transforms feed InsertRows;
// export workers page through ListRows.
type EntityRowRepository interface {
	// InsertRows batch-inserts storage-ready rows (keyed by db column) into
	// the config's table, stamping org scope on every row.
	InsertRows(ctx context.Context, organizationID uuid.UUID, cfg domain.EntityConfig, rows []map[string]any) (int, error)
	// LookupID resolves a surrogate id by natural key, or nil when no row
	// matches.
	LookupID(ctx context.Context, organizationID uuid.UUID, table string, lookupColumn string, value string) (*uuid.UUID, error)
	// CreateMinimal inserts a stub parent row carrying only the natural key,
	// returning its id. Used by create-if-missing foreign keys.
	CreateMinimal(ctx context.Context, organizationID uuid.UUID, table string, lookupColumn string, value string) (uuid.UUID, error)
	// ListRows pages rows out of the config's table for export, restricted
	// to the requested columns.
	ListRows(ctx context.Context, organizationID uuid.UUID, cfg domain.EntityConfig, columns []string, limit int, offset int) ([]map[string]any, error)
	// CountRows returns the total row count for progress estimation.
	CountRows(ctx context.Context, organizationID uuid.UUID, cfg domain.EntityConfig) (int, error)
}

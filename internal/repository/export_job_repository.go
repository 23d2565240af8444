package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpattn/talentcrm/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrExportJobStatusConflict indicates that a job cannot transition to the
// requested state, usually because another worker got there first.
var ErrExportJobStatusConflict = errors.New("export job status conflict")

type exportJobRepository struct {
	pool *pgxpool.Pool
}

// NewExportJobRepository wires export job persistence backed by pgxpool.
func NewExportJobRepository(pool *pgxpool.Pool) ExportJobRepository {
	return &exportJobRepository{pool: pool}
}

const selectExportJobSQL = `SELECT
	id, organization_id, entity_type, export_name, columns, format,
	include_headers, rows_requested, rows_exported, bytes_written,
	file_path, file_mime_type, file_byte_size, status, error_message,
	created_by, enqueued_at, started_at, completed_at, expires_at, updated_at
FROM export_jobs`

func (r *exportJobRepository) Create(ctx context.Context, job domain.ExportJob) (domain.ExportJob, error) {
	if r.pool == nil {
		return domain.ExportJob{}, fmt.Errorf("export job repository not initialized")
	}

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}

	columnsJSON, err := job.ColumnsToJSON()
	if err != nil {
		return domain.ExportJob{}, fmt.Errorf("failed to marshal export columns: %w", err)
	}

	var createdBy any
	if job.CreatedBy != nil {
		createdBy = *job.CreatedBy
	}
	var expiresAt any
	if job.ExpiresAt != nil {
		expiresAt = *job.ExpiresAt
	}

	rowsRequested := job.RowsRequested
	if rowsRequested < 0 {
		rowsRequested = 0
	}

	_, err = r.pool.Exec(
		ctx,
		`INSERT INTO export_jobs (
			id, organization_id, entity_type, export_name, columns, format,
			include_headers, rows_requested, status, created_by, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		job.ID,
		job.OrganizationID,
		job.EntityType,
		job.ExportName,
		columnsJSON,
		string(job.Format),
		job.IncludeHeaders,
		rowsRequested,
		string(domain.ExportJobStatusPending),
		createdBy,
		expiresAt,
	)
	if err != nil {
		return domain.ExportJob{}, fmt.Errorf("failed to insert export job: %w", err)
	}

	return r.GetByID(ctx, job.ID)
}

func (r *exportJobRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.ExportJob, error) {
	if r.pool == nil {
		return domain.ExportJob{}, fmt.Errorf("export job repository not initialized")
	}

	row := r.pool.QueryRow(ctx, selectExportJobSQL+` WHERE id = $1`, id)
	job, err := scanExportJob(row)
	if err != nil {
		return domain.ExportJob{}, fmt.Errorf("failed to get export job: %w", err)
	}
	return job, nil
}

func (r *exportJobRepository) List(ctx context.Context, organizationID *uuid.UUID, statuses []domain.ExportJobStatus, limit int, offset int) ([]domain.ExportJob, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("export job repository not initialized")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	statusValues := make([]string, len(statuses))
	for i, status := range statuses {
		statusValues[i] = string(status)
	}

	var orgFilter any
	if organizationID != nil {
		orgFilter = *organizationID
	}

	rows, err := r.pool.Query(
		ctx,
		selectExportJobSQL+`
		 WHERE ($1::uuid IS NULL OR organization_id = $1)
		   AND (cardinality($2::text[]) = 0 OR status = ANY($2))
		 ORDER BY enqueued_at DESC
		 LIMIT $3 OFFSET $4`,
		orgFilter,
		statusValues,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list export jobs: %w", err)
	}
	defer rows.Close()

	jobs := []domain.ExportJob{}
	for rows.Next() {
		job, scanErr := scanExportJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan export job: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate export jobs: %w", rowsErr)
	}
	return jobs, nil
}

func (r *exportJobRepository) MarkRunning(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx,
		`UPDATE export_jobs
		 SET status = $2, started_at = now(), updated_at = now()
		 WHERE id = $1 AND status = $3`,
		id, string(domain.ExportJobStatusRunning), string(domain.ExportJobStatusPending))
}

func (r *exportJobRepository) UpdateProgress(ctx context.Context, id uuid.UUID, rowsExported int, bytesWritten int64) error {
	if r.pool == nil {
		return fmt.Errorf("export job repository not initialized")
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE export_jobs
		 SET rows_exported = $2, bytes_written = $3, updated_at = now()
		 WHERE id = $1`,
		id, rowsExported, bytesWritten)
	if err != nil {
		return fmt.Errorf("failed to update export progress: %w", err)
	}
	return nil
}

func (r *exportJobRepository) MarkCompleted(ctx context.Context, id uuid.UUID, result ExportResult) error {
	if r.pool == nil {
		return fmt.Errorf("export job repository not initialized")
	}

	var filePath, mimeType any
	if result.FilePath != nil {
		filePath = *result.FilePath
	}
	if result.FileMimeType != nil {
		mimeType = *result.FileMimeType
	}
	var byteSize any
	if result.FileByteSize != nil {
		byteSize = *result.FileByteSize
	}
	var expiresAt any
	if result.ExpiresAt != nil {
		expiresAt = *result.ExpiresAt
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE export_jobs
		 SET status = $2, rows_exported = $3, bytes_written = $4,
		     file_path = $5, file_mime_type = $6, file_byte_size = $7,
		     expires_at = COALESCE($8::timestamptz, expires_at),
		     completed_at = now(), updated_at = now()
		 WHERE id = $1 AND status = $9`,
		id,
		string(domain.ExportJobStatusCompleted),
		result.RowsExported,
		result.BytesWritten,
		filePath,
		mimeType,
		byteSize,
		expiresAt,
		string(domain.ExportJobStatusRunning),
	)
	if err != nil {
		return fmt.Errorf("failed to mark export job completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExportJobStatusConflict
	}
	return nil
}

func (r *exportJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	if r.pool == nil {
		return fmt.Errorf("export job repository not initialized")
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE export_jobs
		 SET status = $2, error_message = $3, completed_at = now(), updated_at = now()
		 WHERE id = $1 AND status <> $4`,
		id, string(domain.ExportJobStatusFailed), message, string(domain.ExportJobStatusCancelled))
	if err != nil {
		return fmt.Errorf("failed to mark export job failed: %w", err)
	}
	return nil
}

func (r *exportJobRepository) MarkCancelled(ctx context.Context, id uuid.UUID, reason string) error {
	return r.transition(ctx,
		`UPDATE export_jobs
		 SET status = $2, error_message = $3, completed_at = now(), updated_at = now()
		 WHERE id = $1 AND status = ANY($4)`,
		id,
		string(domain.ExportJobStatusCancelled),
		reason,
		[]string{string(domain.ExportJobStatusPending), string(domain.ExportJobStatusRunning)},
	)
}

func (r *exportJobRepository) transition(ctx context.Context, sql string, args ...any) error {
	if r.pool == nil {
		return fmt.Errorf("export job repository not initialized")
	}
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to transition export job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExportJobStatusConflict
	}
	return nil
}

func scanExportJob(row pgx.Row) (domain.ExportJob, error) {
	var (
		job          domain.ExportJob
		columnsJSON  []byte
		format       string
		status       string
		filePath     pgtype.Text
		mimeType     pgtype.Text
		byteSize     pgtype.Int8
		errorMessage pgtype.Text
		createdBy    pgtype.UUID
		startedAt    pgtype.Timestamptz
		completedAt  pgtype.Timestamptz
		expiresAt    pgtype.Timestamptz
	)

	if err := row.Scan(
		&job.ID,
		&job.OrganizationID,
		&job.EntityType,
		&job.ExportName,
		&columnsJSON,
		&format,
		&job.IncludeHeaders,
		&job.RowsRequested,
		&job.RowsExported,
		&job.BytesWritten,
		&filePath,
		&mimeType,
		&byteSize,
		&status,
		&errorMessage,
		&createdBy,
		&job.EnqueuedAt,
		&startedAt,
		&completedAt,
		&expiresAt,
		&job.UpdatedAt,
	); err != nil {
		return domain.ExportJob{}, err
	}

	columns, err := domain.ExportColumnsFromJSON(columnsJSON)
	if err != nil {
		return domain.ExportJob{}, fmt.Errorf("failed to unmarshal export columns: %w", err)
	}
	job.Columns = columns
	job.Format = domain.ExportFormat(format)
	job.Status = domain.ExportJobStatus(status)

	if filePath.Valid {
		job.FilePath = &filePath.String
	}
	if mimeType.Valid {
		job.FileMimeType = &mimeType.String
	}
	if byteSize.Valid {
		job.FileByteSize = &byteSize.Int64
	}
	if errorMessage.Valid {
		job.ErrorMessage = &errorMessage.String
	}
	if createdBy.Valid {
		id, convErr := uuid.FromBytes(createdBy.Bytes[:])
		if convErr != nil {
			return domain.ExportJob{}, fmt.Errorf("invalid created_by identifier: %w", convErr)
		}
		job.CreatedBy = &id
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	if expiresAt.Valid {
		job.ExpiresAt = &expiresAt.Time
	}
	return job, nil
}

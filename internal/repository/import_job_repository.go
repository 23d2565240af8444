package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/talentcrm/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type importJobRepository struct {
	pool *pgxpool.Pool
}

// NewImportJobRepository wires import job persistence backed by pgxpool.
func NewImportJobRepository(pool *pgxpool.Pool) ImportJobRepository {
	return &importJobRepository{pool: pool}
}

const selectImportJobSQL = `SELECT
	id, organization_id, entity_type, file_name, field_mapping, options,
	total_rows, processed_rows, error_rows, status, error_message,
	created_by, created_at, started_at, completed_at, updated_at
FROM import_jobs`

func (r *importJobRepository) Create(ctx context.Context, job domain.ImportJob) (domain.ImportJob, error) {
	if r.pool == nil {
		return domain.ImportJob{}, fmt.Errorf("import job repository not initialized")
	}

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}

	mappingJSON, err := job.FieldMappingToJSON()
	if err != nil {
		return domain.ImportJob{}, fmt.Errorf("failed to marshal field mapping: %w", err)
	}
	optionsJSON, err := job.OptionsToJSON()
	if err != nil {
		return domain.ImportJob{}, fmt.Errorf("failed to marshal import options: %w", err)
	}

	var createdBy any
	if job.CreatedBy != nil {
		createdBy = *job.CreatedBy
	}

	_, err = r.pool.Exec(
		ctx,
		`INSERT INTO import_jobs (
			id, organization_id, entity_type, file_name, field_mapping,
			options, total_rows, status, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID,
		job.OrganizationID,
		job.EntityType,
		job.FileName,
		mappingJSON,
		optionsJSON,
		job.TotalRows,
		string(domain.ImportJobStatusPending),
		createdBy,
	)
	if err != nil {
		return domain.ImportJob{}, fmt.Errorf("failed to insert import job: %w", err)
	}

	return r.GetByID(ctx, job.ID)
}

func (r *importJobRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.ImportJob, error) {
	if r.pool == nil {
		return domain.ImportJob{}, fmt.Errorf("import job repository not initialized")
	}

	row := r.pool.QueryRow(ctx, selectImportJobSQL+` WHERE id = $1`, id)
	job, err := scanImportJob(row)
	if err != nil {
		return domain.ImportJob{}, fmt.Errorf("failed to get import job: %w", err)
	}
	return job, nil
}

func (r *importJobRepository) List(ctx context.Context, organizationID uuid.UUID, statuses []domain.ImportJobStatus, limit int, offset int) ([]domain.ImportJob, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("import job repository not initialized")
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

	query := selectImportJobSQL + ` WHERE organization_id = $1`
	args := []any{organizationID}
	if len(statusValues) > 0 {
		query += ` AND status = ANY($2) ORDER BY created_at DESC LIMIT $3 OFFSET $4`
		args = append(args, statusValues, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list import jobs: %w", err)
	}
	defer rows.Close()

	jobs := []domain.ImportJob{}
	for rows.Next() {
		job, scanErr := scanImportJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan import job: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate import jobs: %w", rowsErr)
	}
	return jobs, nil
}

func (r *importJobRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx,
		`UPDATE import_jobs
		 SET status = $2, started_at = now(), updated_at = now()
		 WHERE id = $1 AND status = $3`,
		id, string(domain.ImportJobStatusProcessing), string(domain.ImportJobStatusPending))
}

func (r *importJobRepository) UpdateProgress(ctx context.Context, id uuid.UUID, processedRows int, errorRows int) error {
	return r.exec(ctx,
		`UPDATE import_jobs
		 SET processed_rows = $2, error_rows = $3, updated_at = now()
		 WHERE id = $1`,
		id, processedRows, errorRows)
}

func (r *importJobRepository) MarkCompleted(ctx context.Context, id uuid.UUID, processedRows int, errorRows int) error {
	return r.exec(ctx,
		`UPDATE import_jobs
		 SET status = $2, processed_rows = $3, error_rows = $4,
		     completed_at = now(), updated_at = now()
		 WHERE id = $1`,
		id, string(domain.ImportJobStatusCompleted), processedRows, errorRows)
}

func (r *importJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	return r.exec(ctx,
		`UPDATE import_jobs
		 SET status = $2, error_message = $3, completed_at = now(), updated_at = now()
		 WHERE id = $1`,
		id, string(domain.ImportJobStatusFailed), message)
}

func (r *importJobRepository) exec(ctx context.Context, sql string, args ...any) error {
	if r.pool == nil {
		return fmt.Errorf("import job repository not initialized")
	}
	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to update import job: %w", err)
	}
	return nil
}

func scanImportJob(row pgx.Row) (domain.ImportJob, error) {
	var (
		job          domain.ImportJob
		mappingJSON  []byte
		optionsJSON  []byte
		status       string
		errorMessage pgtype.Text
		createdBy    pgtype.UUID
		startedAt    pgtype.Timestamptz
		completedAt  pgtype.Timestamptz
	)

	if err := row.Scan(
		&job.ID,
		&job.OrganizationID,
		&job.EntityType,
		&job.FileName,
		&mappingJSON,
		&optionsJSON,
		&job.TotalRows,
		&job.ProcessedRows,
		&job.ErrorRows,
		&status,
		&errorMessage,
		&createdBy,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
		&job.UpdatedAt,
	); err != nil {
		return domain.ImportJob{}, err
	}

	mapping, err := domain.FieldMappingFromJSON(mappingJSON)
	if err != nil {
		return domain.ImportJob{}, fmt.Errorf("failed to unmarshal field mapping: %w", err)
	}
	job.FieldMapping = mapping

	options, err := domain.ImportOptionsFromJSON(optionsJSON)
	if err != nil {
		return domain.ImportJob{}, fmt.Errorf("failed to unmarshal import options: %w", err)
	}
	job.Options = options

	job.Status = domain.ImportJobStatus(status)
	if errorMessage.Valid {
		job.ErrorMessage = &errorMessage.String
	}
	if createdBy.Valid {
		id, convErr := uuid.FromBytes(createdBy.Bytes[:])
		if convErr != nil {
			return domain.ImportJob{}, fmt.Errorf("invalid created_by identifier: %w", convErr)
		}
		job.CreatedBy = &id
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return job, nil
}

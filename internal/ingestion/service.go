package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/rpattn/talentcrm/internal/domain"
	"github.com/rpattn/talentcrm/internal/history"
	"github.com/rpattn/talentcrm/internal/repository"

	"github.com/google/uuid"
)

var errJobNotRunnable = errors.New("import job is no longer runnable")

// Service orchestrates import runs: parse, validate, transform, resolve
// foreign keys, persist, and record history. Job state lives in the import
// job repository; the run itself happens on a background worker.
type Service struct {
	jobs     repository.ImportJobRepository
	logs     repository.ImportLogRepository
	entities repository.EntityRowRepository
	history  *history.Service

	jobTimeout time.Duration
	batchSize  int
	now        func() time.Time

	workerWG sync.WaitGroup
}

// Option customizes a Service.
type Option func(*Service)

func WithJobTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.jobTimeout = timeout
		}
	}
}

func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

func NewService(
	jobs repository.ImportJobRepository,
	logs repository.ImportLogRepository,
	entities repository.EntityRowRepository,
	historyService *history.Service,
	opts ...Option,
) *Service {
	service := &Service{
		jobs:       jobs,
		logs:       logs,
		entities:   entities,
		history:    historyService,
		jobTimeout: 30 * time.Minute,
		batchSize:  200,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// PreviewRequest asks for a parse-and-validate dry run of an uploaded file.
type PreviewRequest struct {
	OrganizationID uuid.UUID
	EntityType     string
	FileName       string
	Payload        []byte
	FieldMapping   map[string]string
	SampleLimit    int
}

// PreviewResult reports what an import of the file would do, without
// writing anything.
type PreviewResult struct {
	Headers          []string            `json:"headers"`
	SampleRows       []map[string]string `json:"sample_rows"`
	TotalRows        int                 `json:"total_rows"`
	ParseErrors      []RowError          `json:"parse_errors,omitempty"`
	SuggestedMapping map[string]string   `json:"suggested_mapping"`
	Validation       ValidationResult    `json:"validation"`
}

// Preview parses and validates a file without creating a job. When the
// caller supplies no mapping, one is suggested by matching normalized
// headers against field names.
func (s *Service) Preview(_ context.Context, req PreviewRequest) (PreviewResult, error) {
	cfg, err := requireImportable(req.EntityType)
	if err != nil {
		return PreviewResult{}, err
	}

	data, err := ParseFile(req.FileName, req.Payload)
	if err != nil {
		return PreviewResult{}, err
	}

	mapping := req.FieldMapping
	if len(mapping) == 0 {
		mapping = SuggestFieldMapping(data.Headers, cfg)
	}

	limit := req.SampleLimit
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	sample := data.Rows
	if len(sample) > limit {
		sample = sample[:limit]
	}

	return PreviewResult{
		Headers:          data.Headers,
		SampleRows:       sample,
		TotalRows:        data.TotalRows,
		ParseErrors:      data.Errors,
		SuggestedMapping: mapping,
		Validation:       ValidateRows(data.Rows, cfg, mapping),
	}, nil
}

// ImportRequest creates and starts an import job.
type ImportRequest struct {
	OrganizationID uuid.UUID
	EntityType     string
	FileName       string
	Payload        []byte
	FieldMapping   map[string]string
	Options        domain.ImportOptions
	CreatedBy      *uuid.UUID
}

// StartImport persists a pending job and launches the background run. The
// file is parsed up front so obviously broken uploads fail synchronously.
func (s *Service) StartImport(ctx context.Context, req ImportRequest) (domain.ImportJob, error) {
	cfg, err := requireImportable(req.EntityType)
	if err != nil {
		return domain.ImportJob{}, err
	}
	if req.OrganizationID == uuid.Nil {
		return domain.ImportJob{}, errors.New("organization ID is required")
	}

	data, err := ParseFile(req.FileName, req.Payload)
	if err != nil {
		return domain.ImportJob{}, err
	}

	mapping := req.FieldMapping
	if len(mapping) == 0 {
		mapping = SuggestFieldMapping(data.Headers, cfg)
	}

	options := req.Options
	if options.ErrorHandling == "" {
		options.ErrorHandling = domain.ErrorHandlingSkip
	}

	job, err := s.jobs.Create(ctx, domain.ImportJob{
		ID:             uuid.New(),
		OrganizationID: req.OrganizationID,
		EntityType:     cfg.Name,
		FileName:       req.FileName,
		FieldMapping:   mapping,
		Options:        options,
		TotalRows:      data.TotalRows,
		Status:         domain.ImportJobStatusPending,
		CreatedBy:      req.CreatedBy,
	})
	if err != nil {
		return domain.ImportJob{}, fmt.Errorf("failed to create import job: %w", err)
	}

	s.launchWorker(job, cfg, data)
	return job, nil
}

// GetJob returns one import job.
func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (domain.ImportJob, error) {
	return s.jobs.GetByID(ctx, id)
}

// ListJobs returns import jobs for an organization, newest first.
func (s *Service) ListJobs(ctx context.Context, organizationID uuid.UUID, statuses []domain.ImportJobStatus, limit, offset int) ([]domain.ImportJob, error) {
	return s.jobs.List(ctx, organizationID, statuses, limit, offset)
}

// ListLogs returns row-level log entries for a job.
func (s *Service) ListLogs(ctx context.Context, jobID uuid.UUID, limit, offset int) ([]domain.ImportLogEntry, error) {
	return s.logs.List(ctx, jobID, limit, offset)
}

// Wait blocks until all launched workers have finished. Used by tests and
// graceful shutdown.
func (s *Service) Wait() {
	s.workerWG.Wait()
}

func (s *Service) launchWorker(job domain.ImportJob, cfg domain.EntityConfig, data ParsedData) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	s.workerWG.Add(1)
	go func() {
		defer s.workerWG.Done()
		defer cancel()
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[import] panic while processing job %s: %v", job.ID, rec)
				s.failJob(context.Background(), job.ID, fmt.Errorf("panic: %v", rec))
			}
		}()
		if err := s.run(ctx, job, cfg, data); err != nil {
			switch {
			case errors.Is(err, errJobNotRunnable):
				log.Printf("[import] job %s not runnable, skipping", job.ID)
			default:
				s.failJob(ctx, job.ID, err)
			}
		}
	}()
}

func (s *Service) failJob(ctx context.Context, jobID uuid.UUID, err error) {
	if err == nil {
		return
	}
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}
	if markErr := s.jobs.MarkFailed(ctx, jobID, truncateError(err)); markErr != nil {
		log.Printf("[import] failed to mark job %s as failed: %v (original error: %v)", jobID, markErr, err)
		return
	}
	log.Printf("[import] job %s failed: %v", jobID, err)
}

func (s *Service) run(ctx context.Context, job domain.ImportJob, cfg domain.EntityConfig, data ParsedData) error {
	if err := s.jobs.MarkProcessing(ctx, job.ID); err != nil {
		return errJobNotRunnable
	}

	for _, parseErr := range data.Errors {
		row := parseErr.Row
		s.logIssue(ctx, job, &row, "", parseErr.Message)
	}

	validation := ValidateRows(data.Rows, cfg, job.FieldMapping)

	processed := 0
	errorRows := 0
	var batch []map[string]any
	var batchEvents []pendingCreatedEvent

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := s.entities.InsertRows(ctx, job.OrganizationID, cfg, batch); err != nil {
			return fmt.Errorf("failed to insert %s rows: %w", cfg.Name, err)
		}
		for _, pending := range batchEvents {
			s.history.RecordEntityCreated(ctx, cfg.Name, pending.id, history.ChangeContext{
				OrganizationID: job.OrganizationID,
				ActorID:        job.CreatedBy,
				CorrelationID:  job.ID,
				Automated:      true,
			}, history.CreatedOptions{
				EntityName: pending.name,
				Metadata:   domain.Metadata{"import_job_id": job.ID.String()},
			})
		}
		batch = batch[:0]
		batchEvents = batchEvents[:0]
		return nil
	}

	for i, row := range data.Rows {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rowNumber := i + 1

		if validation.RowHasError(rowNumber) {
			errorRows++
			for _, issue := range validation.RowIssues(rowNumber) {
				if issue.Warning {
					continue
				}
				s.logIssue(ctx, job, &rowNumber, issue.Field, issue.Message)
			}
			switch job.Options.ErrorHandling {
			case domain.ErrorHandlingStop:
				if err := flush(); err != nil {
					return err
				}
				return fmt.Errorf("stopped at row %d: %d validation error(s)", rowNumber, errorRows)
			case domain.ErrorHandlingFlag:
				// Import the row anyway; invalid values transform to nil.
			default:
				continue
			}
		}

		record := TransformRow(row, cfg, job.FieldMapping)
		fkIssues := s.resolveForeignKeys(ctx, job, cfg, record)
		if len(fkIssues) > 0 {
			// Same treatment as validation errors; a row already counted
			// there is not counted twice.
			if !validation.RowHasError(rowNumber) {
				errorRows++
			}
			for _, issue := range fkIssues {
				s.logIssue(ctx, job, &rowNumber, issue.Field, issue.Message)
			}
			switch job.Options.ErrorHandling {
			case domain.ErrorHandlingStop:
				if err := flush(); err != nil {
					return err
				}
				return fmt.Errorf("stopped at row %d: unresolved reference", rowNumber)
			case domain.ErrorHandlingFlag:
				// Import the row without the unresolved reference.
			default:
				continue
			}
		}

		id := uuid.New()
		record["id"] = id
		batch = append(batch, record)
		batchEvents = append(batchEvents, pendingCreatedEvent{id: id, name: displayValue(record, cfg)})
		processed++

		if len(batch) >= s.batchSize {
			if err := flush(); err != nil {
				return err
			}
			if err := s.jobs.UpdateProgress(ctx, job.ID, processed, errorRows); err != nil {
				return fmt.Errorf("failed to update import progress: %w", err)
			}
		}
	}

	if err := flush(); err != nil {
		return err
	}
	if err := s.jobs.MarkCompleted(ctx, job.ID, processed, errorRows); err != nil {
		return fmt.Errorf("failed to mark import completed: %w", err)
	}
	log.Printf("[import] job %s completed (rows=%d errors=%d)", job.ID, processed, errorRows)
	return nil
}

type pendingCreatedEvent struct {
	id   uuid.UUID
	name string
}

// resolveForeignKeys applies the config's foreign keys, honoring the job's
// create-missing-references option over the per-key declaration.
func (s *Service) resolveForeignKeys(ctx context.Context, job domain.ImportJob, cfg domain.EntityConfig, record map[string]any) []FieldIssue {
	effective := cfg
	if !job.Options.CreateMissingReferences {
		keys := make([]domain.ForeignKeySpec, len(cfg.ForeignKeys))
		copy(keys, cfg.ForeignKeys)
		for i := range keys {
			keys[i].CreateIfMissing = false
		}
		effective.ForeignKeys = keys
	}
	return ResolveForeignKeys(ctx, s.entities, job.OrganizationID, effective, record)
}

func (s *Service) logIssue(ctx context.Context, job domain.ImportJob, rowNumber *int, fieldName, message string) {
	entry := domain.ImportLogEntry{
		ID:             uuid.New(),
		ImportJobID:    job.ID,
		OrganizationID: job.OrganizationID,
		RowNumber:      rowNumber,
		FieldName:      fieldName,
		ErrorMessage:   message,
		CreatedAt:      s.now(),
	}
	if err := s.logs.Record(ctx, entry); err != nil {
		log.Printf("[import] failed to record log entry for job %s: %v", job.ID, err)
	}
}

// SuggestFieldMapping matches normalized file headers against field names
// and display names, yielding a source-column → field-name mapping.
func SuggestFieldMapping(headers []string, cfg domain.EntityConfig) map[string]string {
	byName := map[string]string{}
	for _, field := range cfg.ImportableFields() {
		byName[field.Name] = field.Name
		byName[normalizeHeader(field.DisplayName)] = field.Name
		byName[field.DBColumn] = field.Name
	}

	mapping := map[string]string{}
	for _, header := range headers {
		if fieldName, ok := byName[header]; ok {
			mapping[header] = fieldName
		}
	}
	return mapping
}

// displayValue picks a human-readable name from a transformed record for
// history labels.
func displayValue(record map[string]any, cfg domain.EntityConfig) string {
	for _, candidate := range []string{"name", "full_name", "first_name", "title", "subject"} {
		if value, ok := record[candidate].(string); ok && strings.TrimSpace(value) != "" {
			if candidate == "first_name" {
				if last, ok := record["last_name"].(string); ok && last != "" {
					return value + " " + last
				}
			}
			return value
		}
	}
	return ""
}

func requireImportable(entityType string) (domain.EntityConfig, error) {
	cfg, ok := domain.GetEntityConfig(entityType)
	if !ok {
		return domain.EntityConfig{}, fmt.Errorf("unknown entity type %q", entityType)
	}
	if len(cfg.ImportableFields()) == 0 {
		return domain.EntityConfig{}, fmt.Errorf("entity type %q is not importable", entityType)
	}
	return cfg, nil
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	const maxLen = 512
	msg := err.Error()
	if len(msg) > maxLen {
		return msg[:maxLen]
	}
	return msg
}

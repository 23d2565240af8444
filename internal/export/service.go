package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rpattn/talentcrm/internal/domain"
	"github.com/rpattn/talentcrm/internal/repository"

	"github.com/google/uuid"
)

var errJobNotRunnable = errors.New("export job is no longer runnable")

// Service queues export jobs and runs them on background workers: page rows
// out of the store, write the file in the requested format, promote it, and
// sign short-lived download URLs.
type Service struct {
	jobs     repository.ExportJobRepository
	entities repository.EntityRowRepository

	exportDir  string
	jobTimeout time.Duration
	pageSize   int
	fileTTL    time.Duration
	now        func() time.Time

	downloadSigner *downloadSigner

	workerCancels sync.Map // map[uuid.UUID]context.CancelFunc
	workerWG      sync.WaitGroup
}

type Option func(*Service)

func WithExportDirectory(dir string) Option {
	return func(s *Service) {
		if strings.TrimSpace(dir) != "" {
			s.exportDir = filepath.Clean(dir)
		}
	}
}

func WithJobTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.jobTimeout = timeout
		}
	}
}

func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithDownloadTokenTTL customizes the TTL for generated download links.
func WithDownloadTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.downloadSigner = newDownloadSigner(ttl)
		}
	}
}

// WithFileTTL controls how long completed export files stay downloadable.
func WithFileTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.fileTTL = ttl
		}
	}
}

func NewService(jobs repository.ExportJobRepository, entities repository.EntityRowRepository, opts ...Option) *Service {
	service := &Service{
		jobs:       jobs,
		entities:   entities,
		exportDir:  filepath.Join(os.TempDir(), "talentcrm-exports"),
		jobTimeout: 30 * time.Minute,
		pageSize:   1000,
		fileTTL:    24 * time.Hour,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(service)
	}
	if service.downloadSigner == nil {
		service.downloadSigner = newDownloadSigner(5 * time.Minute)
	}
	return service
}

// ExportRequest queues an export of one entity type.
type ExportRequest struct {
	OrganizationID uuid.UUID
	EntityType     string
	ExportName     string
	Columns        []string
	Format         domain.ExportFormat
	IncludeHeaders bool
	CreatedBy      *uuid.UUID
}

// Queue validates the request, persists a pending job, and launches the
// worker. Non-exportable and unknown columns are rejected up front.
func (s *Service) Queue(ctx context.Context, req ExportRequest) (domain.ExportJob, error) {
	if req.OrganizationID == uuid.Nil {
		return domain.ExportJob{}, errors.New("organization ID is required")
	}
	cfg, ok := domain.GetEntityConfig(strings.TrimSpace(req.EntityType))
	if !ok {
		return domain.ExportJob{}, fmt.Errorf("unknown entity type %q", req.EntityType)
	}

	columns, err := resolveColumns(cfg, req.Columns)
	if err != nil {
		return domain.ExportJob{}, err
	}

	format := req.Format
	switch format {
	case domain.ExportFormatCSV, domain.ExportFormatExcel, domain.ExportFormatJSON:
	case "":
		format = domain.ExportFormatCSV
	default:
		return domain.ExportJob{}, fmt.Errorf("unsupported export format %q", req.Format)
	}

	total, err := s.entities.CountRows(ctx, req.OrganizationID, cfg)
	if err != nil {
		return domain.ExportJob{}, fmt.Errorf("failed to count %s rows: %w", cfg.Name, err)
	}

	job, err := s.jobs.Create(ctx, domain.ExportJob{
		ID:             uuid.New(),
		OrganizationID: req.OrganizationID,
		EntityType:     cfg.Name,
		ExportName:     strings.TrimSpace(req.ExportName),
		Columns:        columns,
		Format:         format,
		IncludeHeaders: req.IncludeHeaders,
		RowsRequested:  total,
		Status:         domain.ExportJobStatusPending,
		CreatedBy:      req.CreatedBy,
	})
	if err != nil {
		return domain.ExportJob{}, fmt.Errorf("failed to create export job: %w", err)
	}

	s.launchWorker(job, cfg)
	return job, nil
}

// GetJob returns one export job.
func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (domain.ExportJob, error) {
	return s.jobs.GetByID(ctx, id)
}

// ListJobs returns export jobs, optionally filtered by organization and
// status.
func (s *Service) ListJobs(ctx context.Context, organizationID *uuid.UUID, statuses []domain.ExportJobStatus, limit, offset int) ([]domain.ExportJob, error) {
	return s.jobs.List(ctx, organizationID, statuses, limit, offset)
}

// CancelJob requests cancellation for a pending or running export job.
func (s *Service) CancelJob(ctx context.Context, id uuid.UUID) (domain.ExportJob, error) {
	if id == uuid.Nil {
		return domain.ExportJob{}, errors.New("job ID is required")
	}
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return domain.ExportJob{}, err
	}
	if job.Status != domain.ExportJobStatusPending && job.Status != domain.ExportJobStatusRunning {
		return job, fmt.Errorf("export job in status %s cannot be cancelled", job.Status)
	}
	if err := s.jobs.MarkCancelled(ctx, id, "Cancelled by user"); err != nil {
		if errors.Is(err, repository.ErrExportJobStatusConflict) {
			return s.jobs.GetByID(ctx, id)
		}
		return domain.ExportJob{}, err
	}
	if cancel, ok := s.workerCancels.LoadAndDelete(id); ok {
		if fn, okCast := cancel.(context.CancelFunc); okCast {
			fn()
		}
	}
	return s.jobs.GetByID(ctx, id)
}

// BuildDownloadURL returns a signed relative download URL for a completed
// job, or nil when no file is available.
func (s *Service) BuildDownloadURL(job domain.ExportJob) (*string, error) {
	if job.Status != domain.ExportJobStatusCompleted {
		return nil, nil
	}
	if job.FilePath == nil || strings.TrimSpace(*job.FilePath) == "" {
		return nil, nil
	}
	token := s.downloadSigner.Sign(job.ID, s.now())
	values := url.Values{}
	values.Set("token", token)
	download := fmt.Sprintf("/exports/files/%s?%s", job.ID.String(), values.Encode())
	return &download, nil
}

// ValidateDownloadToken ensures the token is valid for the given job.
func (s *Service) ValidateDownloadToken(jobID uuid.UUID, token string) error {
	return s.downloadSigner.Verify(jobID, token, s.now())
}

// OpenJobFile opens the completed export file for streaming to the client.
func (s *Service) OpenJobFile(job domain.ExportJob) (*os.File, error) {
	if job.Status != domain.ExportJobStatusCompleted {
		return nil, errors.New("export is not completed")
	}
	if job.FilePath == nil || strings.TrimSpace(*job.FilePath) == "" {
		return nil, errors.New("export file is unavailable")
	}
	if job.ExpiresAt != nil && s.now().After(*job.ExpiresAt) {
		return nil, errors.New("export file has expired")
	}
	file, err := os.Open(*job.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	return file, nil
}

// Wait blocks until all launched workers have finished. Used by tests and
// graceful shutdown.
func (s *Service) Wait() {
	s.workerWG.Wait()
}

func (s *Service) launchWorker(job domain.ExportJob, cfg domain.EntityConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	s.workerCancels.Store(job.ID, cancel)
	s.workerWG.Add(1)
	go func() {
		defer s.workerWG.Done()
		defer func() {
			cancel()
			s.workerCancels.Delete(job.ID)
		}()
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[export] panic while processing job %s: %v", job.ID, rec)
				s.failJob(context.Background(), job.ID, fmt.Errorf("panic: %v", rec))
			}
		}()
		if err := s.run(ctx, job, cfg); err != nil {
			switch {
			case errors.Is(err, context.Canceled):
				log.Printf("[export] job %s cancelled", job.ID)
			case errors.Is(err, errJobNotRunnable):
				log.Printf("[export] job %s not runnable, skipping", job.ID)
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
		log.Printf("[export] failed to mark job %s as failed: %v (original error: %v)", jobID, markErr, err)
		return
	}
	log.Printf("[export] job %s failed: %v", jobID, err)
}

func (s *Service) run(ctx context.Context, job domain.ExportJob, cfg domain.EntityConfig) error {
	if err := s.jobs.MarkRunning(ctx, job.ID); err != nil {
		if errors.Is(err, repository.ErrExportJobStatusConflict) {
			return errJobNotRunnable
		}
		return fmt.Errorf("failed to mark export running: %w", err)
	}
	if err := s.ensureExportDirectory(); err != nil {
		return err
	}

	switch job.Format {
	case domain.ExportFormatCSV:
		return s.runCSV(ctx, job, cfg)
	default:
		return s.runBuffered(ctx, job, cfg)
	}
}

// runCSV streams pages straight to disk; memory stays flat regardless of
// table size.
func (s *Service) runCSV(ctx context.Context, job domain.ExportJob, cfg domain.EntityConfig) error {
	tempFile, err := os.CreateTemp(s.exportDir, fmt.Sprintf("%s-*.csv", job.ID))
	if err != nil {
		return fmt.Errorf("failed to create temp export file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = tempFile.Close()
			_ = os.Remove(tempPath)
		}
	}()

	buffered := bufio.NewWriterSize(tempFile, 1<<20)
	counter := &countingWriter{writer: buffered}
	csvWriter := csv.NewWriter(counter)

	if job.IncludeHeaders {
		if err := csvWriter.Write(job.Columns); err != nil {
			return fmt.Errorf("failed to write export header: %w", err)
		}
	}

	record := make([]string, len(job.Columns))
	rowsExported := 0
	offset := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		page, err := s.entities.ListRows(ctx, job.OrganizationID, cfg, job.Columns, s.pageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to list %s rows: %w", cfg.Name, err)
		}
		if len(page) == 0 {
			break
		}
		for _, row := range page {
			for i, column := range job.Columns {
				record[i] = formatValue(row[column])
			}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write export row: %w", err)
			}
			rowsExported++
		}
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			return fmt.Errorf("failed to flush export rows: %w", err)
		}
		if err := buffered.Flush(); err != nil {
			return fmt.Errorf("failed to flush export buffer: %w", err)
		}
		if err := s.jobs.UpdateProgress(ctx, job.ID, rowsExported, counter.count); err != nil {
			return fmt.Errorf("failed to update export progress: %w", err)
		}
		if len(page) < s.pageSize {
			break
		}
		offset += s.pageSize
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed on final csv flush: %w", err)
	}
	if err := buffered.Flush(); err != nil {
		return fmt.Errorf("failed on final buffer flush: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync export file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}

	cleanup = false
	return s.promote(ctx, job, tempPath, rowsExported, counter.count)
}

// runBuffered collects all pages and serializes once; xlsx and json formats
// have no incremental writer worth the complexity.
func (s *Service) runBuffered(ctx context.Context, job domain.ExportJob, cfg domain.EntityConfig) error {
	var rows []map[string]any
	offset := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		page, err := s.entities.ListRows(ctx, job.OrganizationID, cfg, job.Columns, s.pageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to list %s rows: %w", cfg.Name, err)
		}
		rows = append(rows, page...)
		if err := s.jobs.UpdateProgress(ctx, job.ID, len(rows), 0); err != nil {
			return fmt.Errorf("failed to update export progress: %w", err)
		}
		if len(page) < s.pageSize {
			break
		}
		offset += s.pageSize
	}

	var payload []byte
	switch job.Format {
	case domain.ExportFormatExcel:
		data, err := GenerateExcel(job.Columns, rows, job.IncludeHeaders, cfg.DisplayName)
		if err != nil {
			return err
		}
		payload = data
	case domain.ExportFormatJSON:
		text, err := GenerateJSON(job.Columns, rows)
		if err != nil {
			return err
		}
		payload = []byte(text)
	default:
		return fmt.Errorf("unsupported export format %q", job.Format)
	}

	tempFile, err := os.CreateTemp(s.exportDir, fmt.Sprintf("%s-*%s", job.ID, job.Format.FileExtension()))
	if err != nil {
		return fmt.Errorf("failed to create temp export file: %w", err)
	}
	tempPath := tempFile.Name()
	if _, err := tempFile.Write(payload); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to write export file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to close export file: %w", err)
	}

	return s.promote(ctx, job, tempPath, len(rows), int64(len(payload)))
}

func (s *Service) promote(ctx context.Context, job domain.ExportJob, tempPath string, rowsExported int, bytesWritten int64) error {
	finalPath := filepath.Join(s.exportDir, s.finalFileName(job))
	if err := os.Rename(tempPath, finalPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to promote export file: %w", err)
	}
	info, err := os.Stat(finalPath)
	if err != nil {
		return fmt.Errorf("failed to stat export file: %w", err)
	}
	size := info.Size()
	if bytesWritten == 0 {
		bytesWritten = size
	}
	mime := job.Format.MimeType()
	expires := s.now().Add(s.fileTTL)
	if err := s.jobs.MarkCompleted(ctx, job.ID, repository.ExportResult{
		RowsExported: rowsExported,
		BytesWritten: bytesWritten,
		FilePath:     &finalPath,
		FileMimeType: &mime,
		FileByteSize: &size,
		ExpiresAt:    &expires,
	}); err != nil {
		return fmt.Errorf("failed to mark export completed: %w", err)
	}
	log.Printf("[export] job %s completed (rows=%d path=%s)", job.ID, rowsExported, finalPath)
	return nil
}

func (s *Service) ensureExportDirectory() error {
	if strings.TrimSpace(s.exportDir) == "" {
		return errors.New("export directory is not configured")
	}
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure export directory: %w", err)
	}
	return nil
}

func (s *Service) finalFileName(job domain.ExportJob) string {
	base := sanitizeFileComponent(job.ExportName)
	if base == "" {
		base = sanitizeFileComponent(job.EntityType)
	}
	if base == "" {
		base = "export"
	}
	return fmt.Sprintf("%s-%s%s", base, job.ID.String(), job.Format.FileExtension())
}

// resolveColumns maps requested column names onto exportable db columns.
// An empty request means every exportable field. Fields marked
// non-exportable are rejected, never silently included.
func resolveColumns(cfg domain.EntityConfig, requested []string) ([]string, error) {
	exportable := cfg.ExportableFields()
	if len(exportable) == 0 {
		return nil, fmt.Errorf("entity type %q is not exportable", cfg.Name)
	}

	if len(requested) == 0 {
		columns := make([]string, len(exportable))
		for i, field := range exportable {
			columns[i] = field.DBColumn
		}
		return columns, nil
	}

	columns := make([]string, 0, len(requested))
	for _, name := range requested {
		field, ok := cfg.FieldByName(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown column %q for entity type %q", name, cfg.Name)
		}
		if !field.Exportable {
			return nil, fmt.Errorf("column %q is not exportable", name)
		}
		columns = append(columns, field.DBColumn)
	}
	return columns, nil
}

func sanitizeFileComponent(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	builder := strings.Builder{}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			builder.WriteRune(r)
		case r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '-' || r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('-')
		}
	}
	return strings.Trim(builder.String(), "-")
}

type countingWriter struct {
	writer *bufio.Writer
	count  int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.writer.Write(p)
	c.count += int64(n)
	return n, err
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

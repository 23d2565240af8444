package export

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rpattn/talentcrm/internal/auth"
	"github.com/rpattn/talentcrm/internal/domain"

	"github.com/google/uuid"
)

// Handler exposes export jobs over HTTP: queue, list, inspect, cancel, and
// token-gated file download.
type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/files/"):
		h.handleDownload(w, r)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/cancel"):
		h.handleCancel(w, r)
	case r.Method == http.MethodPost:
		h.handleQueue(w, r)
	case r.Method == http.MethodGet && pathJobID(r.URL.Path) != "":
		h.handleGetJob(w, r)
	case r.Method == http.MethodGet:
		h.handleListJobs(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

type queuePayload struct {
	OrganizationID string   `json:"organizationId"`
	EntityType     string   `json:"entityType"`
	ExportName     string   `json:"exportName"`
	Columns        []string `json:"columns"`
	Format         string   `json:"format"`
	IncludeHeaders *bool    `json:"includeHeaders"`
}

func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload queuePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	orgID, err := uuid.Parse(strings.TrimSpace(payload.OrganizationID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid organizationId: %v", err), http.StatusBadRequest)
		return
	}
	if err := auth.EnforceOrganizationScope(r.Context(), orgID); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	includeHeaders := true
	if payload.IncludeHeaders != nil {
		includeHeaders = *payload.IncludeHeaders
	}

	req := ExportRequest{
		OrganizationID: orgID,
		EntityType:     payload.EntityType,
		ExportName:     payload.ExportName,
		Columns:        payload.Columns,
		Format:         domain.ExportFormat(strings.ToLower(strings.TrimSpace(payload.Format))),
		IncludeHeaders: includeHeaders,
	}
	if actorID, ok := auth.ActorIDFromContext(r.Context()); ok {
		req.CreatedBy = actorID
	}

	job, err := h.service.Queue(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusAccepted, h.withDownloadURL(job))
}

func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(pathJobID(r.URL.Path))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid job id: %v", err), http.StatusBadRequest)
		return
	}
	job, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err := auth.EnforceOrganizationScope(r.Context(), job.OrganizationID); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	writeJSON(w, http.StatusOK, h.withDownloadURL(job))
}

func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var orgID *uuid.UUID
	if raw := strings.TrimSpace(r.URL.Query().Get("organizationId")); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid organization id: %v", err), http.StatusBadRequest)
			return
		}
		if err := auth.EnforceOrganizationScope(r.Context(), parsed); err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		orgID = &parsed
	}

	var statuses []domain.ExportJobStatus
	for _, raw := range r.URL.Query()["status"] {
		statuses = append(statuses, domain.ExportJobStatus(strings.TrimSpace(raw)))
	}

	jobs, err := h.service.ListJobs(r.Context(), orgID, statuses, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]jobResponse, len(jobs))
	for i, job := range jobs {
		out[i] = h.withDownloadURL(job)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimSuffix(r.URL.Path, "/cancel")
	jobID, err := uuid.Parse(pathJobID(trimmed))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid job id: %v", err), http.StatusBadRequest)
		return
	}
	job, err := h.service.CancelJob(r.Context(), jobID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.withDownloadURL(job))
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(pathJobID(r.URL.Path))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid job id: %v", err), http.StatusBadRequest)
		return
	}
	if err := h.service.ValidateDownloadToken(jobID, r.URL.Query().Get("token")); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	job, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	file, err := h.service.OpenJobFile(job)
	if err != nil {
		http.Error(w, err.Error(), http.StatusGone)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", job.Format.MimeType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(*job.FilePath)))
	if job.FileByteSize != nil {
		w.Header().Set("Content-Length", strconv.FormatInt(*job.FileByteSize, 10))
	}
	_, _ = io.Copy(w, file)
}

type jobResponse struct {
	domain.ExportJob
	DownloadURL *string `json:"download_url,omitempty"`
}

func (h *Handler) withDownloadURL(job domain.ExportJob) jobResponse {
	download, err := h.service.BuildDownloadURL(job)
	if err != nil {
		download = nil
	}
	return jobResponse{ExportJob: job, DownloadURL: download}
}

// pathJobID extracts a trailing uuid path segment, or "".
func pathJobID(path string) string {
	segment := path[strings.LastIndex(path, "/")+1:]
	if _, err := uuid.Parse(segment); err != nil {
		return ""
	}
	return segment
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

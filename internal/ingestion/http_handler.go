package ingestion

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rpattn/talentcrm/internal/auth"
	"github.com/rpattn/talentcrm/internal/domain"

	"github.com/google/uuid"
)

// Handler exposes imports over HTTP: multipart upload for preview and job
// creation, JSON for job status and logs.
type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/preview"):
		h.handlePreview(w, r)
	case r.Method == http.MethodPost:
		h.handleStart(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/logs"):
		h.handleListLogs(w, r)
	case r.Method == http.MethodGet && pathJobID(r.URL.Path) != "":
		h.handleGetJob(w, r)
	case r.Method == http.MethodGet:
		h.handleListJobs(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	req, err := h.uploadRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.Preview(r.Context(), PreviewRequest{
		OrganizationID: req.OrganizationID,
		EntityType:     req.EntityType,
		FileName:       req.FileName,
		Payload:        req.Payload,
		FieldMapping:   req.FieldMapping,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	req, err := h.uploadRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if actorID, ok := auth.ActorIDFromContext(r.Context()); ok {
		req.CreatedBy = actorID
	}

	job, err := h.service.StartImport(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// uploadRequest reads the multipart form shared by preview and start. A
// base64File form value is accepted in place of a binary file part.
func (h *Handler) uploadRequest(r *http.Request) (ImportRequest, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return ImportRequest{}, fmt.Errorf("invalid form data: %w", err)
	}

	orgID, err := uuid.Parse(strings.TrimSpace(r.FormValue("organizationId")))
	if err != nil {
		return ImportRequest{}, fmt.Errorf("invalid organization id: %w", err)
	}
	if err := auth.EnforceOrganizationScope(r.Context(), orgID); err != nil {
		return ImportRequest{}, err
	}

	entityType := strings.TrimSpace(r.FormValue("entityType"))
	if entityType == "" {
		return ImportRequest{}, fmt.Errorf("entityType is required")
	}

	var fileName string
	var payload []byte
	if file, header, fileErr := r.FormFile("file"); fileErr == nil {
		defer file.Close()
		payload, err = io.ReadAll(file)
		if err != nil {
			return ImportRequest{}, fmt.Errorf("failed to read file: %w", err)
		}
		fileName = header.Filename
	} else if encoded := r.FormValue("base64File"); encoded != "" {
		fileName = strings.TrimSpace(r.FormValue("fileName"))
		if fileName == "" {
			return ImportRequest{}, fmt.Errorf("fileName is required with base64File")
		}
		payload, err = decodeBase64Envelope(encoded)
		if err != nil {
			return ImportRequest{}, err
		}
	} else {
		return ImportRequest{}, fmt.Errorf("file is required")
	}

	var mapping map[string]string
	if raw := r.FormValue("fieldMapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			return ImportRequest{}, fmt.Errorf("invalid fieldMapping: %w", err)
		}
	}

	options := domain.DefaultImportOptions()
	if raw := r.FormValue("options"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &options); err != nil {
			return ImportRequest{}, fmt.Errorf("invalid options: %w", err)
		}
	}

	return ImportRequest{
		OrganizationID: orgID,
		EntityType:     entityType,
		FileName:       fileName,
		Payload:        payload,
		FieldMapping:   mapping,
		Options:        options,
	}, nil
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
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("organizationId")))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid organization id: %v", err), http.StatusBadRequest)
		return
	}
	if err := auth.EnforceOrganizationScope(r.Context(), orgID); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	var statuses []domain.ImportJobStatus
	for _, raw := range r.URL.Query()["status"] {
		statuses = append(statuses, domain.ImportJobStatus(strings.TrimSpace(raw)))
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	jobs, err := h.service.ListJobs(r.Context(), orgID, statuses, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *Handler) handleListLogs(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimSuffix(r.URL.Path, "/logs")
	jobID, err := uuid.Parse(pathJobID(trimmed))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid job id: %v", err), http.StatusBadRequest)
		return
	}
	entries, err := h.service.ListLogs(r.Context(), jobID, queryInt(r, "limit", 100), queryInt(r, "offset", 0))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
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

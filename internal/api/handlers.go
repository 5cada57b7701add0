package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sjsage522/cafe24worker/logger"
	"sjsage522/cafe24worker/services/runstore"
	"sjsage522/cafe24worker/services/worker"
)

// Handlers exposes run submission and artifact download endpoints
type Handlers struct {
	worker       *worker.Worker
	store        runstore.Store
	defaultInput string
	log          *logger.Logger
}

// NewHandlers creates the API handlers. defaultInput is used when a run
// submission names no input file.
func NewHandlers(w *worker.Worker, store runstore.Store, defaultInput string) *Handlers {
	return &Handlers{
		worker:       w,
		store:        store,
		defaultInput: defaultInput,
		log:          logger.ForAPI(),
	}
}

// CreateRunRequest is the body of POST /runs
type CreateRunRequest struct {
	InputPath string `json:"input_path"`
}

// CreateRunResponse is the body returned for an accepted run
type CreateRunResponse struct {
	RunID string `json:"run_id"`
}

// Healthcheck reports liveness
func (h *Handlers) Healthcheck(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateRun submits a new scraper run
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if r.Body != nil {
		// an empty body means "use the default input"
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	inputPath := req.InputPath
	source := "upload"
	if inputPath == "" {
		inputPath = h.defaultInput
		source = "default"
	}
	if inputPath == "" {
		h.respondError(w, http.StatusBadRequest, "input_path is required")
		return
	}

	runID, err := h.worker.Submit(r.Context(), inputPath, source)
	if err != nil {
		h.log.Error().Err(err).Str("input", inputPath).Msg("Failed to submit run")
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondJSON(w, http.StatusAccepted, CreateRunResponse{RunID: runID})
}

// ListRuns returns the most recent runs
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		h.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	h.respondJSON(w, http.StatusOK, runs)
}

// GetRun returns one run by id
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	record, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, record)
}

// DownloadArtifact streams one of a finished run's output files
func (h *Handlers) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	record, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	name := chi.URLParam(r, "name")
	path := artifactPath(record, name)
	if path == "" {
		h.respondError(w, http.StatusNotFound, "artifact not available")
		return
	}
	http.ServeFile(w, r, path)
}

func artifactPath(record *runstore.RunRecord, name string) string {
	switch name {
	case "csv":
		return record.Artifacts.CSVPath
	case "summary":
		return record.Artifacts.SummaryPath
	case "images":
		return record.Artifacts.ImagesZipPath
	case "screenshots":
		return record.Artifacts.ScreenshotsZipPath
	case "archive":
		return record.Artifacts.ArchivePath
	default:
		return ""
	}
}

func (h *Handlers) loadRun(w http.ResponseWriter, r *http.Request) (*runstore.RunRecord, bool) {
	id := chi.URLParam(r, "id")
	record, err := h.store.GetRun(r.Context(), id)
	if err == runstore.ErrNotFound {
		h.respondError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to load run")
		h.respondError(w, http.StatusInternalServerError, "failed to load run")
		return nil, false
	}
	return record, true
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

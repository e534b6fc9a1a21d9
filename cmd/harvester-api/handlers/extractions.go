package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/kostadindraganov/amazon-extractor/internal/catalog"
	"github.com/kostadindraganov/amazon-extractor/internal/extract"
	"github.com/kostadindraganov/amazon-extractor/internal/harvest"
	"github.com/kostadindraganov/amazon-extractor/internal/observability"
)

// ExtractionHandler starts, stops, and reports extraction runs.
type ExtractionHandler struct {
	logger  *observability.Logger
	session *harvest.Session

	mu         sync.Mutex
	cancelRun  context.CancelFunc
	lastReport *extract.RunReport
}

// NewExtractionHandler creates a new extraction handler.
func NewExtractionHandler(logger *observability.Logger, session *harvest.Session) *ExtractionHandler {
	return &ExtractionHandler{logger: logger, session: session}
}

// StartRequestDTO is the optional request body for starting a run.
type StartRequestDTO struct {
	// IncludeFailed re-queues previously failed products into this run.
	IncludeFailed bool `json:"includeFailed"`
}

// Start handles POST /api/v1/extractions. The run executes in the background;
// clients poll the products endpoint for live per-item status.
func (h *ExtractionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequestDTO
	if r.Body != nil {
		// Body is optional; a decode failure just means defaults.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if h.session.Extracting() {
		writeError(w, http.StatusConflict, extract.ErrRunInFlight.Error())
		return
	}

	// The run outlives this request; cancellation comes from Stop, not from
	// the client disconnecting.
	ctx, cancel := context.WithCancel(context.Background())
	h.mu.Lock()
	h.cancelRun = cancel
	h.mu.Unlock()

	go func() {
		defer cancel()
		report, err := h.session.Extract(ctx, extract.RunOptions{IncludeFailed: req.IncludeFailed})
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, extract.ErrRunInFlight) {
			h.logger.Error().Err(err).Msg("Extraction run failed")
		}

		h.mu.Lock()
		if report != nil {
			h.lastReport = report
		}
		h.cancelRun = nil
		h.mu.Unlock()
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// Stop handles DELETE /api/v1/extractions. The in-flight batch finishes;
// later batches stay pending.
func (h *ExtractionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	cancel := h.cancelRun
	h.mu.Unlock()

	if cancel == nil {
		writeError(w, http.StatusConflict, "no extraction run in flight")
		return
	}

	cancel()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

// StatusResponseDTO reports run progress.
type StatusResponseDTO struct {
	Running    bool                   `json:"running"`
	Counts     map[catalog.Status]int `json:"counts"`
	LastReport *extract.RunReport     `json:"lastReport,omitempty"`
}

// Status handles GET /api/v1/extractions.
func (h *ExtractionHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	last := h.lastReport
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, StatusResponseDTO{
		Running:    h.session.Extracting(),
		Counts:     h.session.Counts(),
		LastReport: last,
	})
}

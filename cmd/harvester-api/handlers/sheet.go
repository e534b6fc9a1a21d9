package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kostadindraganov/amazon-extractor/internal/catalog"
	"github.com/kostadindraganov/amazon-extractor/internal/harvest"
	"github.com/kostadindraganov/amazon-extractor/internal/observability"
	"github.com/kostadindraganov/amazon-extractor/internal/sheet"
)

// SheetHandler handles sheet loading and column selection.
type SheetHandler struct {
	logger  *observability.Logger
	session *harvest.Session
}

// NewSheetHandler creates a new sheet handler.
func NewSheetHandler(logger *observability.Logger, session *harvest.Session) *SheetHandler {
	return &SheetHandler{logger: logger, session: session}
}

// LoadRequestDTO is the request body for loading a sheet.
type LoadRequestDTO struct {
	URL string `json:"url"`
}

// StateResponseDTO wraps the session state with an optional non-fatal warning.
type StateResponseDTO struct {
	*harvest.State
	Warning string `json:"warning,omitempty"`
}

// Load handles POST /api/v1/sheet.
func (h *SheetHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req LoadRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "request body must be {\"url\": \"...\"}")
		return
	}

	state, err := h.session.LoadSheet(r.Context(), req.URL)

	var noLinks *harvest.NoLinksError
	switch {
	case errors.As(err, &noLinks):
		// Non-fatal: state replaced, user may pick another column.
		writeJSON(w, http.StatusOK, StateResponseDTO{State: state, Warning: noLinks.Error()})
	case errors.Is(err, sheet.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sheet.ErrFetchFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, sheet.ErrEmptySheet):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		h.logger.Error().Err(err).Msg("Sheet load failed")
		writeError(w, http.StatusInternalServerError, "sheet load failed")
	default:
		writeJSON(w, http.StatusOK, StateResponseDTO{State: state})
	}
}

// State handles GET /api/v1/sheet.
func (h *SheetHandler) State(w http.ResponseWriter, r *http.Request) {
	state, err := h.session.State()
	if errors.Is(err, harvest.ErrNotLoaded) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StateResponseDTO{State: state})
}

// LinkColumnRequestDTO is the request body for selecting the link column.
type LinkColumnRequestDTO struct {
	Column string `json:"column"`
}

// SetLinkColumn handles PUT /api/v1/sheet/link-column.
func (h *SheetHandler) SetLinkColumn(w http.ResponseWriter, r *http.Request) {
	var req LinkColumnRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Column == "" {
		writeError(w, http.StatusBadRequest, "request body must be {\"column\": \"...\"}")
		return
	}

	state, err := h.session.SetLinkColumn(req.Column)

	var noLinks *harvest.NoLinksError
	switch {
	case errors.As(err, &noLinks):
		writeJSON(w, http.StatusOK, StateResponseDTO{State: state, Warning: noLinks.Error()})
	case errors.Is(err, harvest.ErrNotLoaded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, harvest.ErrUnknownColumn):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.logger.Error().Err(err).Msg("Column change failed")
		writeError(w, http.StatusInternalServerError, "column change failed")
	default:
		writeJSON(w, http.StatusOK, StateResponseDTO{State: state})
	}
}

// Products handles GET /api/v1/products. With ?grouped=true products come
// bucketed by group in first-seen order.
func (h *SheetHandler) Products(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("grouped") == "true" {
		groups := h.session.Grouped()
		if groups == nil {
			groups = []catalog.Grouped{}
		}
		writeJSON(w, http.StatusOK, groups)
		return
	}

	products := h.session.Products()
	if products == nil {
		products = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

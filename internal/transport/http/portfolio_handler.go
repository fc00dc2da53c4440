package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "volexplorer/internal/errors"
	"volexplorer/internal/exporter"
	"volexplorer/internal/infrastructure"
	"volexplorer/internal/middleware"
	"volexplorer/internal/panel"
)

// AddHoldingRequest is the body of POST /api/portfolio/holdings. The id may
// be sent as a JSON string or number.
type AddHoldingRequest struct {
	InstrumentID flexibleID `json:"instrument_id" validate:"required"`
	Volume       *float64   `json:"volume" validate:"required,gte=0"`
	Price        *float64   `json:"price" validate:"required,gte=0"`
}

// flexibleID accepts "3" and 3 alike
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	} else if s == "null" {
		s = ""
	}
	*f = flexibleID(strings.TrimSpace(s))
	return nil
}

// PortfolioHandler serves the session's portfolio ledger
type PortfolioHandler struct {
	service      PortfolioServiceInterface
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(service PortfolioServiceInterface, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PortfolioHandler {
	if validator == nil {
		validator = middleware.NewValidator()
	}
	return &PortfolioHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("handler", "portfolio")),
		errorHandler: errorHandler,
	}
}

// Routes returns the portfolio routes. They expect the Session middleware upstream.
func (h *PortfolioHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/", h.Get)
		r.Delete("/", h.Clear)
		r.Post("/holdings", h.AddHolding)
	})
	r.Get("/export", h.Export)
	return r
}

// Get handles GET /api/portfolio
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Valuation(r.Context(), infrastructure.GetSessionID(r.Context()))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	renderData(w, r, view)
}

// AddHolding handles POST /api/portfolio/holdings
func (h *PortfolioHandler) AddHolding(w http.ResponseWriter, r *http.Request) {
	var req AddHoldingRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	view, err := h.service.Add(r.Context(),
		infrastructure.GetSessionID(r.Context()),
		panel.InstrumentID(req.InstrumentID),
		*req.Volume,
		*req.Price,
	)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "holding added",
		slog.String("instrument_id", string(req.InstrumentID)),
		slog.Int("holdings", len(view.Valuation.Rows)))
	render.Status(r, http.StatusCreated)
	renderData(w, r, view)
}

// Clear handles DELETE /api/portfolio
func (h *PortfolioHandler) Clear(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Clear(r.Context(), infrastructure.GetSessionID(r.Context()))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	renderData(w, r, view)
}

// Export handles GET /api/portfolio/export
func (h *PortfolioHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := exportFormat(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	view, err := h.service.Valuation(r.Context(), infrastructure.GetSessionID(r.Context()))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if err := writeExport(w, format, "portfolio", exporter.ValuationTable(view.Valuation)); err != nil {
		h.logger.ErrorContext(r.Context(), "portfolio export failed", slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
	}
}

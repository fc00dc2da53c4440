package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "volexplorer/internal/errors"
	"volexplorer/internal/exporter"
	"volexplorer/internal/middleware"
	"volexplorer/internal/screener"
)

// ScreenerHandler serves volatility rankings
type ScreenerHandler struct {
	service      ScreenerServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewScreenerHandler creates a new screener handler
func NewScreenerHandler(service ScreenerServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ScreenerHandler {
	return &ScreenerHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "screener")),
		errorHandler: errorHandler,
	}
}

// Routes returns the screener routes
func (h *ScreenerHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(render.SetContentType(render.ContentTypeJSON)).Get("/", h.Screen)
	r.Get("/export", h.Export)
	return r
}

// parseQuery starts from the service defaults and applies start, end, top_n and order
func (h *ScreenerHandler) parseQuery(r *http.Request) (screener.Query, error) {
	q := h.service.DefaultQuery()

	if v, ok, err := middleware.QueryInt64(r, "start"); err != nil {
		return q, err
	} else if ok {
		q.Start = v
	}
	if v, ok, err := middleware.QueryInt64(r, "end"); err != nil {
		return q, err
	} else if ok {
		q.End = v
	}

	topN, err := middleware.QueryInt(r, "top_n", q.TopN)
	if err != nil {
		return q, err
	}
	q.TopN = topN

	raw, err := middleware.QueryEnum(r, "order", []string{"top", "bottom", "desc", "asc"}, "top")
	if err != nil {
		return q, err
	}
	order, err := screener.ParseOrder(raw)
	if err != nil {
		return q, apierrors.ErrValidation("order", err.Error())
	}
	q.Order = order
	return q, nil
}

// Screen handles GET /api/screener
func (h *ScreenerHandler) Screen(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Screen(r.Context(), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
		"count":  len(result),
		"query": map[string]interface{}{
			"start": q.Start,
			"end":   q.End,
			"top_n": q.TopN,
			"order": q.Order.String(),
		},
	})
}

// Export handles GET /api/screener/export
func (h *ScreenerHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := exportFormat(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	q, err := h.parseQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Screen(r.Context(), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if err := writeExport(w, format, "screener", exporter.ScreenerTable(result)); err != nil {
		h.logger.ErrorContext(r.Context(), "screener export failed", slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
	}
}

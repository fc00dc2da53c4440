package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "volexplorer/internal/errors"
	"volexplorer/internal/panel"
)

// maxInstrumentIDLength bounds the path parameter before it reaches the service
const maxInstrumentIDLength = 64

// InstrumentHandler serves the instrument list and per-instrument series
type InstrumentHandler struct {
	service      InstrumentServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewInstrumentHandler creates a new instrument handler
func NewInstrumentHandler(service InstrumentServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *InstrumentHandler {
	return &InstrumentHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "instruments")),
		errorHandler: errorHandler,
	}
}

// Routes returns the instrument routes
func (h *InstrumentHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/", h.List)
	r.With(h.InstrumentCtx).Get("/{id}/series", h.Series)
	return r
}

// InstrumentCtx validates the id path parameter
func (h *InstrumentHandler) InstrumentCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "id"))
		if id == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "instrument id is required"))
			return
		}
		if len(id) > maxInstrumentIDLength {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "instrument id is too long"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// List handles GET /api/instruments
func (h *InstrumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ids := h.service.List(r.Context())
	renderList(w, r, ids, len(ids))
}

// Series handles GET /api/instruments/{id}/series
func (h *InstrumentHandler) Series(w http.ResponseWriter, r *http.Request) {
	id := panel.InstrumentID(strings.TrimSpace(chi.URLParam(r, "id")))

	view, err := h.service.Series(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	renderData(w, r, view)
}

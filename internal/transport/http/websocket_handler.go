package http

import (
	"log/slog"
	"net/http"

	gorilla "github.com/gorilla/websocket"

	"volexplorer/internal/config"
	apierrors "volexplorer/internal/errors"
	"volexplorer/internal/infrastructure"
	"volexplorer/internal/websocket"
)

// WebSocketHandler upgrades /ws requests and subscribes them to their session's valuation stream
type WebSocketHandler struct {
	hub          *websocket.Hub
	upgrader     *gorilla.Upgrader
	cfg          config.WebSocketConfig
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *websocket.Hub, upgrader *gorilla.Upgrader, cfg config.WebSocketConfig, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *WebSocketHandler {
	return &WebSocketHandler{
		hub:          hub,
		upgrader:     upgrader,
		cfg:          cfg,
		logger:       logger.With(slog.String("handler", "websocket")),
		errorHandler: errorHandler,
	}
}

// ServeHTTP handles GET /ws. The Session middleware must run first.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !gorilla.IsWebSocketUpgrade(r) {
		h.errorHandler.HandleError(w, r, apierrors.ErrWebSocketUpgrade)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	ctx := infrastructure.EnsureTraceID(r.Context())
	websocket.Serve(h.hub, conn, infrastructure.GetSessionID(ctx), infrastructure.GetTraceID(ctx), h.cfg, h.logger)
}

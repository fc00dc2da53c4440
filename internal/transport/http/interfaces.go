package http

import (
	"context"

	"volexplorer/internal/panel"
	"volexplorer/internal/screener"
	"volexplorer/internal/services"
)

// ScreenerServiceInterface defines the screener operations used by the handlers
type ScreenerServiceInterface interface {
	DefaultQuery() screener.Query
	Screen(ctx context.Context, q screener.Query) (screener.Result, error)
}

// InstrumentServiceInterface defines the instrument operations used by the handlers
type InstrumentServiceInterface interface {
	List(ctx context.Context) []panel.InstrumentID
	Series(ctx context.Context, id panel.InstrumentID) (*services.SeriesView, error)
}

// PortfolioServiceInterface defines the per-session portfolio operations
type PortfolioServiceInterface interface {
	Add(ctx context.Context, sessionID string, id panel.InstrumentID, volume, price float64) (*services.PortfolioView, error)
	Clear(ctx context.Context, sessionID string) (*services.PortfolioView, error)
	Valuation(ctx context.Context, sessionID string) (*services.PortfolioView, error)
}

// PanelServiceInterface reports dataset metadata
type PanelServiceInterface interface {
	Summary() services.PanelSummary
}

// HealthServiceInterface defines the health checks
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}

package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics holds the application instruments
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Screener metrics
	ScreenerQueries       metric.Int64Counter
	ScreenerQueryDuration metric.Float64Histogram
	ScreenerCacheHits     metric.Int64Counter
	ScreenerCacheMisses   metric.Int64Counter

	// Portfolio metrics
	LedgerMutations metric.Int64Counter
	ActiveSessions  metric.Int64UpDownCounter
	SessionsEvicted metric.Int64Counter

	WebSocketClients metric.Int64UpDownCounter
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	var (
		m   BusinessMetrics
		err error
	)

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.ScreenerQueries, err = meter.Int64Counter(
		"screener_queries_total",
		metric.WithDescription("Total number of screener rankings computed or served"),
	); err != nil {
		return nil, err
	}
	if m.ScreenerQueryDuration, err = meter.Float64Histogram(
		"screener_query_duration_seconds",
		metric.WithDescription("Time spent ranking instruments"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.ScreenerCacheHits, err = meter.Int64Counter(
		"screener_cache_hits_total",
		metric.WithDescription("Screener results served from cache"),
	); err != nil {
		return nil, err
	}
	if m.ScreenerCacheMisses, err = meter.Int64Counter(
		"screener_cache_misses_total",
		metric.WithDescription("Screener results computed from the panel"),
	); err != nil {
		return nil, err
	}

	if m.LedgerMutations, err = meter.Int64Counter(
		"ledger_mutations_total",
		metric.WithDescription("Portfolio ledger add and clear requests"),
	); err != nil {
		return nil, err
	}
	if m.ActiveSessions, err = meter.Int64UpDownCounter(
		"portfolio_active_sessions",
		metric.WithDescription("Number of live portfolio sessions"),
	); err != nil {
		return nil, err
	}
	if m.SessionsEvicted, err = meter.Int64Counter(
		"portfolio_sessions_evicted_total",
		metric.WithDescription("Sessions removed for idleness or capacity"),
	); err != nil {
		return nil, err
	}

	if m.WebSocketClients, err = meter.Int64UpDownCounter(
		"websocket_clients",
		metric.WithDescription("Connected WebSocket clients"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordScreenerQuery records one screener request; cached reports whether it was a cache hit.
func (m *BusinessMetrics) RecordScreenerQuery(ctx context.Context, order string, cached bool, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("order", order))
	m.ScreenerQueries.Add(ctx, 1, attrs)
	if cached {
		m.ScreenerCacheHits.Add(ctx, 1, attrs)
		return
	}
	m.ScreenerCacheMisses.Add(ctx, 1, attrs)
	m.ScreenerQueryDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordLedgerMutation counts an add or clear with its outcome ("ok" or an error class)
func (m *BusinessMetrics) RecordLedgerMutation(ctx context.Context, action, outcome string) {
	if m == nil {
		return
	}
	m.LedgerMutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

// RecordSessionDelta adjusts the live session gauge
func (m *BusinessMetrics) RecordSessionDelta(ctx context.Context, delta int64, reason string) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, delta)
	if delta < 0 && reason != "" {
		m.SessionsEvicted.Add(ctx, -delta, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

// RecordWebSocketClient adjusts the connected client gauge
func (m *BusinessMetrics) RecordWebSocketClient(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.WebSocketClients.Add(ctx, delta)
}

package services

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"volexplorer/internal/infrastructure"
	"volexplorer/internal/panel"
	"volexplorer/internal/portfolio"
	"volexplorer/internal/session"
	"volexplorer/internal/timeseries"
)

// Message type pushed to a session's WebSocket clients after a ledger change
const MessageTypeValuation = "portfolio_valuation"

// SessionStore looks up sessions by id
type SessionStore interface {
	Get(id string) (*session.Session, bool)
	Resolve(id string) (*session.Session, bool)
}

// ValuationNotifier delivers valuation snapshots to a session's subscribers
type ValuationNotifier interface {
	SendToSession(sessionID, messageType string, data interface{})
}

// PortfolioView is a valuation plus the explicit "no holdings" flag
type PortfolioView struct {
	SessionID string              `json:"session_id"`
	Empty     bool                `json:"empty"`
	Valuation portfolio.Valuation `json:"valuation"`
}

// PortfolioService mutates and values per-session ledgers
type PortfolioService struct {
	dataset  *panel.Dataset
	sessions SessionStore
	notifier ValuationNotifier
	tracer   trace.Tracer
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// NewPortfolioService creates a portfolio service. notifier may be nil.
func NewPortfolioService(ds *panel.Dataset, sessions SessionStore, notifier ValuationNotifier, tracer trace.Tracer, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *PortfolioService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PortfolioService{
		dataset:  ds,
		sessions: sessions,
		notifier: notifier,
		tracer:   tracer,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "portfolio_service")),
	}
}

// session returns the session the middleware already resolved for
// sessionID. If it expired in the meantime it is recreated under the same id.
func (s *PortfolioService) session(sessionID string) (*session.Session, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	if sess, ok := s.sessions.Get(sessionID); ok {
		return sess, nil
	}
	sess, _ := s.sessions.Resolve(sessionID)
	return sess, nil
}

// Add buys volume of id at price into the session's ledger and returns the
// new valuation. The instrument must exist in the dataset.
func (s *PortfolioService) Add(ctx context.Context, sessionID string, id panel.InstrumentID, volume, price float64) (*PortfolioView, error) {
	ctx, span := s.tracer.Start(ctx, "portfolio.Add", trace.WithAttributes(
		attribute.String("instrument.id", id.String()),
		attribute.Float64("holding.volume", volume),
		attribute.Float64("holding.price", price),
	))
	defer span.End()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	if !s.dataset.HasInstrument(id) {
		err := &timeseries.UnknownInstrumentError{InstrumentID: id}
		s.metrics.RecordLedgerMutation(ctx, "add", "unknown_instrument")
		span.RecordError(err)
		return nil, err
	}

	if err := sess.Ledger.Add(id, volume, price); err != nil {
		outcome := "error"
		if errors.Is(err, portfolio.ErrInvalidHolding) {
			outcome = "invalid"
		}
		s.metrics.RecordLedgerMutation(ctx, "add", outcome)
		span.RecordError(err)
		s.logger.InfoContext(ctx, "holding rejected",
			slog.String("instrument_id", id.String()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.metrics.RecordLedgerMutation(ctx, "add", "ok")
	s.logger.DebugContext(ctx, "holding added",
		slog.String("instrument_id", id.String()),
		slog.Float64("volume", volume),
		slog.Float64("price", price),
	)
	return s.publish(sess), nil
}

// Clear empties the session's ledger
func (s *PortfolioService) Clear(ctx context.Context, sessionID string) (*PortfolioView, error) {
	ctx, span := s.tracer.Start(ctx, "portfolio.Clear")
	defer span.End()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Ledger.Clear()
	s.metrics.RecordLedgerMutation(ctx, "clear", "ok")
	s.logger.DebugContext(ctx, "portfolio cleared")
	return s.publish(sess), nil
}

// Valuation values the session's current holdings
func (s *PortfolioService) Valuation(ctx context.Context, sessionID string) (*PortfolioView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return view(sess), nil
}

func (s *PortfolioService) publish(sess *session.Session) *PortfolioView {
	v := view(sess)
	if s.notifier != nil {
		s.notifier.SendToSession(sess.ID, MessageTypeValuation, v)
	}
	return v
}

func view(sess *session.Session) *PortfolioView {
	val := portfolio.Valuate(sess.Ledger.Snapshot())
	return &PortfolioView{
		SessionID: sess.ID,
		Empty:     val.Empty(),
		Valuation: val,
	}
}

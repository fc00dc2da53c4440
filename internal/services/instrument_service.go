package services

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"volexplorer/internal/panel"
	"volexplorer/internal/timeseries"
)

// SeriesView is an instrument's full history plus sparse axis labels
type SeriesView struct {
	InstrumentID panel.InstrumentID `json:"instrument_id"`
	Points       []timeseries.Point `json:"points"`
	Ticks        []int64            `json:"ticks"`
}

// InstrumentService exposes the dataset's instruments and their series
type InstrumentService struct {
	dataset  *panel.Dataset
	maxTicks int
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewInstrumentService creates an instrument service labelling about maxTicks points per series
func NewInstrumentService(ds *panel.Dataset, maxTicks int, tracer trace.Tracer, logger *slog.Logger) *InstrumentService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InstrumentService{
		dataset:  ds,
		maxTicks: maxTicks,
		tracer:   tracer,
		logger:   logger.With(slog.String("component", "instrument_service")),
	}
}

// List returns the instrument ids in ascending id order, numeric ids compared as numbers
func (s *InstrumentService) List(ctx context.Context) []panel.InstrumentID {
	return s.dataset.InstrumentIDs()
}

// Series returns the time series of id. Unknown ids yield a
// *timeseries.UnknownInstrumentError.
func (s *InstrumentService) Series(ctx context.Context, id panel.InstrumentID) (*SeriesView, error) {
	_, span := s.tracer.Start(ctx, "instruments.Series",
		trace.WithAttributes(attribute.String("instrument.id", id.String())))
	defer span.End()

	points, err := timeseries.Series(s.dataset, id)
	if err != nil {
		span.RecordError(err)
		s.logger.DebugContext(ctx, "series requested for unknown instrument", slog.String("instrument_id", id.String()))
		return nil, err
	}
	span.SetAttributes(attribute.Int("series.points", len(points)))

	return &SeriesView{
		InstrumentID: id,
		Points:       points,
		Ticks:        timeseries.Ticks(points, s.maxTicks),
	}, nil
}

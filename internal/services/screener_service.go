package services

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/singleflight"

	"volexplorer/internal/infrastructure"
	"volexplorer/internal/panel"
	"volexplorer/internal/screener"
)

// ScreenerService answers screener queries over the loaded dataset
type ScreenerService struct {
	dataset     *panel.Dataset
	defaultTopN int

	cache *resultCache
	group singleflight.Group

	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewScreenerService creates a screener service. cacheSize 0 disables memoization.
func NewScreenerService(ds *panel.Dataset, defaultTopN, cacheSize int, tracer trace.Tracer, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *ScreenerService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScreenerService{
		dataset:     ds,
		defaultTopN: defaultTopN,
		cache:       newResultCache(cacheSize),
		tracer:      tracer,
		metrics:     metrics,
		logger:      logger.With(slog.String("component", "screener_service")),
	}
}

// DefaultQuery covers the full time range with the configured top N, most volatile first
func (s *ScreenerService) DefaultQuery() screener.Query {
	start, end := s.dataset.TimeRange()
	return screener.Query{
		Start: start,
		End:   end,
		TopN:  s.defaultTopN,
		Order: screener.MostVolatile,
	}
}

// Screen ranks instruments for q. An empty or inverted window yields an
// empty result, not an error.
func (s *ScreenerService) Screen(ctx context.Context, q screener.Query) (screener.Result, error) {
	if q.TopN < 0 {
		return nil, errNegativeTopN()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "screener.Screen", trace.WithAttributes(
		attribute.Int64("screener.start", q.Start),
		attribute.Int64("screener.end", q.End),
		attribute.Int("screener.top_n", q.TopN),
		attribute.String("screener.order", q.Order.String()),
	))
	defer span.End()

	key := cacheKey(q)
	if res, ok := s.cache.get(key); ok {
		span.SetAttributes(attribute.Bool("screener.cached", true))
		s.metrics.RecordScreenerQuery(ctx, q.Order.String(), true, 0)
		return res, nil
	}

	start := time.Now()
	v, _, shared := s.group.Do(key, func() (interface{}, error) {
		res := screener.RankBy(s.dataset, q)
		s.cache.put(key, res)
		return res, nil
	})
	res := v.(screener.Result)
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.Bool("screener.cached", false),
		attribute.Bool("screener.shared", shared),
		attribute.Int("screener.results", len(res)),
	)
	s.metrics.RecordScreenerQuery(ctx, q.Order.String(), false, elapsed)
	s.logger.DebugContext(ctx, "screener query computed",
		slog.Int64("start", q.Start),
		slog.Int64("end", q.End),
		slog.Int("top_n", q.TopN),
		slog.String("order", q.Order.String()),
		slog.Int("results", len(res)),
		slog.Duration("duration", elapsed),
	)
	return res, nil
}

func cacheKey(q screener.Query) string {
	return fmt.Sprintf("%d:%d:%d:%d", q.Start, q.End, q.TopN, q.Order)
}

// resultCache is a fixed-size LRU of screener results. Results are shared
// between callers and must not be mutated.
type resultCache struct {
	mu      sync.Mutex
	size    int
	order   *list.List
	entries map[string]*list.Element
}

type cacheEntry struct {
	key    string
	result screener.Result
}

func newResultCache(size int) *resultCache {
	return &resultCache{
		size:    size,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func (c *resultCache) get(key string) (screener.Result, bool) {
	if c.size <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).result, true
}

func (c *resultCache) put(key string, res screener.Result) {
	if c.size <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).result = res
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, result: res})
	for c.order.Len() > c.size {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

func (c *resultCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

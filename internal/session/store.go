// Package session keeps one portfolio ledger per client session, bounded by
// an idle timeout and a maximum session count.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"volexplorer/internal/config"
	"volexplorer/internal/infrastructure"
	"volexplorer/internal/portfolio"
)

// Eviction reasons reported to metrics and logs
const (
	ReasonIdle     = "idle"
	ReasonCapacity = "capacity"
)

// Session owns the ledger of one client
type Session struct {
	ID        string
	Ledger    *portfolio.Ledger
	CreatedAt time.Time

	lastSeen time.Time // guarded by Store.mu
}

// Store maps session ids to sessions
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	idleTTL  time.Duration
	max      int
	interval time.Duration
	now      func() time.Time

	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// Option customizes a Store
type Option func(*Store)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMetrics records session gauges on m
func WithMetrics(m *infrastructure.BusinessMetrics) Option {
	return func(s *Store) { s.metrics = m }
}

// NewStore creates an empty store
func NewStore(cfg config.SessionConfig, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		sessions: make(map[string]*Session),
		idleTTL:  cfg.IdleTTL,
		max:      cfg.MaxSessions,
		interval: cfg.JanitorInterval,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "session_store")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the live session for id, refreshing its idle timer. When
// id is unknown a session is created: with id itself if it is a UUID,
// otherwise with a fresh one. created reports whether a session was made.
func (s *Store) Resolve(id string) (sess *Session, created bool) {
	now := s.now()

	s.mu.Lock()
	if existing, ok := s.sessions[id]; ok && !s.expired(existing, now) {
		existing.lastSeen = now
		s.mu.Unlock()
		return existing, false
	}

	if _, err := uuid.Parse(id); err != nil {
		id = uuid.New().String()
	}
	// an expired entry under id is replaced below
	if _, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		s.metrics.RecordSessionDelta(context.Background(), -1, ReasonIdle)
	}

	var evicted string
	if s.max > 0 && len(s.sessions) >= s.max {
		evicted = s.evictOldestLocked()
	}

	sess = &Session{
		ID:        id,
		Ledger:    portfolio.NewLedger(),
		CreatedAt: now,
		lastSeen:  now,
	}
	s.sessions[id] = sess
	count := len(s.sessions)
	s.mu.Unlock()

	ctx := infrastructure.WithSessionID(context.Background(), id)
	s.metrics.RecordSessionDelta(ctx, 1, "")
	if evicted != "" {
		s.logger.InfoContext(ctx, "session evicted",
			slog.String("evicted_session", evicted),
			slog.String("reason", ReasonCapacity))
	}
	s.logger.DebugContext(ctx, "session created", slog.Int("sessions", count))
	return sess, true
}

// Get returns a live session without creating one. It does not refresh the idle timer.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok || s.expired(sess, s.now()) {
		return nil, false
	}
	return sess, true
}

// Len returns the number of stored sessions, expired or not
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops every session idle for longer than the TTL and returns how many went
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	remaining := len(s.sessions)
	s.mu.Unlock()

	if removed > 0 {
		s.metrics.RecordSessionDelta(context.Background(), -int64(removed), ReasonIdle)
		s.logger.Info("idle sessions swept",
			slog.Int("removed", removed),
			slog.Int("remaining", remaining))
	}
	return removed
}

// Run sweeps on every janitor interval until ctx is done
func (s *Store) Run(ctx context.Context) error {
	interval := s.interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("session janitor started",
		slog.Duration("interval", interval),
		slog.Duration("idle_ttl", s.idleTTL))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session janitor stopped")
			return nil
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return s.idleTTL > 0 && now.Sub(sess.lastSeen) > s.idleTTL
}

// evictOldestLocked drops the least recently seen session. Callers hold mu.
func (s *Store) evictOldestLocked() string {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, sess := range s.sessions {
		if oldestID == "" || sess.lastSeen.Before(oldest) {
			oldestID, oldest = id, sess.lastSeen
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
		s.metrics.RecordSessionDelta(context.Background(), -1, ReasonCapacity)
	}
	return oldestID
}

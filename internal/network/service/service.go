// Package service orchestrates the network credit scoring operations:
// tenant participation, observation contribution, score lookup, aggregation,
// and intelligence access.
package service

import (
	"context"
	"log/slog"

	"creditnet/internal/network/cache"
	"creditnet/internal/network/metrics"
	"creditnet/internal/network/store"
	audit "creditnet/pkg/platform/audit"
	"creditnet/pkg/requestcontext"
)

// AuditSink receives audit events. Wired to the outbox store in production
// and the in-memory store in tests.
type AuditSink interface {
	Append(ctx context.Context, event audit.Event) error
}

// Service is the entry point for all network credit scoring operations.
type Service struct {
	observations  store.ObservationStore
	profiles      store.ProfileStore
	contributions store.ContributionStore
	intelligence  store.IntelligenceStore

	profileCache *cache.ProfileCache
	auditSink    AuditSink
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditSink(sink AuditSink) Option {
	return func(s *Service) { s.auditSink = sink }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithProfileCache(c *cache.ProfileCache) Option {
	return func(s *Service) { s.profileCache = c }
}

// New constructs a Service.
func New(
	observations store.ObservationStore,
	profiles store.ProfileStore,
	contributions store.ContributionStore,
	intelligence store.IntelligenceStore,
	opts ...Option,
) *Service {
	s := &Service{
		observations:  observations,
		profiles:      profiles,
		contributions: contributions,
		intelligence:  intelligence,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// audit emits an event; failures are logged, never propagated. Compliance
// writes that must fail closed call the sink directly.
func (s *Service) audit(ctx context.Context, event audit.AuditEvent, e audit.Event) {
	if s.auditSink == nil {
		return
	}
	e.Action = string(event)
	e.Category = event.Category()
	if e.Timestamp.IsZero() {
		e.Timestamp = requestcontext.Now(ctx)
	}
	if e.RequestID == "" {
		e.RequestID = requestcontext.RequestID(ctx)
	}
	if err := s.auditSink.Append(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "audit append failed", "action", e.Action, "error", err)
	}
}

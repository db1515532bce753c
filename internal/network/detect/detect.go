// Package detect discovers emerging risk patterns in the observation pool.
// Four detectors run concurrently over store aggregates; each finding becomes
// an intelligence record valid for thirty days and visible to STANDARD and
// PREMIUM tenants.
package detect

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"creditnet/internal/network/metrics"
	"creditnet/internal/network/models"
	"creditnet/internal/network/store"
	id "creditnet/pkg/domain"
	"creditnet/pkg/requestcontext"
)

const (
	// Findings expire after thirty days; the hourly sweep removes them.
	validityDays = 30

	recentWindowDays   = 30
	baselineOffsetDays = 60
	baselineWindowDays = 30
)

// defaultVisibility: intelligence is a STANDARD-and-up benefit.
func defaultVisibility() []id.ContributionTier {
	return []id.ContributionTier{id.TierStandard, id.TierPremium}
}

// Runner executes all detectors and persists their findings.
type Runner struct {
	observations store.ObservationStore
	intelligence store.IntelligenceStore
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner constructs a detection Runner.
func NewRunner(observations store.ObservationStore, intelligence store.IntelligenceStore, opts ...Option) *Runner {
	r := &Runner{
		observations: observations,
		intelligence: intelligence,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the four detectors concurrently and stores every finding.
// Detector failures are isolated: one failing detector does not block the
// others, and its error surfaces after the rest have finished.
func (r *Runner) Run(ctx context.Context) ([]*models.Intelligence, error) {
	start := time.Now()
	now := requestcontext.Now(ctx)

	var mu sync.Mutex
	var findings []*models.Intelligence
	collect := func(records []*models.Intelligence) {
		mu.Lock()
		defer mu.Unlock()
		findings = append(findings, records...)
	}

	// A plain Group, not WithContext: a failing detector must never cancel
	// its siblings' in-flight queries.
	var g errgroup.Group
	detectors := []struct {
		name string
		run  func(context.Context, time.Time) ([]*models.Intelligence, error)
	}{
		{"selective_delay", r.detectSelectiveDelays},
		{"industry_deterioration", r.detectIndustryDeterioration},
		{"geographic_stress", r.detectGeographicStress},
		{"seasonal_anomaly", r.detectSeasonalAnomalies},
	}
	for _, d := range detectors {
		g.Go(func() error {
			records, err := d.run(ctx, now)
			if err != nil {
				r.logger.ErrorContext(ctx, "detector failed", "detector", d.name, "error", err)
				return err
			}
			if r.metrics != nil {
				r.metrics.PatternsDetected.WithLabelValues(d.name).Add(float64(len(records)))
			}
			collect(records)
			return nil
		})
	}
	runErr := g.Wait()

	for _, finding := range findings {
		if err := r.intelligence.Append(ctx, finding); err != nil {
			r.logger.ErrorContext(ctx, "failed to store intelligence",
				"title", finding.Title, "error", err)
		}
	}

	if r.metrics != nil {
		r.metrics.ObserveDetection(start)
	}
	r.logger.InfoContext(ctx, "pattern detection finished",
		"findings", len(findings), "duration", time.Since(start))

	return findings, runErr
}

package service

import (
	"context"
	"fmt"
	"time"

	"creditnet/internal/network/scoring"
	dErrors "creditnet/pkg/domain-errors"
	audit "creditnet/pkg/platform/audit"
	"creditnet/pkg/requestcontext"
)

// AggregationResult summarizes one aggregation run.
type AggregationResult struct {
	BuyersProcessed int           `json:"buyersProcessed"`
	ProfilesUpdated int           `json:"profilesUpdated"`
	BuyersSkipped   int           `json:"buyersSkipped"`
	Duration        time.Duration `json:"duration"`
}

// RunAggregation recomputes every buyer profile from the observation pool.
// The run is resilient per buyer: a failure on one buyer is logged and
// skipped so a single bad row never starves the rest of the network.
func (s *Service) RunAggregation(ctx context.Context) (*AggregationResult, error) {
	start := time.Now()
	now := requestcontext.Now(ctx)

	buyers, err := s.observations.DistinctBuyerIDs(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list buyers for aggregation")
	}

	s.logger.InfoContext(ctx, "aggregation run started", "buyers", len(buyers))

	result := &AggregationResult{}
	for _, buyerID := range buyers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.BuyersProcessed++

		observations, err := s.observations.ListByBuyer(ctx, buyerID)
		if err != nil {
			result.BuyersSkipped++
			s.logger.WarnContext(ctx, "skipping buyer: failed to load observations",
				"buyer", buyerID.String(), "error", err)
			continue
		}
		if len(observations) == 0 {
			result.BuyersSkipped++
			continue
		}

		profile := scoring.BuildProfile(buyerID, observations, now)
		if err := s.profiles.Upsert(ctx, profile); err != nil {
			result.BuyersSkipped++
			s.logger.WarnContext(ctx, "skipping buyer: failed to store profile",
				"buyer", buyerID.String(), "error", err)
			continue
		}
		s.profileCache.Invalidate(ctx, buyerID)
		result.ProfilesUpdated++

		if s.metrics != nil {
			s.metrics.ProfilesAggregated.Inc()
		}
		if result.BuyersProcessed%100 == 0 {
			s.logger.InfoContext(ctx, "aggregation progress",
				"processed", result.BuyersProcessed, "total", len(buyers))
		}
	}

	result.Duration = time.Since(start)
	if s.metrics != nil {
		s.metrics.ObserveAggregation(start)
	}
	s.audit(ctx, audit.EventProfilesAggregated, audit.Event{
		Detail: fmt.Sprintf("processed=%d updated=%d skipped=%d",
			result.BuyersProcessed, result.ProfilesUpdated, result.BuyersSkipped),
	})
	s.logger.InfoContext(ctx, "aggregation run finished",
		"processed", result.BuyersProcessed,
		"updated", result.ProfilesUpdated,
		"skipped", result.BuyersSkipped,
		"duration", result.Duration)

	return result, nil
}

// SweepExpiredIntelligence removes intelligence records past their validity
// window. Scheduled hourly.
func (s *Service) SweepExpiredIntelligence(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	removed, err := s.intelligence.DeleteExpired(ctx, now)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sweep expired intelligence")
	}
	if removed > 0 {
		s.audit(ctx, audit.EventIntelligenceExpired, audit.Event{
			Detail: fmt.Sprintf("removed=%d", removed),
		})
		s.logger.InfoContext(ctx, "expired intelligence swept", "removed", removed)
	}
	return removed, nil
}

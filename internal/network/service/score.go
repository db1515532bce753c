package service

import (
	"context"
	"errors"
	"time"

	"creditnet/internal/network/models"
	"creditnet/pkg/anonymize"
	id "creditnet/pkg/domain"
	dErrors "creditnet/pkg/domain-errors"
	audit "creditnet/pkg/platform/audit"
	"creditnet/pkg/platform/sentinel"
	"creditnet/pkg/requestcontext"
)

// ScoreResult is the answer to a community score lookup. AccessGranted is
// false when the tenant's tier or participation state blocks the read; the
// score fields are zero in that case.
type ScoreResult struct {
	AccessGranted bool   `json:"accessGranted"`
	Reason        string `json:"reason,omitempty"`

	CommunityScore  float64            `json:"communityScore"`
	TrustTier       id.TrustTier       `json:"trustTier,omitempty"`
	Confidence      float64            `json:"confidence"`
	TrendDirection  id.TrendDirection  `json:"trendDirection,omitempty"`
	DataPoints      int                `json:"dataPoints"`
	VerifiedByCount int                `json:"verifiedByCount"`
	TrustBadges     []string           `json:"trustBadges,omitempty"`
	LastUpdatedAt   time.Time          `json:"lastUpdatedAt,omitzero"`
}

// neutralScore is returned for buyers the network has not profiled yet. A
// neutral answer keeps new buyers indistinguishable from thin-file buyers.
func neutralScore() *ScoreResult {
	return &ScoreResult{
		AccessGranted:  true,
		CommunityScore: 50,
		TrustTier:      id.TrustBronze,
		TrendDirection: id.TrendUnknown,
	}
}

// CommunityScore looks up a buyer's community profile on behalf of a tenant.
// Access is gated on the tenant's contribution tier; every granted read bumps
// the tenant's usage counters.
func (s *Service) CommunityScore(ctx context.Context, tenantID id.TenantID, buyerTaxID string) (*ScoreResult, error) {
	if buyerTaxID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "buyer tax id is required")
	}

	contribution, err := s.contributions.FindByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return s.denyScore(ctx, tenantID, "tenant is not registered in the network"), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check network access")
	}
	switch {
	case !contribution.Active || !contribution.OptInToNetworkSharing:
		return s.denyScore(ctx, tenantID, "network sharing is disabled for this tenant"), nil
	case !contribution.Benefits().CommunityScoreAccess:
		return s.denyScore(ctx, tenantID, "community score access requires a STANDARD or PREMIUM contribution tier"), nil
	}

	buyerID := anonymize.BuyerID(buyerTaxID)
	profile, err := s.lookupProfile(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	result := neutralScore()
	if profile != nil {
		result = &ScoreResult{
			AccessGranted:   true,
			CommunityScore:  profile.CommunityScore,
			TrustTier:       profile.TrustTier,
			Confidence:      profile.Confidence,
			TrendDirection:  profile.TrendDirection,
			DataPoints:      profile.DataPoints,
			VerifiedByCount: profile.VerifiedByCount,
			TrustBadges:     profile.TrustBadges,
			LastUpdatedAt:   profile.LastUpdatedAt,
		}
	}

	now := requestcontext.Now(ctx)
	if _, err := s.contributions.Execute(ctx, tenantID,
		func(c *models.TenantContribution) error { return nil },
		func(c *models.TenantContribution) { c.RecordAccess(now) }); err != nil {
		s.logger.WarnContext(ctx, "failed to record score access",
			"tenant_id", tenantID.String(), "error", err)
	}

	if s.metrics != nil {
		s.metrics.ScoreLookups.WithLabelValues("granted").Inc()
	}
	s.audit(ctx, audit.EventScoreAccessed, audit.Event{
		TenantID: tenantID,
		Subject:  buyerID.String(),
	})
	return result, nil
}

// lookupProfile reads through the cache to the profile store. Returns nil
// when the buyer has no profile.
func (s *Service) lookupProfile(ctx context.Context, buyerID id.GlobalBuyerID) (*models.BuyerProfile, error) {
	if profile, ok := s.profileCache.Get(ctx, buyerID); ok {
		if s.metrics != nil {
			s.metrics.ScoreCacheHits.Inc()
		}
		return profile, nil
	}
	if s.metrics != nil {
		s.metrics.ScoreCacheMisses.Inc()
	}

	profile, err := s.profiles.FindByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load buyer profile")
	}
	s.profileCache.Set(ctx, profile)
	return profile, nil
}

func (s *Service) denyScore(ctx context.Context, tenantID id.TenantID, reason string) *ScoreResult {
	if s.metrics != nil {
		s.metrics.ScoreLookups.WithLabelValues("denied").Inc()
	}
	s.audit(ctx, audit.EventScoreDenied, audit.Event{
		TenantID: tenantID,
		Detail:   reason,
	})
	return &ScoreResult{AccessGranted: false, Reason: reason}
}

package service_test

import (
	"github.com/google/uuid"

	"creditnet/internal/network/models"
	"creditnet/pkg/anonymize"
	id "creditnet/pkg/domain"
)

func (s *ServiceSuite) TestRunAggregationBuildsProfiles() {
	tenantA := s.register(id.TierStandard)
	tenantB := s.register(id.TierPremium)

	// buyer-good pays two vendors quickly; buyer-slow pays one vendor late.
	for i := 0; i < 5; i++ {
		date := s.now.AddDate(0, -i, 0)
		s.Require().NoError(s.svc.Contribute(s.ctx, tenantA, "buyer-good", paymentEvent(8, true, date)))
		s.Require().NoError(s.svc.Contribute(s.ctx, tenantB, "buyer-good", paymentEvent(10, true, date)))
		s.Require().NoError(s.svc.Contribute(s.ctx, tenantA, "buyer-slow", paymentEvent(75, false, date)))
	}

	result, err := s.svc.RunAggregation(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, result.BuyersProcessed)
	s.Equal(2, result.ProfilesUpdated)
	s.Zero(result.BuyersSkipped)

	good, err := s.profiles.FindByBuyer(s.ctx, anonymize.BuyerID("buyer-good"))
	s.Require().NoError(err)
	s.Equal(10, good.DataPoints)
	s.Equal(2, good.VerifiedByCount)
	s.InDelta(100.0, good.Metrics.OnTimePaymentRate, 1e-9)
	s.Equal(s.now, good.LastUpdatedAt)

	slow, err := s.profiles.FindByBuyer(s.ctx, anonymize.BuyerID("buyer-slow"))
	s.Require().NoError(err)
	s.Equal(5, slow.DataPoints)
	s.Equal(1, slow.VerifiedByCount)
	s.Less(slow.CommunityScore, good.CommunityScore)

	// Tier follows the headline score for both profiles.
	s.Equal(id.TrustTierForScore(good.CreditTrustScore), good.TrustTier)
	s.Equal(id.TrustTierForScore(slow.CreditTrustScore), slow.TrustTier)
}

func (s *ServiceSuite) TestRunAggregationReplacesProfilesWholesale() {
	tenantID := s.register(id.TierStandard)
	s.Require().NoError(s.svc.Contribute(s.ctx, tenantID, "buyer-1", paymentEvent(10, true, s.now)))

	// A stale profile with values the pool no longer supports.
	stale := &models.BuyerProfile{
		GlobalBuyerID:  anonymize.BuyerID("buyer-1"),
		CommunityScore: 10,
		TrustTier:      id.TrustRisk,
		DataPoints:     999,
		TrustBadges:    []string{"stale badge"},
		LastUpdatedAt:  s.now.AddDate(0, -1, 0),
	}
	s.Require().NoError(s.profiles.Upsert(s.ctx, stale))

	_, err := s.svc.RunAggregation(s.ctx)
	s.Require().NoError(err)

	fresh, err := s.profiles.FindByBuyer(s.ctx, anonymize.BuyerID("buyer-1"))
	s.Require().NoError(err)
	s.Equal(1, fresh.DataPoints)
	s.NotContains(fresh.TrustBadges, "stale badge")
}

func (s *ServiceSuite) TestRunAggregationEmptyPool() {
	result, err := s.svc.RunAggregation(s.ctx)
	s.Require().NoError(err)
	s.Zero(result.BuyersProcessed)
	s.Zero(result.ProfilesUpdated)
}

func (s *ServiceSuite) TestSweepExpiredIntelligence() {
	expired := &models.Intelligence{
		ID:             uuid.New(),
		Type:           models.IntelligenceEmergingRisk,
		Severity:       id.SeverityMedium,
		Title:          "old finding",
		DetectedAt:     s.now.AddDate(0, 0, -45),
		ValidUntil:     s.now.AddDate(0, 0, -15),
		VisibleToTiers: []id.ContributionTier{id.TierStandard, id.TierPremium},
		Active:         true,
	}
	live := &models.Intelligence{
		ID:             uuid.New(),
		Type:           models.IntelligenceEmergingRisk,
		Severity:       id.SeverityHigh,
		Title:          "current finding",
		DetectedAt:     s.now.AddDate(0, 0, -1),
		ValidUntil:     s.now.AddDate(0, 0, 29),
		VisibleToTiers: []id.ContributionTier{id.TierStandard, id.TierPremium},
		Active:         true,
	}
	s.Require().NoError(s.intelligence.Append(s.ctx, expired))
	s.Require().NoError(s.intelligence.Append(s.ctx, live))

	removed, err := s.svc.SweepExpiredIntelligence(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, removed)

	remaining, err := s.intelligence.ListActive(s.ctx, s.now, "")
	s.Require().NoError(err)
	s.Require().Len(remaining, 1)
	s.Equal("current finding", remaining[0].Title)

	// A second sweep finds nothing.
	removed, err = s.svc.SweepExpiredIntelligence(s.ctx)
	s.Require().NoError(err)
	s.Zero(removed)
}

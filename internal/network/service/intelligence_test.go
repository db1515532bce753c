package service_test

import (
	"time"

	"github.com/google/uuid"

	"creditnet/internal/network/models"
	"creditnet/pkg/anonymize"
	id "creditnet/pkg/domain"
	dErrors "creditnet/pkg/domain-errors"
)

func (s *ServiceSuite) seedIntelligence(title, industry string, severity id.Severity, tiers ...id.ContributionTier) *models.Intelligence {
	record := &models.Intelligence{
		ID:             uuid.New(),
		Type:           models.IntelligenceEmergingRisk,
		Severity:       severity,
		Title:          title,
		IndustryCode:   industry,
		DetectedBy:     "industry_deterioration",
		DetectedAt:     s.now.Add(-time.Hour),
		ValidUntil:     s.now.AddDate(0, 0, 29),
		VisibleToTiers: tiers,
		Active:         true,
	}
	s.Require().NoError(s.intelligence.Append(s.ctx, record))
	return record
}

func (s *ServiceSuite) TestListIntelligenceGatedByTier() {
	standardTiers := []id.ContributionTier{id.TierStandard, id.TierPremium}
	s.seedIntelligence("trading risk", "trading", id.SeverityHigh, standardTiers...)
	s.seedIntelligence("premium only", "", id.SeverityMedium, id.TierPremium)

	s.Run("basic tier is denied", func() {
		tenantID := s.register(id.TierBasic)
		_, err := s.svc.ListIntelligence(s.ctx, tenantID, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("standard sees standard-visible records", func() {
		tenantID := s.register(id.TierStandard)
		records, err := s.svc.ListIntelligence(s.ctx, tenantID, "")
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Equal("trading risk", records[0].Title)
	})

	s.Run("premium sees everything", func() {
		tenantID := s.register(id.TierPremium)
		records, err := s.svc.ListIntelligence(s.ctx, tenantID, "")
		s.Require().NoError(err)
		s.Len(records, 2)
	})

	s.Run("industry filter keeps global records", func() {
		tenantID := s.register(id.TierPremium)
		records, err := s.svc.ListIntelligence(s.ctx, tenantID, "textiles")
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Equal("premium only", records[0].Title)
	})
}

func (s *ServiceSuite) TestListIntelligenceEmptyForUnregisteredTenant() {
	s.seedIntelligence("trading risk", "trading", id.SeverityHigh, id.TierStandard, id.TierPremium)

	records, err := s.svc.ListIntelligence(s.ctx, id.TenantID(uuid.New()), "")
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *ServiceSuite) TestListIntelligenceDeniedAfterOptOut() {
	tenantID := s.register(id.TierStandard)
	_, err := s.svc.OptOut(s.ctx, tenantID)
	s.Require().NoError(err)

	_, err = s.svc.ListIntelligence(s.ctx, tenantID, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestInsightsSummarizeThePool() {
	tenantID := s.register(id.TierStandard)

	s.Require().NoError(s.svc.Contribute(s.ctx, tenantID, "buyer-1", paymentEvent(10, true, s.now.AddDate(0, 0, -2))))
	s.Require().NoError(s.svc.Contribute(s.ctx, tenantID, "buyer-2", paymentEvent(30, false, s.now.AddDate(0, -2, 0))))

	_, err := s.svc.RunAggregation(s.ctx)
	s.Require().NoError(err)

	s.seedIntelligence("trading risk", "trading", id.SeverityHigh, id.TierStandard, id.TierPremium)

	insights, err := s.svc.Insights(s.ctx, tenantID)
	s.Require().NoError(err)
	s.Equal(2, insights.TotalObservations)
	s.Equal(2, insights.ProfiledBuyers)
	s.Equal(1, insights.CurrentMonthVolume)
	s.Equal([]string{"trading"}, insights.ActiveIndustries)
	s.Equal([]string{"MH"}, insights.ActiveRegions)
	s.Require().Len(insights.RecentIntelligence, 1)
	s.Equal("trading risk", insights.RecentIntelligence[0].Title)
}

func (s *ServiceSuite) TestIndustryTrendsReturnMonthlyBuckets() {
	tenantID := s.register(id.TierStandard)

	// Three months of trading data with rising days-to-pay.
	s.Require().NoError(s.svc.Contribute(s.ctx, tenantID, "buyer-1", paymentEvent(10, true, s.now.AddDate(0, -2, 0))))
	s.Require().NoError(s.svc.Contribute(s.ctx, tenantID, "buyer-1", paymentEvent(20, true, s.now.AddDate(0, -1, 0))))
	s.Require().NoError(s.svc.Contribute(s.ctx, tenantID, "buyer-2", paymentEvent(30, false, s.now)))

	trends, err := s.svc.IndustryTrends(s.ctx, tenantID, "trading")
	s.Require().NoError(err)
	s.Require().Len(trends, 3, "months without observations are omitted")

	s.Equal("2026-06", trends[0].Month)
	s.Equal("2026-07", trends[1].Month)
	s.Equal("2026-08", trends[2].Month)
	s.InDelta(10.0, trends[0].AvgDaysToPay, 1e-9)
	s.InDelta(30.0, trends[2].AvgDaysToPay, 1e-9)
	s.InDelta(0.0, trends[2].OnTimePaymentRate, 1e-9)
	s.Equal(1, trends[2].BuyerCount)
}

func (s *ServiceSuite) TestIndustryTrendsValidation() {
	tenantID := s.register(id.TierStandard)

	_, err := s.svc.IndustryTrends(s.ctx, tenantID, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	basicID := s.register(id.TierBasic)
	_, err = s.svc.IndustryTrends(s.ctx, basicID, "trading")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestTrustDistributionIsPremiumOnly() {
	for buyer, seed := range map[string]struct {
		score    float64
		industry string
	}{
		"buyer-diamond": {95, "trading"},
		"buyer-gold":    {72, "trading"},
		"buyer-risk":    {30, "manufacturing"},
	} {
		s.Require().NoError(s.profiles.Upsert(s.ctx, &models.BuyerProfile{
			GlobalBuyerID:    anonymize.BuyerID(buyer),
			IndustryCode:     seed.industry,
			CreditTrustScore: seed.score,
			TrustTier:        id.TrustTierForScore(seed.score),
			LastUpdatedAt:    s.now,
		}))
	}

	s.Run("standard tier is denied", func() {
		tenantID := s.register(id.TierStandard)
		_, err := s.svc.TrustDistribution(s.ctx, tenantID, "", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("premium gets the band counts", func() {
		tenantID := s.register(id.TierPremium)
		bands, err := s.svc.TrustDistribution(s.ctx, tenantID, "", "")
		s.Require().NoError(err)
		s.Require().Len(bands, 6)

		counts := make(map[id.TrustTier]int, len(bands))
		for _, b := range bands {
			counts[b.Tier] = b.Count
		}
		s.Equal(1, counts[id.TrustDiamond])
		s.Equal(1, counts[id.TrustGold])
		s.Equal(1, counts[id.TrustRisk])
		s.Zero(counts[id.TrustPlatinum])
	})

	s.Run("industry filter narrows the counts", func() {
		tenantID := s.register(id.TierPremium)
		bands, err := s.svc.TrustDistribution(s.ctx, tenantID, "trading", "")
		s.Require().NoError(err)

		counts := make(map[id.TrustTier]int, len(bands))
		for _, b := range bands {
			counts[b.Tier] = b.Count
		}
		s.Equal(1, counts[id.TrustDiamond])
		s.Equal(1, counts[id.TrustGold])
		s.Zero(counts[id.TrustRisk])
	})

	s.Run("every score lands in exactly one band", func() {
		for buyer, score := range map[string]float64{
			"buyer-edge-low":  89.9999995,
			"buyer-edge-high": 90,
			"buyer-perfect":   100,
		} {
			s.Require().NoError(s.profiles.Upsert(s.ctx, &models.BuyerProfile{
				GlobalBuyerID:    anonymize.BuyerID(buyer),
				IndustryCode:     "trading",
				CreditTrustScore: score,
				TrustTier:        id.TrustTierForScore(score),
				LastUpdatedAt:    s.now,
			}))
		}

		tenantID := s.register(id.TierPremium)
		bands, err := s.svc.TrustDistribution(s.ctx, tenantID, "", "")
		s.Require().NoError(err)

		total := 0
		counts := make(map[id.TrustTier]int, len(bands))
		for _, b := range bands {
			counts[b.Tier] = b.Count
			total += b.Count
		}
		s.Equal(6, total, "no profile falls between bands")
		// 90 and 100 are Diamond; 89.9999995 sits just below the edge.
		s.Equal(3, counts[id.TrustDiamond])
		s.Equal(1, counts[id.TrustPlatinum])
	})
}

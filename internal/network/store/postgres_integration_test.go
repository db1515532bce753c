//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"creditnet/internal/network/models"
	"creditnet/internal/network/store"
	id "creditnet/pkg/domain"
	"creditnet/pkg/platform/sentinel"
	"creditnet/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres      *containers.PostgresContainer
	observations  *store.PostgresObservationStore
	profiles      *store.PostgresProfileStore
	contributions *store.PostgresContributionStore
	intelligence  *store.PostgresIntelligenceStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.observations = store.NewPostgresObservationStore(s.postgres.Pool)
	s.profiles = store.NewPostgresProfileStore(s.postgres.Pool)
	s.contributions = store.NewPostgresContributionStore(s.postgres.Pool)
	s.intelligence = store.NewPostgresIntelligenceStore(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"network_payment_observations",
		"network_buyer_profiles",
		"tenant_contributions",
		"network_intelligence",
	)
	s.Require().NoError(err)
}

func newObservation(buyer, tenant string, daysToPay int, onTime bool, date time.Time) *models.Observation {
	return &models.Observation{
		ID:                uuid.New(),
		GlobalBuyerID:     id.GlobalBuyerID(buyer),
		AnonymousTenantID: id.AnonymousTenantID(tenant),
		IndustryCode:      "trading",
		Region:            "MH",
		RevenueClass:      "small",
		DaysToPay:         daysToPay,
		PaidOnTime:        onTime,
		SizeCategory:      id.SizeSmall,
		ObservationDate:   date,
		ObservationYear:   date.Year(),
		ObservationMonth:  int(date.Month()),
		Quarter:           (int(date.Month())-1)/3 + 1,
		ContributedAt:     date,
	}
}

func (s *PostgresStoreSuite) TestObservationRoundTrip() {
	ctx := context.Background()
	jan := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	s.Require().NoError(s.observations.Append(ctx, newObservation("buyer-a", "t1", 10, true, jan)))
	s.Require().NoError(s.observations.Append(ctx, newObservation("buyer-a", "t2", 40, false, mar)))
	s.Require().NoError(s.observations.Append(ctx, newObservation("buyer-b", "t1", 5, true, jan)))

	found, err := s.observations.ListByBuyer(ctx, "buyer-a")
	s.Require().NoError(err)
	s.Require().Len(found, 2)
	s.Equal(40, found[0].DaysToPay, "newest first")
	s.Equal(id.SizeSmall, found[0].SizeCategory)

	buyers, err := s.observations.DistinctBuyerIDs(ctx)
	s.Require().NoError(err)
	s.Len(buyers, 2)

	count, err := s.observations.CountAll(ctx)
	s.Require().NoError(err)
	s.Equal(3, count)
}

func (s *PostgresStoreSuite) TestObservationAggregates() {
	ctx := context.Background()
	jan := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	s.Require().NoError(s.observations.Append(ctx, newObservation("buyer-a", "t1", 10, true, jan)))
	s.Require().NoError(s.observations.Append(ctx, newObservation("buyer-a", "t2", 30, false, feb)))

	s.Run("industry window", func() {
		m, err := s.observations.IndustryMetricsBetween(ctx, "trading", jan, mar)
		s.Require().NoError(err)
		s.InDelta(20.0, m.AvgDaysToPay, 1e-9)
		s.InDelta(50.0, m.OnTimePaymentRate, 1e-9)
		s.Equal(2, m.TransactionCount)
		s.Equal(1, m.BuyerCount)
	})

	s.Run("empty window maps to ErrNotFound", func() {
		_, err := s.observations.IndustryMetricsBetween(ctx, "mining", jan, mar)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("buyer stats use population stddev", func() {
		stats, err := s.observations.BuyerStatsSince(ctx, jan)
		s.Require().NoError(err)
		s.Require().Len(stats, 1)
		s.Equal(2, stats[0].TenantCount)
		// STDDEV_POP of {10, 30} is 10.
		s.InDelta(10.0, stats[0].DaysToPayStdDev, 1e-6)
	})

	s.Run("month volume and dimensions", func() {
		vol, err := s.observations.MonthVolume(ctx, 2026, 2)
		s.Require().NoError(err)
		s.Equal(1, vol)

		industries, err := s.observations.ActiveIndustries(ctx)
		s.Require().NoError(err)
		s.Equal([]string{"trading"}, industries)

		regions, err := s.observations.ActiveRegions(ctx)
		s.Require().NoError(err)
		s.Equal([]string{"MH"}, regions)
	})
}

func (s *PostgresStoreSuite) TestProfileRoundTrip() {
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 2, 0, 0, 0, time.UTC)

	profile := &models.BuyerProfile{
		GlobalBuyerID:    "buyer-a",
		IndustryCode:     "trading",
		Region:           "MH",
		RevenueClass:     "small",
		CommunityScore:   82.5,
		CreditTrustScore: 76.25,
		TrustTier:        id.TrustGold,
		Confidence:       90,
		ConsistencyScore: 88,
		TrendDirection:   id.TrendImproving,
		DataPoints:       120,
		VerifiedByCount:  12,
		Metrics: models.AggregateMetrics{
			AvgDaysToPay:      18.5,
			OnTimePaymentRate: 92,
			TotalTransactions: 120,
		},
		TrustBadges:   []string{"Improving performance"},
		LastUpdatedAt: now,
	}
	s.Require().NoError(s.profiles.Upsert(ctx, profile))

	found, err := s.profiles.FindByBuyer(ctx, "buyer-a")
	s.Require().NoError(err)
	s.Equal(profile.CreditTrustScore, found.CreditTrustScore)
	s.Equal(profile.TrustTier, found.TrustTier)
	s.Equal(profile.Metrics, found.Metrics)
	s.Equal(profile.TrustBadges, found.TrustBadges)

	s.Run("upsert replaces wholesale", func() {
		profile.CreditTrustScore = 91
		profile.TrustTier = id.TrustDiamond
		profile.TrustBadges = nil
		s.Require().NoError(s.profiles.Upsert(ctx, profile))

		found, err := s.profiles.FindByBuyer(ctx, "buyer-a")
		s.Require().NoError(err)
		s.Equal(id.TrustDiamond, found.TrustTier)
		s.Empty(found.TrustBadges)

		count, err := s.profiles.CountAll(ctx)
		s.Require().NoError(err)
		s.Equal(1, count)
	})

	s.Run("band counting", func() {
		count, err := s.profiles.CountByTrustScoreInRange(ctx, 90, 101)
		s.Require().NoError(err)
		s.Equal(1, count)

		// The range is half-open: the lower edge is included, the upper is not.
		count, err = s.profiles.CountByTrustScoreInRange(ctx, 91, 101)
		s.Require().NoError(err)
		s.Equal(1, count)

		count, err = s.profiles.CountByTrustScoreInRange(ctx, 80, 91)
		s.Require().NoError(err)
		s.Zero(count)
	})

	s.Run("unknown buyer", func() {
		_, err := s.profiles.FindByBuyer(ctx, "missing")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestContributionExecute() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	s.Require().NoError(s.contributions.Upsert(ctx, models.NewTenantContribution(tenantID, id.TierPremium, now)))

	updated, err := s.contributions.Execute(ctx, tenantID,
		func(c *models.TenantContribution) error { return nil },
		func(c *models.TenantContribution) { c.RecordAccess(now.Add(time.Hour)) })
	s.Require().NoError(err)
	s.Equal(int64(1), updated.NetworkScoresAccessed)
	s.Require().NotNil(updated.LastAccessAt)

	found, err := s.contributions.FindByTenant(ctx, tenantID)
	s.Require().NoError(err)
	s.Equal(int64(1), found.NetworkScoresAccessed)
	s.True(found.PrivacySettings.SharePaymentHistory)

	_, err = s.contributions.Execute(ctx, id.TenantID(uuid.New()),
		func(c *models.TenantContribution) error { return nil },
		func(c *models.TenantContribution) {})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestIntelligenceLifecycle() {
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 3, 0, 0, 0, time.UTC)

	record := &models.Intelligence{
		ID:             uuid.New(),
		Type:           models.IntelligenceEmergingRisk,
		Severity:       id.SeverityHigh,
		Title:          "Payment deterioration in trading",
		Recommendation: "Review credit terms for trading sector buyers",
		IndustryCode:   "trading",
		Evidence:       map[string]any{"changePercent": -42.5},
		AffectedBuyers: 17,
		DetectedBy:     "industry_deterioration",
		DetectedAt:     now,
		ValidUntil:     now.AddDate(0, 0, 30),
		VisibleToTiers: []id.ContributionTier{id.TierStandard, id.TierPremium},
		Active:         true,
	}
	s.Require().NoError(s.intelligence.Append(ctx, record))

	s.Run("list active with industry filter", func() {
		records, err := s.intelligence.ListActive(ctx, now, "trading")
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Equal(record.Title, records[0].Title)
		s.InDelta(-42.5, records[0].Evidence["changePercent"].(float64), 1e-9)
		s.Equal(record.VisibleToTiers, records[0].VisibleToTiers)

		records, err = s.intelligence.ListActive(ctx, now, "textiles")
		s.Require().NoError(err)
		s.Empty(records)
	})

	s.Run("expired records drop out and get swept", func() {
		later := record.ValidUntil.Add(time.Minute)

		records, err := s.intelligence.ListActive(ctx, later, "")
		s.Require().NoError(err)
		s.Empty(records)

		removed, err := s.intelligence.DeleteExpired(ctx, later)
		s.Require().NoError(err)
		s.Equal(1, removed)
	})
}

package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditnet/internal/network/models"
	id "creditnet/pkg/domain"
)

func obs(buyer string, tenant string, daysToPay int, onTime, dispute, partial bool) *models.Observation {
	return &models.Observation{
		GlobalBuyerID:     id.GlobalBuyerID(buyer),
		AnonymousTenantID: id.AnonymousTenantID(tenant),
		DaysToPay:         daysToPay,
		PaidOnTime:        onTime,
		HadDispute:        dispute,
		PartialPayment:    partial,
		IndustryCode:      "trading",
		Region:            "MH",
		RevenueClass:      "small",
	}
}

func TestCommunityScoreStaysInRange(t *testing.T) {
	tests := []struct {
		name string
		m    Metrics
	}{
		{"zero transactions", Metrics{}},
		{"all disputes, always late", Metrics{AvgDaysToPay: 120, DisputeRate: 100, PartialPaymentRate: 100, TotalTransactions: 40}},
		{"perfect payer, huge volume", Metrics{AvgDaysToPay: 0, OnTimePaymentRate: 100, TotalTransactions: 100000, UniqueTenants: 500}},
		{"negative-ish days", Metrics{AvgDaysToPay: -5, OnTimePaymentRate: 100, TotalTransactions: 1000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := CommunityScore(tt.m)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 100.0)
		})
	}
}

func TestCommunityScoreWorkedExample(t *testing.T) {
	m := Metrics{
		AvgDaysToPay:       20,
		OnTimePaymentRate:  95,
		DisputeRate:        1,
		PartialPaymentRate: 2,
		TotalTransactions:  200,
		UniqueTenants:      10,
	}
	// 50 + 38 + 10 - 0.15 - 0.2 + 5 exceeds 100 and clamps.
	assert.InDelta(t, 100.0, CommunityScore(m), 1e-9)
}

func TestCommunityScoreComponents(t *testing.T) {
	// A middling payer: 50% on-time, 30 days to pay, no disputes, 20 txns.
	m := Metrics{AvgDaysToPay: 30, OnTimePaymentRate: 50, TotalTransactions: 20}
	// 50 + 20 + 0 - 0 - 0 + 1 = 71
	assert.InDelta(t, 71.0, CommunityScore(m), 1e-9)
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.0, Confidence(0, 0))
	assert.Equal(t, 12.0, Confidence(1, 2))   // 2 + 10
	assert.Equal(t, 100.0, Confidence(25, 10))
	assert.Equal(t, 100.0, Confidence(1000, 1000))
	assert.Equal(t, 55.0, Confidence(200, 1)) // capped txn half + one tenant
}

func TestTrendImprovingWhenDaysToPayDrops(t *testing.T) {
	var observations []*models.Observation
	// 10 recent at 10 days, 10 older at 30 days (ordered date desc).
	for range 10 {
		observations = append(observations, obs("b", "t1", 10, true, false, false))
	}
	for range 10 {
		observations = append(observations, obs("b", "t1", 30, false, false, false))
	}
	assert.Equal(t, id.TrendImproving, Trend(observations))
}

func TestTrendDecliningWhenDaysToPayGrows(t *testing.T) {
	var observations []*models.Observation
	for range 10 {
		observations = append(observations, obs("b", "t1", 45, false, false, false))
	}
	for range 10 {
		observations = append(observations, obs("b", "t1", 30, true, false, false))
	}
	assert.Equal(t, id.TrendDeclining, Trend(observations))
}

func TestTrendStableOnSmallChangeOrThinData(t *testing.T) {
	var observations []*models.Observation
	for range 10 {
		observations = append(observations, obs("b", "t1", 29, true, false, false))
	}
	for range 10 {
		observations = append(observations, obs("b", "t1", 30, true, false, false))
	}
	assert.Equal(t, id.TrendStable, Trend(observations))

	thin := []*models.Observation{
		obs("b", "t1", 5, true, false, false),
		obs("b", "t1", 50, false, false, false),
	}
	assert.Equal(t, id.TrendStable, Trend(thin))
}

func TestConsistencyScoreDefaults(t *testing.T) {
	// Fewer than 10 observations.
	few := []*models.Observation{obs("b", "t1", 10, true, false, false)}
	assert.Equal(t, 50.0, ConsistencyScore(few))

	// 10+ observations but a single tenant.
	var single []*models.Observation
	for range 12 {
		single = append(single, obs("b", "t1", 10, true, false, false))
	}
	assert.Equal(t, 75.0, ConsistencyScore(single))
}

func TestConsistencyScorePenalizesSpreadAcrossTenants(t *testing.T) {
	// Tenant t1 averages 10 days, tenant t2 averages 50: stddev of the two
	// means is 20, so the score is 100 - 40 = 60.
	var observations []*models.Observation
	for range 6 {
		observations = append(observations, obs("b", "t1", 10, true, false, false))
	}
	for range 6 {
		observations = append(observations, obs("b", "t2", 50, false, false, false))
	}
	assert.InDelta(t, 60.0, ConsistencyScore(observations), 1e-9)
}

func TestConsistencyScoreUniformBehaviorScoresHigh(t *testing.T) {
	var observations []*models.Observation
	for range 6 {
		observations = append(observations, obs("b", "t1", 20, true, false, false))
	}
	for range 6 {
		observations = append(observations, obs("b", "t2", 20, true, false, false))
	}
	assert.InDelta(t, 100.0, ConsistencyScore(observations), 1e-9)
}

func TestCreditTrustScoreTrendAdjustment(t *testing.T) {
	base := CreditTrustScore(80, 80, 80, 5, id.TrendStable)
	up := CreditTrustScore(80, 80, 80, 5, id.TrendImproving)
	down := CreditTrustScore(80, 80, 80, 5, id.TrendDeclining)
	assert.InDelta(t, base+5, up, 1e-9)
	assert.InDelta(t, base-5, down, 1e-9)
}

func TestCreditTrustScoreClamped(t *testing.T) {
	assert.LessOrEqual(t, CreditTrustScore(100, 100, 100, 100, id.TrendImproving), 100.0)
	assert.GreaterOrEqual(t, CreditTrustScore(0, 0, 0, 0, id.TrendDeclining), 0.0)
}

func TestBadgesDerivationOrder(t *testing.T) {
	profile := &models.BuyerProfile{
		VerifiedByCount:  60,
		CreditTrustScore: 92,
		ConsistencyScore: 95,
		TrendDirection:   id.TrendImproving,
		Metrics:          models.AggregateMetrics{OnTimePaymentRate: 96},
	}
	badges := Badges(profile)
	require.Equal(t, []string{
		"Verified by 60+ businesses",
		"Excellent payment record",
		"Top 10% credit trust",
		"Improving performance",
		"Highly consistent payer",
	}, badges)
}

func TestBadgesEmptyForUnremarkableProfile(t *testing.T) {
	profile := &models.BuyerProfile{
		VerifiedByCount:  3,
		CreditTrustScore: 55,
		ConsistencyScore: 50,
		TrendDirection:   id.TrendStable,
		Metrics:          models.AggregateMetrics{OnTimePaymentRate: 60},
	}
	assert.Empty(t, Badges(profile))
}

func TestBuildProfileTierMatchesScore(t *testing.T) {
	var observations []*models.Observation
	for i := range 30 {
		tenant := "t1"
		if i%2 == 0 {
			tenant = "t2"
		}
		observations = append(observations, obs("buyer", tenant, 12, true, false, false))
	}

	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	profile := BuildProfile("buyer", observations, now)

	require.NotNil(t, profile)
	assert.Equal(t, id.TrustTierForScore(profile.CreditTrustScore), profile.TrustTier)
	assert.Equal(t, 30, profile.DataPoints)
	assert.Equal(t, 2, profile.VerifiedByCount)
	assert.Equal(t, now, profile.LastUpdatedAt)
	assert.Equal(t, "trading", profile.IndustryCode)
}

func TestBuildProfileIsIdempotent(t *testing.T) {
	var observations []*models.Observation
	for range 15 {
		observations = append(observations, obs("buyer", "t1", 25, false, true, false))
	}
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	a := BuildProfile("buyer", observations, now)
	b := BuildProfile("buyer", observations, now)
	assert.Equal(t, a, b)
}

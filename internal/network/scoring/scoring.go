// Package scoring holds the pure functions behind buyer profile
// aggregation. Everything here is deterministic arithmetic over observation
// slices; persistence and scheduling live elsewhere.
package scoring

import (
	"math"
	"time"

	"creditnet/internal/network/models"
	id "creditnet/pkg/domain"
)

// Metrics are the descriptive statistics computed over a buyer's
// observations before any scoring.
type Metrics struct {
	AvgDaysToPay       float64
	OnTimePaymentRate  float64
	DisputeRate        float64
	PartialPaymentRate float64
	TotalTransactions  int
	UniqueTenants      int
}

// ComputeMetrics summarizes a non-empty observation slice.
func ComputeMetrics(observations []*models.Observation) Metrics {
	total := len(observations)
	if total == 0 {
		return Metrics{}
	}

	tenants := make(map[id.AnonymousTenantID]struct{}, total)
	var daysSum, onTime, disputes, partials int
	for _, o := range observations {
		tenants[o.AnonymousTenantID] = struct{}{}
		daysSum += o.DaysToPay
		if o.PaidOnTime {
			onTime++
		}
		if o.HadDispute {
			disputes++
		}
		if o.PartialPayment {
			partials++
		}
	}

	n := float64(total)
	return Metrics{
		AvgDaysToPay:       float64(daysSum) / n,
		OnTimePaymentRate:  float64(onTime) / n * 100,
		DisputeRate:        float64(disputes) / n * 100,
		PartialPaymentRate: float64(partials) / n * 100,
		TotalTransactions:  total,
		UniqueTenants:      len(tenants),
	}
}

// CommunityScore rates payment reliability on [0,100]. Starts neutral at 50,
// rewards on-time rate and payment speed, penalizes disputes and partial
// payments, and adds a small data-volume bonus.
func CommunityScore(m Metrics) float64 {
	score := 50.0
	score += m.OnTimePaymentRate / 100 * 40
	score += math.Max(0, 30-m.AvgDaysToPay) / 30 * 30
	score -= m.DisputeRate / 100 * 15
	score -= m.PartialPaymentRate / 100 * 10
	score += math.Min(5, float64(m.TotalTransactions)/20)
	return clamp(score, 0, 100)
}

// Confidence expresses how much data backs a profile: up to 50 points from
// transaction count, up to 50 from distinct contributing tenants.
func Confidence(totalTransactions, uniqueTenants int) float64 {
	transactionConfidence := math.Min(50, float64(totalTransactions)*2)
	tenantConfidence := math.Min(50, float64(uniqueTenants)*5)
	return math.Min(100, transactionConfidence+tenantConfidence)
}

// Trend compares the mean days-to-pay of the 10 most recent observations
// against the next 10 older ones. Observations must be ordered date
// descending. Decreasing days-to-pay is an improvement. A relative change
// above 10% in either direction flips the trend; fewer than 3 observations
// in either window is stable.
func Trend(observations []*models.Observation) id.TrendDirection {
	recent := observations
	if len(recent) > 10 {
		recent = recent[:10]
	}
	var older []*models.Observation
	if len(observations) > 10 {
		older = observations[10:]
		if len(older) > 10 {
			older = older[:10]
		}
	}

	if len(recent) < 3 || len(older) < 3 {
		return id.TrendStable
	}

	recentAvg := meanDaysToPay(recent)
	olderAvg := meanDaysToPay(older)
	if olderAvg == 0 {
		return id.TrendStable
	}

	change := (olderAvg - recentAvg) / olderAvg * 100
	switch {
	case change > 10:
		return id.TrendImproving
	case change < -10:
		return id.TrendDeclining
	default:
		return id.TrendStable
	}
}

// ConsistencyScore measures whether the buyer treats its counterparties
// alike: the population standard deviation across per-tenant mean
// days-to-pay, inverted onto [0,100]. Defaults: 50 with fewer than 10
// observations, 75 with fewer than 2 distinct tenants.
func ConsistencyScore(observations []*models.Observation) float64 {
	if len(observations) < 10 {
		return 50
	}

	byTenant := make(map[id.AnonymousTenantID][]int)
	for _, o := range observations {
		byTenant[o.AnonymousTenantID] = append(byTenant[o.AnonymousTenantID], o.DaysToPay)
	}
	if len(byTenant) < 2 {
		return 75
	}

	means := make([]float64, 0, len(byTenant))
	for _, days := range byTenant {
		sum := 0
		for _, d := range days {
			sum += d
		}
		means = append(means, float64(sum)/float64(len(days)))
	}

	stdDev := populationStdDev(means)
	return math.Min(100, math.Max(0, 100-stdDev*2))
}

// CreditTrustScore blends the community score with verification breadth,
// consistency, trend, and confidence into the headline [0,100] rating.
func CreditTrustScore(communityScore, consistencyScore, confidence float64, uniqueTenants int, trend id.TrendDirection) float64 {
	score := communityScore * 0.6
	score += math.Min(20, float64(uniqueTenants)*2)
	score += consistencyScore / 100 * 10
	switch trend {
	case id.TrendImproving:
		score += 5
	case id.TrendDeclining:
		score -= 5
	}
	score += confidence / 100 * 5
	return clamp(score, 0, 100)
}

// BuildProfile aggregates one buyer's observations into a fresh profile.
// Observations must be non-empty and ordered date descending. The result is
// a wholesale replacement for any previously stored profile.
func BuildProfile(buyerID id.GlobalBuyerID, observations []*models.Observation, now time.Time) *models.BuyerProfile {
	m := ComputeMetrics(observations)
	community := CommunityScore(m)
	confidence := Confidence(m.TotalTransactions, m.UniqueTenants)
	trend := Trend(observations)
	consistency := ConsistencyScore(observations)
	trust := CreditTrustScore(community, consistency, confidence, m.UniqueTenants, trend)

	profile := &models.BuyerProfile{
		GlobalBuyerID:    buyerID,
		IndustryCode:     observations[0].IndustryCode,
		Region:           observations[0].Region,
		RevenueClass:     observations[0].RevenueClass,
		CommunityScore:   community,
		CreditTrustScore: trust,
		TrustTier:        id.TrustTierForScore(trust),
		Confidence:       confidence,
		ConsistencyScore: consistency,
		TrendDirection:   trend,
		DataPoints:       m.TotalTransactions,
		VerifiedByCount:  m.UniqueTenants,
		Metrics: models.AggregateMetrics{
			AvgDaysToPay:       m.AvgDaysToPay,
			OnTimePaymentRate:  m.OnTimePaymentRate,
			DisputeRate:        m.DisputeRate,
			PartialPaymentRate: m.PartialPaymentRate,
			TotalTransactions:  m.TotalTransactions,
		},
		LastUpdatedAt: now,
	}
	profile.TrustBadges = Badges(profile)
	return profile
}

func meanDaysToPay(observations []*models.Observation) float64 {
	sum := 0
	for _, o := range observations {
		sum += o.DaysToPay
	}
	return float64(sum) / float64(len(observations))
}

// populationStdDev divides by N, not N-1. The per-tenant means are the whole
// population under measurement, not a sample from a larger one.
func populationStdDev(values []float64) float64 {
	n := float64(len(values))
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= n

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= n
	return math.Sqrt(variance)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

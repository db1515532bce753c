package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"creditnet/internal/network/models"
	id "creditnet/pkg/domain"
	dErrors "creditnet/pkg/domain-errors"
	audit "creditnet/pkg/platform/audit"
	"creditnet/pkg/platform/sentinel"
	"creditnet/pkg/requestcontext"
)

const recentIntelligenceLimit = 5

// ListIntelligence returns active intelligence visible to the tenant's tier,
// optionally filtered to one industry. An unregistered tenant gets an empty
// feed, not an error; a registered tenant below STANDARD gets a denial.
func (s *Service) ListIntelligence(ctx context.Context, tenantID id.TenantID, industryCode string) ([]*models.Intelligence, error) {
	contribution, err := s.contributions.FindByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return []*models.Intelligence{}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check network access")
	}
	if !contribution.Active || !contribution.OptInToNetworkSharing {
		return nil, dErrors.New(dErrors.CodeForbidden, "network sharing is disabled for this tenant")
	}
	if !contribution.Benefits().IntelligenceAccess {
		return nil, dErrors.New(dErrors.CodeForbidden, "network intelligence requires a STANDARD or PREMIUM contribution tier")
	}

	now := requestcontext.Now(ctx)
	records, err := s.intelligence.ListActive(ctx, now, industryCode)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list intelligence")
	}

	visible := make([]*models.Intelligence, 0, len(records))
	for _, r := range records {
		if r.IsAccessibleBy(contribution.Tier) {
			visible = append(visible, r)
		}
	}
	return visible, nil
}

// NetworkInsights is the tenant-facing overview of the pool: volume, reach,
// and the freshest intelligence.
type NetworkInsights struct {
	TotalObservations  int                    `json:"totalObservations"`
	ProfiledBuyers     int                    `json:"profiledBuyers"`
	CurrentMonthVolume int                    `json:"currentMonthVolume"`
	ActiveIndustries   []string               `json:"activeIndustries"`
	ActiveRegions      []string               `json:"activeRegions"`
	RecentIntelligence []*models.Intelligence `json:"recentIntelligence"`
}

// Insights summarizes the state of the network for a participating tenant.
func (s *Service) Insights(ctx context.Context, tenantID id.TenantID) (*NetworkInsights, error) {
	contribution, err := s.requireBenefit(ctx, tenantID, func(b id.TierBenefits) bool { return b.IntelligenceAccess },
		"network insights require a STANDARD or PREMIUM contribution tier")
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)

	totalObservations, err := s.observations.CountAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count observations")
	}
	profiledBuyers, err := s.profiles.CountAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count profiles")
	}
	monthVolume, err := s.observations.MonthVolume(ctx, now.Year(), int(now.Month()))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count month volume")
	}
	industries, err := s.observations.ActiveIndustries(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list industries")
	}
	regions, err := s.observations.ActiveRegions(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list regions")
	}

	recent, err := s.intelligence.RecentActive(ctx, now, recentIntelligenceLimit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list recent intelligence")
	}
	visible := make([]*models.Intelligence, 0, len(recent))
	for _, r := range recent {
		if r.IsAccessibleBy(contribution.Tier) {
			visible = append(visible, r)
		}
	}

	return &NetworkInsights{
		TotalObservations:  totalObservations,
		ProfiledBuyers:     profiledBuyers,
		CurrentMonthVolume: monthVolume,
		ActiveIndustries:   industries,
		ActiveRegions:      regions,
		RecentIntelligence: visible,
	}, nil
}

// MonthlyTrend is one month of industry payment behavior.
type MonthlyTrend struct {
	Month             string  `json:"month"` // YYYY-MM
	AvgDaysToPay      float64 `json:"avgDaysToPay"`
	OnTimePaymentRate float64 `json:"onTimePaymentRate"`
	TransactionCount  int     `json:"transactionCount"`
	BuyerCount        int     `json:"buyerCount"`
}

// IndustryTrends returns up to twelve months of aggregated payment behavior
// for one industry, oldest first. Months without observations are omitted.
func (s *Service) IndustryTrends(ctx context.Context, tenantID id.TenantID, industryCode string) ([]MonthlyTrend, error) {
	if industryCode == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "industry code is required")
	}
	if _, err := s.requireBenefit(ctx, tenantID, func(b id.TierBenefits) bool { return b.TrendAnalysisAccess },
		"industry trends require a STANDARD or PREMIUM contribution tier"); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var trends []MonthlyTrend
	for i := 11; i >= 0; i-- {
		start := currentMonth.AddDate(0, -i, 0)
		end := start.AddDate(0, 1, 0)

		m, err := s.observations.IndustryMetricsBetween(ctx, industryCode, start, end)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate industry month")
		}
		trends = append(trends, MonthlyTrend{
			Month:             start.Format("2006-01"),
			AvgDaysToPay:      m.AvgDaysToPay,
			OnTimePaymentRate: m.OnTimePaymentRate,
			TransactionCount:  m.TransactionCount,
			BuyerCount:        m.BuyerCount,
		})
	}
	return trends, nil
}

// TrustBand is one bucket of the network-wide trust score distribution.
type TrustBand struct {
	Tier  id.TrustTier `json:"tier"`
	Min   float64      `json:"min"`
	Max   float64      `json:"max"`
	Count int          `json:"count"`
}

// TrustDistribution counts profiled buyers per trust tier band, optionally
// narrowed to one industry or region. Benchmarking is a PREMIUM benefit.
func (s *Service) TrustDistribution(ctx context.Context, tenantID id.TenantID, industryCode, region string) ([]TrustBand, error) {
	if _, err := s.requireBenefit(ctx, tenantID, func(b id.TierBenefits) bool { return b.BenchmarkingAccess },
		"trust distribution requires a PREMIUM contribution tier"); err != nil {
		return nil, err
	}

	// Bands are half-open [Min, Max) so no score falls between two of them,
	// mirroring TrustTierForScore.
	bands := []TrustBand{
		{Tier: id.TrustDiamond, Min: 90, Max: 100},
		{Tier: id.TrustPlatinum, Min: 80, Max: 90},
		{Tier: id.TrustGold, Min: 70, Max: 80},
		{Tier: id.TrustSilver, Min: 60, Max: 70},
		{Tier: id.TrustBronze, Min: 50, Max: 60},
		{Tier: id.TrustRisk, Min: 0, Max: 50},
	}

	if industryCode == "" && region == "" {
		for i := range bands {
			upper := bands[i].Max
			if bands[i].Tier == id.TrustDiamond {
				// Scores clamp to [0, 100]; a perfect 100 belongs in the
				// top band, so its upper edge is inclusive.
				upper = 101
			}
			count, err := s.profiles.CountByTrustScoreInRange(ctx, bands[i].Min, upper)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count trust band")
			}
			bands[i].Count = count
		}
		return bands, nil
	}

	profiles, err := s.profiles.ListFiltered(ctx, industryCode, region)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list profiles")
	}
	for _, p := range profiles {
		tier := id.TrustTierForScore(p.CreditTrustScore)
		for i := range bands {
			if bands[i].Tier == tier {
				bands[i].Count++
				break
			}
		}
	}
	return bands, nil
}

// NoteDetectionRun audits a completed detection pass. Runs with no findings
// leave no audit trail.
func (s *Service) NoteDetectionRun(ctx context.Context, findings int) {
	if findings == 0 {
		return
	}
	s.audit(ctx, audit.EventIntelligenceDetected, audit.Event{
		Detail: fmt.Sprintf("findings=%d", findings),
	})
}

func (s *Service) requireBenefit(ctx context.Context, tenantID id.TenantID, has func(id.TierBenefits) bool, denial string) (*models.TenantContribution, error) {
	contribution, err := s.contributions.FindByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeForbidden, "tenant is not registered in the network")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check network access")
	}
	if !contribution.Active || !contribution.OptInToNetworkSharing {
		return nil, dErrors.New(dErrors.CodeForbidden, "network sharing is disabled for this tenant")
	}
	if !has(contribution.Benefits()) {
		return nil, dErrors.New(dErrors.CodeForbidden, denial)
	}
	return contribution, nil
}

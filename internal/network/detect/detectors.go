package detect

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"creditnet/internal/network/models"
	"creditnet/internal/network/store"
	id "creditnet/pkg/domain"
	"creditnet/pkg/platform/sentinel"
)

const (
	selectiveLookbackDays = 90
	selectiveMinTenants   = 3
	selectiveStdDevMin    = 15.0
	selectiveTopN         = 20

	deteriorationThresholdPct = 35.0
	stressDropThresholdPts    = 20.0
	seasonalDropThresholdPct  = -50.0
)

func newFinding(now time.Time, severity id.Severity, detector string) *models.Intelligence {
	return &models.Intelligence{
		ID:             uuid.New(),
		Type:           models.IntelligenceEmergingRisk,
		Severity:       severity,
		DetectedBy:     detector,
		DetectedAt:     now,
		ValidUntil:     now.AddDate(0, 0, validityDays),
		VisibleToTiers: defaultVisibility(),
		Active:         true,
	}
}

// detectSelectiveDelays flags buyers who pay some vendors on time while
// delaying others: at least three distinct contributing tenants and a
// days-to-pay spread above fifteen days over the last ninety days. Capped to
// the twenty most erratic buyers per run.
func (r *Runner) detectSelectiveDelays(ctx context.Context, now time.Time) ([]*models.Intelligence, error) {
	cutoff := now.AddDate(0, 0, -selectiveLookbackDays)
	stats, err := r.observations.BuyerStatsSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("buyer stats: %w", err)
	}

	var suspects []store.BuyerWindowStats
	for _, s := range stats {
		if s.TenantCount >= selectiveMinTenants && s.DaysToPayStdDev > selectiveStdDevMin {
			suspects = append(suspects, s)
		}
	}
	sort.Slice(suspects, func(i, j int) bool {
		return suspects[i].DaysToPayStdDev > suspects[j].DaysToPayStdDev
	})
	if len(suspects) > selectiveTopN {
		suspects = suspects[:selectiveTopN]
	}

	findings := make([]*models.Intelligence, 0, len(suspects))
	for _, s := range suspects {
		f := newFinding(now, id.SeverityHigh, "selective_delay")
		f.Title = "Buyer pays some vendors on time but delays others significantly"
		f.Recommendation = "Flag as strategic late payer - negotiate stricter terms"
		f.AffectedBuyers = 1
		f.Evidence = map[string]any{
			"buyerId":            s.GlobalBuyerID.String(),
			"tenantCount":        s.TenantCount,
			"avgOnTimeRate":      s.OnTimeRate,
			"paymentVariability": s.DaysToPayStdDev,
		}
		findings = append(findings, f)
	}
	return findings, nil
}

// windows returns the recent window (last thirty days) and the baseline
// window (sixty to ninety days ago) used by the comparative detectors.
func windows(now time.Time) (recentStart, baselineStart, baselineEnd time.Time) {
	recentStart = now.AddDate(0, 0, -recentWindowDays)
	baselineEnd = now.AddDate(0, 0, -baselineOffsetDays)
	baselineStart = baselineEnd.AddDate(0, 0, -baselineWindowDays)
	return recentStart, baselineStart, baselineEnd
}

// detectIndustryDeterioration compares each active industry's recent average
// days-to-pay against its baseline window. A rise above thirty-five percent
// is flagged. Industries missing either window are skipped.
func (r *Runner) detectIndustryDeterioration(ctx context.Context, now time.Time) ([]*models.Intelligence, error) {
	industries, err := r.observations.ActiveIndustries(ctx)
	if err != nil {
		return nil, fmt.Errorf("active industries: %w", err)
	}
	recentStart, baselineStart, baselineEnd := windows(now)

	var findings []*models.Intelligence
	for _, industry := range industries {
		recent, err := r.observations.IndustryMetricsBetween(ctx, industry, recentStart, now)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("industry %s recent window: %w", industry, err)
		}
		baseline, err := r.observations.IndustryMetricsBetween(ctx, industry, baselineStart, baselineEnd)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("industry %s baseline window: %w", industry, err)
		}
		if baseline.AvgDaysToPay == 0 {
			continue
		}

		delayIncrease := (recent.AvgDaysToPay - baseline.AvgDaysToPay) / baseline.AvgDaysToPay * 100
		if delayIncrease <= deteriorationThresholdPct {
			continue
		}

		f := newFinding(now, id.SeverityHigh, "industry_deterioration")
		f.Title = "Industry-wide payment delays increasing"
		f.Recommendation = "Tighten credit terms for this sector"
		f.IndustryCode = industry
		f.AffectedBuyers = recent.BuyerCount
		f.Evidence = map[string]any{
			"delayIncrease":   fmt.Sprintf("%.1f%%", delayIncrease),
			"recentAvgDays":   recent.AvgDaysToPay,
			"baselineAvgDays": baseline.AvgDaysToPay,
			"affectedBuyers":  recent.BuyerCount,
		}
		findings = append(findings, f)
	}
	return findings, nil
}

// detectGeographicStress compares each active region's recent on-time rate
// against its baseline window. A drop above twenty percentage points is
// flagged.
func (r *Runner) detectGeographicStress(ctx context.Context, now time.Time) ([]*models.Intelligence, error) {
	regions, err := r.observations.ActiveRegions(ctx)
	if err != nil {
		return nil, fmt.Errorf("active regions: %w", err)
	}
	recentStart, baselineStart, baselineEnd := windows(now)

	var findings []*models.Intelligence
	for _, region := range regions {
		recent, err := r.observations.RegionMetricsBetween(ctx, region, recentStart, now)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("region %s recent window: %w", region, err)
		}
		baseline, err := r.observations.RegionMetricsBetween(ctx, region, baselineStart, baselineEnd)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("region %s baseline window: %w", region, err)
		}

		onTimeRateDrop := baseline.OnTimePaymentRate - recent.OnTimePaymentRate
		if onTimeRateDrop <= stressDropThresholdPts {
			continue
		}

		f := newFinding(now, id.SeverityMedium, "geographic_stress")
		f.Title = "Regional payment stress detected"
		f.Recommendation = "Monitor regional economic indicators"
		f.Region = region
		f.AffectedBuyers = recent.BuyerCount
		f.Evidence = map[string]any{
			"onTimeRateDrop": onTimeRateDrop,
			"recentRate":     recent.OnTimePaymentRate,
			"baselineRate":   baseline.OnTimePaymentRate,
			"affectedBuyers": recent.BuyerCount,
		}
		findings = append(findings, f)
	}
	return findings, nil
}

// detectSeasonalAnomalies compares the current calendar month's observation
// volume against the same month last year. A drop of more than half is
// flagged as a slowdown signal.
func (r *Runner) detectSeasonalAnomalies(ctx context.Context, now time.Time) ([]*models.Intelligence, error) {
	current, err := r.observations.MonthVolume(ctx, now.Year(), int(now.Month()))
	if err != nil {
		return nil, fmt.Errorf("current month volume: %w", err)
	}
	lastYear, err := r.observations.MonthVolume(ctx, now.Year()-1, int(now.Month()))
	if err != nil {
		return nil, fmt.Errorf("last year month volume: %w", err)
	}
	if lastYear == 0 {
		return nil, nil
	}

	volumeChange := float64(current-lastYear) / float64(lastYear) * 100
	if volumeChange >= seasonalDropThresholdPct {
		return nil, nil
	}

	f := newFinding(now, id.SeverityMedium, "seasonal_anomaly")
	f.Title = "Unusual drop in business activity"
	f.Recommendation = "Economic slowdown indicator - review credit exposure"
	f.Evidence = map[string]any{
		"volumeChange":   volumeChange,
		"currentVolume":  current,
		"lastYearVolume": lastYear,
	}
	return []*models.Intelligence{f}, nil
}

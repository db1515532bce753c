package store

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"creditnet/internal/network/models"
	id "creditnet/pkg/domain"
	"creditnet/pkg/platform/sentinel"
)

// In-memory stores back tests and single-node development. They favor
// clarity over performance and hold the same contracts as the PostgreSQL
// implementations.

// MemoryObservationStore keeps the observation pool in a slice; the pool is
// append-only so a slice is the honest data structure.
type MemoryObservationStore struct {
	mu           sync.RWMutex
	observations []*models.Observation
}

func NewMemoryObservationStore() *MemoryObservationStore {
	return &MemoryObservationStore{}
}

func (s *MemoryObservationStore) Append(_ context.Context, observation *models.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *observation
	s.observations = append(s.observations, &cp)
	return nil
}

func (s *MemoryObservationStore) ListByBuyer(_ context.Context, buyerID id.GlobalBuyerID) ([]*models.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Observation
	for _, o := range s.observations {
		if o.GlobalBuyerID == buyerID {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ObservationDate.Equal(out[j].ObservationDate) {
			return out[i].ObservationDate.After(out[j].ObservationDate)
		}
		return out[i].ContributedAt.After(out[j].ContributedAt)
	})
	return out, nil
}

func (s *MemoryObservationStore) DistinctBuyerIDs(_ context.Context) ([]id.GlobalBuyerID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[id.GlobalBuyerID]struct{})
	var out []id.GlobalBuyerID
	for _, o := range s.observations {
		if _, ok := seen[o.GlobalBuyerID]; !ok {
			seen[o.GlobalBuyerID] = struct{}{}
			out = append(out, o.GlobalBuyerID)
		}
	}
	return out, nil
}

func (s *MemoryObservationStore) BuyerStatsSince(_ context.Context, cutoff time.Time) ([]BuyerWindowStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type acc struct {
		tenants map[id.AnonymousTenantID]struct{}
		days    []float64
		onTime  int
	}
	byBuyer := make(map[id.GlobalBuyerID]*acc)
	for _, o := range s.observations {
		if o.ObservationDate.Before(cutoff) {
			continue
		}
		a := byBuyer[o.GlobalBuyerID]
		if a == nil {
			a = &acc{tenants: make(map[id.AnonymousTenantID]struct{})}
			byBuyer[o.GlobalBuyerID] = a
		}
		a.tenants[o.AnonymousTenantID] = struct{}{}
		a.days = append(a.days, float64(o.DaysToPay))
		if o.PaidOnTime {
			a.onTime++
		}
	}

	out := make([]BuyerWindowStats, 0, len(byBuyer))
	for buyerID, a := range byBuyer {
		out = append(out, BuyerWindowStats{
			GlobalBuyerID:    buyerID,
			TenantCount:      len(a.tenants),
			ObservationCount: len(a.days),
			OnTimeRate:       float64(a.onTime) / float64(len(a.days)) * 100,
			DaysToPayStdDev:  stdDevPop(a.days),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DaysToPayStdDev > out[j].DaysToPayStdDev
	})
	return out, nil
}

func (s *MemoryObservationStore) IndustryMetricsBetween(_ context.Context, industryCode string, start, end time.Time) (WindowMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.windowMetrics(start, end, func(o *models.Observation) bool {
		return o.IndustryCode == industryCode
	})
}

func (s *MemoryObservationStore) RegionMetricsBetween(_ context.Context, region string, start, end time.Time) (WindowMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.windowMetrics(start, end, func(o *models.Observation) bool {
		return o.Region == region
	})
}

// windowMetrics must be called with the read lock held.
func (s *MemoryObservationStore) windowMetrics(start, end time.Time, match func(*models.Observation) bool) (WindowMetrics, error) {
	buyers := make(map[id.GlobalBuyerID]struct{})
	var count, onTime, daysSum int
	for _, o := range s.observations {
		if !match(o) || o.ObservationDate.Before(start) || !o.ObservationDate.Before(end) {
			continue
		}
		count++
		daysSum += o.DaysToPay
		if o.PaidOnTime {
			onTime++
		}
		buyers[o.GlobalBuyerID] = struct{}{}
	}
	if count == 0 {
		return WindowMetrics{}, sentinel.ErrNotFound
	}
	return WindowMetrics{
		AvgDaysToPay:      float64(daysSum) / float64(count),
		OnTimePaymentRate: float64(onTime) / float64(count) * 100,
		TransactionCount:  count,
		BuyerCount:        len(buyers),
	}, nil
}

func (s *MemoryObservationStore) MonthVolume(_ context.Context, year, month int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, o := range s.observations {
		if o.ObservationYear == year && o.ObservationMonth == month {
			count++
		}
	}
	return count, nil
}

func (s *MemoryObservationStore) ActiveIndustries(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return distinct(s.observations, func(o *models.Observation) string { return o.IndustryCode }), nil
}

func (s *MemoryObservationStore) ActiveRegions(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return distinct(s.observations, func(o *models.Observation) string { return o.Region }), nil
}

func (s *MemoryObservationStore) CountAll(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observations), nil
}

// MemoryProfileStore keys profiles by buyer ID; Upsert is a wholesale
// replacement, matching the aggregation contract.
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[id.GlobalBuyerID]*models.BuyerProfile
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[id.GlobalBuyerID]*models.BuyerProfile)}
}

func (s *MemoryProfileStore) Upsert(_ context.Context, profile *models.BuyerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *profile
	s.profiles[profile.GlobalBuyerID] = &cp
	return nil
}

func (s *MemoryProfileStore) FindByBuyer(_ context.Context, buyerID id.GlobalBuyerID) (*models.BuyerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[buyerID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryProfileStore) CountAll(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles), nil
}

func (s *MemoryProfileStore) CountByTrustScoreInRange(_ context.Context, min, upper float64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, p := range s.profiles {
		if p.CreditTrustScore >= min && p.CreditTrustScore < upper {
			count++
		}
	}
	return count, nil
}

func (s *MemoryProfileStore) ListFiltered(_ context.Context, industryCode, region string) ([]*models.BuyerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.BuyerProfile
	for _, p := range s.profiles {
		if industryCode != "" && p.IndustryCode != industryCode {
			continue
		}
		if region != "" && p.Region != region {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GlobalBuyerID < out[j].GlobalBuyerID
	})
	return out, nil
}

// MemoryContributionStore keys contribution rows by tenant ID. Execute holds
// the write lock across validate and mutate so counter bumps never race.
type MemoryContributionStore struct {
	mu            sync.RWMutex
	contributions map[id.TenantID]*models.TenantContribution
}

func NewMemoryContributionStore() *MemoryContributionStore {
	return &MemoryContributionStore{contributions: make(map[id.TenantID]*models.TenantContribution)}
}

func (s *MemoryContributionStore) Upsert(_ context.Context, contribution *models.TenantContribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *contribution
	s.contributions[contribution.TenantID] = &cp
	return nil
}

func (s *MemoryContributionStore) FindByTenant(_ context.Context, tenantID id.TenantID) (*models.TenantContribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.contributions[tenantID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryContributionStore) Execute(_ context.Context, tenantID id.TenantID,
	validate func(*models.TenantContribution) error,
	mutate func(*models.TenantContribution)) (*models.TenantContribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contributions[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	mutate(c)
	cp := *c
	return &cp, nil
}

// MemoryIntelligenceStore holds detected patterns in a slice; the expiry
// sweep compacts it.
type MemoryIntelligenceStore struct {
	mu      sync.RWMutex
	records []*models.Intelligence
}

func NewMemoryIntelligenceStore() *MemoryIntelligenceStore {
	return &MemoryIntelligenceStore{}
}

func (s *MemoryIntelligenceStore) Append(_ context.Context, record *models.Intelligence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *record
	s.records = append(s.records, &cp)
	return nil
}

func (s *MemoryIntelligenceStore) ListActive(_ context.Context, now time.Time, industryCode string) ([]*models.Intelligence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Intelligence
	for _, r := range s.records {
		if !r.Active || r.IsExpired(now) {
			continue
		}
		if industryCode != "" && !r.MatchesIndustry(industryCode) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity.Rank() != out[j].Severity.Rank() {
			return out[i].Severity.Rank() > out[j].Severity.Rank()
		}
		return out[i].DetectedAt.After(out[j].DetectedAt)
	})
	return out, nil
}

func (s *MemoryIntelligenceStore) RecentActive(_ context.Context, now time.Time, limit int) ([]*models.Intelligence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Intelligence
	for _, r := range s.records {
		if !r.Active || r.IsExpired(now) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DetectedAt.After(out[j].DetectedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryIntelligenceStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	removed := 0
	for _, r := range s.records {
		if r.IsExpired(now) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return removed, nil
}

func distinct(observations []*models.Observation, key func(*models.Observation) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, o := range observations {
		k := key(o)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func stdDevPop(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
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
	return math.Sqrt(variance / n)
}

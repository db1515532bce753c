// Package store defines the persistence boundary of the network module.
// Interfaces are narrow and per-entity so domain logic stays testable and
// persistence can swap between in-memory and PostgreSQL without rewiring
// business code.
package store

import (
	"context"
	"time"

	"creditnet/internal/network/models"
	id "creditnet/pkg/domain"
)

// WindowMetrics summarizes observations inside a time window for one
// industry or region.
type WindowMetrics struct {
	AvgDaysToPay      float64
	OnTimePaymentRate float64
	TransactionCount  int
	BuyerCount        int
}

// BuyerWindowStats carries the per-buyer aggregates the selective-delay
// detector needs over its lookback window.
type BuyerWindowStats struct {
	GlobalBuyerID    id.GlobalBuyerID
	TenantCount      int
	ObservationCount int
	OnTimeRate       float64
	DaysToPayStdDev  float64 // population standard deviation
}

// ObservationStore is the append-only pool of anonymized payment events.
type ObservationStore interface {
	// Append writes one immutable observation.
	Append(ctx context.Context, observation *models.Observation) error

	// ListByBuyer returns all observations for a buyer, newest first.
	ListByBuyer(ctx context.Context, buyerID id.GlobalBuyerID) ([]*models.Observation, error)

	// DistinctBuyerIDs returns every buyer with at least one observation.
	DistinctBuyerIDs(ctx context.Context) ([]id.GlobalBuyerID, error)

	// BuyerStatsSince aggregates per-buyer payment variability over
	// observations dated on or after the cutoff.
	BuyerStatsSince(ctx context.Context, cutoff time.Time) ([]BuyerWindowStats, error)

	// IndustryMetricsBetween aggregates one industry inside [start, end).
	// Returns sentinel.ErrNotFound when the window holds no observations.
	IndustryMetricsBetween(ctx context.Context, industryCode string, start, end time.Time) (WindowMetrics, error)

	// RegionMetricsBetween aggregates one region inside [start, end).
	// Returns sentinel.ErrNotFound when the window holds no observations.
	RegionMetricsBetween(ctx context.Context, region string, start, end time.Time) (WindowMetrics, error)

	// MonthVolume counts observations bucketed to the given calendar month.
	MonthVolume(ctx context.Context, year, month int) (int, error)

	// ActiveIndustries lists distinct industry codes seen in the pool.
	ActiveIndustries(ctx context.Context) ([]string, error)

	// ActiveRegions lists distinct regions seen in the pool.
	ActiveRegions(ctx context.Context) ([]string, error)

	// CountAll returns the total observation count.
	CountAll(ctx context.Context) (int, error)
}

// ProfileStore holds aggregated buyer profiles. Writes are wholesale
// overwrites; a profile never receives partial updates.
type ProfileStore interface {
	// Upsert replaces the buyer's profile atomically.
	Upsert(ctx context.Context, profile *models.BuyerProfile) error

	// FindByBuyer returns the profile or sentinel.ErrNotFound.
	FindByBuyer(ctx context.Context, buyerID id.GlobalBuyerID) (*models.BuyerProfile, error)

	// CountAll returns the number of profiled buyers.
	CountAll(ctx context.Context) (int, error)

	// CountByTrustScoreInRange counts profiles with credit trust score in
	// the half-open range [min, upper).
	CountByTrustScoreInRange(ctx context.Context, min, upper float64) (int, error)

	// ListFiltered returns profiles matching the optional industry and
	// region filters (empty string matches everything).
	ListFiltered(ctx context.Context, industryCode, region string) ([]*models.BuyerProfile, error)
}

// ContributionStore tracks tenant participation rows.
type ContributionStore interface {
	// Upsert creates or replaces a tenant's contribution row.
	Upsert(ctx context.Context, contribution *models.TenantContribution) error

	// FindByTenant returns the row or sentinel.ErrNotFound.
	FindByTenant(ctx context.Context, tenantID id.TenantID) (*models.TenantContribution, error)

	// Execute atomically validates then mutates a contribution row under the
	// store's lock, returning the updated row. Used for counter bumps so
	// concurrent requests never lose increments.
	Execute(ctx context.Context, tenantID id.TenantID,
		validate func(*models.TenantContribution) error,
		mutate func(*models.TenantContribution)) (*models.TenantContribution, error)
}

// IntelligenceStore persists detected network patterns.
type IntelligenceStore interface {
	// Append stores one detected pattern.
	Append(ctx context.Context, record *models.Intelligence) error

	// ListActive returns unexpired, active records ordered by severity then
	// recency, optionally filtered to one industry (global records always
	// match).
	ListActive(ctx context.Context, now time.Time, industryCode string) ([]*models.Intelligence, error)

	// RecentActive returns the most recently detected active records.
	RecentActive(ctx context.Context, now time.Time, limit int) ([]*models.Intelligence, error)

	// DeleteExpired removes records past their validity window, returning
	// how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

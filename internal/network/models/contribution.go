package models

import (
	"time"

	id "creditnet/pkg/domain"
)

// PrivacySettings control which slices of a tenant's data may flow into the
// network pool. All default to true at registration; a tenant can narrow them
// later without leaving the network.
type PrivacySettings struct {
	SharePaymentHistory          bool `json:"sharePaymentHistory"`
	ShareIndustryData            bool `json:"shareIndustryData"`
	ShareRegionalData            bool `json:"shareRegionalData"`
	AllowCrossTenantBenchmarking bool `json:"allowCrossTenantBenchmarking"`
}

// TenantContribution tracks one tenant's participation in the network: its
// opt-in state, tier, privacy settings, and usage counters. One row per
// tenant, created at registration and updated on every access/contribution.
type TenantContribution struct {
	TenantID              id.TenantID
	Tier                  id.ContributionTier
	Active                bool
	OptInToNetworkSharing bool
	PrivacySettings       PrivacySettings
	APISecretHash         string

	TransactionsShared    int64
	BuyersShared          int64
	NetworkScoresAccessed int64
	LastAccessAt          *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTenantContribution registers a tenant with opt-in defaults.
func NewTenantContribution(tenantID id.TenantID, tier id.ContributionTier, now time.Time) *TenantContribution {
	return &TenantContribution{
		TenantID:              tenantID,
		Tier:                  tier,
		Active:                true,
		OptInToNetworkSharing: true,
		PrivacySettings: PrivacySettings{
			SharePaymentHistory:          true,
			ShareIndustryData:            true,
			ShareRegionalData:            true,
			AllowCrossTenantBenchmarking: true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Benefits returns the tier's access matrix. Benefits are never stored; the
// tier is the single source of truth.
func (c *TenantContribution) Benefits() id.TierBenefits {
	return c.Tier.Benefits()
}

// CanContribute reports whether an observation from this tenant may enter
// the pool. A false result is a silent no-op on the contribution path, never
// an error.
func (c *TenantContribution) CanContribute() bool {
	return c.Active && c.OptInToNetworkSharing && c.PrivacySettings.SharePaymentHistory
}

// RecordContribution bumps the sharing counters after an observation lands.
func (c *TenantContribution) RecordContribution(now time.Time) {
	c.TransactionsShared++
	c.UpdatedAt = now
}

// RecordAccess bumps the score-access counters on a successful score read.
func (c *TenantContribution) RecordAccess(now time.Time) {
	c.NetworkScoresAccessed++
	t := now
	c.LastAccessAt = &t
	c.UpdatedAt = now
}

// OptOut withdraws the tenant from contribution. Existing observations stay
// in the pool; they carry no linkable tenant identity.
func (c *TenantContribution) OptOut(now time.Time) {
	c.OptInToNetworkSharing = false
	c.UpdatedAt = now
}

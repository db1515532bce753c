package models

import (
	"time"

	id "creditnet/pkg/domain"
)

// AggregateMetrics are the descriptive statistics carried on a buyer
// profile. Monetary aggregates are deliberately absent: volumes and average
// transaction sizes never leave the contributing tenant.
type AggregateMetrics struct {
	AvgDaysToPay       float64 `json:"avgDaysToPay"`
	OnTimePaymentRate  float64 `json:"onTimePaymentRate"`
	DisputeRate        float64 `json:"disputeRate"`
	PartialPaymentRate float64 `json:"partialPaymentRate"`
	TotalTransactions  int     `json:"totalTransactions"`
}

// BuyerProfile is the community view of one buyer, recomputed wholesale by
// each aggregation run.
//
// Invariant: TrustTier == domain.TrustTierForScore(CreditTrustScore) at all
// times; the two fields are written together and never patched separately.
type BuyerProfile struct {
	GlobalBuyerID id.GlobalBuyerID
	IndustryCode  string
	Region        string
	RevenueClass  string

	CommunityScore   float64
	CreditTrustScore float64
	TrustTier        id.TrustTier
	Confidence       float64
	ConsistencyScore float64
	TrendDirection   id.TrendDirection

	DataPoints      int
	VerifiedByCount int
	Metrics         AggregateMetrics
	TrustBadges     []string

	LastUpdatedAt time.Time
}

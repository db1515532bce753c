package domain

import dErrors "creditnet/pkg/domain-errors"

// ContributionTier is a tenant's network subscription level. It controls
// which network data the tenant may read and how its contributions are
// weighted.
//
// Invariant: the value must be one of the supported tiers.
type ContributionTier string

const (
	TierBasic    ContributionTier = "BASIC"
	TierStandard ContributionTier = "STANDARD"
	TierPremium  ContributionTier = "PREMIUM"
)

var validContributionTiers = map[ContributionTier]bool{
	TierBasic:    true,
	TierStandard: true,
	TierPremium:  true,
}

// ParseContributionTier constructs a ContributionTier from external input.
// An empty string parses to the default tier (STANDARD).
func ParseContributionTier(s string) (ContributionTier, error) {
	if s == "" {
		return TierStandard, nil
	}
	t := ContributionTier(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid contribution tier")
	}
	return t, nil
}

// IsValid checks the tier against the supported enum values.
func (t ContributionTier) IsValid() bool {
	return validContributionTiers[t]
}

func (t ContributionTier) String() string { return string(t) }

// TierBenefits is the fixed access matrix keyed by contribution tier.
type TierBenefits struct {
	CommunityScoreAccess bool `json:"communityScoreAccess"`
	IntelligenceAccess   bool `json:"intelligenceAccess"`
	BenchmarkingAccess   bool `json:"benchmarkingAccess"`
	TrendAnalysisAccess  bool `json:"trendAnalysisAccess"`
}

// benefitsByTier is the single source of truth for tier access. It is a pure
// lookup: benefits are never persisted independently of the tier.
var benefitsByTier = map[ContributionTier]TierBenefits{
	TierBasic: {
		CommunityScoreAccess: false,
		IntelligenceAccess:   false,
		BenchmarkingAccess:   false,
		TrendAnalysisAccess:  false,
	},
	TierStandard: {
		CommunityScoreAccess: true,
		IntelligenceAccess:   true,
		BenchmarkingAccess:   false,
		TrendAnalysisAccess:  true,
	},
	TierPremium: {
		CommunityScoreAccess: true,
		IntelligenceAccess:   true,
		BenchmarkingAccess:   true,
		TrendAnalysisAccess:  true,
	},
}

// Benefits returns the access matrix for the tier. Unknown tiers get the
// BASIC (most restrictive) benefits.
func (t ContributionTier) Benefits() TierBenefits {
	if b, ok := benefitsByTier[t]; ok {
		return b
	}
	return benefitsByTier[TierBasic]
}

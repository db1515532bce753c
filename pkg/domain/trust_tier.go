package domain

// TrustTier is the discrete label banded from a buyer's credit trust score.
//
// Invariant: a persisted profile's tier is always TrustTierForScore of its
// credit trust score; the two fields never diverge.
type TrustTier string

const (
	TrustDiamond  TrustTier = "Diamond"
	TrustPlatinum TrustTier = "Platinum"
	TrustGold     TrustTier = "Gold"
	TrustSilver   TrustTier = "Silver"
	TrustBronze   TrustTier = "Bronze"
	TrustRisk     TrustTier = "Risk"
)

// TrustTierForScore bands a credit trust score into a tier. Bands are closed
// at the lower bound: a score of exactly 90 is Diamond, 89.99 is Platinum.
func TrustTierForScore(score float64) TrustTier {
	switch {
	case score >= 90:
		return TrustDiamond
	case score >= 80:
		return TrustPlatinum
	case score >= 70:
		return TrustGold
	case score >= 60:
		return TrustSilver
	case score >= 50:
		return TrustBronze
	default:
		return TrustRisk
	}
}

func (t TrustTier) String() string { return string(t) }

// TrendDirection describes how a buyer's payment speed is moving. Decreasing
// days-to-pay is an improvement.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
	TrendUnknown   TrendDirection = "unknown"
)

func (d TrendDirection) String() string { return string(d) }

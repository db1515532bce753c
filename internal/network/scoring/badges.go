package scoring

import (
	"fmt"

	"creditnet/internal/network/models"
	id "creditnet/pkg/domain"
)

// Badge thresholds. Badges are a pure, order-preserving function of the
// computed profile; the derivation order below is part of the contract.
const (
	badgeVerifiedByMin  = 50
	badgeOnTimeRateMin  = 95
	badgeTrustScoreMin  = 90
	badgeConsistencyMin = 90
)

// Badges derives the trust badges for a freshly aggregated profile.
func Badges(profile *models.BuyerProfile) []string {
	var badges []string

	if profile.VerifiedByCount >= badgeVerifiedByMin {
		badges = append(badges, fmt.Sprintf("Verified by %d+ businesses", profile.VerifiedByCount))
	}
	if profile.Metrics.OnTimePaymentRate >= badgeOnTimeRateMin {
		badges = append(badges, "Excellent payment record")
	}
	if profile.CreditTrustScore >= badgeTrustScoreMin {
		badges = append(badges, "Top 10% credit trust")
	}
	if profile.TrendDirection == id.TrendImproving {
		badges = append(badges, "Improving performance")
	}
	if profile.ConsistencyScore >= badgeConsistencyMin {
		badges = append(badges, "Highly consistent payer")
	}

	return badges
}

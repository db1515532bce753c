package handler

import (
	"time"

	"creditnet/internal/network/models"
	id "creditnet/pkg/domain"
)

// ContributionView is the tenant-facing shape of a participation row. The
// API secret hash never leaves the server.
type ContributionView struct {
	TenantID              string                 `json:"tenantId"`
	Tier                  id.ContributionTier    `json:"tier"`
	Active                bool                   `json:"active"`
	OptInToNetworkSharing bool                   `json:"optInToNetworkSharing"`
	PrivacySettings       models.PrivacySettings `json:"privacySettings"`
	Benefits              id.TierBenefits        `json:"benefits"`
	TransactionsShared    int64                  `json:"transactionsShared"`
	BuyersShared          int64                  `json:"buyersShared"`
	NetworkScoresAccessed int64                  `json:"networkScoresAccessed"`
	LastAccessAt          *time.Time             `json:"lastAccessAt,omitempty"`
	CreatedAt             time.Time              `json:"createdAt"`
	UpdatedAt             time.Time              `json:"updatedAt"`
}

// FromContribution builds the response view of a participation row.
func FromContribution(c *models.TenantContribution) ContributionView {
	return ContributionView{
		TenantID:              c.TenantID.String(),
		Tier:                  c.Tier,
		Active:                c.Active,
		OptInToNetworkSharing: c.OptInToNetworkSharing,
		PrivacySettings:       c.PrivacySettings,
		Benefits:              c.Benefits(),
		TransactionsShared:    c.TransactionsShared,
		BuyersShared:          c.BuyersShared,
		NetworkScoresAccessed: c.NetworkScoresAccessed,
		LastAccessAt:          c.LastAccessAt,
		CreatedAt:             c.CreatedAt,
		UpdatedAt:             c.UpdatedAt,
	}
}

// RegisteredResponse carries the one-time cleartext API secret alongside the
// created participation row.
type RegisteredResponse struct {
	Contribution ContributionView `json:"contribution"`
	APISecret    string           `json:"apiSecret"`
}

// IntelligenceView is the wire shape of one intelligence record.
type IntelligenceView struct {
	ID             string                  `json:"id"`
	Type           models.IntelligenceType `json:"type"`
	Severity       id.Severity             `json:"severity"`
	Title          string                  `json:"title"`
	Recommendation string                  `json:"recommendation"`
	IndustryCode   string                  `json:"industryCode,omitempty"`
	Region         string                  `json:"region,omitempty"`
	Evidence       map[string]any          `json:"evidence,omitempty"`
	AffectedBuyers int                     `json:"affectedBuyers"`
	DetectedAt     time.Time               `json:"detectedAt"`
	ValidUntil     time.Time               `json:"validUntil"`
}

// FromIntelligence converts records to their wire shape. DetectedBy and tier
// visibility are internal bookkeeping and stay off the wire.
func FromIntelligence(records []*models.Intelligence) []IntelligenceView {
	views := make([]IntelligenceView, 0, len(records))
	for _, r := range records {
		views = append(views, IntelligenceView{
			ID:             r.ID.String(),
			Type:           r.Type,
			Severity:       r.Severity,
			Title:          r.Title,
			Recommendation: r.Recommendation,
			IndustryCode:   r.IndustryCode,
			Region:         r.Region,
			Evidence:       r.Evidence,
			AffectedBuyers: r.AffectedBuyers,
			DetectedAt:     r.DetectedAt,
			ValidUntil:     r.ValidUntil,
		})
	}
	return views
}

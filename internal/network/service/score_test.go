package service_test

import (
	"time"

	"github.com/google/uuid"

	"creditnet/internal/network/models"
	"creditnet/pkg/anonymize"
	id "creditnet/pkg/domain"
	dErrors "creditnet/pkg/domain-errors"
)

// seedProfile stores a profile for the hashed form of buyerTaxID.
func (s *ServiceSuite) seedProfile(buyerTaxID string, communityScore float64, tier id.TrustTier) *models.BuyerProfile {
	profile := &models.BuyerProfile{
		GlobalBuyerID:   anonymize.BuyerID(buyerTaxID),
		IndustryCode:    "trading",
		Region:          "MH",
		CommunityScore:  communityScore,
		TrustTier:       tier,
		Confidence:      80,
		TrendDirection:  id.TrendStable,
		DataPoints:      40,
		VerifiedByCount: 4,
		LastUpdatedAt:   s.now.Add(-time.Hour),
	}
	s.Require().NoError(s.profiles.Upsert(s.ctx, profile))
	return profile
}

func (s *ServiceSuite) TestCommunityScoreReturnsProfile() {
	tenantID := s.register(id.TierStandard)
	s.seedProfile("buyer-1", 84.5, id.TrustPlatinum)

	result, err := s.svc.CommunityScore(s.ctx, tenantID, "buyer-1")
	s.Require().NoError(err)
	s.True(result.AccessGranted)
	s.Empty(result.Reason)
	s.InDelta(84.5, result.CommunityScore, 1e-9)
	s.Equal(id.TrustPlatinum, result.TrustTier)
	s.Equal(40, result.DataPoints)
	s.Equal(4, result.VerifiedByCount)

	contribution, err := s.svc.GetContribution(s.ctx, tenantID)
	s.Require().NoError(err)
	s.Equal(int64(1), contribution.NetworkScoresAccessed)
	s.Require().NotNil(contribution.LastAccessAt)
	s.Equal(s.now, *contribution.LastAccessAt)

	s.Equal([]string{"network_tenant_registered", "network_score_accessed"}, s.auditActions(tenantID))
}

func (s *ServiceSuite) TestCommunityScoreNeutralForUnknownBuyer() {
	tenantID := s.register(id.TierPremium)

	result, err := s.svc.CommunityScore(s.ctx, tenantID, "never-seen")
	s.Require().NoError(err)
	s.True(result.AccessGranted)
	s.InDelta(50.0, result.CommunityScore, 1e-9)
	s.Equal(id.TrustBronze, result.TrustTier)
	s.Equal(id.TrendUnknown, result.TrendDirection)
	s.Zero(result.DataPoints)
}

func (s *ServiceSuite) TestCommunityScoreDeniedForBasicTier() {
	tenantID := s.register(id.TierBasic)
	s.seedProfile("buyer-1", 84.5, id.TrustPlatinum)

	result, err := s.svc.CommunityScore(s.ctx, tenantID, "buyer-1")
	s.Require().NoError(err)
	s.False(result.AccessGranted)
	s.Contains(result.Reason, "STANDARD or PREMIUM")
	s.Zero(result.CommunityScore)

	// Denied reads never bump the usage counters.
	contribution, err := s.svc.GetContribution(s.ctx, tenantID)
	s.Require().NoError(err)
	s.Zero(contribution.NetworkScoresAccessed)

	s.Equal([]string{"network_tenant_registered", "network_score_denied"}, s.auditActions(tenantID))
}

func (s *ServiceSuite) TestCommunityScoreDeniedWhenUnregistered() {
	result, err := s.svc.CommunityScore(s.ctx, id.TenantID(uuid.New()), "buyer-1")
	s.Require().NoError(err)
	s.False(result.AccessGranted)
	s.Contains(result.Reason, "not registered")
}

func (s *ServiceSuite) TestCommunityScoreDeniedAfterOptOut() {
	tenantID := s.register(id.TierPremium)
	_, err := s.svc.OptOut(s.ctx, tenantID)
	s.Require().NoError(err)

	result, err := s.svc.CommunityScore(s.ctx, tenantID, "buyer-1")
	s.Require().NoError(err)
	s.False(result.AccessGranted)
	s.Contains(result.Reason, "sharing is disabled")
}

func (s *ServiceSuite) TestCommunityScoreRequiresBuyerTaxID() {
	tenantID := s.register(id.TierStandard)

	_, err := s.svc.CommunityScore(s.ctx, tenantID, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

package service_test

import (
	"github.com/google/uuid"

	"creditnet/internal/network/models"
	"creditnet/internal/network/secrets"
	"creditnet/pkg/anonymize"
	id "creditnet/pkg/domain"
	dErrors "creditnet/pkg/domain-errors"
)

func (s *ServiceSuite) TestRegisterIssuesSecretOnce() {
	tenantID := id.TenantID(uuid.New())

	contribution, secret, err := s.svc.Register(s.ctx, tenantID, id.TierStandard)
	s.Require().NoError(err)
	s.Require().NotEmpty(secret)

	s.Equal(id.TierStandard, contribution.Tier)
	s.True(contribution.Active)
	s.True(contribution.OptInToNetworkSharing)
	s.True(contribution.PrivacySettings.SharePaymentHistory)
	s.True(contribution.PrivacySettings.AllowCrossTenantBenchmarking)

	// The stored hash verifies the returned cleartext and nothing else.
	s.NoError(secrets.Verify(secret, contribution.APISecretHash))
	s.Error(secrets.Verify("wrong-secret", contribution.APISecretHash))

	s.Equal([]string{"network_tenant_registered"}, s.auditActions(tenantID))
}

func (s *ServiceSuite) TestReregisterMovesTierAndKeepsCounters() {
	tenantID := s.register(id.TierBasic)
	s.Require().NoError(s.svc.Contribute(s.ctx, tenantID, "buyer-1", paymentEvent(10, true, s.now)))

	contribution, secret, err := s.svc.Register(s.ctx, tenantID, id.TierPremium)
	s.Require().NoError(err)
	s.Require().NotEmpty(secret)

	s.Equal(id.TierPremium, contribution.Tier)
	s.True(contribution.Benefits().BenchmarkingAccess)
	s.Equal(int64(1), contribution.TransactionsShared)
	s.Equal(int64(1), contribution.BuyersShared)

	// Re-registration rotates the secret; only the fresh one verifies.
	s.NoError(secrets.Verify(secret, contribution.APISecretHash))
}

func (s *ServiceSuite) TestReregisterRenewsOptIn() {
	tenantID := s.register(id.TierStandard)
	_, err := s.svc.OptOut(s.ctx, tenantID)
	s.Require().NoError(err)

	contribution, _, err := s.svc.Register(s.ctx, tenantID, id.TierStandard)
	s.Require().NoError(err)
	s.True(contribution.OptInToNetworkSharing)
	s.True(contribution.Active)

	// Sharing works again after the renewed enrollment.
	s.Require().NoError(s.svc.Contribute(s.ctx, tenantID, "buyer-1", paymentEvent(10, true, s.now)))
	count, err := s.observations.CountAll(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *ServiceSuite) TestRegisterRequiresTenantID() {
	_, _, err := s.svc.Register(s.ctx, id.TenantID{}, id.TierBasic)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestContributeAppendsAnonymizedObservation() {
	tenantID := s.register(id.TierStandard)

	err := s.svc.Contribute(s.ctx, tenantID, "27AAPFU0939F1ZV", paymentEvent(12, true, s.now.AddDate(0, 0, -3)))
	s.Require().NoError(err)

	buyerID := anonymize.BuyerID("27AAPFU0939F1ZV")
	observations, err := s.observations.ListByBuyer(s.ctx, buyerID)
	s.Require().NoError(err)
	s.Require().Len(observations, 1)

	o := observations[0]
	s.Equal(buyerID, o.GlobalBuyerID)
	s.Equal(anonymize.TenantID(tenantID), o.AnonymousTenantID)
	s.NotContains(o.GlobalBuyerID.String(), "27AAPFU0939F1ZV")
	s.Equal(12, o.DaysToPay)
	// Dates are bucketed to the first of the month.
	s.Equal(1, o.ObservationDate.Day())

	contribution, err := s.svc.GetContribution(s.ctx, tenantID)
	s.Require().NoError(err)
	s.Equal(int64(1), contribution.TransactionsShared)
	s.Equal(int64(1), contribution.BuyersShared)
}

func (s *ServiceSuite) TestContributeCountsNewBuyersOnce() {
	tenantID := s.register(id.TierStandard)

	s.Require().NoError(s.svc.Contribute(s.ctx, tenantID, "buyer-1", paymentEvent(10, true, s.now)))
	s.Require().NoError(s.svc.Contribute(s.ctx, tenantID, "buyer-1", paymentEvent(14, true, s.now)))
	s.Require().NoError(s.svc.Contribute(s.ctx, tenantID, "buyer-2", paymentEvent(20, false, s.now)))

	contribution, err := s.svc.GetContribution(s.ctx, tenantID)
	s.Require().NoError(err)
	s.Equal(int64(3), contribution.TransactionsShared)
	s.Equal(int64(2), contribution.BuyersShared)
}

func (s *ServiceSuite) TestContributeIsSilentNoOpWhenUnregistered() {
	tenantID := id.TenantID(uuid.New())

	err := s.svc.Contribute(s.ctx, tenantID, "buyer-1", paymentEvent(10, true, s.now))
	s.Require().NoError(err)

	count, err := s.observations.CountAll(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *ServiceSuite) TestContributeIsSilentNoOpAfterOptOut() {
	tenantID := s.register(id.TierStandard)

	_, err := s.svc.OptOut(s.ctx, tenantID)
	s.Require().NoError(err)

	err = s.svc.Contribute(s.ctx, tenantID, "buyer-1", paymentEvent(10, true, s.now))
	s.Require().NoError(err)

	count, err := s.observations.CountAll(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)

	s.Equal([]string{"network_tenant_registered", "network_tenant_opted_out"}, s.auditActions(tenantID))
}

func (s *ServiceSuite) TestContributeRespectsPrivacySettings() {
	tenantID := s.register(id.TierStandard)

	_, err := s.svc.UpdatePrivacySettings(s.ctx, tenantID, models.PrivacySettings{
		SharePaymentHistory: false,
		ShareIndustryData:   true,
		ShareRegionalData:   true,
	})
	s.Require().NoError(err)

	err = s.svc.Contribute(s.ctx, tenantID, "buyer-1", paymentEvent(10, true, s.now))
	s.Require().NoError(err)

	count, err := s.observations.CountAll(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *ServiceSuite) TestContributeValidatesInput() {
	tenantID := s.register(id.TierStandard)

	err := s.svc.Contribute(s.ctx, tenantID, "", paymentEvent(10, true, s.now))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	bad := paymentEvent(-1, true, s.now)
	err = s.svc.Contribute(s.ctx, tenantID, "buyer-1", bad)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestOptOutLeavesPoolIntact() {
	tenantID := s.register(id.TierStandard)
	s.Require().NoError(s.svc.Contribute(s.ctx, tenantID, "buyer-1", paymentEvent(10, true, s.now)))

	contribution, err := s.svc.OptOut(s.ctx, tenantID)
	s.Require().NoError(err)
	s.False(contribution.OptInToNetworkSharing)
	s.True(contribution.Active)

	// Observations contributed before the opt-out stay in the pool.
	count, err := s.observations.CountAll(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *ServiceSuite) TestOptOutUnknownTenant() {
	_, err := s.svc.OptOut(s.ctx, id.TenantID(uuid.New()))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

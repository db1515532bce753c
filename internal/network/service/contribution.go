package service

import (
	"context"
	"errors"

	"creditnet/internal/network/models"
	"creditnet/internal/network/secrets"
	"creditnet/pkg/anonymize"
	id "creditnet/pkg/domain"
	dErrors "creditnet/pkg/domain-errors"
	audit "creditnet/pkg/platform/audit"
	"creditnet/pkg/platform/sentinel"
	"creditnet/pkg/requestcontext"
)

// Register enrolls a tenant in the network with opt-in defaults and issues
// its API secret. The cleartext secret is returned exactly once per call.
// Registration is create-or-update: re-registering keeps the usage counters
// and privacy settings, moves the tenant to the requested tier, renews its
// opt-in, and rotates the API secret.
func (s *Service) Register(ctx context.Context, tenantID id.TenantID, tier id.ContributionTier) (*models.TenantContribution, string, error) {
	if tenantID.IsNil() {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "tenant id is required")
	}

	secret, err := secrets.Generate()
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate api secret")
	}
	secretHash, err := secrets.Hash(secret)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash api secret")
	}

	now := requestcontext.Now(ctx)

	contribution, err := s.contributions.Execute(ctx, tenantID,
		func(c *models.TenantContribution) error { return nil },
		func(c *models.TenantContribution) {
			c.Tier = tier
			c.Active = true
			c.OptInToNetworkSharing = true
			c.APISecretHash = secretHash
			c.UpdatedAt = now
		})
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to register tenant")
		}
		contribution = models.NewTenantContribution(tenantID, tier, now)
		contribution.APISecretHash = secretHash
		if err := s.contributions.Upsert(ctx, contribution); err != nil {
			return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to register tenant")
		}
	}

	s.audit(ctx, audit.EventTenantRegistered, audit.Event{
		TenantID: tenantID,
		Detail:   string(tier),
	})
	s.logger.InfoContext(ctx, "tenant registered in network",
		"tenant_id", tenantID.String(), "tier", string(tier))

	return contribution, secret, nil
}

// GetContribution returns the tenant's participation row.
func (s *Service) GetContribution(ctx context.Context, tenantID id.TenantID) (*models.TenantContribution, error) {
	contribution, err := s.contributions.FindByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant is not registered in the network")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contribution")
	}
	return contribution, nil
}

// OptOut withdraws the tenant from network sharing. Observations already in
// the pool stay; they carry no linkable tenant identity.
func (s *Service) OptOut(ctx context.Context, tenantID id.TenantID) (*models.TenantContribution, error) {
	now := requestcontext.Now(ctx)
	contribution, err := s.contributions.Execute(ctx, tenantID,
		func(c *models.TenantContribution) error { return nil },
		func(c *models.TenantContribution) { c.OptOut(now) })
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant is not registered in the network")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to opt out")
	}

	s.audit(ctx, audit.EventTenantOptedOut, audit.Event{TenantID: tenantID})
	s.logger.InfoContext(ctx, "tenant opted out of network sharing", "tenant_id", tenantID.String())
	return contribution, nil
}

// UpdatePrivacySettings narrows or widens what the tenant shares without
// changing its opt-in state.
func (s *Service) UpdatePrivacySettings(ctx context.Context, tenantID id.TenantID, settings models.PrivacySettings) (*models.TenantContribution, error) {
	now := requestcontext.Now(ctx)
	contribution, err := s.contributions.Execute(ctx, tenantID,
		func(c *models.TenantContribution) error { return nil },
		func(c *models.TenantContribution) {
			c.PrivacySettings = settings
			c.UpdatedAt = now
		})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant is not registered in the network")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update privacy settings")
	}
	return contribution, nil
}

// Contribute anonymizes one payment event and appends it to the pool.
//
// Missing registration or withdrawn consent is a silent no-op, not an error:
// tenants call this from their invoice settlement path and must never see it
// fail because of network participation state.
func (s *Service) Contribute(ctx context.Context, tenantID id.TenantID, buyerTaxID string, event models.PaymentEvent) error {
	if buyerTaxID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "buyer tax id is required")
	}

	contribution, err := s.contributions.FindByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.skipContribution(ctx, tenantID, "not registered")
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check contribution consent")
	}
	if !contribution.CanContribute() {
		s.skipContribution(ctx, tenantID, "sharing disabled")
		return nil
	}

	buyerID := anonymize.BuyerID(buyerTaxID)
	now := requestcontext.Now(ctx)

	observation, err := models.NewObservation(buyerID, anonymize.TenantID(tenantID), event, now)
	if err != nil {
		return err
	}

	// First sighting of this buyer bumps the buyers-shared counter.
	existing, err := s.observations.ListByBuyer(ctx, buyerID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check buyer history")
	}
	newBuyer := len(existing) == 0

	if err := s.observations.Append(ctx, observation); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store observation")
	}

	if _, err := s.contributions.Execute(ctx, tenantID,
		func(c *models.TenantContribution) error { return nil },
		func(c *models.TenantContribution) {
			c.RecordContribution(now)
			if newBuyer {
				c.BuyersShared++
			}
		}); err != nil {
		s.logger.WarnContext(ctx, "failed to bump contribution counters",
			"tenant_id", tenantID.String(), "error", err)
	}

	if s.metrics != nil {
		s.metrics.ObservationsContributed.Inc()
	}
	s.audit(ctx, audit.EventObservationContributed, audit.Event{
		TenantID: tenantID,
		Subject:  buyerID.String(),
	})
	return nil
}

func (s *Service) skipContribution(ctx context.Context, tenantID id.TenantID, reason string) {
	if s.metrics != nil {
		s.metrics.ContributionsSkipped.Inc()
	}
	s.logger.DebugContext(ctx, "contribution skipped",
		"tenant_id", tenantID.String(), "reason", reason)
}

package handler

import (
	"strings"
	"time"

	"creditnet/internal/network/models"
	id "creditnet/pkg/domain"
	dErrors "creditnet/pkg/domain-errors"
)

// RegisterRequest is the HTTP request body for POST /register.
type RegisterRequest struct {
	Tier string `json:"tier"`

	parsedTier id.ContributionTier
}

// Validate parses the tier; an empty tier defaults to STANDARD.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	tier, err := id.ParseContributionTier(strings.ToUpper(strings.TrimSpace(r.Tier)))
	if err != nil {
		return err
	}
	r.parsedTier = tier
	return nil
}

// ParsedTier returns the validated contribution tier.
func (r *RegisterRequest) ParsedTier() id.ContributionTier { return r.parsedTier }

// ContributeRequest is the HTTP request body for POST /contribute: one
// settled invoice with its payment behavior. The buyer tax ID is hashed
// before anything is stored.
type ContributeRequest struct {
	BuyerTaxID      string    `json:"buyerTaxId"`
	DaysToPay       int       `json:"daysToPay"`
	InvoiceAmount   int64     `json:"invoiceAmount"`
	TransactionDate time.Time `json:"transactionDate"`
	PaidOnTime      bool      `json:"paidOnTime"`
	HadDispute      bool      `json:"hadDispute"`
	PartialPayment  bool      `json:"partialPayment"`
	IndustryCode    string    `json:"industryCode"`
	Region          string    `json:"region"`
	RevenueClass    string    `json:"revenueClass"`
}

func (r *ContributeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.BuyerTaxID = strings.TrimSpace(r.BuyerTaxID)
	if r.BuyerTaxID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "buyerTaxId is required")
	}
	if len(r.BuyerTaxID) > 64 {
		return dErrors.New(dErrors.CodeInvalidInput, "buyerTaxId must be at most 64 characters")
	}
	return r.Event().Validate()
}

// Event converts the request into the service-level payment event.
func (r *ContributeRequest) Event() models.PaymentEvent {
	return models.PaymentEvent{
		DaysToPay:       r.DaysToPay,
		InvoiceAmount:   r.InvoiceAmount,
		TransactionDate: r.TransactionDate,
		PaidOnTime:      r.PaidOnTime,
		HadDispute:      r.HadDispute,
		PartialPayment:  r.PartialPayment,
		IndustryCode:    strings.TrimSpace(r.IndustryCode),
		Region:          strings.TrimSpace(r.Region),
		RevenueClass:    strings.TrimSpace(r.RevenueClass),
	}
}

// PrivacyRequest is the HTTP request body for PUT /privacy.
type PrivacyRequest struct {
	SharePaymentHistory          bool `json:"sharePaymentHistory"`
	ShareIndustryData            bool `json:"shareIndustryData"`
	ShareRegionalData            bool `json:"shareRegionalData"`
	AllowCrossTenantBenchmarking bool `json:"allowCrossTenantBenchmarking"`
}

func (r *PrivacyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

// Settings converts the request into the domain privacy settings.
func (r *PrivacyRequest) Settings() models.PrivacySettings {
	return models.PrivacySettings{
		SharePaymentHistory:          r.SharePaymentHistory,
		ShareIndustryData:            r.ShareIndustryData,
		ShareRegionalData:            r.ShareRegionalData,
		AllowCrossTenantBenchmarking: r.AllowCrossTenantBenchmarking,
	}
}

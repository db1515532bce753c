package models

import (
	"time"

	"github.com/google/uuid"

	id "creditnet/pkg/domain"
	dErrors "creditnet/pkg/domain-errors"
)

// PaymentEvent is the tenant-side input to a contribution: one settled
// invoice with its payment behavior. All identifying detail is stripped
// before anything is persisted.
type PaymentEvent struct {
	DaysToPay       int
	InvoiceAmount   int64
	TransactionDate time.Time
	PaidOnTime      bool
	HadDispute      bool
	PartialPayment  bool
	IndustryCode    string
	Region          string
	RevenueClass    string
}

// Validate checks the parts of the event the network layer depends on.
func (e PaymentEvent) Validate() error {
	if e.TransactionDate.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "transaction date is required")
	}
	if e.DaysToPay < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "days to pay cannot be negative")
	}
	if e.InvoiceAmount < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "invoice amount cannot be negative")
	}
	return nil
}

// Observation is one anonymized payment-behavior record in the network pool.
//
// Invariants:
//   - Immutable once written; the pool is append-only
//   - GlobalBuyerID and AnonymousTenantID are digests, never plaintext
//   - ObservationDate is bucketed to the first of the month (exact day is
//     dropped for privacy)
type Observation struct {
	ID                uuid.UUID
	GlobalBuyerID     id.GlobalBuyerID
	AnonymousTenantID id.AnonymousTenantID
	IndustryCode      string
	Region            string
	RevenueClass      string
	DaysToPay         int
	PaidOnTime        bool
	DaysLate          int
	HadDispute        bool
	PartialPayment    bool
	SizeCategory      id.TransactionSizeCategory
	ObservationDate   time.Time
	ObservationYear   int
	ObservationMonth  int
	Quarter           int
	ContributedAt     time.Time
}

// NewObservation anonymizes and buckets a payment event. The caller supplies
// already-hashed identifiers; hashing happens at the service boundary so this
// constructor stays deterministic.
func NewObservation(buyerID id.GlobalBuyerID, tenantID id.AnonymousTenantID, event PaymentEvent, now time.Time) (*Observation, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	txDate := event.TransactionDate.UTC()
	monthStart := time.Date(txDate.Year(), txDate.Month(), 1, 0, 0, 0, 0, time.UTC)

	daysLate := 0
	if !event.PaidOnTime {
		daysLate = event.DaysToPay
	}

	return &Observation{
		ID:                uuid.New(),
		GlobalBuyerID:     buyerID,
		AnonymousTenantID: tenantID,
		IndustryCode:      event.IndustryCode,
		Region:            event.Region,
		RevenueClass:      event.RevenueClass,
		DaysToPay:         event.DaysToPay,
		PaidOnTime:        event.PaidOnTime,
		DaysLate:          daysLate,
		HadDispute:        event.HadDispute,
		PartialPayment:    event.PartialPayment,
		SizeCategory:      id.CategorizeTransactionSize(event.InvoiceAmount),
		ObservationDate:   monthStart,
		ObservationYear:   txDate.Year(),
		ObservationMonth:  int(txDate.Month()),
		Quarter:           (int(txDate.Month())-1)/3 + 1,
		ContributedAt:     now.UTC(),
	}, nil
}

// Package audit captures the actions the network takes on behalf of tenants.
// Events flow through a transactional outbox to Kafka; the Kafka topic is the
// source of truth for the audit trail.
package audit

import (
	"context"
	"time"

	id "creditnet/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. Categories
// drive retention and routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance:
	// consent changes and anything that moves tenant data into the pool.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity useful for debugging and
	// usage accounting.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. It stays
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	TenantID  id.TenantID
	// Subject is the entity acted on: a hashed buyer ID, an intelligence
	// record ID, or empty for tenant-level actions. Never plaintext PII.
	Subject   string
	Action    string
	Detail    string
	RequestID string
}

type AuditEvent string

const (
	// Participation events
	EventTenantRegistered AuditEvent = "network_tenant_registered"
	EventTenantOptedOut   AuditEvent = "network_tenant_opted_out"

	// Data flow events
	EventObservationContributed AuditEvent = "network_observation_contributed"
	EventScoreAccessed          AuditEvent = "network_score_accessed"
	EventScoreDenied            AuditEvent = "network_score_denied"

	// Background events
	EventProfilesAggregated   AuditEvent = "network_profiles_aggregated"
	EventIntelligenceDetected AuditEvent = "network_intelligence_detected"
	EventIntelligenceExpired  AuditEvent = "network_intelligence_expired"
)

var eventCategories = map[AuditEvent]EventCategory{
	// Consent and data movement carry regulatory weight.
	EventTenantRegistered:       CategoryCompliance,
	EventTenantOptedOut:         CategoryCompliance,
	EventObservationContributed: CategoryCompliance,

	EventScoreAccessed:        CategoryOperations,
	EventScoreDenied:          CategoryOperations,
	EventProfilesAggregated:   CategoryOperations,
	EventIntelligenceDetected: CategoryOperations,
	EventIntelligenceExpired:  CategoryOperations,
}

// Category returns the EventCategory for this audit event. Unknown events
// default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

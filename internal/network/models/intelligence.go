package models

import (
	"time"

	"github.com/google/uuid"

	id "creditnet/pkg/domain"
)

// IntelligenceType classifies a stored network finding.
type IntelligenceType string

const (
	IntelligenceEmergingRisk IntelligenceType = "EMERGING_RISK"
)

// Intelligence is one detected network pattern: a flagged risk with severity,
// a recommendation for tenants, and supporting evidence. Records expire
// (ValidUntil) and are visible only to the listed contribution tiers.
type Intelligence struct {
	ID             uuid.UUID
	Type           IntelligenceType
	Severity       id.Severity
	Title          string
	Recommendation string
	IndustryCode   string // empty = not industry-specific
	Region         string // empty = not region-specific
	Evidence       map[string]any
	AffectedBuyers int
	DetectedBy     string
	DetectedAt     time.Time
	ValidUntil     time.Time
	VisibleToTiers []id.ContributionTier
	Active         bool
}

// IsExpired reports whether the record has passed its validity window.
func (i *Intelligence) IsExpired(now time.Time) bool {
	return !i.ValidUntil.After(now)
}

// IsAccessibleBy reports whether a tenant on the given tier may read this
// record.
func (i *Intelligence) IsAccessibleBy(tier id.ContributionTier) bool {
	for _, t := range i.VisibleToTiers {
		if t == tier {
			return true
		}
	}
	return false
}

// MatchesIndustry reports whether the record applies to the given industry.
// Global records (no industry code) match everything.
func (i *Intelligence) MatchesIndustry(industryCode string) bool {
	return i.IndustryCode == "" || i.IndustryCode == industryCode
}

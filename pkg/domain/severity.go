package domain

// Severity ranks a detected network pattern.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// severityOrder defines ordering for sort-by-severity listings.
var severityOrder = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the numeric ordering of the severity; unknown values rank
// lowest.
func (s Severity) Rank() int { return severityOrder[s] }

func (s Severity) String() string { return string(s) }

// Package consistency scores how visually stable a character's drawn
// identity is across a story's pages and flags deviating appearances.
package consistency

import "strings"

// Severity classifies how far an appearance drifts from the character's
// majority appearance. The sort order is fixed: high before medium before low.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Rank returns the fixed sort rank of a severity (high=0, medium=1, low=2).
// Unknown severities sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}

// ParseSeverity normalizes a free-text severity from a reasoning reply.
// Anything unrecognized is treated as medium rather than dropped.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return SeverityHigh
	case "low":
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// Outlier is one appearance that deviates from the character's majority
// appearance.
type Outlier struct {
	PageNumber int      `json:"pageNumber"`
	FaceID     string   `json:"faceId"`
	Severity   Severity `json:"severity"`
	Issues     []string `json:"issues"`
}

// Report is the consistency result for one character.
type Report struct {
	Character          string    `json:"character"`
	Method             string    `json:"method,omitempty"` // strategy that produced the report
	OverallConsistency float64   `json:"overallConsistency"`
	Outliers           []Outlier `json:"outliers"`
	ConsistentFeatures []string  `json:"consistentFeatures,omitempty"`
	Skipped            bool      `json:"skipped,omitempty"`
	SkipReason         string    `json:"skipReason,omitempty"`
	// AnalysisError records a per-character strategy failure; the rest of
	// the batch is unaffected.
	AnalysisError string `json:"analysisError,omitempty"`
	// RawResponse holds the unparseable service reply behind a ParseError.
	// Persisted separately by the pipeline, not inside the artifact.
	RawResponse string `json:"-"`
}

// ReportSet is the consistency artifact for one story.
type ReportSet struct {
	StoryID string   `json:"storyId"`
	Reports []Report `json:"reports"`
}

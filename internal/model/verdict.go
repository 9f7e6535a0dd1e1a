package model

import (
	"fmt"
	"strings"
)

// Verdict is the tri-state judgment outcome
type Verdict string

const (
	VerdictSupported   Verdict = "supported"   // Evidence corroborates the answer
	VerdictUnsupported Verdict = "unsupported" // Evidence contradicts the answer (oracle only)
	VerdictUnknown     Verdict = "unknown"     // Inconclusive, needs manual review
)

// ParseVerdict maps a case-insensitive label onto a Verdict
func ParseVerdict(s string) (Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "supported":
		return VerdictSupported, nil
	case "unsupported":
		return VerdictUnsupported, nil
	case "unknown":
		return VerdictUnknown, nil
	default:
		return VerdictUnknown, fmt.Errorf("unknown verdict label: %q", s)
	}
}

// Judgment is what a judge returns for one (question, answer, evidence) triple
type Judgment struct {
	Verdict    Verdict `json:"verdict"`
	Confidence float64 `json:"confidence"`          // Always within [0, 1]
	Rationale  string  `json:"rationale,omitempty"` // Supporting quote or explanation
	RawOutput  string  `json:"raw_output,omitempty"` // Verbatim oracle output, kept for audit
}

// Unknown returns an inconclusive judgment with the given confidence
func Unknown(confidence float64) Judgment {
	return Judgment{Verdict: VerdictUnknown, Confidence: ClampConfidence(confidence)}
}

// ClampConfidence bounds c to [0, 1]
func ClampConfidence(c float64) float64 {
	if c != c { // NaN
		return 0
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

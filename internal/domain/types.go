// Package domain contains core business entities and types for medication
// risk assessment: drug-drug interaction (DDI) severity, pharmacological
// risk classes, urgency triage tiers, and result confidence.
//
// The scoring engine consumes already-normalized medication entities and a
// supplied interaction dataset; terminology resolution lives in pkg/external.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Severity represents the normalized severity tier of a known drug-drug
// interaction. Interaction sources report severity as free text; it is
// normalized into this closed set before any scoring happens.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityUnknown  Severity = "unknown"
)

// Urgency represents the discrete triage signal derived from the continuous
// 0-10 risk score. The three tiers partition the score range exhaustively.
type Urgency string

const (
	UrgencyGreen  Urgency = "GREEN_MONITOR"
	UrgencyYellow Urgency = "YELLOW_CALL_SOON"
	UrgencyRed    Urgency = "RED_URGENT"
)

// Confidence signals input completeness and certainty. It is derived from how
// much of the request could be resolved and parsed, never from the score
// itself.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// RiskClass is a pharmacological category used to flag heightened risk
// independent of specific pairwise interactions.
type RiskClass string

const (
	ClassAnticoagulant RiskClass = "anticoagulant"
	ClassOpioid        RiskClass = "opioid"
	ClassSedative      RiskClass = "sedative"
	ClassAntipsychotic RiskClass = "antipsychotic"
	ClassInsulin       RiskClass = "insulin"
	ClassHypoglycemic  RiskClass = "hypoglycemic"
	ClassAntiplatelet  RiskClass = "antiplatelet"
)

// Validation errors for medication risk data integrity
var (
	ErrInvalidSeverity   = errors.New("invalid interaction severity")
	ErrInvalidUrgency    = errors.New("invalid urgency tier")
	ErrInvalidConfidence = errors.New("invalid confidence level")
	ErrInvalidRiskClass  = errors.New("invalid risk class")
)

// IsValid validates that the severity belongs to the closed tier set.
// Only validated severities may enter the scoring pipeline.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityModerate, SeverityHigh, SeverityUnknown:
		return true
	default:
		return false
	}
}

func (s Severity) String() string {
	return string(s)
}

// NormalizeSeverity maps free-text severity descriptions from interaction
// sources into the closed severity set. Unrecognized text maps to unknown,
// which is scored conservatively rather than ignored.
func NormalizeSeverity(raw string) Severity {
	t := strings.ToLower(strings.TrimSpace(raw))
	if t == "" {
		return SeverityUnknown
	}
	switch {
	case strings.Contains(t, "high"), strings.Contains(t, "major"), strings.Contains(t, "contra"):
		return SeverityHigh
	case strings.Contains(t, "moderate"), strings.Contains(t, "significant"):
		return SeverityModerate
	case strings.Contains(t, "low"), strings.Contains(t, "minor"):
		return SeverityLow
	default:
		return SeverityUnknown
	}
}

// IsValid validates the urgency tier.
func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyGreen, UrgencyYellow, UrgencyRed:
		return true
	default:
		return false
	}
}

func (u Urgency) String() string {
	return string(u)
}

// RequiresClinicalAction determines if the urgency tier calls for follow-up.
// Conservative for anything outside the known set.
func (u Urgency) RequiresClinicalAction() bool {
	switch u {
	case UrgencyGreen:
		return false
	case UrgencyYellow, UrgencyRed:
		return true
	default:
		return true
	}
}

// TriageSemantics returns a human-readable description of the tier for
// clinical reporting.
func (u Urgency) TriageSemantics() string {
	switch u {
	case UrgencyGreen:
		return "Monitor - no immediate action needed"
	case UrgencyYellow:
		return "Call a clinician or pharmacist soon"
	case UrgencyRed:
		return "Urgent - contact a clinician now"
	default:
		return "Unknown urgency"
	}
}

// IsValid validates the confidence level.
func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	default:
		return false
	}
}

func (c Confidence) String() string {
	return string(c)
}

// IsValid validates the risk class.
func (rc RiskClass) IsValid() bool {
	switch rc {
	case ClassAnticoagulant, ClassOpioid, ClassSedative, ClassAntipsychotic,
		ClassInsulin, ClassHypoglycemic, ClassAntiplatelet:
		return true
	default:
		return false
	}
}

func (rc RiskClass) String() string {
	return string(rc)
}

// IsBloodThinner reports whether the class affects coagulation. Used by the
// composite stage's age-with-blood-thinner safety floor.
func (rc RiskClass) IsBloodThinner() bool {
	return rc == ClassAnticoagulant || rc == ClassAntiplatelet
}

// ParseRiskClass converts a string into a validated RiskClass.
func ParseRiskClass(raw string) (RiskClass, error) {
	rc := RiskClass(strings.ToLower(strings.TrimSpace(raw)))
	if !rc.IsValid() {
		return "", fmt.Errorf("parse risk class %q: %w", raw, ErrInvalidRiskClass)
	}
	return rc, nil
}

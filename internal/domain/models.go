package domain

import (
	"fmt"
	"strings"
	"time"
)

// MedicationInput is one medication row as submitted by the caller, before
// terminology resolution. Dose and Frequency are free text.
type MedicationInput struct {
	Name      string `json:"name" binding:"required"`
	Dose      string `json:"dose,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}

// Validate rejects rows the resolver cannot work with.
func (m *MedicationInput) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("medication input validation: name is required")
	}
	return nil
}

// NormalizedMedication is one entry of the patient's medication list after
// terminology resolution. Created by the normalizer adapter; read-only to the
// scoring engine. Uniqueness is by position in the list: duplicate drug names
// are legal and each entry is scored independently.
type NormalizedMedication struct {
	RawName        string `json:"raw_name"`
	NormalizedName string `json:"normalized_name"`
	// RxCUI is the RxNorm concept identifier, empty when the name could not
	// be resolved. Unresolved entries still count toward polypharmacy.
	RxCUI     string `json:"rxcui,omitempty"`
	Note      string `json:"note,omitempty"`
	Dose      string `json:"dose,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}

// Name returns the best available name for scoring, lowercased.
func (m NormalizedMedication) Name() string {
	n := m.NormalizedName
	if n == "" {
		n = m.RawName
	}
	return strings.ToLower(strings.TrimSpace(n))
}

// Resolved reports whether the terminology lookup matched this entry.
func (m NormalizedMedication) Resolved() bool {
	return m.RxCUI != ""
}

// InteractionRecord is one known pairwise interaction supplied by the
// interaction knowledge lookup. Immutable and request-scoped; absence of a
// record for a pair is a legitimate unknown, not an error.
type InteractionRecord struct {
	DrugA      string   `json:"drug_a"`
	DrugB      string   `json:"drug_b"`
	Severity   Severity `json:"severity"`
	SourceText string   `json:"source_text"`
}

// Validate ensures the record can enter the scoring pipeline.
func (r *InteractionRecord) Validate() error {
	if r.DrugA == "" || r.DrugB == "" {
		return fmt.Errorf("interaction record validation: both drug names are required")
	}
	if !r.Severity.IsValid() {
		return fmt.Errorf("interaction record validation: %w", ErrInvalidSeverity)
	}
	return nil
}

// RiskClassMembership maps one drug to the pharmacological risk classes it
// belongs to. Supplied alongside interaction records; consumed by the
// vulnerability scorer and the fall-risk heuristic.
type RiskClassMembership struct {
	Drug    string      `json:"drug"`
	Classes []RiskClass `json:"classes"`
}

// ScoreLineItem is one labeled point contribution inside a breakdown.
type ScoreLineItem struct {
	Label  string  `json:"label"`
	Points float64 `json:"points"`
}

// ScoreBreakdown is the engine's sole output entity beyond the headline
// numbers: every contribution that produced the composite score, itemized for
// the explanation layer. Constructed fresh per request and never mutated
// after return.
type ScoreBreakdown struct {
	InteractionItems       []ScoreLineItem `json:"interaction_items"`
	InteractionPointsTotal float64         `json:"interaction_points_total"`
	AgePoints              float64         `json:"age_points"`
	MedicationModifiers    []ScoreLineItem `json:"medication_modifiers"`
	// PerMedImpacts attributes points back to individual medications so the
	// UI can correlate rows with the patient's list.
	PerMedImpacts         []ScoreLineItem `json:"per_med_impacts"`
	MedicationPointsTotal float64         `json:"medication_points_total"`
	DDIScore              float64         `json:"ddi_score_0_to_10"`
	DoseScore             float64         `json:"dose_score_0_to_10"`
	VulnerabilityScore    float64         `json:"vulnerability_score_0_to_10"`
	WeightedComponents    []ScoreLineItem `json:"weighted_components"`
	Confidence            Confidence      `json:"confidence"`
	RawTotal              float64         `json:"raw_total"`
	MaxRaw                float64         `json:"max_raw"`
	ScaledScore           float64         `json:"scaled_score_0_to_10"`
}

// FallRiskAssessment is the output of the fall-risk heuristic pass: a boolean
// flag plus one reason per triggering rule, in rule order.
type FallRiskAssessment struct {
	IsHighRisk bool     `json:"is_high_risk"`
	Reasons    []string `json:"reasons"`
}

// AnalysisResult is the top-level output of a scoring run. It is returned to
// the caller and never retained by the engine.
type AnalysisResult struct {
	RiskScore      float64            `json:"risk_score_0_to_10"`
	Urgency        Urgency            `json:"urgency"`
	FallRisk       FallRiskAssessment `json:"fall_risk"`
	ScoreBreakdown ScoreBreakdown     `json:"score_breakdown"`
}

// Validate checks the result's range invariants after a scoring run.
func (r *AnalysisResult) Validate() error {
	for name, v := range map[string]float64{
		"risk_score":          r.RiskScore,
		"ddi_score":           r.ScoreBreakdown.DDIScore,
		"dose_score":          r.ScoreBreakdown.DoseScore,
		"vulnerability_score": r.ScoreBreakdown.VulnerabilityScore,
	} {
		if v < 0 || v > 10 {
			return fmt.Errorf("analysis result validation: %s %.2f outside [0,10]", name, v)
		}
	}
	if !r.Urgency.IsValid() {
		return fmt.Errorf("analysis result validation: %w", ErrInvalidUrgency)
	}
	if !r.ScoreBreakdown.Confidence.IsValid() {
		return fmt.Errorf("analysis result validation: %w", ErrInvalidConfidence)
	}
	return nil
}

// AssessmentRecord is a persisted analysis run: the request snapshot plus the
// result, stored by the repository layer for later retrieval. The scoring
// engine itself never sees this type.
type AssessmentRecord struct {
	ID            string                 `json:"id"`
	RequestID     string                 `json:"request_id,omitempty"`
	PatientName   string                 `json:"patient_name,omitempty"`
	Age           int                    `json:"age"`
	Medications   []NormalizedMedication `json:"medications"`
	Interactions  []InteractionRecord    `json:"interactions"`
	Result        AnalysisResult         `json:"result"`
	EngineVersion string                 `json:"engine_version"`
	CreatedAt     time.Time              `json:"created_at"`
}

// Validate ensures the record is storable.
func (a *AssessmentRecord) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("assessment record validation: ID is required")
	}
	if a.Age < 1 || a.Age > 120 {
		return fmt.Errorf("assessment record validation: age %d outside [1,120]", a.Age)
	}
	if len(a.Medications) == 0 {
		return fmt.Errorf("assessment record validation: medication list is empty")
	}
	return a.Result.Validate()
}

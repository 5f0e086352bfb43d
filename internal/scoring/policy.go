// Package scoring implements the medication risk scoring engine: a pure,
// stateless pipeline that turns normalized medication records, interaction
// data and patient age into a bounded 0-10 risk score, an urgency tier, a
// confidence label and an itemized breakdown.
//
// Every tunable constant lives in a Policy value that is validated once at
// startup and passed into the engine; the scoring code itself carries no
// mutable state and no configuration of its own.
package scoring

import (
	"fmt"
	"math"

	"github.com/drugshield-risk-server/internal/domain"
)

// EngineVersion identifies the scoring policy revision. Surfaced in /health
// and every response so stored assessments can be traced to the tables that
// produced them.
const EngineVersion = "2026.02.16.2"

// AgeStep is one step of the monotonic age-points function. Steps are
// evaluated in descending MinAge order; the first match wins.
type AgeStep struct {
	MinAge int
	Points float64
}

// SubstancePoints assigns fixed points to a high-risk substance detected by
// name substring. Ordered so itemized output is deterministic.
type SubstancePoints struct {
	Substance string
	Points    float64
}

// ClassPoints assigns fixed points to one pharmacological risk class.
// Ordered; a medication is charged for its first matching class only.
type ClassPoints struct {
	Class  domain.RiskClass
	Points float64
}

// Weights blends the three subscores into the composite. Must sum to 1.0.
type Weights struct {
	DDI           float64
	Dose          float64
	Vulnerability float64
}

// Floors are hard safety minimums applied to the blended score. A floor
// raises the composite but never lowers it, so monotonicity is preserved.
type Floors struct {
	HighRiskSubstance    float64
	ElderBloodThinner    float64
	ElderBloodThinnerAge int
	VulnerabilityMid     float64 // applied when vulnerability subscore >= 6
	VulnerabilityHigh    float64 // applied when vulnerability subscore >= 8
	OneHighInteraction   float64
	TwoHighInteractions  float64
	ExtremeDose          float64
	TenMedications       float64
	TwentyMedications    float64
	FiftyMedications     float64
}

// Policy is the complete, immutable scoring policy: severity tables, dose
// tiers, vulnerability steps, blend weights, urgency thresholds and safety
// floors. Construct with DefaultPolicy, override from configuration, then
// Validate before handing it to the engine.
type Policy struct {
	// DDI
	SeverityPoints   map[domain.Severity]float64
	BurdenPairWeight float64 // per interacting pair
	BurdenHighWeight float64 // extra per high-severity pair
	BurdenCap        float64
	DDIRawCeiling    float64 // raw points that saturate the 0-10 subscore

	// Dose sanity
	ExtremeDoseRatio   float64
	ExtremeDosePoints  float64
	HighDoseRatio      float64
	HighDosePoints     float64
	UpperDoseRatio     float64
	UpperDosePoints    float64
	NoReferenceDailyMg float64 // daily mg above which an unreferenced dose is charged more
	NoReferenceHighPts float64
	NoReferenceLowPts  float64
	DoseRawCeiling     float64

	// Vulnerability
	AgeSteps            []AgeStep
	RiskClassPoints     []ClassPoints
	HighRiskSubstances  []SubstancePoints
	UnmatchedPointsEach float64
	UnmatchedCap        float64
	ElderSedativeAge    int
	ElderSedativeBonus  float64
	VulnRawCeiling      float64

	// Composite
	Weights         Weights
	RedThreshold    float64
	YellowThreshold float64
	MaxRaw          float64
	Floors          Floors
}

// DefaultPolicy returns the conservative reference policy.
func DefaultPolicy() Policy {
	return Policy{
		SeverityPoints: map[domain.Severity]float64{
			domain.SeverityLow:      1.0,
			domain.SeverityModerate: 3.0,
			domain.SeverityHigh:     7.0,
			domain.SeverityUnknown:  2.0,
		},
		BurdenPairWeight: 0.6,
		BurdenHighWeight: 1.2,
		BurdenCap:        8.0,
		DDIRawCeiling:    12.0,

		ExtremeDoseRatio:   3.0,
		ExtremeDosePoints:  10.0,
		HighDoseRatio:      1.5,
		HighDosePoints:     6.0,
		UpperDoseRatio:     1.0,
		UpperDosePoints:    3.0,
		NoReferenceDailyMg: 2000.0,
		NoReferenceHighPts: 3.0,
		NoReferenceLowPts:  1.5,
		DoseRawCeiling:     10.0,

		AgeSteps: []AgeStep{
			{MinAge: 85, Points: 3.0},
			{MinAge: 75, Points: 2.0},
			{MinAge: 65, Points: 1.0},
		},
		RiskClassPoints: []ClassPoints{
			{Class: domain.ClassAnticoagulant, Points: 2.5},
			{Class: domain.ClassOpioid, Points: 2.5},
			{Class: domain.ClassSedative, Points: 2.0},
			{Class: domain.ClassAntipsychotic, Points: 1.8},
			{Class: domain.ClassInsulin, Points: 1.8},
			{Class: domain.ClassHypoglycemic, Points: 1.2},
			{Class: domain.ClassAntiplatelet, Points: 1.6},
		},
		HighRiskSubstances: []SubstancePoints{
			{Substance: "cocaine", Points: 8.0},
			{Substance: "heroin", Points: 8.0},
			{Substance: "methamphetamine", Points: 8.0},
			{Substance: "fentanyl", Points: 6.0},
		},
		UnmatchedPointsEach: 0.8,
		UnmatchedCap:        5.0,
		ElderSedativeAge:    65,
		ElderSedativeBonus:  1.5,
		VulnRawCeiling:      10.0,

		Weights: Weights{
			DDI:           0.50,
			Dose:          0.30,
			Vulnerability: 0.20,
		},
		RedThreshold:    7.5,
		YellowThreshold: 4.0,
		MaxRaw:          30.0,
		Floors: Floors{
			HighRiskSubstance:    7.5,
			ElderBloodThinner:    4.2,
			ElderBloodThinnerAge: 75,
			VulnerabilityMid:     4.0,
			VulnerabilityHigh:    6.0,
			OneHighInteraction:   7.0,
			TwoHighInteractions:  8.5,
			ExtremeDose:          8.8,
			TenMedications:       6.5,
			TwentyMedications:    8.0,
			FiftyMedications:     9.0,
		},
	}
}

// Validate checks the internal consistency of the policy. Any failure here is
// a configuration error and fatal at startup; the engine refuses to score
// with an invalid policy, never silently corrects one.
func (p Policy) Validate() error {
	for _, sev := range []domain.Severity{domain.SeverityLow, domain.SeverityModerate, domain.SeverityHigh, domain.SeverityUnknown} {
		if _, ok := p.SeverityPoints[sev]; !ok {
			return fmt.Errorf("policy validation: severity table missing %s", sev)
		}
	}
	low := p.SeverityPoints[domain.SeverityLow]
	mod := p.SeverityPoints[domain.SeverityModerate]
	high := p.SeverityPoints[domain.SeverityHigh]
	unk := p.SeverityPoints[domain.SeverityUnknown]
	if !(low <= mod && mod <= high) {
		return fmt.Errorf("policy validation: severity points must be monotonic, got low=%.2f moderate=%.2f high=%.2f", low, mod, high)
	}
	if unk < low || unk > high {
		return fmt.Errorf("policy validation: unknown severity points %.2f outside [low, high]", unk)
	}

	if p.DDIRawCeiling <= 0 || p.DoseRawCeiling <= 0 || p.VulnRawCeiling <= 0 {
		return fmt.Errorf("policy validation: subscore ceilings must be positive")
	}
	if p.MaxRaw <= 0 {
		return fmt.Errorf("policy validation: max raw must be positive")
	}

	if !(p.ExtremeDoseRatio > p.HighDoseRatio && p.HighDoseRatio > p.UpperDoseRatio && p.UpperDoseRatio > 0) {
		return fmt.Errorf("policy validation: dose ratio tiers must be strictly ordered")
	}
	if !(p.ExtremeDosePoints >= p.HighDosePoints && p.HighDosePoints >= p.UpperDosePoints) {
		return fmt.Errorf("policy validation: dose tier points must be monotonic")
	}

	if len(p.AgeSteps) == 0 {
		return fmt.Errorf("policy validation: age step table is empty")
	}
	for i := 1; i < len(p.AgeSteps); i++ {
		prev, cur := p.AgeSteps[i-1], p.AgeSteps[i]
		if cur.MinAge >= prev.MinAge {
			return fmt.Errorf("policy validation: age steps must be in descending age order")
		}
		if cur.Points > prev.Points {
			return fmt.Errorf("policy validation: age points must not decrease with age")
		}
	}

	for _, cp := range p.RiskClassPoints {
		if !cp.Class.IsValid() {
			return fmt.Errorf("policy validation: %w: %s", domain.ErrInvalidRiskClass, cp.Class)
		}
		if cp.Points < 0 {
			return fmt.Errorf("policy validation: risk class %s has negative points", cp.Class)
		}
	}

	sum := p.Weights.DDI + p.Weights.Dose + p.Weights.Vulnerability
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("policy validation: subscore weights sum to %.4f, want 1.0", sum)
	}

	if !(0 < p.YellowThreshold && p.YellowThreshold < p.RedThreshold && p.RedThreshold <= 10) {
		return fmt.Errorf("policy validation: urgency thresholds must satisfy 0 < yellow (%.2f) < red (%.2f) <= 10",
			p.YellowThreshold, p.RedThreshold)
	}

	return nil
}

// agePoints evaluates the age step function.
func (p Policy) agePoints(age int) float64 {
	for _, step := range p.AgeSteps {
		if age >= step.MinAge {
			return step.Points
		}
	}
	return 0.0
}

// polypharmacyPoints scales with the number of concurrent medications. The
// slope steepens past the classic five-medication polypharmacy signal.
func (p Policy) polypharmacyPoints(medCount int) float64 {
	switch {
	case medCount <= 1:
		return 0.0
	case medCount <= 4:
		return float64(medCount-1) * 0.5
	case medCount <= 10:
		return 1.5 + float64(medCount-4)*0.8
	default:
		return 6.3 + float64(medCount-10)*0.5
	}
}

// urgencyForScore maps the composite score to its triage tier. Total and
// deterministic: the three tiers partition [0,10].
func (p Policy) urgencyForScore(score float64) domain.Urgency {
	switch {
	case score >= p.RedThreshold:
		return domain.UrgencyRed
	case score >= p.YellowThreshold:
		return domain.UrgencyYellow
	default:
		return domain.UrgencyGreen
	}
}

// saturate maps raw points onto [0,10] against a ceiling: 0 stays 0, the
// ceiling and anything above it becomes 10, monotonic in between.
func saturate(raw, ceiling float64) float64 {
	return math.Min(10.0, round2(raw/ceiling*10.0))
}

// round2 rounds to two decimals so itemized points and subtotals agree
// exactly across repeated runs.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/drugshield-risk-server/internal/domain"
)

// Input is everything the engine scores from. Interactions and risk class
// memberships come from upstream reference lookups; the engine itself never
// performs I/O.
type Input struct {
	Age          int
	Medications  []domain.NormalizedMedication
	Interactions []domain.InteractionRecord
	RiskClasses  []domain.RiskClassMembership
}

// Engine computes deterministic medication risk assessments. It is
// stateless and safe for concurrent use; all tunables live in the
// validated Policy it was constructed with.
type Engine struct {
	policy Policy
	logger *logrus.Logger
}

// NewEngine validates the policy and returns a ready engine.
func NewEngine(policy Policy, logger *logrus.Logger) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("scoring engine init: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{policy: policy, logger: logger}, nil
}

// Policy returns a copy of the engine's active policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Score turns the input into a bounded risk assessment. Identical inputs
// always produce byte-identical results, and reordering the medication
// list never changes the score. Partial data (unparsed doses, unresolved
// names) degrades the confidence label, never the pipeline.
func (e *Engine) Score(in Input) domain.AnalysisResult {
	tally := newPerMedTally(medNames(in.Medications))

	ddi := e.scoreDDI(in.Interactions, tally)
	dose := e.scoreDose(in.Medications, tally)
	vuln := e.scoreVulnerability(in.Age, in.Medications, in.RiskClasses, tally)

	weighted := []domain.ScoreLineItem{
		{Label: fmt.Sprintf("DDI Risk x %.2f", e.policy.Weights.DDI), Points: round2(ddi.Score * e.policy.Weights.DDI)},
		{Label: fmt.Sprintf("Dose Safety x %.2f", e.policy.Weights.Dose), Points: round2(dose.Score * e.policy.Weights.Dose)},
		{Label: fmt.Sprintf("Patient Vulnerability x %.2f", e.policy.Weights.Vulnerability), Points: round2(vuln.Score * e.policy.Weights.Vulnerability)},
	}
	blended := weighted[0].Points + weighted[1].Points + weighted[2].Points

	medCount := len(medNames(in.Medications))
	blended = e.applyFloors(blended, floorSignals{
		Age:          in.Age,
		MedCount:     medCount,
		VulnScore:    vuln.Score,
		HighPairs:    ddi.HighCount,
		Substance:    vuln.SubstanceFlag,
		BloodThinner: vuln.BloodThinner,
		ExtremeDose:  dose.ExtremePresent,
	})
	final := round2(math.Min(10.0, blended))

	matched, approx := 0, 0
	for _, m := range in.Medications {
		if m.Name() == "" {
			continue
		}
		if m.Resolved() {
			matched++
		}
		if strings.Contains(strings.ToLower(m.Note), "approximate rxnorm match") {
			approx++
		}
	}
	confidence := deriveConfidence(confidenceSignals{
		MedCount:        medCount,
		MatchedCount:    matched,
		KnownLimits:     dose.KnownLimits,
		ParsedDoses:     dose.ParsedDoses,
		Interactions:    len(in.Interactions),
		ApproxMatches:   approx,
		UnmatchedCount:  medCount - matched,
		UnknownLimitRef: dose.UnknownLimitRef,
	})

	modifiers := make([]domain.ScoreLineItem, 0, len(vuln.Modifiers)+len(dose.Modifiers))
	modifiers = append(modifiers, vuln.Modifiers...)
	modifiers = append(modifiers, dose.Modifiers...)

	perMed := tally.items()

	result := domain.AnalysisResult{
		RiskScore: final,
		Urgency:   e.policy.urgencyForScore(final),
		FallRisk:  AssessFallRisk(in.Age, in.Medications),
		ScoreBreakdown: domain.ScoreBreakdown{
			InteractionItems:       ddi.Items,
			InteractionPointsTotal: round2(ddi.Raw),
			AgePoints:              round2(vuln.AgePoints),
			MedicationModifiers:    modifiers,
			PerMedImpacts:          perMed,
			MedicationPointsTotal:  tally.total(),
			DDIScore:               round2(ddi.Score),
			DoseScore:              round2(dose.Score),
			VulnerabilityScore:     round2(vuln.Score),
			WeightedComponents:     weighted,
			Confidence:             confidence,
			RawTotal:               round2(ddi.Raw + dose.Raw + vuln.Raw),
			MaxRaw:                 e.policy.MaxRaw,
			ScaledScore:            final,
		},
	}

	e.logger.WithFields(logrus.Fields{
		"age":         in.Age,
		"medications": medCount,
		"pairs":       len(in.Interactions),
		"risk_score":  final,
		"urgency":     result.Urgency,
		"confidence":  confidence,
	}).Debug("Risk assessment scored")

	return result
}

// floorSignals are the conditions the hard safety floors check.
type floorSignals struct {
	Age          int
	MedCount     int
	VulnScore    float64
	HighPairs    int
	Substance    bool
	BloodThinner bool
	ExtremeDose  bool
}

// applyFloors raises the blended score to each matching floor. Floors only
// ever raise the score, so monotonicity of the composite is preserved.
func (e *Engine) applyFloors(blended float64, s floorSignals) float64 {
	f := e.policy.Floors
	if s.Substance {
		blended = math.Max(blended, f.HighRiskSubstance)
	}
	if s.Age >= f.ElderBloodThinnerAge && s.BloodThinner {
		blended = math.Max(blended, f.ElderBloodThinner)
	}
	if s.VulnScore >= 6.0 {
		blended = math.Max(blended, f.VulnerabilityMid)
	}
	if s.VulnScore >= 8.0 {
		blended = math.Max(blended, f.VulnerabilityHigh)
	}
	if s.HighPairs >= 1 {
		blended = math.Max(blended, f.OneHighInteraction)
	}
	if s.HighPairs >= 2 {
		blended = math.Max(blended, f.TwoHighInteractions)
	}
	if s.ExtremeDose {
		blended = math.Max(blended, f.ExtremeDose)
	}
	if s.MedCount >= 10 {
		blended = math.Max(blended, f.TenMedications)
	}
	if s.MedCount >= 20 {
		blended = math.Max(blended, f.TwentyMedications)
	}
	if s.MedCount >= 50 {
		blended = math.Max(blended, f.FiftyMedications)
	}
	return blended
}

// medNames lowercases and trims every medication's display name, dropping
// empties.
func medNames(meds []domain.NormalizedMedication) []string {
	out := make([]string, 0, len(meds))
	for _, m := range meds {
		if n := m.Name(); n != "" {
			out = append(out, n)
		}
	}
	return out
}

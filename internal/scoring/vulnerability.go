package scoring

import (
	"fmt"
	"strings"

	"github.com/drugshield-risk-server/internal/domain"
)

// vulnResult carries the patient-vulnerability subscore and the flags the
// safety floors key off.
type vulnResult struct {
	Score          float64
	Raw            float64
	AgePoints      float64
	Modifiers      []domain.ScoreLineItem
	UnmatchedCount int
	SubstanceFlag  bool
	BloodThinner   bool
}

// scoreVulnerability folds age, unmatched medication names, polypharmacy,
// high-risk substances and pharmacological risk classes into one subscore.
// Class membership supplied by the caller (from reference data) takes
// precedence over keyword matching on the name.
func (e *Engine) scoreVulnerability(age int, meds []domain.NormalizedMedication, memberships []domain.RiskClassMembership, tally *perMedTally) vulnResult {
	var res vulnResult

	classIndex := make(map[string][]domain.RiskClass, len(memberships))
	for _, m := range memberships {
		classIndex[strings.ToLower(strings.TrimSpace(m.Drug))] = m.Classes
	}

	names := make([]string, 0, len(meds))
	for _, med := range meds {
		if n := med.Name(); n != "" {
			names = append(names, n)
		}
	}

	res.AgePoints = e.policy.agePoints(age)
	if res.AgePoints > 0 {
		res.Raw += res.AgePoints
		res.Modifiers = append(res.Modifiers, domain.ScoreLineItem{
			Label:  fmt.Sprintf("Age modifier (%d)", age),
			Points: round2(res.AgePoints),
		})
	}

	// Unverifiable names carry uncertainty weight, capped so a long list of
	// typos does not dominate the subscore.
	var unmatchedNames []string
	for _, med := range meds {
		if !med.Resolved() && med.Name() != "" {
			unmatchedNames = append(unmatchedNames, med.Name())
		}
	}
	res.UnmatchedCount = len(unmatchedNames)
	if res.UnmatchedCount > 0 {
		pts := float64(res.UnmatchedCount) * e.policy.UnmatchedPointsEach
		if pts > e.policy.UnmatchedCap {
			pts = e.policy.UnmatchedCap
		}
		res.Raw += pts
		res.Modifiers = append(res.Modifiers, domain.ScoreLineItem{
			Label:  fmt.Sprintf("Unmatched medication names (%d)", res.UnmatchedCount),
			Points: round2(pts),
		})
		share := pts / float64(res.UnmatchedCount)
		for _, n := range unmatchedNames {
			tally.add(n, share)
		}
	}

	if poly := e.policy.polypharmacyPoints(len(names)); poly > 0 {
		res.Raw += poly
		res.Modifiers = append(res.Modifiers, domain.ScoreLineItem{
			Label:  fmt.Sprintf("Polypharmacy (%d medicines)", len(names)),
			Points: round2(poly),
		})
		share := poly / float64(len(names))
		for _, n := range names {
			tally.add(n, share)
		}
	}

	for _, name := range names {
		for _, sub := range e.policy.HighRiskSubstances {
			if strings.Contains(name, sub.Substance) {
				res.Raw += sub.Points
				res.SubstanceFlag = true
				res.Modifiers = append(res.Modifiers, domain.ScoreLineItem{
					Label:  fmt.Sprintf("High-risk substance: %s", sub.Substance),
					Points: round2(sub.Points),
				})
				tally.add(name, sub.Points)
			}
		}
		// First matching risk class only; a drug in several classes is
		// charged once for its most salient one.
		if cls, ok := firstRiskClass(name, classIndex, e.policy.RiskClassPoints); ok {
			pts := riskClassPointsFor(cls, e.policy.RiskClassPoints)
			res.Raw += pts
			res.Modifiers = append(res.Modifiers, domain.ScoreLineItem{
				Label:  fmt.Sprintf("Medicine class risk: %s", cls),
				Points: round2(pts),
			})
			tally.add(name, pts)
			if cls.IsBloodThinner() {
				res.BloodThinner = true
			}
		}
	}

	// Sedatives in an already fall-prone age band compound each other.
	var sedativeNames []string
	for _, n := range names {
		if containsAny(n, sedativeKeywords) {
			sedativeNames = append(sedativeNames, n)
		}
	}
	if age >= e.policy.ElderSedativeAge && len(sedativeNames) > 0 {
		res.Raw += e.policy.ElderSedativeBonus
		res.Modifiers = append(res.Modifiers, domain.ScoreLineItem{
			Label:  fmt.Sprintf("Age %d+ with sedative present", e.policy.ElderSedativeAge),
			Points: round2(e.policy.ElderSedativeBonus),
		})
		share := e.policy.ElderSedativeBonus / float64(len(sedativeNames))
		for _, n := range sedativeNames {
			tally.add(n, share)
		}
	}

	res.Score = saturate(res.Raw, e.policy.VulnRawCeiling)
	return res
}

// firstRiskClass resolves the single class a medication is charged for,
// scanning in fixed table order. Supplied memberships win over keyword
// matching but are still ordered by the table so the outcome does not
// depend on membership list order.
func firstRiskClass(name string, supplied map[string][]domain.RiskClass, table []ClassPoints) (domain.RiskClass, bool) {
	have := supplied[name]
	for _, cp := range table {
		for _, c := range have {
			if c == cp.Class {
				return cp.Class, true
			}
		}
	}
	for _, rc := range riskClassKeywords {
		if containsAny(name, rc.Keywords) {
			return rc.Class, true
		}
	}
	return "", false
}

func riskClassPointsFor(cls domain.RiskClass, table []ClassPoints) float64 {
	for _, cp := range table {
		if cp.Class == cls {
			return cp.Points
		}
	}
	return 0
}

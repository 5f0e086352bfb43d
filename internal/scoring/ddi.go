package scoring

import (
	"fmt"
	"strings"

	"github.com/drugshield-risk-server/internal/domain"
)

// ddiResult carries the drug-drug-interaction subscore and its itemization.
type ddiResult struct {
	Score     float64
	Raw       float64
	Items     []domain.ScoreLineItem
	HighCount int
}

// scoreDDI computes the interaction subscore from the supplied pairwise
// records. Each record contributes severity-table points, split evenly
// between the two drugs for per-medication attribution. Pairs absent from
// the dataset contribute nothing and are not listed; unknown is not safe,
// it is simply unscored here and reflected in confidence instead.
//
// The result depends only on the set of records, never on the ordering of
// the patient's medication list.
func (e *Engine) scoreDDI(interactions []domain.InteractionRecord, tally *perMedTally) ddiResult {
	var res ddiResult

	for _, it := range interactions {
		sev := it.Severity
		if !sev.IsValid() {
			sev = domain.SeverityUnknown
		}
		pts := e.policy.SeverityPoints[sev]
		res.Raw += pts
		if sev == domain.SeverityHigh {
			res.HighCount++
		}

		a := strings.ToLower(strings.TrimSpace(it.DrugA))
		b := strings.ToLower(strings.TrimSpace(it.DrugB))
		share := pts / 2.0
		if a != "" {
			tally.add(a, share)
		}
		if b != "" {
			tally.add(b, share)
		}

		res.Items = append(res.Items, domain.ScoreLineItem{
			Label:  fmt.Sprintf("%s + %s (%s)", it.DrugA, it.DrugB, sev),
			Points: round2(pts),
		})
	}

	// Interaction burden bonus so many concurrent pairs scale beyond the
	// per-pair sum.
	burden := float64(len(interactions))*e.policy.BurdenPairWeight + float64(res.HighCount)*e.policy.BurdenHighWeight
	if burden > e.policy.BurdenCap {
		burden = e.policy.BurdenCap
	}
	if burden > 0 {
		res.Raw += burden
		res.Items = append(res.Items, domain.ScoreLineItem{
			Label:  fmt.Sprintf("Interaction burden (%d pairs)", len(interactions)),
			Points: round2(burden),
		})

		interacting := interactingMeds(interactions)
		if len(interacting) > 0 {
			share := burden / float64(len(interacting))
			for _, n := range interacting {
				tally.add(n, share)
			}
		}
	}

	res.Score = saturate(res.Raw, e.policy.DDIRawCeiling)
	return res
}

// interactingMeds returns the distinct lowercased drug names that appear in
// any interaction record, in first-appearance order.
func interactingMeds(interactions []domain.InteractionRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range interactions {
		for _, raw := range []string{it.DrugA, it.DrugB} {
			n := strings.ToLower(strings.TrimSpace(raw))
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

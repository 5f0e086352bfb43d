package scoring

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/drugshield-risk-server/internal/domain"
)

var dosePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(mcg|ug|mg|g)\b`)

// parseDoseMg extracts a single-administration dose in milligrams from a
// free-text dose string such as "20 mg" or "0.5g". Returns false when no
// recognizable quantity is present.
func parseDoseMg(dose string) (float64, bool) {
	m := dosePattern.FindStringSubmatch(strings.ToLower(dose))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	switch m[2] {
	case "mcg", "ug":
		v /= 1000.0
	case "g":
		v *= 1000.0
	}
	return v, true
}

// frequencyMultiplier converts a free-text frequency into administrations
// per day. Unrecognized or empty frequencies count as once daily.
func frequencyMultiplier(freq string) float64 {
	f := strings.ToLower(strings.TrimSpace(freq))
	switch {
	case f == "":
		return 1.0
	case strings.Contains(f, "tid") || strings.Contains(f, "three times") || strings.Contains(f, "3x") || strings.Contains(f, "q8h") || strings.Contains(f, "q8 h") || strings.Contains(f, "every 8"):
		return 3.0
	case strings.Contains(f, "qid") || strings.Contains(f, "four times") || strings.Contains(f, "4x") || strings.Contains(f, "q6h") || strings.Contains(f, "q6 h") || strings.Contains(f, "every 6"):
		return 4.0
	case strings.Contains(f, "bid") || strings.Contains(f, "twice") || strings.Contains(f, "two times") || strings.Contains(f, "2x") || strings.Contains(f, "q12h") || strings.Contains(f, "q12 h") || strings.Contains(f, "every 12"):
		return 2.0
	case strings.Contains(f, "weekly") || strings.Contains(f, "once a week") || strings.Contains(f, "once weekly"):
		return 1.0 / 7.0
	default:
		return 1.0
	}
}

// doseResult carries the dose subscore plus the counters the confidence
// label needs.
type doseResult struct {
	Score           float64
	Raw             float64
	Modifiers       []domain.ScoreLineItem
	ExtremePresent  bool
	KnownLimits     int
	ParsedDoses     int
	UnknownLimitRef int
}

// scoreDose compares each medication's estimated daily dose against the
// reference daily-maximum table and converts exceedances into tiered
// points. Medications without a parseable dose contribute nothing here;
// the gap shows up in the confidence label instead.
func (e *Engine) scoreDose(meds []domain.NormalizedMedication, tally *perMedTally) doseResult {
	var res doseResult

	for _, med := range meds {
		name := NormalizeName(med.Name())
		if name == "" {
			continue
		}

		mg, parsed := parseDoseMg(med.Dose)
		if parsed {
			res.ParsedDoses++
		}

		limit, known := limitForName(name)
		if !known {
			// No reference limit for this drug; a stated dose still earns
			// a flat uncertainty charge, higher for very large daily totals.
			if parsed {
				res.UnknownLimitRef++
				daily := mg * frequencyMultiplier(med.Frequency)
				pts := e.policy.NoReferenceLowPts
				if daily >= e.policy.NoReferenceDailyMg {
					pts = e.policy.NoReferenceHighPts
				}
				res.Raw += pts
				tally.add(name, pts)
				res.Modifiers = append(res.Modifiers, domain.ScoreLineItem{
					Label:  fmt.Sprintf("Dose entered but no reference found: %s (%g mg/day)", name, round2(daily)),
					Points: round2(pts),
				})
			}
			continue
		}
		res.KnownLimits++

		if !parsed {
			continue
		}
		daily := mg * frequencyMultiplier(med.Frequency)
		ratio := daily / limit

		var pts float64
		var label string
		switch {
		case ratio >= e.policy.ExtremeDoseRatio:
			pts = e.policy.ExtremeDosePoints
			res.ExtremePresent = true
			label = fmt.Sprintf("Extreme dose concern: %s (%g mg/day)", name, round2(daily))
		case ratio >= e.policy.HighDoseRatio:
			pts = e.policy.HighDosePoints
			label = fmt.Sprintf("High dose concern: %s (%g mg/day)", name, round2(daily))
		case ratio >= e.policy.UpperDoseRatio:
			pts = e.policy.UpperDosePoints
			label = fmt.Sprintf("Upper-range dose: %s (%g mg/day)", name, round2(daily))
		default:
			continue
		}

		res.Raw += pts
		tally.add(name, pts)
		res.Modifiers = append(res.Modifiers, domain.ScoreLineItem{Label: label, Points: round2(pts)})
	}

	res.Score = saturate(res.Raw, e.policy.DoseRawCeiling)
	return res
}

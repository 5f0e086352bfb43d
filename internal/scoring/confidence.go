package scoring

import "github.com/drugshield-risk-server/internal/domain"

// confidenceSignals are the per-request counters the confidence label is
// derived from. All counts are over the medications originally submitted,
// not just the ones that resolved.
type confidenceSignals struct {
	MedCount        int
	MatchedCount    int
	KnownLimits     int
	ParsedDoses     int
	Interactions    int
	ApproxMatches   int
	UnmatchedCount  int
	UnknownLimitRef int
}

// deriveConfidence grades how much of the score rests on verified inputs.
// It is deliberately hard to earn: high requires every name resolved
// exactly and every stated dose both parsed and checked against a known
// limit, medium requires a solid majority, anything shakier is low.
func deriveConfidence(s confidenceSignals) domain.Confidence {
	if s.MedCount <= 0 {
		return domain.ConfidenceLow
	}

	matchRatio := float64(s.MatchedCount) / float64(s.MedCount)
	limitRatio := float64(s.KnownLimits) / float64(s.MedCount)
	parseRatio := float64(s.ParsedDoses) / float64(s.MedCount)
	approxRatio := float64(s.ApproxMatches) / float64(s.MedCount)

	if matchRatio < 0.6 {
		return domain.ConfidenceLow
	}
	if approxRatio > 0.4 {
		return domain.ConfidenceLow
	}
	if s.UnmatchedCount > 0 && matchRatio < 0.8 {
		return domain.ConfidenceLow
	}
	if s.UnknownLimitRef > 0 && limitRatio < 0.5 {
		return domain.ConfidenceLow
	}

	if s.MedCount == 1 {
		if s.UnknownLimitRef > 0 {
			return domain.ConfidenceLow
		}
		if matchRatio == 1.0 && s.ApproxMatches == 0 && limitRatio >= 1.0 && parseRatio >= 1.0 {
			return domain.ConfidenceHigh
		}
		if matchRatio >= 0.8 && (limitRatio >= 1.0 || s.Interactions > 0) {
			return domain.ConfidenceMedium
		}
		return domain.ConfidenceLow
	}

	evidence := 0
	if s.Interactions > 0 {
		evidence += 2
	}
	if limitRatio >= 0.6 {
		evidence++
	}
	if parseRatio >= 0.5 {
		evidence++
	}
	if s.UnmatchedCount == 0 {
		evidence++
	}
	if s.ApproxMatches == 0 {
		evidence++
	}

	if matchRatio >= 0.95 && evidence >= 4 && s.UnmatchedCount == 0 && parseRatio >= 1.0 {
		return domain.ConfidenceHigh
	}
	if matchRatio >= 0.75 && evidence >= 2 {
		return domain.ConfidenceMedium
	}
	return domain.ConfidenceLow
}

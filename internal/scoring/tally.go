package scoring

import "github.com/drugshield-risk-server/internal/domain"

// perMedTally accumulates attributed points per medication name while
// remembering first-appearance order, so the emitted impact list is stable
// for a given input regardless of which scorer touched a name first.
type perMedTally struct {
	order  []string
	points map[string]float64
}

func newPerMedTally(names []string) *perMedTally {
	t := &perMedTally{points: make(map[string]float64, len(names))}
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := t.points[n]; !ok {
			t.order = append(t.order, n)
			t.points[n] = 0
		}
	}
	return t
}

func (t *perMedTally) add(name string, pts float64) {
	if name == "" {
		return
	}
	if _, ok := t.points[name]; !ok {
		t.order = append(t.order, name)
	}
	t.points[name] += pts
}

// items renders the tally in first-appearance order with rounded points.
func (t *perMedTally) items() []domain.ScoreLineItem {
	out := make([]domain.ScoreLineItem, 0, len(t.order))
	for _, n := range t.order {
		out = append(out, domain.ScoreLineItem{Label: n, Points: round2(t.points[n])})
	}
	return out
}

// total sums the already-rounded item points so the reported total matches
// the itemization exactly.
func (t *perMedTally) total() float64 {
	var s float64
	for _, n := range t.order {
		s += round2(t.points[n])
	}
	return round2(s)
}

package scoring

import (
	"io"
	"math"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/drugshield-risk-server/internal/domain"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	e, err := NewEngine(DefaultPolicy(), logger)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return e
}

func med(raw, normalized, rxcui, dose, frequency string) domain.NormalizedMedication {
	return domain.NormalizedMedication{
		RawName:        raw,
		NormalizedName: normalized,
		RxCUI:          rxcui,
		Dose:           dose,
		Frequency:      frequency,
	}
}

func TestParseDoseMg(t *testing.T) {
	tests := []struct {
		in     string
		wantMg float64
		wantOK bool
	}{
		{"20 mg", 20.0, true},
		{"20mg", 20.0, true},
		{"0.5 g", 500.0, true},
		{"500 mcg", 0.5, true},
		{"250 ug", 0.25, true},
		{"1.5mg", 1.5, true},
		{"10 MG", 10.0, true},
		{"two tablets", 0, false},
		{"", 0, false},
		{"mg", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseDoseMg(tt.in)
		if ok != tt.wantOK {
			t.Errorf("parseDoseMg(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			continue
		}
		if ok && math.Abs(got-tt.wantMg) > 1e-9 {
			t.Errorf("parseDoseMg(%q) = %.4f mg, want %.4f", tt.in, got, tt.wantMg)
		}
	}
}

func TestFrequencyMultiplier(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 1.0},
		{"once daily", 1.0},
		{"morning", 1.0},
		{"twice daily", 2.0},
		{"BID", 2.0},
		{"q12h", 2.0},
		{"three times a day", 3.0},
		{"tid", 3.0},
		{"q8h", 3.0},
		{"qid", 4.0},
		{"q6h", 4.0},
		{"every 6 hours", 4.0},
		{"every 8 hours", 3.0},
		{"every 12 hours", 2.0},
		{"weekly", 1.0 / 7.0},
		{"once a week", 1.0 / 7.0},
	}
	for _, tt := range tests {
		if got := frequencyMultiplier(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("frequencyMultiplier(%q) = %.4f, want %.4f", tt.in, got, tt.want)
		}
	}
}

func TestScoreDoseWithinLimitContributesNothing(t *testing.T) {
	e := newTestEngine(t)
	tally := newPerMedTally([]string{"warfarin"})

	res := e.scoreDose([]domain.NormalizedMedication{
		med("warfarin", "warfarin", "11289", "5 mg", "once daily"),
	}, tally)

	if res.Raw != 0 {
		t.Errorf("Expected zero raw points for in-range dose, got %.2f", res.Raw)
	}
	if res.Score != 0 {
		t.Errorf("Expected zero dose score, got %.2f", res.Score)
	}
	if len(res.Modifiers) != 0 {
		t.Errorf("Expected no modifiers, got %d", len(res.Modifiers))
	}
	if res.KnownLimits != 1 || res.ParsedDoses != 1 {
		t.Errorf("Expected 1 known limit and 1 parsed dose, got %d and %d", res.KnownLimits, res.ParsedDoses)
	}
}

func TestScoreDoseTiers(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name       string
		medication domain.NormalizedMedication
		wantPoints float64
		wantLabel  string
		extreme    bool
	}{
		{
			name:       "Upper range dose",
			medication: med("ibuprofen", "ibuprofen", "5640", "800 mg", "qid"),
			wantPoints: 3.0,
			wantLabel:  "Upper-range dose",
		},
		{
			name:       "High dose",
			medication: med("warfarin", "warfarin", "11289", "15 mg", "twice daily"),
			wantPoints: 6.0,
			wantLabel:  "High dose concern",
		},
		{
			name:       "Extreme dose",
			medication: med("Lexapro", "escitalopram", "352741", "10000 mg", "once daily"),
			wantPoints: 10.0,
			wantLabel:  "Extreme dose concern",
			extreme:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tally := newPerMedTally(nil)
			res := e.scoreDose([]domain.NormalizedMedication{tt.medication}, tally)

			if res.Raw != tt.wantPoints {
				t.Errorf("Expected %.1f raw points, got %.2f", tt.wantPoints, res.Raw)
			}
			if len(res.Modifiers) != 1 {
				t.Fatalf("Expected 1 modifier, got %d", len(res.Modifiers))
			}
			if !strings.HasPrefix(res.Modifiers[0].Label, tt.wantLabel) {
				t.Errorf("Expected label starting with %q, got %q", tt.wantLabel, res.Modifiers[0].Label)
			}
			if res.ExtremePresent != tt.extreme {
				t.Errorf("Expected extreme flag %v, got %v", tt.extreme, res.ExtremePresent)
			}
		})
	}
}

func TestScoreDoseNoReferenceLimit(t *testing.T) {
	e := newTestEngine(t)

	t.Run("Small daily total", func(t *testing.T) {
		tally := newPerMedTally(nil)
		res := e.scoreDose([]domain.NormalizedMedication{
			med("obscuredrug", "obscuredrug", "999", "100 mg", "once daily"),
		}, tally)

		if res.Raw != 1.5 {
			t.Errorf("Expected 1.5 points for unreferenced dose, got %.2f", res.Raw)
		}
		if res.UnknownLimitRef != 1 {
			t.Errorf("Expected 1 unknown limit reference, got %d", res.UnknownLimitRef)
		}
	})

	t.Run("Large daily total", func(t *testing.T) {
		tally := newPerMedTally(nil)
		res := e.scoreDose([]domain.NormalizedMedication{
			med("obscuredrug", "obscuredrug", "999", "1500 mg", "twice daily"),
		}, tally)

		if res.Raw != 3.0 {
			t.Errorf("Expected 3.0 points for large unreferenced dose, got %.2f", res.Raw)
		}
	})
}

func TestScoreDoseUnparseableContributesNothing(t *testing.T) {
	e := newTestEngine(t)
	tally := newPerMedTally(nil)

	res := e.scoreDose([]domain.NormalizedMedication{
		med("warfarin", "warfarin", "11289", "one tablet", "once daily"),
	}, tally)

	if res.Raw != 0 {
		t.Errorf("Expected zero raw points for unparseable dose, got %.2f", res.Raw)
	}
	if res.ParsedDoses != 0 {
		t.Errorf("Expected 0 parsed doses, got %d", res.ParsedDoses)
	}
	if res.KnownLimits != 1 {
		t.Errorf("Expected known limit still counted, got %d", res.KnownLimits)
	}
}

func TestScoreDoseSaturates(t *testing.T) {
	e := newTestEngine(t)
	tally := newPerMedTally(nil)

	meds := []domain.NormalizedMedication{
		med("Lexapro", "escitalopram", "352741", "10000 mg", "once daily"),
		med("warfarin", "warfarin", "11289", "200 mg", "once daily"),
	}
	res := e.scoreDose(meds, tally)

	if res.Score != 10.0 {
		t.Errorf("Expected saturated dose score 10.0, got %.2f", res.Score)
	}
}

package scoring

import "github.com/drugshield-risk-server/internal/domain"

// Keyword tables for the fall-risk pass. These deliberately differ from the
// scoring sedative table: trazodone, melatonin and zopiclone are not scored
// as benzodiazepine-class sedatives but still impair balance.
var (
	fallSedativeKeywords = []string{
		"alprazolam", "diazepam", "lorazepam", "zolpidem", "zopiclone",
		"temazepam", "clonazepam", "trazodone", "melatonin",
	}
	bpAgentKeywords = []string{
		"lisinopril", "losartan", "amlodipine", "hydrochlorothiazide",
		"metoprolol", "propranolol", "atenolol", "diltiazem", "enalapril",
	}
	diureticKeywords = []string{
		"furosemide", "hydrochlorothiazide", "spironolactone", "bumetanide",
	}
)

// fallSignals summarize the medication list for rule evaluation.
type fallSignals struct {
	Age           int
	SedativeCount int
	BPAgent       bool
	Diuretic      bool
}

func (s fallSignals) sedative() bool { return s.SedativeCount > 0 }
func (s fallSignals) bpLowering() bool {
	return s.BPAgent || s.Diuretic
}

// fallRule is one independent predicate with its reason text. Trigger rules
// set the high-risk flag; advisory rules only contribute their reason.
type fallRule struct {
	Trigger bool
	Match   func(fallSignals) bool
	Reason  string
}

// fallRules are evaluated in order over the same signals, so adding a rule
// never requires touching an existing one.
var fallRules = []fallRule{
	{
		Trigger: true,
		Match:   func(s fallSignals) bool { return s.sedative() && s.bpLowering() },
		Reason:  "Sedative combined with blood pressure/diuretic medication increases dizziness and fall risk.",
	},
	{
		Trigger: true,
		Match:   func(s fallSignals) bool { return s.SedativeCount >= 2 },
		Reason:  "Two or more sedating medications are present which compounds drowsiness and balance problems.",
	},
	{
		Trigger: true,
		Match:   func(s fallSignals) bool { return s.Age >= 75 && s.bpLowering() },
		Reason:  "Age 75 or older combined with blood pressure lowering medication raises the risk of falls from dizziness on standing.",
	},
	{
		Match:  func(s fallSignals) bool { return s.sedative() && !s.bpLowering() },
		Reason: "Sedative medication present which can increase drowsiness or balance problems.",
	},
	{
		Match:  func(s fallSignals) bool { return s.bpLowering() },
		Reason: "Medication that lowers blood pressure is present and can increase dizziness especially on standing.",
	},
}

// AssessFallRisk classifies the medication list for fall risk. Purely a
// classification pass: no points, no effect on the numeric score.
func AssessFallRisk(age int, meds []domain.NormalizedMedication) domain.FallRiskAssessment {
	var sig fallSignals
	sig.Age = age
	for _, med := range meds {
		name := med.Name()
		if name == "" {
			continue
		}
		if containsAny(name, fallSedativeKeywords) {
			sig.SedativeCount++
		}
		if containsAny(name, bpAgentKeywords) {
			sig.BPAgent = true
		}
		if containsAny(name, diureticKeywords) {
			sig.Diuretic = true
		}
	}

	out := domain.FallRiskAssessment{Reasons: []string{}}
	for _, rule := range fallRules {
		if !rule.Match(sig) {
			continue
		}
		if rule.Trigger {
			out.IsHighRisk = true
		}
		out.Reasons = append(out.Reasons, rule.Reason)
	}
	return out
}

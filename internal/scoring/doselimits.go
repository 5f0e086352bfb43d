package scoring

import (
	"strings"

	"github.com/drugshield-risk-server/internal/domain"
)

// DoseLimit is one entry of the dose reference table: a conservative maximum
// safe daily dose in milligrams for a drug, matched by name substring.
// The table is ordered; the first matching entry wins, so more specific names
// must precede shorter ones.
type DoseLimit struct {
	Drug       string
	MaxMgDaily float64
}

// doseLimitsMgPerDay holds conservative maximum daily dose references for
// common medicines. Single source of truth for the dose-sanity scorer; values
// are deliberately cautious and not a substitute for labeling.
var doseLimitsMgPerDay = []DoseLimit{
	{"acetaminophen", 4000.0},
	{"ibuprofen", 3200.0},
	{"naproxen", 1000.0},
	{"aspirin", 4000.0},
	{"diclofenac", 150.0},
	{"meloxicam", 15.0},
	{"celecoxib", 400.0},
	{"prednisone", 80.0},
	{"methylprednisolone", 48.0},
	{"dexamethasone", 10.0},
	{"warfarin", 15.0},
	{"apixaban", 20.0},
	{"rivaroxaban", 20.0},
	{"dabigatran", 300.0},
	{"edoxaban", 60.0},
	{"enoxaparin", 200.0},
	{"clopidogrel", 75.0},
	{"prasugrel", 10.0},
	{"ticagrelor", 180.0},
	{"lisinopril", 80.0},
	{"losartan", 100.0},
	{"valsartan", 320.0},
	{"olmesartan", 40.0},
	{"amlodipine", 10.0},
	{"nifedipine", 120.0},
	{"diltiazem", 480.0},
	{"verapamil", 480.0},
	{"metoprolol", 400.0},
	{"atenolol", 100.0},
	{"carvedilol", 100.0},
	{"propranolol", 320.0},
	{"hydrochlorothiazide", 50.0},
	{"furosemide", 600.0},
	{"spironolactone", 200.0},
	{"chlorthalidone", 100.0},
	{"atorvastatin", 80.0},
	{"rosuvastatin", 40.0},
	{"simvastatin", 40.0},
	{"pravastatin", 80.0},
	{"ezetimibe", 10.0},
	{"metformin", 2550.0},
	{"glipizide", 40.0},
	{"glyburide", 20.0},
	{"glimepiride", 8.0},
	{"empagliflozin", 25.0},
	{"dapagliflozin", 10.0},
	{"canagliflozin", 300.0},
	{"sitagliptin", 100.0},
	{"linagliptin", 5.0},
	{"levothyroxine", 0.3},
	{"omeprazole", 40.0},
	{"esomeprazole", 40.0},
	{"pantoprazole", 80.0},
	{"famotidine", 40.0},
	{"ondansetron", 24.0},
	{"metoclopramide", 40.0},
	{"loperamide", 16.0},
	{"docusate", 400.0},
	{"senna", 34.4},
	{"sertraline", 200.0},
	{"fluoxetine", 80.0},
	{"escitalopram", 20.0},
	{"citalopram", 40.0},
	{"paroxetine", 60.0},
	{"venlafaxine", 375.0},
	{"duloxetine", 120.0},
	{"bupropion", 450.0},
	{"mirtazapine", 45.0},
	{"trazodone", 400.0},
	{"quetiapine", 800.0},
	{"olanzapine", 20.0},
	{"risperidone", 16.0},
	{"haloperidol", 20.0},
	{"clozapine", 900.0},
	{"aripiprazole", 30.0},
	{"alprazolam", 10.0},
	{"diazepam", 40.0},
	{"lorazepam", 10.0},
	{"clonazepam", 20.0},
	{"zolpidem", 10.0},
	{"temazepam", 30.0},
	{"eszopiclone", 3.0},
	{"ramelteon", 8.0},
	{"gabapentin", 3600.0},
	{"pregabalin", 600.0},
	{"carbamazepine", 1600.0},
	{"lamotrigine", 500.0},
	{"valproate", 3000.0},
	{"levetiracetam", 3000.0},
	{"topiramate", 400.0},
	{"phenytoin", 600.0},
	{"baclofen", 80.0},
	{"cyclobenzaprine", 30.0},
	{"tizanidine", 36.0},
	{"methocarbamol", 6000.0},
	{"hydroxyzine", 400.0},
	{"diphenhydramine", 300.0},
	{"cetirizine", 10.0},
	{"loratadine", 10.0},
	{"fexofenadine", 180.0},
	{"montelukast", 10.0},
	{"morphine", 200.0},
	{"oxycodone", 160.0},
	{"hydrocodone", 120.0},
	{"codeine", 360.0},
	{"tramadol", 400.0},
	{"methadone", 120.0},
	{"buprenorphine", 32.0},
	{"amoxicillin", 3000.0},
	{"azithromycin", 500.0},
	{"doxycycline", 200.0},
	{"ciprofloxacin", 1500.0},
	{"levofloxacin", 750.0},
	{"cephalexin", 4000.0},
	{"nitrofurantoin", 400.0},
	{"acyclovir", 4000.0},
	{"valacyclovir", 3000.0},
	{"oseltamivir", 150.0},
	{"allopurinol", 800.0},
	{"colchicine", 1.8},
	{"tamsulosin", 0.8},
	{"finasteride", 5.0},
	{"sildenafil", 100.0},
	{"tadalafil", 20.0},
	{"donepezil", 10.0},
	{"memantine", 20.0},
	{"sumatriptan", 200.0},
}

// nameAlias maps a common brand name to its generic drug name. Ordered; the
// first alias contained in the input name wins.
type nameAlias struct {
	Alias     string
	Canonical string
}

var nameAliases = []nameAlias{
	{"valium", "diazepam"},
	{"xanax", "alprazolam"},
	{"ativan", "lorazepam"},
	{"klonopin", "clonazepam"},
	{"coumadin", "warfarin"},
	{"advil", "ibuprofen"},
	{"motrin", "ibuprofen"},
	{"tylenol", "acetaminophen"},
	{"norvasc", "amlodipine"},
	{"lipitor", "atorvastatin"},
	{"zocor", "simvastatin"},
	{"crestor", "rosuvastatin"},
	{"glucophage", "metformin"},
	{"zoloft", "sertraline"},
	{"prozac", "fluoxetine"},
	{"lexapro", "escitalopram"},
	{"celexa", "citalopram"},
	{"wellbutrin", "bupropion"},
	{"seroquel", "quetiapine"},
	{"abilify", "aripiprazole"},
	{"neurontin", "gabapentin"},
	{"lyrica", "pregabalin"},
	{"prilosec", "omeprazole"},
	{"nexium", "esomeprazole"},
	{"pepcid", "famotidine"},
	{"lasix", "furosemide"},
	{"zestril", "lisinopril"},
	{"cozaar", "losartan"},
	{"diovan", "valsartan"},
	{"eliquis", "apixaban"},
	{"xarelto", "rivaroxaban"},
	{"plavix", "clopidogrel"},
	{"brilinta", "ticagrelor"},
	{"baby aspirin", "aspirin"},
}

// sedativeKeywords are benzodiazepines and z-drugs used both by the
// vulnerability scorer (elder-with-sedative bonus) and the fall-risk rules.
var sedativeKeywords = []string{
	"alprazolam",
	"diazepam",
	"lorazepam",
	"clonazepam",
	"zolpidem",
	"temazepam",
}

// riskClassKeywords maps each risk class to the generic-name keywords that
// infer membership when the caller supplies none. Ordered; a medication is
// charged for its first matching class only.
var riskClassKeywords = []struct {
	Class    domain.RiskClass
	Keywords []string
}{
	{domain.ClassAnticoagulant, []string{"warfarin", "apixaban", "rivaroxaban", "dabigatran", "edoxaban", "heparin", "enoxaparin"}},
	{domain.ClassOpioid, []string{"morphine", "oxycodone", "hydrocodone", "codeine", "tramadol", "methadone", "buprenorphine", "fentanyl"}},
	{domain.ClassSedative, sedativeKeywords},
	{domain.ClassAntipsychotic, []string{"quetiapine", "olanzapine", "risperidone", "haloperidol", "clozapine"}},
	{domain.ClassInsulin, []string{"insulin"}},
	{domain.ClassHypoglycemic, []string{"glipizide", "glyburide", "glimepiride"}},
	{domain.ClassAntiplatelet, []string{"clopidogrel", "prasugrel", "ticagrelor", "aspirin"}},
}

// NormalizeName lowercases a medication name and resolves known brand-name
// aliases to the generic name used by the dose and class tables.
func NormalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, a := range nameAliases {
		if strings.Contains(n, a.Alias) {
			return a.Canonical
		}
	}
	return n
}

// limitForName finds the conservative daily limit for a medication name, or
// false when the table has no reference for it.
func limitForName(name string) (float64, bool) {
	for _, dl := range doseLimitsMgPerDay {
		if strings.Contains(name, dl.Drug) {
			return dl.MaxMgDaily, true
		}
	}
	return 0, false
}

// containsAny reports whether the name contains any of the keywords.
func containsAny(name string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(name, k) {
			return true
		}
	}
	return false
}

package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/time/rate"

	"github.com/drugshield-risk-server/internal/domain"
)

const labelEvidenceSuffix = " (openFDA label fallback)"

// OpenFDAClient queries the openFDA drug label API and infers interaction
// evidence from label narrative text. It is strictly a fallback: label
// inference is weaker evidence than a curated interaction database, which
// is why every record it emits carries a source suffix.
type OpenFDAClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewOpenFDAClient creates a new openFDA label client
func NewOpenFDAClient(config domain.OpenFDAConfig) *OpenFDAClient {
	return &OpenFDAClient{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// labelResponse represents the openFDA label search payload. Label sections
// arrive as arrays of narrative strings.
type labelResponse struct {
	Results []labelResult `json:"results"`
}

type labelResult struct {
	DrugInteractions    []string `json:"drug_interactions"`
	WarningsAndCautions []string `json:"warnings_and_cautions"`
	Warnings            []string `json:"warnings"`
	BoxedWarning        []string `json:"boxed_warning"`
	Contraindications   []string `json:"contraindications"`
}

func (r labelResult) interactionTexts() []string {
	var texts []string
	for _, section := range [][]string{
		r.DrugInteractions, r.WarningsAndCautions, r.Warnings, r.BoxedWarning, r.Contraindications,
	} {
		for _, t := range section {
			if s := strings.TrimSpace(t); s != "" {
				texts = append(texts, s)
			}
		}
	}
	return texts
}

// InferInteractions cross-references each pair of medication names against
// the other drug's label text. A pair is reported when either label
// mentions the other drug; the first mentioning sentence becomes the
// evidence and drives the severity guess.
func (c *OpenFDAClient) InferInteractions(ctx context.Context, names []string) ([]domain.InteractionRecord, error) {
	var cleaned []string
	seen := make(map[string]bool)
	for _, n := range names {
		name := strings.ToLower(strings.TrimSpace(n))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		cleaned = append(cleaned, name)
	}
	if len(cleaned) < 2 {
		return nil, nil
	}

	textsByName := make(map[string][]string, len(cleaned))
	for _, name := range cleaned {
		texts, err := c.labelTexts(ctx, name)
		if err != nil {
			return nil, err
		}
		textsByName[name] = texts
	}

	var out []domain.InteractionRecord
	for i := 0; i < len(cleaned); i++ {
		for j := i + 1; j < len(cleaned); j++ {
			a, b := cleaned[i], cleaned[j]

			evidence := firstSentenceWithTerm(textsByName[a], b)
			if evidence == "" {
				evidence = firstSentenceWithTerm(textsByName[b], a)
			}
			if evidence == "" {
				continue
			}

			sourceText := evidence + labelEvidenceSuffix
			if len(sourceText) > 400 {
				sourceText = sourceText[:400]
			}
			out = append(out, domain.InteractionRecord{
				DrugA:      a,
				DrugB:      b,
				Severity:   severityFromLabelText(evidence),
				SourceText: sourceText,
			})
		}
	}
	return out, nil
}

// labelTexts fetches every interaction-relevant label section for one
// medication name, trying generic, brand and substance name searches in
// turn. A name with no label is an empty result, not an error.
func (c *OpenFDAClient) labelTexts(ctx context.Context, name string) ([]string, error) {
	searches := []string{
		fmt.Sprintf(`openfda.generic_name:%q`, name),
		fmt.Sprintf(`openfda.brand_name:%q`, name),
		fmt.Sprintf(`openfda.substance_name:%q`, name),
	}

	for _, search := range searches {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		params := url.Values{"search": {search}, "limit": {"3"}}
		if c.apiKey != "" {
			params.Set("api_key", c.apiKey)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create label request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			continue
		}

		var payload labelResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&payload)
		resp.Body.Close()
		if decodeErr != nil {
			continue
		}

		var texts []string
		for _, result := range payload.Results {
			texts = append(texts, result.interactionTexts()...)
		}
		if len(texts) > 0 {
			return texts, nil
		}
	}
	return nil, nil
}

var sentenceSplitter = regexp.MustCompile(`(?:[.!?]\s+)|\n+`)

// firstSentenceWithTerm scans label texts for the first sentence that
// mentions the term as a whole word, truncated to keep evidence readable.
func firstSentenceWithTerm(texts []string, term string) string {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return ""
	}
	wordPattern, err := regexp.Compile(`\b` + regexp.QuoteMeta(needle) + `\b`)
	if err != nil {
		return ""
	}

	for _, text := range texts {
		for _, sentence := range sentenceSplitter.Split(text, -1) {
			s := strings.TrimSpace(sentence)
			if s == "" {
				continue
			}
			if wordPattern.MatchString(strings.ToLower(s)) {
				if len(s) > 300 {
					s = s[:300]
				}
				return s
			}
		}
	}
	return ""
}

// severityFromLabelText guesses a severity tier from label language.
// Conservative keyword matching only; anything unrecognized stays unknown.
func severityFromLabelText(text string) domain.Severity {
	t := strings.ToLower(text)
	for _, k := range []string{"contraindicated", "avoid concomitant", "life-threatening", "fatal", "major"} {
		if strings.Contains(t, k) {
			return domain.SeverityHigh
		}
	}
	for _, k := range []string{"serious", "severe", "significant", "clinically important"} {
		if strings.Contains(t, k) {
			return domain.SeverityModerate
		}
	}
	for _, k := range []string{"minor", "monitor", "caution"} {
		if strings.Contains(t, k) {
			return domain.SeverityLow
		}
	}
	return domain.SeverityUnknown
}

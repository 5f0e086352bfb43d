package external

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drugshield-risk-server/internal/domain"
)

func rxnormTestClient(serverURL string) *RxNormClient {
	return NewRxNormClient(domain.RxNormConfig{
		BaseURL:        serverURL,
		Timeout:        5 * time.Second,
		RateLimit:      1000,
		MinApproxScore: 50,
	})
}

func TestRxNormClient_ResolveName_ExactMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rxcui.json":
			assert.Equal(t, "warfarin", r.URL.Query().Get("name"))
			fmt.Fprint(w, `{"idGroup":{"rxnormId":["11289"]}}`)
		case "/rxcui/11289/property.json":
			fmt.Fprint(w, `{"propConceptGroup":{"propConcept":[{"propValue":"warfarin"}]}}`)
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	res, err := rxnormTestClient(server.URL).ResolveName(context.Background(), "warfarin")

	require.NoError(t, err)
	assert.Equal(t, "11289", res.RxCUI)
	assert.Equal(t, "warfarin", res.BestName)
	assert.Empty(t, res.Note)
}

func TestRxNormClient_ResolveName_ApproximateMatch(t *testing.T) {
	tests := []struct {
		name      string
		score     string
		wantRxCUI string
		wantNote  string
	}{
		{
			name:      "strong approximate match",
			score:     "85",
			wantRxCUI: "352741",
			wantNote:  "",
		},
		{
			name:      "weak approximate match gets a warning note",
			score:     "60",
			wantRxCUI: "352741",
			wantNote:  "Approximate RxNorm match. Double check medication name.",
		},
		{
			name:      "below minimum score is rejected",
			score:     "30",
			wantRxCUI: "",
			wantNote:  "No confident RxNorm match found. Check spelling or use a generic medicine name.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/rxcui.json":
					fmt.Fprint(w, `{"idGroup":{}}`)
				case "/approximateTerm.json":
					fmt.Fprintf(w, `{"approximateGroup":{"candidate":[{"rxcui":"352741","score":"%s"}]}}`, tt.score)
				case "/rxcui/352741/property.json":
					fmt.Fprint(w, `{"propConceptGroup":{"propConcept":[{"propValue":"escitalopram"}]}}`)
				default:
					t.Errorf("Unexpected path %s", r.URL.Path)
				}
			}))
			defer server.Close()

			res, err := rxnormTestClient(server.URL).ResolveName(context.Background(), "lexapro")

			require.NoError(t, err)
			assert.Equal(t, tt.wantRxCUI, res.RxCUI)
			assert.Equal(t, tt.wantNote, res.Note)
		})
	}
}

func TestRxNormClient_ResolveName_NoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rxcui.json":
			fmt.Fprint(w, `{"idGroup":{}}`)
		case "/approximateTerm.json":
			fmt.Fprint(w, `{"approximateGroup":{}}`)
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	res, err := rxnormTestClient(server.URL).ResolveName(context.Background(), "xq123z")

	require.NoError(t, err)
	assert.Empty(t, res.RxCUI)
	assert.Equal(t, "No RxNorm match found. Check spelling or use generic name.", res.Note)
}

func TestRxNormClient_InteractionsForRxCUIs(t *testing.T) {
	payload := `{
		"interactionTypeGroup": [{
			"interactionType": [{
				"interactionPair": [{
					"description": "Increased bleeding risk.",
					"severity": "high",
					"interactionConcept": [
						{"minConceptItem": {"rxcui": "11289", "name": "warfarin"}},
						{"minConceptItem": {"rxcui": "5640", "name": "ibuprofen"}}
					]
				}]
			}]
		}]
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/interaction/interaction.json" {
			fmt.Fprint(w, payload)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	// Both concepts report the same pair; it must be merged once.
	records, err := rxnormTestClient(server.URL).InteractionsForRxCUIs(context.Background(), []string{"11289", "5640"})

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "warfarin", records[0].DrugA)
	assert.Equal(t, "ibuprofen", records[0].DrugB)
	assert.Equal(t, domain.SeverityHigh, records[0].Severity)
	assert.Equal(t, "Increased bleeding risk.", records[0].SourceText)
}

func TestRxNormClient_InteractionsFallbackEndpoint(t *testing.T) {
	payload := `{
		"fullInteractionTypeGroup": [{
			"interactionTypeGroup": [{
				"interactionType": [{
					"interactionPair": [{
						"severity": "N/A",
						"interactionConcept": [
							{"minConceptItem": {"rxcui": "1", "name": "druga"}},
							{"minConceptItem": {"rxcui": "2", "name": "drugb"}}
						]
					}]
				}]
			}]
		}]
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/interaction/interaction.json":
			http.NotFound(w, r)
		case "/interaction.json":
			fmt.Fprint(w, payload)
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	records, err := rxnormTestClient(server.URL).InteractionsForRxCUIs(context.Background(), []string{"1"})

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.SeverityUnknown, records[0].Severity)
	assert.Equal(t, "Interaction detected (no description provided by source).", records[0].SourceText)
}

func TestOpenFDAClient_InferInteractions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		search := r.URL.Query().Get("search")
		if search == `openfda.generic_name:"warfarin"` {
			fmt.Fprint(w, `{"results":[{"drug_interactions":["Concomitant use with ibuprofen may be fatal. Monitor INR closely."]}]}`)
			return
		}
		// Everything else has no label data.
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewOpenFDAClient(domain.OpenFDAConfig{
		BaseURL:   server.URL,
		Timeout:   5 * time.Second,
		RateLimit: 1000,
	})

	records, err := client.InferInteractions(context.Background(), []string{"Warfarin", "Ibuprofen"})

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "warfarin", records[0].DrugA)
	assert.Equal(t, "ibuprofen", records[0].DrugB)
	assert.Equal(t, domain.SeverityHigh, records[0].Severity)
	assert.Contains(t, records[0].SourceText, "(openFDA label fallback)")
}

func TestOpenFDAClient_InferInteractionsNeedsTwoNames(t *testing.T) {
	client := NewOpenFDAClient(domain.OpenFDAConfig{
		BaseURL:   "http://unused.invalid",
		Timeout:   time.Second,
		RateLimit: 1000,
	})

	records, err := client.InferInteractions(context.Background(), []string{"warfarin"})

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSeverityFromLabelText(t *testing.T) {
	tests := []struct {
		text string
		want domain.Severity
	}{
		{"Use is contraindicated in these patients", domain.SeverityHigh},
		{"May cause serious adverse reactions", domain.SeverityModerate},
		{"Monitor renal function", domain.SeverityLow},
		{"Pharmacokinetics were unchanged", domain.SeverityUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, severityFromLabelText(tt.text), "text: %s", tt.text)
	}
}

func TestFirstSentenceWithTerm(t *testing.T) {
	texts := []string{
		"General warnings apply. Avoid concomitant use with warfarin. Other text follows.",
	}

	got := firstSentenceWithTerm(texts, "warfarin")
	assert.Equal(t, "Avoid concomitant use with warfarin", got)

	assert.Empty(t, firstSentenceWithTerm(texts, "ibuprofen"))
	assert.Empty(t, firstSentenceWithTerm(texts, ""))
}

package external

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/drugshield-risk-server/internal/domain"
)

// Interaction endpoints are tried in order per concept; RxNav has shuffled
// this path across API revisions.
var interactionPaths = []string{
	"/interaction/interaction.json",
	"/interaction.json",
	"/interaction/list.json",
}

// interactionResponse represents the RxNav interaction payload. The
// structure is parsed defensively: older revisions nest the type groups one
// level deeper.
type interactionResponse struct {
	InteractionTypeGroup     []interactionTypeGroup `json:"interactionTypeGroup"`
	FullInteractionTypeGroup []struct {
		InteractionTypeGroup []interactionTypeGroup `json:"interactionTypeGroup"`
	} `json:"fullInteractionTypeGroup"`
}

type interactionTypeGroup struct {
	InteractionType []struct {
		InteractionPair []interactionPair `json:"interactionPair"`
	} `json:"interactionType"`
}

type interactionPair struct {
	Description        string `json:"description"`
	Severity           string `json:"severity"`
	InteractionConcept []struct {
		MinConceptItem struct {
			RxCUI string `json:"rxcui"`
			Name  string `json:"name"`
		} `json:"minConceptItem"`
	} `json:"interactionConcept"`
}

// InteractionsForRxCUIs queries the interaction endpoint once per concept
// and merges the results, deduplicating unordered pairs. Concepts with no
// data contribute nothing.
func (c *RxNormClient) InteractionsForRxCUIs(ctx context.Context, rxcuis []string) ([]domain.InteractionRecord, error) {
	var records []domain.InteractionRecord
	seen := make(map[string]bool)

	for _, rxcui := range rxcuis {
		if rxcui == "" {
			continue
		}

		var extracted []domain.InteractionRecord
		for _, path := range interactionPaths {
			var resp interactionResponse
			ok, err := c.getJSON(ctx, c.baseURL+path, url.Values{"rxcui": {rxcui}}, &resp)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			extracted = extractInteractions(resp)
			if len(extracted) > 0 {
				break
			}
		}

		for _, rec := range extracted {
			key := pairKey(rec.DrugA, rec.DrugB)
			if seen[key] {
				continue
			}
			seen[key] = true
			records = append(records, rec)
		}
	}

	return records, nil
}

func extractInteractions(resp interactionResponse) []domain.InteractionRecord {
	groups := resp.InteractionTypeGroup
	if len(groups) == 0 {
		for _, fg := range resp.FullInteractionTypeGroup {
			groups = append(groups, fg.InteractionTypeGroup...)
		}
	}

	var out []domain.InteractionRecord
	for _, g := range groups {
		for _, it := range g.InteractionType {
			for _, p := range it.InteractionPair {
				if len(p.InteractionConcept) < 2 {
					continue
				}
				a := p.InteractionConcept[0].MinConceptItem
				b := p.InteractionConcept[1].MinConceptItem
				if a.RxCUI == "" || b.RxCUI == "" {
					continue
				}

				desc := strings.TrimSpace(p.Description)
				if desc == "" {
					desc = "Interaction detected (no description provided by source)."
				}

				out = append(out, domain.InteractionRecord{
					DrugA:      conceptLabel(a.Name, a.RxCUI),
					DrugB:      conceptLabel(b.Name, b.RxCUI),
					Severity:   domain.NormalizeSeverity(p.Severity),
					SourceText: desc,
				})
			}
		}
	}
	return out
}

func conceptLabel(name, rxcui string) string {
	if name != "" {
		return name
	}
	return rxcui
}

// pairKey builds an order-insensitive key for an unordered drug pair.
func pairKey(a, b string) string {
	pair := []string{strings.ToLower(a), strings.ToLower(b)}
	sort.Strings(pair)
	return pair[0] + "|" + pair[1]
}

// Package external contains the clients for the drug-terminology and
// label services the analyzer consumes: RxNorm/RxNav for name resolution
// and interaction data, openFDA drug labels as an interaction-evidence
// fallback, plus the shared response cache and circuit breaker wiring.
package external

import (
	"context"

	"github.com/drugshield-risk-server/internal/domain"
)

// Resolution is the outcome of resolving one free-text medication name
// against the terminology service. A zero RxCUI with a note means the name
// could not be confidently matched.
type Resolution struct {
	RxCUI    string `json:"rxcui"`
	BestName string `json:"best_name"`
	Note     string `json:"note"`
}

// TerminologyClient resolves free-text medication names to RxNorm concepts.
type TerminologyClient interface {
	ResolveName(ctx context.Context, name string) (Resolution, error)
}

// InteractionClient returns known pairwise interactions for a set of
// resolved medication identifiers. An empty result is a legitimate
// "no known data" state, not an error.
type InteractionClient interface {
	InteractionsForRxCUIs(ctx context.Context, rxcuis []string) ([]domain.InteractionRecord, error)
}

// LabelClient infers interaction evidence from product label text when the
// primary interaction source has nothing for the submitted medications.
type LabelClient interface {
	InferInteractions(ctx context.Context, names []string) ([]domain.InteractionRecord, error)
}

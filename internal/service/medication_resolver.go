package service

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/drugshield-risk-server/internal/domain"
	"github.com/drugshield-risk-server/pkg/external"
)

// MedicationResolver turns free-text medication rows into normalized entries
// by asking the terminology client, with an in-process LRU cache in front of
// it. Resolution failures are soft: the entry is kept with an empty RxCUI and
// a note, so unresolved medications still reach the scoring engine.
type MedicationResolver struct {
	terminology external.TerminologyClient
	memory      *lru.Cache[string, external.Resolution]
	logger      *logrus.Logger
}

// NewMedicationResolver creates a resolver with an LRU cache of maxItems
// entries. maxItems below 1 disables the memory tier.
func NewMedicationResolver(terminology external.TerminologyClient, maxItems int, logger *logrus.Logger) (*MedicationResolver, error) {
	if logger == nil {
		logger = logrus.New()
	}
	r := &MedicationResolver{
		terminology: terminology,
		logger:      logger,
	}
	if maxItems > 0 {
		cache, err := lru.New[string, external.Resolution](maxItems)
		if err != nil {
			return nil, fmt.Errorf("failed to create resolution cache: %w", err)
		}
		r.memory = cache
	}
	return r, nil
}

// Resolve normalizes a single medication row. The returned entry always
// carries the submitted dose and frequency, whether or not the name matched.
func (r *MedicationResolver) Resolve(ctx context.Context, input domain.MedicationInput) (domain.NormalizedMedication, error) {
	raw := strings.TrimSpace(input.Name)
	med := domain.NormalizedMedication{
		RawName:   raw,
		Dose:      strings.TrimSpace(input.Dose),
		Frequency: strings.TrimSpace(input.Frequency),
	}

	res, err := r.lookup(ctx, raw)
	if err != nil {
		return med, fmt.Errorf("failed to resolve medication %q: %w", raw, err)
	}

	med.RxCUI = res.RxCUI
	med.Note = res.Note
	med.NormalizedName = res.BestName
	if med.NormalizedName == "" {
		med.NormalizedName = raw
	}
	return med, nil
}

// ResolveAll resolves every row in order. A transport failure on any row
// aborts the batch; a name that simply does not match is not a failure.
func (r *MedicationResolver) ResolveAll(ctx context.Context, inputs []domain.MedicationInput) ([]domain.NormalizedMedication, error) {
	meds := make([]domain.NormalizedMedication, 0, len(inputs))
	for _, in := range inputs {
		med, err := r.Resolve(ctx, in)
		if err != nil {
			return nil, err
		}
		meds = append(meds, med)
	}
	return meds, nil
}

func (r *MedicationResolver) lookup(ctx context.Context, name string) (external.Resolution, error) {
	key := strings.ToLower(name)
	if r.memory != nil {
		if res, ok := r.memory.Get(key); ok {
			return res, nil
		}
	}

	res, err := r.terminology.ResolveName(ctx, name)
	if err != nil {
		return external.Resolution{}, err
	}

	if r.memory != nil {
		r.memory.Add(key, res)
	}
	r.logger.WithFields(logrus.Fields{
		"name":     name,
		"rxcui":    res.RxCUI,
		"resolved": res.RxCUI != "",
	}).Debug("Resolved medication name")
	return res, nil
}

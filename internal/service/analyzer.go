package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/drugshield-risk-server/internal/domain"
	"github.com/drugshield-risk-server/internal/scoring"
	"github.com/drugshield-risk-server/pkg/external"
)

// APIVersion identifies the response contract revision.
const APIVersion = "2026.02.16.2"

// Disclaimer is attached to every analysis response.
const Disclaimer = "Decision support only. Not medical advice. " +
	"Always confirm medication changes with a licensed clinician."

// AnalysisRequest is the service-level analyze input after transport
// validation. Age and medication count bounds are enforced again here so the
// service is safe to call from other entry points.
type AnalysisRequest struct {
	RequestID   string                   `json:"request_id,omitempty"`
	PatientName string                   `json:"patient_name,omitempty"`
	Age         int                      `json:"age"`
	Medications []domain.MedicationInput `json:"meds"`
}

// Validate enforces the analyze input bounds.
func (r *AnalysisRequest) Validate() error {
	if r.Age < 1 || r.Age > 120 {
		return domain.NewValidationError("age", "must be between 1 and 120", r.Age)
	}
	if len(r.Medications) == 0 {
		return domain.NewValidationError("meds", "at least one medication is required", len(r.Medications))
	}
	if len(r.Medications) > 100 {
		return domain.NewValidationError("meds", "at most 100 medications are accepted", len(r.Medications))
	}
	for i := range r.Medications {
		if err := r.Medications[i].Validate(); err != nil {
			return domain.NewValidationError(fmt.Sprintf("meds[%d].name", i), "name is required", r.Medications[i].Name)
		}
	}
	return nil
}

// AnalysisResponse is the full analyze payload returned to the caller.
type AnalysisResponse struct {
	APIVersion         string                        `json:"api_version"`
	ScoreEngineVersion string                        `json:"score_engine_version"`
	AssessmentID       string                        `json:"assessment_id,omitempty"`
	PatientName        string                        `json:"patient_name,omitempty"`
	NormalizedMeds     []domain.NormalizedMedication `json:"normalized_meds"`
	Interactions       []domain.InteractionRecord    `json:"interactions"`
	RiskScore          float64                       `json:"risk_score_0_to_10"`
	Urgency            domain.Urgency                `json:"urgency"`
	FallRisk           domain.FallRiskAssessment     `json:"fall_risk"`
	ScoreBreakdown     domain.ScoreBreakdown         `json:"score_breakdown"`
	Disclaimer         string                        `json:"disclaimer"`
}

// AssessmentStore persists completed analysis runs for later retrieval.
type AssessmentStore interface {
	SaveAssessment(ctx context.Context, record *domain.AssessmentRecord) error
	GetAssessment(ctx context.Context, id string) (*domain.AssessmentRecord, error)
}

// Analyzer coordinates one analysis run: name resolution, interaction
// lookup with label fallback, scoring, and optional persistence.
type Analyzer struct {
	resolver     *MedicationResolver
	interactions external.InteractionClient
	labels       external.LabelClient
	engine       *scoring.Engine
	store        AssessmentStore
	logger       *logrus.Logger
}

// NewAnalyzer wires the analysis pipeline. labels and store may be nil; the
// label fallback and persistence are skipped when absent.
func NewAnalyzer(resolver *MedicationResolver, interactions external.InteractionClient, labels external.LabelClient, engine *scoring.Engine, store AssessmentStore, logger *logrus.Logger) *Analyzer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Analyzer{
		resolver:     resolver,
		interactions: interactions,
		labels:       labels,
		engine:       engine,
		store:        store,
		logger:       logger,
	}
}

// Analyze runs the full pipeline for one request. All submitted medications
// are scored, resolved or not; only a request where nothing resolves at all
// is rejected.
func (a *Analyzer) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	meds, err := a.resolver.ResolveAll(ctx, req.Medications)
	if err != nil {
		return nil, domain.NewAPIError(domain.ErrExternalAPI,
			"Medication name resolution is unavailable right now.", err.Error(), req.RequestID)
	}

	var rxcuis []string
	var invalid []string
	for _, m := range meds {
		if m.Resolved() {
			rxcuis = append(rxcuis, m.RxCUI)
		} else {
			invalid = append(invalid, m.RawName)
		}
	}
	if len(rxcuis) == 0 {
		return nil, domain.NewAPIError(domain.ErrNoResolvableMeds,
			"No valid medication names were recognized. Please check spelling and try generic names.",
			strings.Join(invalid, ", "), req.RequestID)
	}

	interactions := a.lookupInteractions(ctx, rxcuis, meds)
	if interactions == nil {
		interactions = []domain.InteractionRecord{}
	}

	result := a.engine.Score(scoring.Input{
		Age:          req.Age,
		Medications:  meds,
		Interactions: interactions,
	})

	resp := &AnalysisResponse{
		APIVersion:         APIVersion,
		ScoreEngineVersion: scoring.EngineVersion,
		PatientName:        strings.TrimSpace(req.PatientName),
		NormalizedMeds:     meds,
		Interactions:       interactions,
		RiskScore:          result.RiskScore,
		Urgency:            result.Urgency,
		FallRisk:           result.FallRisk,
		ScoreBreakdown:     result.ScoreBreakdown,
		Disclaimer:         Disclaimer,
	}
	resp.AssessmentID = a.persist(ctx, req, meds, interactions, result)

	a.logger.WithFields(logrus.Fields{
		"request_id":      req.RequestID,
		"age":             req.Age,
		"medications":     len(meds),
		"unresolved":      len(invalid),
		"interactions":    len(interactions),
		"risk_score":      result.RiskScore,
		"urgency":         result.Urgency,
		"requires_action": result.Urgency.RequiresClinicalAction(),
		"triage":          result.Urgency.TriageSemantics(),
	}).Info("Completed medication risk analysis")

	return resp, nil
}

// GetAssessment retrieves a previously persisted analysis run.
func (a *Analyzer) GetAssessment(ctx context.Context, id string) (*domain.AssessmentRecord, error) {
	if a.store == nil {
		return nil, domain.NewAPIError(domain.ErrInvalidInput,
			"Assessment history is not enabled on this server.", "", "")
	}
	return a.store.GetAssessment(ctx, id)
}

// lookupInteractions queries the primary interaction source, falling back to
// label-derived evidence when the primary source has nothing. Lookup errors
// degrade to an empty result so scoring can still proceed.
func (a *Analyzer) lookupInteractions(ctx context.Context, rxcuis []string, meds []domain.NormalizedMedication) []domain.InteractionRecord {
	interactions, err := a.interactions.InteractionsForRxCUIs(ctx, rxcuis)
	if err != nil {
		a.logger.WithError(err).Warn("Interaction lookup failed, continuing without primary source")
		interactions = nil
	}
	if len(interactions) > 0 || a.labels == nil {
		return interactions
	}

	names := make([]string, 0, len(meds))
	for _, m := range meds {
		if m.Resolved() {
			names = append(names, m.Name())
		}
	}
	inferred, err := a.labels.InferInteractions(ctx, names)
	if err != nil {
		a.logger.WithError(err).Warn("Label fallback lookup failed")
		return nil
	}
	if len(inferred) > 0 {
		a.logger.WithField("pairs", len(inferred)).Debug("Using label-derived interaction evidence")
	}
	return inferred
}

// persist stores the run when a store is configured. Persistence failures are
// logged and never fail the request.
func (a *Analyzer) persist(ctx context.Context, req AnalysisRequest, meds []domain.NormalizedMedication, interactions []domain.InteractionRecord, result domain.AnalysisResult) string {
	if a.store == nil {
		return ""
	}
	record := &domain.AssessmentRecord{
		ID:            uuid.New().String(),
		RequestID:     req.RequestID,
		PatientName:   strings.TrimSpace(req.PatientName),
		Age:           req.Age,
		Medications:   meds,
		Interactions:  interactions,
		Result:        result,
		EngineVersion: scoring.EngineVersion,
		CreatedAt:     time.Now().UTC(),
	}
	if err := a.store.SaveAssessment(ctx, record); err != nil {
		a.logger.WithError(err).WithField("assessment_id", record.ID).Warn("Failed to persist assessment")
		return ""
	}
	return record.ID
}

package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/drugshield-risk-server/internal/domain"
	"github.com/drugshield-risk-server/internal/scoring"
	"github.com/drugshield-risk-server/pkg/external"
)

// MockInteractionClient is a mock implementation of external.InteractionClient
type MockInteractionClient struct {
	mock.Mock
}

func (m *MockInteractionClient) InteractionsForRxCUIs(ctx context.Context, rxcuis []string) ([]domain.InteractionRecord, error) {
	args := m.Called(ctx, rxcuis)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InteractionRecord), args.Error(1)
}

// MockLabelClient is a mock implementation of external.LabelClient
type MockLabelClient struct {
	mock.Mock
}

func (m *MockLabelClient) InferInteractions(ctx context.Context, names []string) ([]domain.InteractionRecord, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InteractionRecord), args.Error(1)
}

// MockAssessmentStore is a mock implementation of AssessmentStore
type MockAssessmentStore struct {
	mock.Mock
}

func (m *MockAssessmentStore) SaveAssessment(ctx context.Context, record *domain.AssessmentRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAssessmentStore) GetAssessment(ctx context.Context, id string) (*domain.AssessmentRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AssessmentRecord), args.Error(1)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testEngine(t *testing.T) *scoring.Engine {
	t.Helper()
	engine, err := scoring.NewEngine(scoring.DefaultPolicy(), testLogger())
	require.NoError(t, err)
	return engine
}

func resolvedTerminology(names map[string]external.Resolution) *MockTerminologyClient {
	m := new(MockTerminologyClient)
	for name, res := range names {
		m.On("ResolveName", mock.Anything, name).Return(res, nil)
	}
	return m
}

func newTestAnalyzer(t *testing.T, terminology external.TerminologyClient, interactions external.InteractionClient, labels external.LabelClient, store AssessmentStore) *Analyzer {
	t.Helper()
	resolver, err := NewMedicationResolver(terminology, 0, testLogger())
	require.NoError(t, err)
	return NewAnalyzer(resolver, interactions, labels, testEngine(t), store, testLogger())
}

func TestAnalyzer_Analyze(t *testing.T) {
	ctx := context.Background()

	t.Run("Full_Pipeline", func(t *testing.T) {
		terminology := resolvedTerminology(map[string]external.Resolution{
			"warfarin": {RxCUI: "11289", BestName: "warfarin"},
			"aspirin":  {RxCUI: "1191", BestName: "aspirin"},
		})
		interactions := new(MockInteractionClient)
		interactions.On("InteractionsForRxCUIs", mock.Anything, []string{"11289", "1191"}).Return([]domain.InteractionRecord{
			{DrugA: "warfarin", DrugB: "aspirin", Severity: domain.SeverityHigh, SourceText: "Increased bleeding risk."},
		}, nil)
		store := new(MockAssessmentStore)
		store.On("SaveAssessment", mock.Anything, mock.AnythingOfType("*domain.AssessmentRecord")).Return(nil)

		analyzer := newTestAnalyzer(t, terminology, interactions, nil, store)
		resp, err := analyzer.Analyze(ctx, AnalysisRequest{
			RequestID:   "req-1",
			PatientName: " Ada ",
			Age:         80,
			Medications: []domain.MedicationInput{{Name: "warfarin"}, {Name: "aspirin"}},
		})
		require.NoError(t, err)

		assert.Equal(t, APIVersion, resp.APIVersion)
		assert.Equal(t, scoring.EngineVersion, resp.ScoreEngineVersion)
		assert.Equal(t, "Ada", resp.PatientName)
		assert.Len(t, resp.NormalizedMeds, 2)
		assert.Len(t, resp.Interactions, 1)
		assert.Equal(t, domain.UrgencyYellow, resp.Urgency)
		assert.NotEmpty(t, resp.AssessmentID)
		assert.Equal(t, Disclaimer, resp.Disclaimer)
		assert.True(t, resp.ScoreBreakdown.Confidence.IsValid())

		store.AssertCalled(t, "SaveAssessment", mock.Anything, mock.MatchedBy(func(r *domain.AssessmentRecord) bool {
			return r.Age == 80 && len(r.Medications) == 2 && r.EngineVersion == scoring.EngineVersion
		}))
	})

	t.Run("Nothing_Resolves", func(t *testing.T) {
		terminology := resolvedTerminology(map[string]external.Resolution{
			"asdfgh": {Note: "No RxNorm match found. Check spelling or use generic name."},
		})
		analyzer := newTestAnalyzer(t, terminology, new(MockInteractionClient), nil, nil)

		_, err := analyzer.Analyze(ctx, AnalysisRequest{
			Age:         50,
			Medications: []domain.MedicationInput{{Name: "asdfgh"}},
		})
		require.Error(t, err)

		var apiErr *domain.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, domain.ErrNoResolvableMeds, apiErr.Code)
		assert.Contains(t, apiErr.Details, "asdfgh")
	})

	t.Run("Unresolved_Meds_Still_Scored", func(t *testing.T) {
		terminology := resolvedTerminology(map[string]external.Resolution{
			"lisinopril": {RxCUI: "29046", BestName: "lisinopril"},
			"mysterypill": {
				Note: "No RxNorm match found. Check spelling or use generic name.",
			},
		})
		interactions := new(MockInteractionClient)
		interactions.On("InteractionsForRxCUIs", mock.Anything, []string{"29046"}).Return([]domain.InteractionRecord{}, nil)

		analyzer := newTestAnalyzer(t, terminology, interactions, nil, nil)
		resp, err := analyzer.Analyze(ctx, AnalysisRequest{
			Age:         40,
			Medications: []domain.MedicationInput{{Name: "lisinopril"}, {Name: "mysterypill"}},
		})
		require.NoError(t, err)

		require.Len(t, resp.NormalizedMeds, 2)
		assert.False(t, resp.NormalizedMeds[1].Resolved())
		assert.Len(t, resp.ScoreBreakdown.PerMedImpacts, 2)

		found := false
		for _, m := range resp.ScoreBreakdown.MedicationModifiers {
			if strings.HasPrefix(m.Label, "Polypharmacy (2") {
				found = true
			}
		}
		assert.True(t, found, "expected polypharmacy modifier to count unresolved medication")
	})

	t.Run("Label_Fallback_When_Primary_Empty", func(t *testing.T) {
		terminology := resolvedTerminology(map[string]external.Resolution{
			"warfarin":  {RxCUI: "11289", BestName: "warfarin"},
			"ibuprofen": {RxCUI: "5640", BestName: "ibuprofen"},
		})
		interactions := new(MockInteractionClient)
		interactions.On("InteractionsForRxCUIs", mock.Anything, mock.Anything).Return([]domain.InteractionRecord{}, nil)
		labels := new(MockLabelClient)
		labels.On("InferInteractions", mock.Anything, []string{"warfarin", "ibuprofen"}).Return([]domain.InteractionRecord{
			{DrugA: "warfarin", DrugB: "ibuprofen", Severity: domain.SeverityModerate, SourceText: "Monitor INR closely. (openFDA label fallback)"},
		}, nil)

		analyzer := newTestAnalyzer(t, terminology, interactions, labels, nil)
		resp, err := analyzer.Analyze(ctx, AnalysisRequest{
			Age:         55,
			Medications: []domain.MedicationInput{{Name: "warfarin"}, {Name: "ibuprofen"}},
		})
		require.NoError(t, err)

		require.Len(t, resp.Interactions, 1)
		assert.Equal(t, domain.SeverityModerate, resp.Interactions[0].Severity)
		labels.AssertExpectations(t)
	})

	t.Run("Primary_Lookup_Error_Degrades", func(t *testing.T) {
		terminology := resolvedTerminology(map[string]external.Resolution{
			"warfarin": {RxCUI: "11289", BestName: "warfarin"},
		})
		interactions := new(MockInteractionClient)
		interactions.On("InteractionsForRxCUIs", mock.Anything, mock.Anything).Return(nil, assert.AnError)

		analyzer := newTestAnalyzer(t, terminology, interactions, nil, nil)
		resp, err := analyzer.Analyze(ctx, AnalysisRequest{
			Age:         55,
			Medications: []domain.MedicationInput{{Name: "warfarin"}},
		})
		require.NoError(t, err)
		assert.Empty(t, resp.Interactions)
		assert.NotNil(t, resp.Interactions)
	})

	t.Run("Persistence_Failure_Is_Non_Fatal", func(t *testing.T) {
		terminology := resolvedTerminology(map[string]external.Resolution{
			"warfarin": {RxCUI: "11289", BestName: "warfarin"},
		})
		interactions := new(MockInteractionClient)
		interactions.On("InteractionsForRxCUIs", mock.Anything, mock.Anything).Return([]domain.InteractionRecord{}, nil)
		store := new(MockAssessmentStore)
		store.On("SaveAssessment", mock.Anything, mock.Anything).Return(assert.AnError)

		analyzer := newTestAnalyzer(t, terminology, interactions, nil, store)
		resp, err := analyzer.Analyze(ctx, AnalysisRequest{
			Age:         55,
			Medications: []domain.MedicationInput{{Name: "warfarin"}},
		})
		require.NoError(t, err)
		assert.Empty(t, resp.AssessmentID)
	})

	t.Run("Validation_Errors", func(t *testing.T) {
		analyzer := newTestAnalyzer(t, new(MockTerminologyClient), new(MockInteractionClient), nil, nil)

		cases := []AnalysisRequest{
			{Age: 0, Medications: []domain.MedicationInput{{Name: "warfarin"}}},
			{Age: 121, Medications: []domain.MedicationInput{{Name: "warfarin"}}},
			{Age: 50},
			{Age: 50, Medications: []domain.MedicationInput{{Name: "  "}}},
			{Age: 50, Medications: make([]domain.MedicationInput, 101)},
		}
		for _, req := range cases {
			_, err := analyzer.Analyze(context.Background(), req)
			var valErr *domain.ValidationError
			assert.True(t, errors.As(err, &valErr), "expected validation error for %+v", req)
		}
	})
}

func TestAnalyzer_GetAssessment(t *testing.T) {
	ctx := context.Background()

	t.Run("No_Store_Configured", func(t *testing.T) {
		analyzer := newTestAnalyzer(t, new(MockTerminologyClient), new(MockInteractionClient), nil, nil)
		_, err := analyzer.GetAssessment(ctx, "abc")
		assert.Error(t, err)
	})

	t.Run("Delegates_To_Store", func(t *testing.T) {
		store := new(MockAssessmentStore)
		store.On("GetAssessment", ctx, "abc").Return(&domain.AssessmentRecord{ID: "abc", Age: 70}, nil)

		analyzer := newTestAnalyzer(t, new(MockTerminologyClient), new(MockInteractionClient), nil, store)
		record, err := analyzer.GetAssessment(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, "abc", record.ID)
	})
}

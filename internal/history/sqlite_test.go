package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drugshield-risk-server/internal/domain"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "history-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := NewStore(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	return store
}

func testRecord() *domain.AssessmentRecord {
	return &domain.AssessmentRecord{
		ID:          uuid.New().String(),
		RequestID:   "req-7",
		PatientName: "Ada",
		Age:         80,
		Medications: []domain.NormalizedMedication{
			{RawName: "Coumadin", NormalizedName: "warfarin", RxCUI: "11289"},
		},
		Interactions: []domain.InteractionRecord{},
		Result: domain.AnalysisResult{
			RiskScore: 4.2,
			Urgency:   domain.UrgencyYellow,
			FallRisk:  domain.FallRiskAssessment{Reasons: []string{}},
			ScoreBreakdown: domain.ScoreBreakdown{
				Confidence: domain.ConfidenceMedium,
				MaxRaw:     30,
			},
		},
		EngineVersion: "2026.02.16.2",
		CreatedAt:     time.Now().UTC(),
	}
}

func TestNewStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "history-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestStore_SaveAndGet(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	record := testRecord()

	require.NoError(t, store.SaveAssessment(ctx, record))

	retrieved, err := store.GetAssessment(ctx, record.ID)
	require.NoError(t, err)

	assert.Equal(t, record.ID, retrieved.ID)
	assert.Equal(t, record.Age, retrieved.Age)
	require.Len(t, retrieved.Medications, 1)
	assert.Equal(t, "warfarin", retrieved.Medications[0].NormalizedName)
	assert.Equal(t, record.Result.RiskScore, retrieved.Result.RiskScore)
	assert.Equal(t, domain.UrgencyYellow, retrieved.Result.Urgency)
	assert.Equal(t, domain.ConfidenceMedium, retrieved.Result.ScoreBreakdown.Confidence)
}

func TestStore_GetMissing(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	_, err := store.GetAssessment(context.Background(), uuid.New().String())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStore_SaveRejectsInvalidRecord(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	record := testRecord()
	record.Age = 0

	err := store.SaveAssessment(context.Background(), record)
	assert.Error(t, err)
}

func TestStore_ListRecent(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		record := testRecord()
		record.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		require.NoError(t, store.SaveAssessment(ctx, record))
	}

	records, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, !records[0].CreatedAt.Before(records[1].CreatedAt), "newest first")
}

func TestStore_SaveInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO assessments").WillReturnError(errors.New("disk I/O error"))

	store := NewStoreWithDB(db)
	err = store.SaveAssessment(context.Background(), testRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert assessment")
	assert.NoError(t, mock.ExpectationsWereMet())
}

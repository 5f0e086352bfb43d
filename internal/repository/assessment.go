// Package repository persists completed assessments in Postgres.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/drugshield-risk-server/internal/domain"
)

// AssessmentRepository handles assessment persistence in Postgres. The
// medication list, interactions, and result are stored as JSONB alongside the
// queryable scalar columns.
type AssessmentRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAssessmentRepository creates a new assessment repository.
func NewAssessmentRepository(db *pgxpool.Pool, logger *logrus.Logger) *AssessmentRepository {
	return &AssessmentRepository{
		db:  db,
		log: logger,
	}
}

// SaveAssessment inserts a completed analysis run.
func (r *AssessmentRepository) SaveAssessment(ctx context.Context, record *domain.AssessmentRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("saving assessment: %w", err)
	}

	meds, err := json.Marshal(record.Medications)
	if err != nil {
		return fmt.Errorf("encoding medications: %w", err)
	}
	interactions, err := json.Marshal(record.Interactions)
	if err != nil {
		return fmt.Errorf("encoding interactions: %w", err)
	}
	result, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	query := `
		INSERT INTO assessments (
			id, request_id, patient_name, age, medications, interactions,
			result, risk_score, urgency, engine_version, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)`

	_, err = r.db.Exec(ctx, query,
		record.ID,
		record.RequestID,
		record.PatientName,
		record.Age,
		meds,
		interactions,
		result,
		record.Result.RiskScore,
		string(record.Result.Urgency),
		record.EngineVersion,
		record.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"assessment_id": record.ID,
			"error":         err,
		}).Error("Failed to save assessment")
		return fmt.Errorf("saving assessment: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"assessment_id": record.ID,
		"risk_score":    record.Result.RiskScore,
		"urgency":       record.Result.Urgency,
	}).Info("Assessment saved")

	return nil
}

// GetAssessment retrieves an assessment by its ID.
func (r *AssessmentRepository) GetAssessment(ctx context.Context, id string) (*domain.AssessmentRecord, error) {
	query := `
		SELECT id, request_id, patient_name, age, medications, interactions,
			   result, engine_version, created_at
		FROM assessments
		WHERE id = $1`

	var record domain.AssessmentRecord
	var meds, interactions, result []byte

	err := r.db.QueryRow(ctx, query, id).Scan(
		&record.ID,
		&record.RequestID,
		&record.PatientName,
		&record.Age,
		&meds,
		&interactions,
		&result,
		&record.EngineVersion,
		&record.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("assessment %s: %w", id, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"assessment_id": id,
			"error":         err,
		}).Error("Failed to get assessment")
		return nil, fmt.Errorf("getting assessment: %w", err)
	}

	if err := json.Unmarshal(meds, &record.Medications); err != nil {
		return nil, fmt.Errorf("decoding medications: %w", err)
	}
	if err := json.Unmarshal(interactions, &record.Interactions); err != nil {
		return nil, fmt.Errorf("decoding interactions: %w", err)
	}
	if err := json.Unmarshal(result, &record.Result); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}

	return &record, nil
}

// ListRecent returns the most recent assessments, newest first.
func (r *AssessmentRepository) ListRecent(ctx context.Context, limit int) ([]*domain.AssessmentRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, request_id, patient_name, age, medications, interactions,
			   result, engine_version, created_at
		FROM assessments
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing assessments: %w", err)
	}
	defer rows.Close()

	var records []*domain.AssessmentRecord
	for rows.Next() {
		var record domain.AssessmentRecord
		var meds, interactions, result []byte

		if err := rows.Scan(
			&record.ID,
			&record.RequestID,
			&record.PatientName,
			&record.Age,
			&meds,
			&interactions,
			&result,
			&record.EngineVersion,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning assessment: %w", err)
		}
		if err := json.Unmarshal(meds, &record.Medications); err != nil {
			return nil, fmt.Errorf("decoding medications: %w", err)
		}
		if err := json.Unmarshal(interactions, &record.Interactions); err != nil {
			return nil, fmt.Errorf("decoding interactions: %w", err)
		}
		if err := json.Unmarshal(result, &record.Result); err != nil {
			return nil, fmt.Errorf("decoding result: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assessments: %w", err)
	}

	return records, nil
}

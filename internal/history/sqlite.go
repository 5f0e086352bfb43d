// Package history keeps a local assessment log in SQLite for deployments
// that run without Postgres.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/drugshield-risk-server/internal/domain"
)

// Store implements assessment persistence on a local SQLite file.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (or creates) the history database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// NewStoreWithDB wraps an existing database handle. The caller owns the
// handle's lifecycle and schema.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS assessments (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL DEFAULT '',
		patient_name TEXT NOT NULL DEFAULT '',
		age INTEGER NOT NULL,
		medications TEXT NOT NULL,
		interactions TEXT NOT NULL,
		result TEXT NOT NULL,
		risk_score REAL NOT NULL,
		urgency TEXT NOT NULL,
		engine_version TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assessments_created_at ON assessments(created_at);
	CREATE INDEX IF NOT EXISTS idx_assessments_urgency ON assessments(urgency);
	`

	_, err := db.Exec(schema)
	return err
}

// SaveAssessment stores one completed analysis run.
func (s *Store) SaveAssessment(ctx context.Context, record *domain.AssessmentRecord) error {
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

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assessments (
			id, request_id, patient_name, age, medications, interactions,
			result, risk_score, urgency, engine_version, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.RequestID,
		record.PatientName,
		record.Age,
		string(meds),
		string(interactions),
		string(result),
		record.Result.RiskScore,
		string(record.Result.Urgency),
		record.EngineVersion,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert assessment: %w", err)
	}

	return nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAssessment(s scanner) (*domain.AssessmentRecord, error) {
	var record domain.AssessmentRecord
	var meds, interactions, result string
	var createdAt time.Time

	err := s.Scan(
		&record.ID, &record.RequestID, &record.PatientName, &record.Age,
		&meds, &interactions, &result,
		&record.EngineVersion, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(meds), &record.Medications); err != nil {
		return nil, fmt.Errorf("decoding medications: %w", err)
	}
	if err := json.Unmarshal([]byte(interactions), &record.Interactions); err != nil {
		return nil, fmt.Errorf("decoding interactions: %w", err)
	}
	if err := json.Unmarshal([]byte(result), &record.Result); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	record.CreatedAt = createdAt

	return &record, nil
}

// GetAssessment retrieves one assessment by ID.
func (s *Store) GetAssessment(ctx context.Context, id string) (*domain.AssessmentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, request_id, patient_name, age, medications, interactions,
			result, engine_version, created_at
		FROM assessments
		WHERE id = ?
	`, id)

	record, err := scanAssessment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("assessment %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan assessment: %w", err)
	}
	return record, nil
}

// ListRecent returns the most recent assessments, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*domain.AssessmentRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, patient_name, age, medications, interactions,
			result, engine_version, created_at
		FROM assessments
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer rows.Close()

	var records []*domain.AssessmentRecord
	for rows.Next() {
		record, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assessments: %w", err)
	}

	return records, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Package audit persists completed analysis results with their
// decision traces so clinical verdicts stay reviewable after the fact.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pharmaguard/pgx-engine/internal/domain"
)

// SQLiteStore persists analysis results in a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// Record is one stored analysis result with its storage metadata.
type Record struct {
	ID        int64                  `json:"id"`
	PatientID string                 `json:"patient_id"`
	Drug      string                 `json:"drug"`
	RiskLabel string                 `json:"risk_label"`
	Severity  string                 `json:"severity"`
	Result    *domain.AnalysisResult `json:"result"`
	CreatedAt time.Time              `json:"created_at"`
}

// Export is the JSON envelope written by ExportJSON.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Records    []*Record `json:"records"`
}

// NewSQLiteStore opens (or creates) the audit database and its schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
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

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*Record, error) {
	rec := &Record{}
	var payload []byte

	err := s.Scan(
		&rec.ID, &rec.PatientID, &rec.Drug,
		&rec.RiskLabel, &rec.Severity, &payload, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	result := &domain.AnalysisResult{}
	if err := json.Unmarshal(payload, result); err != nil {
		return nil, fmt.Errorf("decode stored result: %w", err)
	}
	rec.Result = result
	return rec, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS analysis_audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		patient_id TEXT NOT NULL,
		drug TEXT NOT NULL,
		risk_label TEXT NOT NULL,
		severity TEXT NOT NULL,
		result_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_audit_patient ON analysis_audit(patient_id);
	CREATE INDEX IF NOT EXISTS idx_audit_drug ON analysis_audit(drug);
	CREATE INDEX IF NOT EXISTS idx_audit_risk_label ON analysis_audit(risk_label);
	CREATE INDEX IF NOT EXISTS idx_audit_created_at ON analysis_audit(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores a completed analysis result. Every call appends; audit
// history is never overwritten.
func (s *SQLiteStore) Save(ctx context.Context, result *domain.AnalysisResult) (int64, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("encode result: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_audit (
			patient_id, drug, risk_label, severity, result_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		result.PatientID,
		result.Drug,
		result.RiskAssessment.Label.String(),
		result.RiskAssessment.Severity.String(),
		string(payload),
		time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert ID: %w", err)
	}
	return id, nil
}

// Get retrieves one stored record by ID. A missing ID returns nil
// without error.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, patient_id, drug, risk_label, severity, result_json, created_at
		FROM analysis_audit
		WHERE id = ?
	`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rec, nil
}

// ListByPatient returns a patient's stored results, newest first.
func (s *SQLiteStore) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, drug, risk_label, severity, result_json, created_at
		FROM analysis_audit
		WHERE patient_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// List returns stored records with pagination, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, drug, risk_label, severity, result_json, created_at
		FROM analysis_audit
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func collectRecords(rows *sql.Rows) ([]*Record, error) {
	var result []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Count returns the total number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analysis_audit").Scan(&count)
	return count, err
}

// CountHighRisk returns the number of stored high-risk verdicts.
func (s *SQLiteStore) CountHighRisk(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM analysis_audit
		WHERE risk_label IN ('Toxic', 'Ineffective')
		   OR severity IN ('high', 'critical')
	`).Scan(&count)
	return count, err
}

// maxExportLimit is the maximum number of records to export at once.
const maxExportLimit = 1000000

// ExportJSON writes every stored record to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Records:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard/pgx-engine/internal/domain"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleResult(patient, drug string, label domain.RiskLabel, severity domain.Severity) *domain.AnalysisResult {
	trace := &domain.DecisionTrace{}
	trace.Add("risk_rule_match", "CYP2D6/PM/"+drug, label.String(), "risk_rules")
	return &domain.AnalysisResult{
		PatientID: patient,
		Drug:      drug,
		Timestamp: "2026-03-14T09:26:53Z",
		RiskAssessment: domain.RiskAssessment{
			Label:      label,
			Severity:   severity,
			Confidence: 0.95,
		},
		Profile: domain.PharmacogenomicProfile{
			PrimaryGene: "CYP2D6",
			Diplotype:   "*4/*4",
			Phenotype:   domain.PM,
		},
		Trace: trace,
	}
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, err := store.Save(ctx, sampleResult("PT-001", "CODEINE", domain.RiskToxic, domain.SeverityCritical))
	require.NoError(t, err)
	require.Positive(t, id)

	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "PT-001", rec.PatientID)
	assert.Equal(t, "CODEINE", rec.Drug)
	assert.Equal(t, "Toxic", rec.RiskLabel)
	assert.Equal(t, "critical", rec.Severity)

	require.NotNil(t, rec.Result)
	assert.Equal(t, "*4/*4", rec.Result.Profile.Diplotype)
	require.NotNil(t, rec.Result.Trace)
	assert.Len(t, rec.Result.Trace.Steps, 1)
}

func TestGetMissingRecord(t *testing.T) {
	store := testStore(t)

	rec, err := store.Get(context.Background(), 12345)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSaveAppendsHistory(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	// Re-analysis of the same patient and drug keeps both entries.
	_, err := store.Save(ctx, sampleResult("PT-001", "CODEINE", domain.RiskToxic, domain.SeverityCritical))
	require.NoError(t, err)
	_, err = store.Save(ctx, sampleResult("PT-001", "CODEINE", domain.RiskSafe, domain.SeverityNone))
	require.NoError(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestListByPatient(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, sampleResult("PT-001", "CODEINE", domain.RiskToxic, domain.SeverityCritical))
	require.NoError(t, err)
	_, err = store.Save(ctx, sampleResult("PT-002", "WARFARIN", domain.RiskSafe, domain.SeverityNone))
	require.NoError(t, err)
	_, err = store.Save(ctx, sampleResult("PT-001", "CLOPIDOGREL", domain.RiskIneffective, domain.SeverityHigh))
	require.NoError(t, err)

	records, err := store.ListByPatient(ctx, "PT-001", 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Newest first.
	assert.Equal(t, "CLOPIDOGREL", records[0].Drug)
	assert.Equal(t, "CODEINE", records[1].Drug)
}

func TestCountHighRisk(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, sampleResult("PT-001", "CODEINE", domain.RiskToxic, domain.SeverityCritical))
	require.NoError(t, err)
	_, err = store.Save(ctx, sampleResult("PT-002", "CODEINE", domain.RiskSafe, domain.SeverityNone))
	require.NoError(t, err)
	_, err = store.Save(ctx, sampleResult("PT-003", "FLUOROURACIL", domain.RiskAdjustDosage, domain.SeverityHigh))
	require.NoError(t, err)

	count, err := store.CountHighRisk(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestExportJSON(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, sampleResult("PT-001", "CODEINE", domain.RiskToxic, domain.SeverityCritical))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf))

	var export Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, "1.0", export.Version)
	assert.Equal(t, 1, export.Count)
	require.Len(t, export.Records, 1)
	assert.Equal(t, "PT-001", export.Records[0].PatientID)
}

package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard/pgx-engine/internal/domain"
)

func testAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	analyzer, err := NewAnalyzer(testCatalog(), AnalyzerOptions{
		TraceEnabled: true,
		Now:          fixedNow,
	}, testLogger())
	require.NoError(t, err)
	return analyzer
}

func TestAnalyzePoorMetabolizerCodeine(t *testing.T) {
	analyzer := testAnalyzer(t)

	result, err := analyzer.AnalyzeDrug(context.Background(), AnalysisRequest{
		PatientID: "PT-001",
		VCF:       vcfCYP2D6PM,
	}, "codeine")
	require.NoError(t, err)

	assert.Equal(t, "PT-001", result.PatientID)
	assert.Equal(t, "CODEINE", result.Drug)
	assert.Equal(t, "2026-03-14T09:26:53Z", result.Timestamp)

	assert.Equal(t, domain.RiskToxic, result.RiskAssessment.Label)
	assert.Equal(t, domain.SeverityCritical, result.RiskAssessment.Severity)
	assert.InDelta(t, 0.9615, result.RiskAssessment.RawConfidence, 1e-9)
	assert.InDelta(t, 0.95, result.RiskAssessment.Confidence, 1e-9)

	assert.Equal(t, "CYP2D6", result.Profile.PrimaryGene)
	assert.Equal(t, "*4/*4", result.Profile.Diplotype)
	assert.Equal(t, domain.PM, result.Profile.Phenotype)
	require.NotNil(t, result.Profile.ActivityScore)
	assert.Zero(t, *result.Profile.ActivityScore)
	assert.Len(t, result.Profile.DetectedVariants, 1)

	assert.True(t, result.RuleCovered)
	assert.Contains(t, result.Recommendation.Action, "Avoid codeine")
	assert.Contains(t, result.Recommendation.AlternativeDrugs, "morphine")
	assert.Equal(t, "1A", result.Recommendation.EvidenceLevel)
	assert.Contains(t, result.Recommendation.Reference, "24458010")

	assert.Equal(t, domain.ConfidenceHigh, result.QualityMetrics.ConfidenceLevel)
	assert.Equal(t, "cpic-2024.1", result.QualityMetrics.CatalogVersion)
	assert.True(t, result.QualityMetrics.ParsingSuccess)

	require.NotNil(t, result.Trace)
	stages := make([]string, 0, len(result.Trace.Steps))
	for _, step := range result.Trace.Steps {
		stages = append(stages, step.Stage)
	}
	assert.Equal(t, []string{
		"drug_normalization",
		"variant_filtering",
		"diplotype_assembly",
		"phenotype_mapping",
		"phenoconversion",
		"evidence_resolution",
		"risk_rule_match",
		"confidence_calibration",
	}, stages)
}

func TestAnalyzeWildTypeIsSafe(t *testing.T) {
	analyzer := testAnalyzer(t)

	result, err := analyzer.AnalyzeDrug(context.Background(), AnalysisRequest{
		PatientID: "PT-002",
		VCF:       vcfWildType,
	}, "codeine")
	require.NoError(t, err)

	assert.Equal(t, "*1/*1", result.Profile.Diplotype)
	assert.Equal(t, domain.NM, result.Profile.Phenotype)
	assert.Empty(t, result.Profile.DetectedVariants)
	assert.Equal(t, domain.RiskSafe, result.RiskAssessment.Label)
	assert.Equal(t, domain.SeverityNone, result.RiskAssessment.Severity)
	assert.Nil(t, result.Phenoconversion)
}

func TestAnalyzePhenoconversionChangesVerdict(t *testing.T) {
	analyzer := testAnalyzer(t)

	req := AnalysisRequest{
		PatientID:   "PT-003",
		VCF:         vcfWildType,
		Medications: []string{"fluoxetine"},
	}
	result, err := analyzer.AnalyzeDrug(context.Background(), req, "codeine")
	require.NoError(t, err)

	// Genetically NM, functionally IM under strong inhibition; the
	// verdict follows the functional phenotype.
	assert.Equal(t, domain.NM, result.Profile.Phenotype)
	require.NotNil(t, result.Phenoconversion)
	assert.True(t, result.Phenoconversion.Detected)
	assert.Equal(t, domain.IM, result.Phenoconversion.FunctionalPhenotype)
	assert.Equal(t, domain.RiskAdjustDosage, result.RiskAssessment.Label)

	// Same genetics without the inhibitor scores higher.
	req.Medications = nil
	baseline, err := analyzer.AnalyzeDrug(context.Background(), req, "codeine")
	require.NoError(t, err)
	assert.Greater(t, baseline.RiskAssessment.RawConfidence, result.RiskAssessment.RawConfidence)
}

func TestAnalyzeUncoveredCombinationFallsBack(t *testing.T) {
	analyzer := testAnalyzer(t)

	// CYP2C9 *2/*5 has no table row and no activity model: phenotype
	// Unknown, no rule, capped confidence.
	doc := vcfDocument(
		vcfLine("chr10", 94942290, "rs1799853", "C", "T", 88, "0/1"),
		vcfLine("chr10", 94981296, "rs28371686", "C", "G", 91, "0/1"),
	)
	result, err := analyzer.AnalyzeDrug(context.Background(), AnalysisRequest{
		PatientID: "PT-004",
		VCF:       doc,
	}, "warfarin")
	require.NoError(t, err)

	assert.Equal(t, domain.PhenotypeUnknown, result.Profile.Phenotype)
	assert.False(t, result.RuleCovered)
	assert.Equal(t, domain.RiskUnknown, result.RiskAssessment.Label)
	assert.Equal(t, domain.SeverityNone, result.RiskAssessment.Severity)
	assert.LessOrEqual(t, result.RiskAssessment.RawConfidence, 0.69)
	assert.Zero(t, result.Confidence.RuleCoverage)
}

func TestAnalyzeUnparseableInputStillReturnsResult(t *testing.T) {
	analyzer := testAnalyzer(t)

	result, err := analyzer.AnalyzeDrug(context.Background(), AnalysisRequest{
		PatientID: "PT-008",
		VCF:       "not a vcf at all\nstill nothing\n",
	}, "codeine")
	require.NoError(t, err)

	// Systemic parse failure degrades to wild-type defaults with the
	// failure flagged, not an error.
	assert.False(t, result.QualityMetrics.ParsingSuccess)
	assert.Equal(t, "*1/*1", result.Profile.Diplotype)
	assert.Equal(t, domain.NM, result.Profile.Phenotype)
	assert.Zero(t, result.QualityMetrics.VariantsAnalyzed)
}

func TestAnalyzeUnsupportedDrug(t *testing.T) {
	analyzer := testAnalyzer(t)

	_, err := analyzer.AnalyzeDrug(context.Background(), AnalysisRequest{
		VCF: vcfCYP2D6PM,
	}, "aspirin")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedDrug)
}

func TestAnalyzeEmptyVCF(t *testing.T) {
	analyzer := testAnalyzer(t)

	_, err := analyzer.AnalyzeDrug(context.Background(), AnalysisRequest{VCF: "  "}, "codeine")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestAnalyzeBrandNameNormalization(t *testing.T) {
	analyzer := testAnalyzer(t)

	doc := vcfDocument(vcfLine("chr10", 94781859, "rs4244285", "G", "A", 85, "1/1"))
	result, err := analyzer.AnalyzeDrug(context.Background(), AnalysisRequest{
		PatientID: "PT-005",
		VCF:       doc,
	}, "Plavix")
	require.NoError(t, err)

	assert.Equal(t, "CLOPIDOGREL", result.Drug)
	assert.Equal(t, "CYP2C19", result.Profile.PrimaryGene)
	assert.Equal(t, domain.PM, result.Profile.Phenotype)
	assert.Equal(t, domain.RiskIneffective, result.RiskAssessment.Label)
}

func TestAnalyzeBatchCollectsPerDrugErrors(t *testing.T) {
	analyzer := testAnalyzer(t)

	results, errs := analyzer.AnalyzeBatch(context.Background(), AnalysisRequest{
		PatientID: "PT-006",
		VCF:       vcfCYP2D6PM,
		Drugs:     []string{"codeine", "aspirin", "warfarin"},
	})

	require.Len(t, results, 2)
	assert.Equal(t, "CODEINE", results[0].Drug)
	assert.Equal(t, "WARFARIN", results[1].Drug)

	require.Len(t, errs, 1)
	assert.Equal(t, "aspirin", errs[0].Drug)
	assert.ErrorIs(t, errs[0].Err, domain.ErrUnsupportedDrug)
}

func TestAnalyzeBatchDedupsCanonicalDrugs(t *testing.T) {
	analyzer := testAnalyzer(t)

	results, errs := analyzer.AnalyzeBatch(context.Background(), AnalysisRequest{
		PatientID: "PT-009",
		VCF:       vcfCYP2D6PM,
		Drugs:     []string{"codeine", "Tylenol 3", "CODEINE"},
	})
	require.Empty(t, errs)
	require.Len(t, results, 1)
	assert.Equal(t, "CODEINE", results[0].Drug)
}

func TestAnalyzeBatchGeneratesPatientID(t *testing.T) {
	analyzer := testAnalyzer(t)

	results, errs := analyzer.AnalyzeBatch(context.Background(), AnalysisRequest{
		VCF:   vcfCYP2D6PM,
		Drugs: []string{"codeine"},
	})
	require.Empty(t, errs)
	require.Len(t, results, 1)
	assert.NotEmpty(t, results[0].PatientID)
}

func TestAnalyzeDeterminism(t *testing.T) {
	analyzer := testAnalyzer(t)

	req := AnalysisRequest{
		PatientID:   "PT-007",
		VCF:         vcfCYP2D6PM,
		Medications: []string{"amiodarone", "fluoxetine"},
	}
	first, err := analyzer.AnalyzeDrug(context.Background(), req, "codeine")
	require.NoError(t, err)
	second, err := analyzer.AnalyzeDrug(context.Background(), req, "codeine")
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAnalyzeCancelledContext(t *testing.T) {
	analyzer := testAnalyzer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := analyzer.AnalyzeDrug(ctx, AnalysisRequest{VCF: vcfCYP2D6PM}, "codeine")
	assert.ErrorIs(t, err, context.Canceled)

	_, errs := analyzer.AnalyzeBatch(ctx, AnalysisRequest{
		VCF:   vcfCYP2D6PM,
		Drugs: []string{"codeine"},
	})
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0].Err, context.Canceled)
}

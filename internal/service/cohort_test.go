package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pharmaguard/pgx-engine/internal/domain"
)

func cohortResult(patient, drug string, label domain.RiskLabel, severity domain.Severity) domain.AnalysisResult {
	return domain.AnalysisResult{
		PatientID: patient,
		Drug:      drug,
		RiskAssessment: domain.RiskAssessment{
			Label:    label,
			Severity: severity,
		},
	}
}

func TestAggregateEmptyCohort(t *testing.T) {
	summary := AggregateCohort(nil)
	assert.Zero(t, summary.CohortSize)
	assert.Zero(t, summary.HighRiskCount)
	assert.Empty(t, summary.HighRiskPatients)
	assert.Empty(t, summary.Alert)
	assert.NotNil(t, summary.RiskMatrix)
}

func TestAggregateRiskMatrix(t *testing.T) {
	summary := AggregateCohort([]domain.AnalysisResult{
		cohortResult("p1", "CODEINE", domain.RiskToxic, domain.SeverityCritical),
		cohortResult("p2", "CODEINE", domain.RiskSafe, domain.SeverityNone),
		cohortResult("p3", "CODEINE", domain.RiskSafe, domain.SeverityNone),
		cohortResult("p3", "CLOPIDOGREL", domain.RiskAdjustDosage, domain.SeverityModerate),
	})

	assert.Equal(t, 3, summary.CohortSize)
	assert.Equal(t, 2, summary.RiskMatrix["CODEINE"][domain.RiskSafe])
	assert.Equal(t, 1, summary.RiskMatrix["CODEINE"][domain.RiskToxic])
	assert.Equal(t, 1, summary.RiskMatrix["CLOPIDOGREL"][domain.RiskAdjustDosage])
}

func TestAggregateHighRiskByLabelAndSeverity(t *testing.T) {
	summary := AggregateCohort([]domain.AnalysisResult{
		// High risk through the label.
		cohortResult("p1", "CLOPIDOGREL", domain.RiskIneffective, domain.SeverityModerate),
		// High risk through the severity.
		cohortResult("p2", "FLUOROURACIL", domain.RiskAdjustDosage, domain.SeverityHigh),
		cohortResult("p3", "CODEINE", domain.RiskSafe, domain.SeverityNone),
	})

	assert.Equal(t, 2, summary.HighRiskCount)
	assert.Equal(t, []string{"p1", "p2"}, summary.HighRiskPatients)
	assert.Contains(t, summary.Alert, "2 of 3 patients")
}

func TestAggregateHighRiskPatientCountedOnce(t *testing.T) {
	summary := AggregateCohort([]domain.AnalysisResult{
		cohortResult("p1", "CODEINE", domain.RiskToxic, domain.SeverityCritical),
		cohortResult("p1", "CLOPIDOGREL", domain.RiskIneffective, domain.SeverityHigh),
	})

	assert.Equal(t, 1, summary.CohortSize)
	assert.Equal(t, 1, summary.HighRiskCount)
	assert.Equal(t, []string{"p1"}, summary.HighRiskPatients)
}

func TestAggregateIsDeterministic(t *testing.T) {
	results := []domain.AnalysisResult{
		cohortResult("p2", "CODEINE", domain.RiskToxic, domain.SeverityCritical),
		cohortResult("p1", "CODEINE", domain.RiskToxic, domain.SeverityCritical),
	}
	a := AggregateCohort(results)
	b := AggregateCohort(results)
	assert.Equal(t, a, b)
	assert.Equal(t, []string{"p1", "p2"}, a.HighRiskPatients)
}

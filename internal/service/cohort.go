package service

import (
	"fmt"
	"sort"

	"github.com/pharmaguard/pgx-engine/internal/domain"
)

// AggregateCohort folds per-patient results into a cohort summary. The
// fold is a pure function of its input: per-patient results are never
// mutated and the same inputs always produce the same summary.
func AggregateCohort(results []domain.AnalysisResult) domain.CohortSummary {
	summary := domain.CohortSummary{
		RiskMatrix: map[string]map[domain.RiskLabel]int{},
	}

	patients := map[string]bool{}
	highRisk := map[string]bool{}
	for _, r := range results {
		patients[r.PatientID] = true

		byLabel, ok := summary.RiskMatrix[r.Drug]
		if !ok {
			byLabel = map[domain.RiskLabel]int{}
			summary.RiskMatrix[r.Drug] = byLabel
		}
		byLabel[r.RiskAssessment.Label]++

		if r.IsHighRisk() {
			highRisk[r.PatientID] = true
		}
	}

	summary.CohortSize = len(patients)
	summary.HighRiskCount = len(highRisk)
	for id := range highRisk {
		summary.HighRiskPatients = append(summary.HighRiskPatients, id)
	}
	sort.Strings(summary.HighRiskPatients)

	if summary.HighRiskCount > 0 {
		summary.Alert = fmt.Sprintf("%d of %d patients carry a high-risk pharmacogenomic finding",
			summary.HighRiskCount, summary.CohortSize)
	}
	return summary
}

package service

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-engine/internal/catalog"
	"github.com/pharmaguard/pgx-engine/internal/domain"
)

// PhenoconversionDetector shifts the genetic phenotype to a functional
// phenotype when concurrent medications inhibit the metabolizing
// enzyme. The shift follows the catalog's exact transition table; the
// strongest inhibitor among the medications decides the shift.
type PhenoconversionDetector struct {
	logger  *logrus.Logger
	catalog *catalog.Catalog
}

// NewPhenoconversionDetector creates a phenoconversion detector.
func NewPhenoconversionDetector(cat *catalog.Catalog, logger *logrus.Logger) *PhenoconversionDetector {
	return &PhenoconversionDetector{logger: logger, catalog: cat}
}

// Evaluate computes the functional phenotype for a gene under a list
// of concurrent medications. An Unknown genetic phenotype is never
// shifted. The result is deterministic for a given (gene, phenotype,
// medication set) regardless of medication order.
func (d *PhenoconversionDetector) Evaluate(gene string, genetic domain.Phenotype, medications []string) domain.PhenoconversionResult {
	result := domain.PhenoconversionResult{
		Gene:                gene,
		GeneticPhenotype:    genetic,
		FunctionalPhenotype: genetic,
		Strength:            domain.StrengthNone,
	}

	if !d.catalog.HasInhibitorTable(gene) || len(medications) == 0 {
		return result
	}

	inhibitors := d.inhibitorsFor(gene, medications)
	if len(inhibitors) == 0 {
		return result
	}

	strongest := domain.StrengthNone
	for _, med := range inhibitors {
		if med.Strength.Stronger(strongest) {
			strongest = med.Strength
		}
	}

	result.Strength = strongest
	result.CausedBy = inhibitors
	result.ConfidencePenalty = d.catalog.Penalty(strongest)

	if genetic != domain.PhenotypeUnknown {
		result.FunctionalPhenotype = d.catalog.Downgrade(strongest, genetic)
	}
	result.Detected = result.FunctionalPhenotype != genetic

	if result.Detected {
		result.ClinicalNote = fmt.Sprintf(
			"Concurrent %s inhibition of %s shifts the phenotype from %s to %s. Dose guidance should follow the functional phenotype.",
			strongest, gene, genetic.Display(), result.FunctionalPhenotype.Display())
		d.logger.WithFields(logrus.Fields{
			"gene":                 gene,
			"genetic_phenotype":    genetic.String(),
			"functional_phenotype": result.FunctionalPhenotype.String(),
			"inhibitor_strength":   strongest.String(),
		}).Info("Phenoconversion detected")
	} else if strongest != domain.StrengthNone {
		result.ClinicalNote = fmt.Sprintf(
			"%s inhibitor of %s present without a phenotype shift.", strongest, gene)
	}

	return result
}

// inhibitorsFor resolves each medication against the gene's inhibitor
// table, dropping non-inhibitors and sorting by name for determinism.
func (d *PhenoconversionDetector) inhibitorsFor(gene string, medications []string) []domain.ConcurrentMedication {
	var out []domain.ConcurrentMedication
	seen := map[string]bool{}
	for _, med := range medications {
		strength := d.catalog.InhibitorStrengthFor(gene, med)
		if strength == domain.StrengthNone || seen[med] {
			continue
		}
		seen[med] = true
		out = append(out, domain.ConcurrentMedication{Name: med, Strength: strength})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

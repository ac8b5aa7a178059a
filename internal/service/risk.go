package service

import (
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-engine/internal/catalog"
	"github.com/pharmaguard/pgx-engine/internal/domain"
)

// RiskMatcher resolves the curated risk rule for an exact (gene,
// phenotype, drug) combination. Combinations without a rule fall back
// to an explicit Unknown verdict; a label is never guessed from a
// neighboring phenotype.
type RiskMatcher struct {
	logger  *logrus.Logger
	catalog *catalog.Catalog
}

// NewRiskMatcher creates a risk matcher.
func NewRiskMatcher(cat *catalog.Catalog, logger *logrus.Logger) *RiskMatcher {
	return &RiskMatcher{logger: logger, catalog: cat}
}

// Match looks up the rule for the combination. covered is false when
// the fallback verdict was substituted.
func (m *RiskMatcher) Match(gene string, phenotype domain.Phenotype, drug string) (rule domain.RiskRule, covered bool) {
	if rule, ok := m.catalog.RuleFor(gene, phenotype, drug); ok {
		return rule, true
	}

	m.logger.WithFields(logrus.Fields{
		"gene":      gene,
		"phenotype": phenotype.String(),
		"drug":      m.catalog.NormalizeDrug(drug),
	}).Warn("No curated risk rule for combination")

	return domain.RiskRule{
		Gene:      gene,
		Drug:      m.catalog.NormalizeDrug(drug),
		Phenotype: phenotype,
		Label:     domain.RiskUnknown,
		Severity:  domain.SeverityNone,
		Action:    "No curated guideline covers this gene-phenotype-drug combination. Consult a clinical pharmacologist before prescribing.",
	}, false
}

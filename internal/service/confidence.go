package service

import (
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-engine/internal/catalog"
	"github.com/pharmaguard/pgx-engine/internal/domain"
)

// Component scores for genotype and phenotype certainty. These are
// fixed per-source values; the weighting lives in the catalog.
const (
	genotypeObservedHomozygous = 0.95
	genotypeObserved           = 0.90
	genotypeInferredWildType   = 0.70

	phenotypeFromTable    = 0.95
	phenotypeFromActivity = 0.85
	phenotypeUnknownScore = 0.40

	evidenceNoneScore = 0.40
)

// ConfidenceScorer computes the raw confidence score as the weighted
// sum of four bounded components. The weights come from the catalog
// and sum to 1, so the raw score is itself within [0,1] before the
// phenoconversion penalty.
type ConfidenceScorer struct {
	logger  *logrus.Logger
	catalog *catalog.Catalog
}

// ScoreInputs carries everything the scorer consumes.
type ScoreInputs struct {
	Diplotype              domain.Diplotype
	Detected               []domain.DetectedVariant
	AnnotationCompleteness float64
	PhenotypeCall          PhenotypeCall
	Evidence               domain.EvidenceAnnotation
	RuleCovered            bool
	Phenoconversion        domain.PhenoconversionResult
}

// NewConfidenceScorer creates a confidence scorer.
func NewConfidenceScorer(cat *catalog.Catalog, logger *logrus.Logger) *ConfidenceScorer {
	return &ConfidenceScorer{logger: logger, catalog: cat}
}

// Score computes the component vector and the raw confidence score.
// When no risk rule matched the raw score is hard-capped so an
// uncovered verdict can never present higher confidence than a
// covered one.
func (s *ConfidenceScorer) Score(in ScoreInputs) (domain.ConfidenceComponents, float64) {
	components := domain.ConfidenceComponents{
		Evidence:  s.evidenceComponent(in.Evidence),
		Genotype:  genotypeComponent(in),
		Phenotype: phenotypeComponent(in.PhenotypeCall),
	}
	if in.RuleCovered {
		components.RuleCoverage = 1.0
	}

	w := s.catalog.Weights()
	raw := w.Evidence*components.Evidence +
		w.Genotype*components.Genotype +
		w.Phenotype*components.Phenotype +
		w.RuleCoverage*components.RuleCoverage

	raw -= in.Phenoconversion.ConfidencePenalty
	raw = clamp01(raw)

	if !in.RuleCovered && raw > s.catalog.FallbackCap() {
		raw = s.catalog.FallbackCap()
	}

	s.logger.WithFields(logrus.Fields{
		"evidence_component":  components.Evidence,
		"genotype_component":  components.Genotype,
		"phenotype_component": components.Phenotype,
		"rule_coverage":       components.RuleCoverage,
		"raw_confidence":      raw,
	}).Debug("Scored confidence components")

	return components, raw
}

// evidenceComponent is the midpoint of the tier's confidence range, or
// the floor score when no evidence is on file.
func (s *ConfidenceScorer) evidenceComponent(ann domain.EvidenceAnnotation) float64 {
	if !ann.OnFile {
		return evidenceNoneScore
	}
	rng, ok := s.catalog.EvidenceRangeFor(ann.Level)
	if !ok {
		return evidenceNoneScore
	}
	return rng.Mid()
}

// genotypeComponent scores how directly the diplotype was observed. A
// wild-type default (no detected variant) is an inference from
// absence, not an observation, and scores lower. The base value is
// scaled by annotation completeness and lifted slightly by additional
// supporting variants, capped at 1.
func genotypeComponent(in ScoreInputs) float64 {
	base := genotypeInferredWildType
	if len(in.Detected) > 0 {
		base = genotypeObserved
		for _, v := range in.Detected {
			if v.Zygosity == domain.Homozygous {
				base = genotypeObservedHomozygous
				break
			}
		}
		base += 0.01 * float64(len(in.Detected)-1)
		if base > 1 {
			base = 1
		}
	}
	return base * (0.8 + 0.2*in.AnnotationCompleteness)
}

func phenotypeComponent(call PhenotypeCall) float64 {
	switch call.Source {
	case PhenotypeSourceDiplotypeTable:
		return phenotypeFromTable
	case PhenotypeSourceActivityScore:
		return phenotypeFromActivity
	default:
		return phenotypeUnknownScore
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

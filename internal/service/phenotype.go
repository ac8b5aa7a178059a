package service

import (
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-engine/internal/catalog"
	"github.com/pharmaguard/pgx-engine/internal/domain"
)

// Phenotype call sources, recorded in the decision trace.
const (
	PhenotypeSourceDiplotypeTable = "diplotype_table"
	PhenotypeSourceActivityScore  = "activity_score"
	PhenotypeSourceUnknown        = "unmapped"
)

// PhenotypeCaller maps a diplotype to its metabolizer class. The
// curated diplotype table is authoritative; the gene's activity-score
// model is the fallback; anything else is an explicit Unknown, never a
// guessed class.
type PhenotypeCaller struct {
	logger  *logrus.Logger
	catalog *catalog.Catalog
}

// PhenotypeCall is the outcome of phenotype mapping for one gene.
type PhenotypeCall struct {
	Phenotype     domain.Phenotype
	ActivityScore *float64
	Source        string
}

// NewPhenotypeCaller creates a phenotype caller.
func NewPhenotypeCaller(cat *catalog.Catalog, logger *logrus.Logger) *PhenotypeCaller {
	return &PhenotypeCaller{logger: logger, catalog: cat}
}

// Call resolves the metabolizer class for a diplotype. The activity
// score is reported whenever the gene's model covers both alleles,
// independent of which source decided the phenotype.
func (c *PhenotypeCaller) Call(d domain.Diplotype) PhenotypeCall {
	score := c.activityScore(d)

	if phen, ok := c.catalog.DiplotypePhenotype(d.Gene, d.Allele1, d.Allele2); ok {
		return PhenotypeCall{Phenotype: phen, ActivityScore: score, Source: PhenotypeSourceDiplotypeTable}
	}

	if score != nil {
		model, _ := c.catalog.ActivityModelFor(d.Gene)
		return PhenotypeCall{
			Phenotype:     classifyActivity(model, *score),
			ActivityScore: score,
			Source:        PhenotypeSourceActivityScore,
		}
	}

	c.logger.WithFields(logrus.Fields{
		"gene":      d.Gene,
		"diplotype": d.String(),
	}).Debug("Diplotype not covered by phenotype tables")
	return PhenotypeCall{Phenotype: domain.PhenotypeUnknown, Source: PhenotypeSourceUnknown}
}

// activityScore sums the per-allele scores, or returns nil when the
// gene has no model or an allele is unscored.
func (c *PhenotypeCaller) activityScore(d domain.Diplotype) *float64 {
	model, ok := c.catalog.ActivityModelFor(d.Gene)
	if !ok {
		return nil
	}
	s1, ok1 := model.Scores[d.Allele1]
	s2, ok2 := model.Scores[d.Allele2]
	if !ok1 || !ok2 {
		return nil
	}
	sum := s1 + s2
	return &sum
}

func classifyActivity(model catalog.ActivityModel, score float64) domain.Phenotype {
	for _, bp := range model.Breakpoints {
		if score <= bp.Max {
			return bp.Phenotype
		}
	}
	return model.Else
}

package service

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-engine/internal/catalog"
	"github.com/pharmaguard/pgx-engine/internal/domain"
)

// DiplotypeAssembler derives the star-allele pair carried for a gene
// from its retained variant calls. Reference calls (0/0) and the
// wild-type allele never contribute: a gene with no qualifying variant
// carries the wild-type pair.
type DiplotypeAssembler struct {
	logger  *logrus.Logger
	catalog *catalog.Catalog
}

// NewDiplotypeAssembler creates a diplotype assembler.
func NewDiplotypeAssembler(cat *catalog.Catalog, logger *logrus.Logger) *DiplotypeAssembler {
	return &DiplotypeAssembler{logger: logger, catalog: cat}
}

// Assemble derives the diplotype for a gene. Allele ordering is
// deterministic: higher functional impact first, ties broken
// lexically.
func (a *DiplotypeAssembler) Assemble(gene string, variants []domain.Variant) domain.Diplotype {
	calls := a.qualifyingCalls(gene, variants)
	if len(calls) == 0 {
		return a.catalog.WildTypeDiplotype(gene)
	}

	// A homozygous call fixes both alleles. The highest-impact
	// homozygous call wins over any heterozygous combination.
	for _, c := range calls {
		if c.zygosity == domain.Homozygous {
			return domain.Diplotype{Gene: gene, Allele1: c.allele, Allele2: c.allele}
		}
	}

	if len(calls) >= 2 {
		return domain.Diplotype{Gene: gene, Allele1: calls[0].allele, Allele2: calls[1].allele}
	}
	return domain.Diplotype{Gene: gene, Allele1: calls[0].allele, Allele2: a.catalog.DefaultAllele()}
}

type alleleCall struct {
	allele   string
	function string
	impact   int
	zygosity domain.Zygosity
}

// qualifyingCalls collects the non-reference, annotated calls for a
// gene, deduplicated by star allele and ordered by impact.
func (a *DiplotypeAssembler) qualifyingCalls(gene string, variants []domain.Variant) []alleleCall {
	seen := map[string]bool{}
	var calls []alleleCall
	for _, v := range variants {
		if v.Gene != gene || v.StarAllele == "" {
			continue
		}
		if v.IsReferenceCall() || v.StarAllele == a.catalog.DefaultAllele() {
			continue
		}
		if seen[v.StarAllele] {
			continue
		}
		seen[v.StarAllele] = true
		calls = append(calls, alleleCall{
			allele:   v.StarAllele,
			function: v.Function,
			impact:   domain.AlleleImpact(v.Function),
			zygosity: v.Zygosity(),
		})
	}
	sort.Slice(calls, func(i, j int) bool {
		if calls[i].impact != calls[j].impact {
			return calls[i].impact > calls[j].impact
		}
		return calls[i].allele < calls[j].allele
	})
	return calls
}

// DetectedVariants reports the actionable findings for a gene:
// non-reference calls with a resolved star allele. Reference calls
// must never appear here regardless of the gene's diplotype.
func (a *DiplotypeAssembler) DetectedVariants(gene string, variants []domain.Variant) []domain.DetectedVariant {
	var out []domain.DetectedVariant
	for _, v := range variants {
		if v.Gene != gene || v.StarAllele == "" {
			continue
		}
		if v.IsReferenceCall() || v.StarAllele == a.catalog.DefaultAllele() {
			continue
		}
		out = append(out, domain.DetectedVariant{
			RSID:                 v.RSID,
			Gene:                 v.Gene,
			StarAllele:           v.StarAllele,
			Zygosity:             v.Zygosity(),
			Function:             v.Function,
			ClinicalSignificance: clinicalSignificance(v.Function),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RSID < out[j].RSID })
	return out
}

func clinicalSignificance(function string) string {
	switch function {
	case "No function":
		return "Loss of enzyme function"
	case "Decreased function":
		return "Reduced enzyme function"
	case "Increased function":
		return "Increased enzyme function"
	case "Normal function":
		return "Normal enzyme function"
	default:
		return "Uncertain significance"
	}
}

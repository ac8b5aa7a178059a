package service

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-engine/internal/catalog"
	"github.com/pharmaguard/pgx-engine/internal/domain"
)

// DefaultEvidenceCacheSize bounds the per-process evidence cache.
const DefaultEvidenceCacheSize = 256

// Evidence sources recorded on annotations and in the decision trace.
const (
	EvidenceSourceAnnotation = "annotation_table"
	EvidenceSourceCurated    = "curated_guideline"
	EvidenceSourceNone       = "none"
)

// EvidenceResolver resolves the clinical evidence annotation for a
// (gene, drug) pair. The dynamic annotation table wins; the curated
// citation table backfills missing publication data; a pair with no
// evidence resolves to an explicit "no evidence on file" record, never
// a fabricated citation.
type EvidenceResolver struct {
	logger  *logrus.Logger
	catalog *catalog.Catalog
	cache   *lru.Cache[string, domain.EvidenceAnnotation]
}

// NewEvidenceResolver creates an evidence resolver with a bounded
// lookup cache.
func NewEvidenceResolver(cat *catalog.Catalog, cacheSize int, logger *logrus.Logger) (*EvidenceResolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultEvidenceCacheSize
	}
	cache, err := lru.New[string, domain.EvidenceAnnotation](cacheSize)
	if err != nil {
		return nil, err
	}
	return &EvidenceResolver{logger: logger, catalog: cat, cache: cache}, nil
}

// Resolve returns the evidence annotation for a (gene, drug) pair.
// Identical queries return identical annotations for a given catalog.
func (r *EvidenceResolver) Resolve(gene, drug string) domain.EvidenceAnnotation {
	drug = r.catalog.NormalizeDrug(drug)
	key := gene + "|" + drug
	if ann, ok := r.cache.Get(key); ok {
		return ann
	}

	ann := r.resolve(gene, drug)
	r.cache.Add(key, ann)
	return ann
}

func (r *EvidenceResolver) resolve(gene, drug string) domain.EvidenceAnnotation {
	ann, ok := r.catalog.Annotation(gene, drug)
	if !ok {
		r.logger.WithFields(logrus.Fields{
			"gene": gene,
			"drug": drug,
		}).Debug("No evidence annotation on file")
		return domain.EvidenceAnnotation{
			Gene:           gene,
			Drug:           drug,
			FDARequirement: "None",
			Source:         EvidenceSourceNone,
			OnFile:         false,
		}
	}

	if ann.Citation.PMID == "" {
		if cit, ok := r.catalog.CuratedCitation(gene, drug); ok {
			ann.Citation = cit
			ann.Source = EvidenceSourceCurated
		}
	}
	if ann.Source == "" {
		ann.Source = EvidenceSourceAnnotation
	}
	if ann.FDARequirement == "" {
		ann.FDARequirement = fdaRequirementForTier(ann.Level)
	}
	return ann
}

// fdaRequirementForTier infers the FDA labeling requirement from the
// evidence tier when the annotation does not carry one.
func fdaRequirementForTier(tier string) string {
	switch strings.ToUpper(tier) {
	case "1A":
		return "Required"
	case "1B":
		return "Recommended"
	default:
		return "None"
	}
}

// Package catalog loads and validates the versioned rule catalog that
// drives the PGx risk pipeline: gene-drug risk rules, confidence
// weights, inhibitor strengths, phenotype activity tables,
// evidence/citation tables and calibration bins.
//
// The catalog is immutable after load and explicitly passed into every
// pipeline component so tests can substitute catalogs per case. It is
// replaced wholesale, never mutated.
package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-engine/internal/domain"
)

// AlleleMapping resolves an rsID to a gene, star allele and functional
// annotation (PharmVar-derived).
type AlleleMapping struct {
	Gene       string `json:"gene"`
	StarAllele string `json:"star"`
	Function   string `json:"function"`
}

// Breakpoint classifies an activity-score sum: the first breakpoint
// whose Max is >= the sum wins. Breakpoints are ordered ascending by
// Max; a trailing catch-all uses Max = +Inf (encoded as max <= 0 in
// JSON is rejected; the loader appends the Else phenotype instead).
type Breakpoint struct {
	Max       float64          `json:"max"`
	Phenotype domain.Phenotype `json:"phenotype"`
}

// ActivityModel is the per-gene activity-score table with its
// classification breakpoints and the phenotype for sums above the last
// breakpoint.
type ActivityModel struct {
	Scores      map[string]float64 `json:"scores"`
	Breakpoints []Breakpoint       `json:"breakpoints"`
	Else        domain.Phenotype   `json:"else"`
}

// ConfidenceWeights are the non-negative component weights, enforced
// to sum to 1 at load.
type ConfidenceWeights struct {
	Evidence     float64 `json:"evidence"`
	Genotype     float64 `json:"genotype"`
	Phenotype    float64 `json:"phenotype"`
	RuleCoverage float64 `json:"rule_coverage"`
}

// CalibrationBin maps a raw-score interval [Low, High] to an empirical
// calibrated score.
type CalibrationBin struct {
	Low        float64 `json:"low"`
	High       float64 `json:"high"`
	Calibrated float64 `json:"calibrated"`
}

// EvidenceRange is the confidence range assigned to an evidence tier.
type EvidenceRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Mid returns the midpoint of the range, the value the scorer uses for
// the evidence component.
func (r EvidenceRange) Mid() float64 {
	return (r.Low + r.High) / 2
}

// Catalog is the process-wide, read-only rule configuration. All maps
// are private to guarantee immutability after Build; access goes
// through lookup methods.
type Catalog struct {
	version       string
	targetGenes   []string
	defaultAllele string

	supportedDrugs map[string]string
	drugAliases    map[string]string

	variantTable map[string]AlleleMapping

	activity            map[string]ActivityModel
	diplotypePhenotypes map[string]map[string]domain.Phenotype

	riskRules map[string]domain.RiskRule

	annotations map[string]domain.EvidenceAnnotation
	citations   map[string]domain.Citation
	evidence    map[string]EvidenceRange

	inhibitors map[string]map[string]domain.InhibitorStrength
	downgrade  map[domain.InhibitorStrength]map[domain.Phenotype]domain.Phenotype
	penalties  map[domain.InhibitorStrength]float64

	weights     ConfidenceWeights
	fallbackCap float64
	calibration []CalibrationBin
}

// Document is the on-disk JSON shape of a versioned catalog.
type Document struct {
	Version       string `json:"catalog_version"`
	TargetGenes   []string `json:"target_genes"`
	DefaultAllele string   `json:"default_allele"`

	SupportedDrugs map[string]string `json:"supported_drugs"`
	DrugAliases    map[string]string `json:"drug_aliases"`

	VariantTable map[string]AlleleMapping `json:"variant_table"`

	Activity            map[string]ActivityModel               `json:"activity_models"`
	DiplotypePhenotypes map[string]map[string]domain.Phenotype `json:"diplotype_phenotypes"`

	RiskRules []domain.RiskRule `json:"risk_rules"`

	Annotations []domain.EvidenceAnnotation `json:"annotations"`
	Citations   map[string]domain.Citation  `json:"citations"`
	Evidence    map[string]EvidenceRange    `json:"evidence_confidence"`

	Inhibitors map[string]map[string][]string                            `json:"inhibitors"`
	Downgrade  map[string]map[domain.Phenotype]domain.Phenotype          `json:"phenotype_downgrade"`
	Penalties  map[string]float64                                        `json:"confidence_penalties"`

	Weights     ConfidenceWeights `json:"confidence_weights"`
	FallbackCap float64           `json:"fallback_confidence_cap"`
	Calibration []CalibrationBin  `json:"calibration_bins"`
}

const weightTolerance = 1e-9

// DefaultFallbackCap bounds the raw confidence score whenever no risk
// rule matched (rule_coverage = 0).
const DefaultFallbackCap = 0.69

// Load reads and validates a versioned catalog document from disk.
// Configuration defects fail here, never per-request.
func Load(path string, logger *logrus.Logger) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domain.NewCatalogError("document", fmt.Errorf("decode: %w", err))
	}

	cat, err := Build(&doc)
	if err != nil {
		return nil, err
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"catalog_version": cat.Version(),
			"path":            path,
			"risk_rules":      len(cat.riskRules),
			"target_genes":    len(cat.targetGenes),
		}).Info("Loaded rule catalog")
	}
	return cat, nil
}

// Build validates a catalog document and freezes it into an immutable
// Catalog.
func Build(doc *Document) (*Catalog, error) {
	if doc.Version == "" {
		return nil, domain.NewCatalogError("catalog_version", fmt.Errorf("version string is required"))
	}
	if len(doc.TargetGenes) == 0 {
		return nil, domain.NewCatalogError("target_genes", fmt.Errorf("at least one target gene is required"))
	}

	cat := &Catalog{
		version:             doc.Version,
		targetGenes:         append([]string(nil), doc.TargetGenes...),
		defaultAllele:       doc.DefaultAllele,
		supportedDrugs:      map[string]string{},
		drugAliases:         map[string]string{},
		variantTable:        map[string]AlleleMapping{},
		activity:            map[string]ActivityModel{},
		diplotypePhenotypes: map[string]map[string]domain.Phenotype{},
		riskRules:           map[string]domain.RiskRule{},
		annotations:         map[string]domain.EvidenceAnnotation{},
		citations:           map[string]domain.Citation{},
		evidence:            map[string]EvidenceRange{},
		inhibitors:          map[string]map[string]domain.InhibitorStrength{},
		downgrade:           map[domain.InhibitorStrength]map[domain.Phenotype]domain.Phenotype{},
		penalties:           map[domain.InhibitorStrength]float64{},
		weights:             doc.Weights,
		fallbackCap:         doc.FallbackCap,
		calibration:         append([]CalibrationBin(nil), doc.Calibration...),
	}
	if cat.defaultAllele == "" {
		cat.defaultAllele = "*1"
	}
	if cat.fallbackCap == 0 {
		cat.fallbackCap = DefaultFallbackCap
	}

	genes := map[string]bool{}
	for _, g := range cat.targetGenes {
		genes[g] = true
	}

	for drug, gene := range doc.SupportedDrugs {
		if !genes[gene] {
			return nil, domain.NewCatalogError("supported_drugs",
				fmt.Errorf("drug %s maps to non-target gene %s", drug, gene))
		}
		cat.supportedDrugs[strings.ToUpper(drug)] = gene
	}
	for alias, canonical := range doc.DrugAliases {
		cat.drugAliases[strings.ToUpper(alias)] = strings.ToUpper(canonical)
	}

	for rsid, m := range doc.VariantTable {
		if m.Gene == "" || m.StarAllele == "" {
			return nil, domain.NewCatalogError("variant_table",
				fmt.Errorf("rsid %s missing gene or star allele", rsid))
		}
		cat.variantTable[rsid] = m
	}

	for gene, model := range doc.Activity {
		if err := validateActivityModel(gene, model); err != nil {
			return nil, err
		}
		cat.activity[gene] = model
	}

	for gene, table := range doc.DiplotypePhenotypes {
		normalized := map[string]domain.Phenotype{}
		for key, phen := range table {
			if !phen.IsValid() {
				return nil, domain.NewCatalogError("diplotype_phenotypes",
					fmt.Errorf("gene %s diplotype %s: %w", gene, key, domain.ErrInvalidPhenotype))
			}
			normalized[key] = phen
		}
		cat.diplotypePhenotypes[gene] = normalized
	}

	for i := range doc.RiskRules {
		rule := doc.RiskRules[i]
		if err := rule.Validate(); err != nil {
			return nil, domain.NewCatalogError("risk_rules", err)
		}
		key := ruleKey(rule.Gene, rule.Phenotype, rule.Drug)
		if _, dup := cat.riskRules[key]; dup {
			return nil, domain.NewCatalogError("risk_rules",
				fmt.Errorf("duplicate rule for %s/%s/%s", rule.Gene, rule.Phenotype, rule.Drug))
		}
		cat.riskRules[key] = rule
	}

	for _, ann := range doc.Annotations {
		ann.OnFile = true
		cat.annotations[pairKey(ann.Gene, ann.Drug)] = ann
	}
	for key, cit := range doc.Citations {
		cat.citations[key] = cit
	}
	for tier, rng := range doc.Evidence {
		if rng.Low < 0 || rng.High > 1 || rng.Low > rng.High {
			return nil, domain.NewCatalogError("evidence_confidence",
				fmt.Errorf("tier %s has invalid range [%g, %g]", tier, rng.Low, rng.High))
		}
		cat.evidence[tier] = rng
	}

	for gene, byStrength := range doc.Inhibitors {
		table := map[string]domain.InhibitorStrength{}
		for strength, meds := range byStrength {
			s := domain.InhibitorStrength(strength)
			if !s.IsValid() || s == domain.StrengthNone {
				return nil, domain.NewCatalogError("inhibitors",
					fmt.Errorf("gene %s: %w (%q)", gene, domain.ErrInvalidStrength, strength))
			}
			for _, med := range meds {
				table[strings.ToLower(strings.TrimSpace(med))] = s
			}
		}
		cat.inhibitors[gene] = table
	}

	if err := buildDowngrade(cat, doc.Downgrade); err != nil {
		return nil, err
	}

	for strength, penalty := range doc.Penalties {
		s := domain.InhibitorStrength(strength)
		if !s.IsValid() {
			return nil, domain.NewCatalogError("confidence_penalties",
				fmt.Errorf("%w (%q)", domain.ErrInvalidStrength, strength))
		}
		if penalty < 0 || penalty > 1 {
			return nil, domain.NewCatalogError("confidence_penalties",
				fmt.Errorf("strength %s penalty %g out of [0,1]", strength, penalty))
		}
		cat.penalties[s] = penalty
	}

	if err := validateWeights(cat.weights); err != nil {
		return nil, err
	}
	if err := validateCalibration(cat.calibration); err != nil {
		return nil, err
	}
	sort.Slice(cat.calibration, func(i, j int) bool {
		return cat.calibration[i].Low < cat.calibration[j].Low
	})

	return cat, nil
}

func validateActivityModel(gene string, model ActivityModel) error {
	if len(model.Scores) == 0 {
		return domain.NewCatalogError("activity_models",
			fmt.Errorf("gene %s has no allele scores", gene))
	}
	if len(model.Breakpoints) == 0 {
		return domain.NewCatalogError("activity_models",
			fmt.Errorf("gene %s has no breakpoints", gene))
	}
	prev := math.Inf(-1)
	for _, bp := range model.Breakpoints {
		if !bp.Phenotype.IsValid() {
			return domain.NewCatalogError("activity_models",
				fmt.Errorf("gene %s breakpoint %g: %w", gene, bp.Max, domain.ErrInvalidPhenotype))
		}
		if bp.Max <= prev {
			return domain.NewCatalogError("activity_models",
				fmt.Errorf("gene %s breakpoints not strictly ascending at %g", gene, bp.Max))
		}
		prev = bp.Max
	}
	if !model.Else.IsValid() {
		return domain.NewCatalogError("activity_models",
			fmt.Errorf("gene %s else-phenotype: %w", gene, domain.ErrInvalidPhenotype))
	}
	return nil
}

// buildDowngrade validates the phenoconversion transition table. The
// table must be exhaustive for the shifting strengths (strong,
// moderate) over all five metabolizer classes; weak and none leave the
// phenotype unchanged and need no rows.
func buildDowngrade(cat *Catalog, raw map[string]map[domain.Phenotype]domain.Phenotype) error {
	all := []domain.Phenotype{domain.URM, domain.RM, domain.NM, domain.IM, domain.PM}
	for strength, table := range raw {
		s := domain.InhibitorStrength(strength)
		if !s.IsValid() {
			return domain.NewCatalogError("phenotype_downgrade",
				fmt.Errorf("%w (%q)", domain.ErrInvalidStrength, strength))
		}
		out := map[domain.Phenotype]domain.Phenotype{}
		for from, to := range table {
			if !from.IsValid() || !to.IsValid() {
				return domain.NewCatalogError("phenotype_downgrade",
					fmt.Errorf("strength %s transition %s->%s: %w", strength, from, to, domain.ErrInvalidPhenotype))
			}
			out[from] = to
		}
		cat.downgrade[s] = out
	}
	for _, s := range []domain.InhibitorStrength{domain.StrengthStrong, domain.StrengthModerate} {
		table, ok := cat.downgrade[s]
		if !ok {
			return domain.NewCatalogError("phenotype_downgrade",
				fmt.Errorf("missing table for strength %s", s))
		}
		for _, p := range all {
			if _, ok := table[p]; !ok {
				return domain.NewCatalogError("phenotype_downgrade",
					fmt.Errorf("strength %s missing transition for %s", s, p))
			}
		}
	}
	return nil
}

func validateWeights(w ConfidenceWeights) error {
	for name, v := range map[string]float64{
		"evidence":      w.Evidence,
		"genotype":      w.Genotype,
		"phenotype":     w.Phenotype,
		"rule_coverage": w.RuleCoverage,
	} {
		if v < 0 {
			return domain.NewCatalogError("confidence_weights",
				fmt.Errorf("weight %s is negative: %g", name, v))
		}
	}
	sum := w.Evidence + w.Genotype + w.Phenotype + w.RuleCoverage
	if math.Abs(sum-1.0) > weightTolerance {
		return domain.NewCatalogError("confidence_weights",
			fmt.Errorf("weights sum to %g, want 1", sum))
	}
	return nil
}

// validateCalibration enforces the monotonicity invariant: for raw
// scores a <= b, calibrated(a) <= calibrated(b). An empty map is the
// graceful identity degradation.
func validateCalibration(bins []CalibrationBin) error {
	if len(bins) == 0 {
		return nil
	}
	sorted := append([]CalibrationBin(nil), bins...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Low < sorted[j].Low })
	prevHigh := 0.0
	prevCal := -1.0
	for _, bin := range sorted {
		if bin.Low < 0 || bin.High > 1 || bin.Low >= bin.High {
			return domain.NewCatalogError("calibration_bins",
				fmt.Errorf("bin [%g, %g] invalid", bin.Low, bin.High))
		}
		if bin.Calibrated < 0 || bin.Calibrated > 1 {
			return domain.NewCatalogError("calibration_bins",
				fmt.Errorf("bin [%g, %g] calibrated value %g out of [0,1]", bin.Low, bin.High, bin.Calibrated))
		}
		if bin.Low > prevHigh+weightTolerance {
			return domain.NewCatalogError("calibration_bins",
				fmt.Errorf("gap before bin [%g, %g]", bin.Low, bin.High))
		}
		if bin.Calibrated < prevCal {
			return domain.NewCatalogError("calibration_bins",
				fmt.Errorf("bin [%g, %g] breaks monotonicity", bin.Low, bin.High))
		}
		prevHigh = bin.High
		prevCal = bin.Calibrated
	}
	if prevHigh < 1.0-weightTolerance {
		return domain.NewCatalogError("calibration_bins",
			fmt.Errorf("bins do not cover scores up to 1 (last high %g)", prevHigh))
	}
	return nil
}

func ruleKey(gene string, phen domain.Phenotype, drug string) string {
	return gene + "|" + string(phen) + "|" + strings.ToUpper(drug)
}

func pairKey(gene, drug string) string {
	return gene + "|" + strings.ToUpper(drug)
}

// DiplotypeKey renders the catalog key for an allele pair.
func DiplotypeKey(a1, a2 string) string {
	return a1 + "|" + a2
}

// Version returns the catalog version string, echoed in every result.
func (c *Catalog) Version() string {
	return c.version
}

// TargetGenes returns the pharmacogenes covered by this catalog.
func (c *Catalog) TargetGenes() []string {
	return append([]string(nil), c.targetGenes...)
}

// IsTargetGene reports whether the gene is covered by the catalog.
func (c *Catalog) IsTargetGene(gene string) bool {
	for _, g := range c.targetGenes {
		if g == gene {
			return true
		}
	}
	return false
}

// DefaultAllele returns the wild-type star allele (typically *1).
func (c *Catalog) DefaultAllele() string {
	return c.defaultAllele
}

// WildTypeDiplotype returns the default homozygous wild-type pair for
// a gene with no retained variants.
func (c *Catalog) WildTypeDiplotype(gene string) domain.Diplotype {
	return domain.Diplotype{Gene: gene, Allele1: c.defaultAllele, Allele2: c.defaultAllele}
}

// NormalizeDrug resolves brand names and variations to the canonical
// drug name: exact alias, then supported name, then substring alias
// match, otherwise the uppercased input unchanged.
func (c *Catalog) NormalizeDrug(name string) string {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if canonical, ok := c.drugAliases[upper]; ok {
		return canonical
	}
	if _, ok := c.supportedDrugs[upper]; ok {
		return upper
	}
	for alias, canonical := range c.drugAliases {
		if strings.Contains(upper, alias) || strings.Contains(alias, upper) {
			return canonical
		}
	}
	return upper
}

// PrimaryGene resolves the primary metabolizing gene for a drug.
func (c *Catalog) PrimaryGene(drug string) (string, bool) {
	gene, ok := c.supportedDrugs[c.NormalizeDrug(drug)]
	return gene, ok
}

// SupportedDrugs lists all canonical drug names, sorted.
func (c *Catalog) SupportedDrugs() []string {
	drugs := make([]string, 0, len(c.supportedDrugs))
	for d := range c.supportedDrugs {
		drugs = append(drugs, d)
	}
	sort.Strings(drugs)
	return drugs
}

// LookupAllele resolves an rsID to its star-allele mapping.
func (c *Catalog) LookupAllele(rsid string) (AlleleMapping, bool) {
	m, ok := c.variantTable[rsid]
	return m, ok
}

// DiplotypePhenotype looks up the curated phenotype for an allele
// pair, trying both orderings.
func (c *Catalog) DiplotypePhenotype(gene, a1, a2 string) (domain.Phenotype, bool) {
	table, ok := c.diplotypePhenotypes[gene]
	if !ok {
		return domain.PhenotypeUnknown, false
	}
	if p, ok := table[DiplotypeKey(a1, a2)]; ok {
		return p, true
	}
	if p, ok := table[DiplotypeKey(a2, a1)]; ok {
		return p, true
	}
	return domain.PhenotypeUnknown, false
}

// ActivityModelFor returns the activity-score model for a gene.
func (c *Catalog) ActivityModelFor(gene string) (ActivityModel, bool) {
	m, ok := c.activity[gene]
	return m, ok
}

// RuleFor looks up the risk rule for an exact (gene, phenotype, drug)
// combination.
func (c *Catalog) RuleFor(gene string, phen domain.Phenotype, drug string) (domain.RiskRule, bool) {
	r, ok := c.riskRules[ruleKey(gene, phen, c.NormalizeDrug(drug))]
	return r, ok
}

// Annotation returns the dynamic evidence annotation for a (gene,
// drug) pair, if present.
func (c *Catalog) Annotation(gene, drug string) (domain.EvidenceAnnotation, bool) {
	ann, ok := c.annotations[pairKey(gene, c.NormalizeDrug(drug))]
	return ann, ok
}

// CuratedCitation returns the curated CPIC citation for a (gene, drug)
// pair, keyed GENE_DRUG.
func (c *Catalog) CuratedCitation(gene, drug string) (domain.Citation, bool) {
	cit, ok := c.citations[gene+"_"+c.NormalizeDrug(drug)]
	return cit, ok
}

// EvidenceRangeFor returns the confidence range for an evidence tier.
func (c *Catalog) EvidenceRangeFor(tier string) (EvidenceRange, bool) {
	r, ok := c.evidence[strings.ToUpper(tier)]
	return r, ok
}

// InhibitorStrengthFor resolves a medication's inhibitor strength
// against a gene. Unrecognized names resolve to StrengthNone.
func (c *Catalog) InhibitorStrengthFor(gene, medication string) domain.InhibitorStrength {
	table, ok := c.inhibitors[gene]
	if !ok {
		return domain.StrengthNone
	}
	if s, ok := table[strings.ToLower(strings.TrimSpace(medication))]; ok {
		return s
	}
	return domain.StrengthNone
}

// HasInhibitorTable reports whether phenoconversion is supported for
// the gene.
func (c *Catalog) HasInhibitorTable(gene string) bool {
	_, ok := c.inhibitors[gene]
	return ok
}

// Downgrade applies the deterministic phenotype transition for an
// inhibitor strength. Weak and none never shift; Unknown is never
// shifted.
func (c *Catalog) Downgrade(strength domain.InhibitorStrength, from domain.Phenotype) domain.Phenotype {
	table, ok := c.downgrade[strength]
	if !ok {
		return from
	}
	if to, ok := table[from]; ok {
		return to
	}
	return from
}

// Penalty returns the confidence penalty for an inhibitor strength.
func (c *Catalog) Penalty(strength domain.InhibitorStrength) float64 {
	return c.penalties[strength]
}

// Weights returns the confidence component weights.
func (c *Catalog) Weights() ConfidenceWeights {
	return c.weights
}

// FallbackCap returns the hard cap applied to the raw score when no
// rule matched.
func (c *Catalog) FallbackCap() float64 {
	return c.fallbackCap
}

// CalibrationBins returns the ordered calibration map; empty means
// identity calibration.
func (c *Catalog) CalibrationBins() []CalibrationBin {
	return append([]CalibrationBin(nil), c.calibration...)
}

package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Variant represents a single quality-filtered variant call retained
// from the input. Only records with quality at or above the configured
// threshold and a classifiable genotype are represented as Variant.
type Variant struct {
	Chromosome string  `json:"chromosome"`
	Position   int64   `json:"position"`
	RSID       string  `json:"rsid"`
	Reference  string  `json:"reference"`
	Alternate  string  `json:"alternate"`
	Quality    float64 `json:"quality"`
	Genotype   string  `json:"genotype"`

	// Annotation resolved from the catalog's variant table or the
	// INFO column.
	Gene       string `json:"gene,omitempty"`
	StarAllele string `json:"star_allele,omitempty"`
	Function   string `json:"function,omitempty"`
}

// IsReferenceCall reports whether the variant is a homozygous
// reference call (0/0). Reference calls inform diplotype defaulting
// but must never surface as actionable findings.
func (v *Variant) IsReferenceCall() bool {
	_, ref, err := ParseGenotype(v.Genotype)
	return err == nil && ref
}

// Zygosity returns the zygosity of the call, defaulting to
// heterozygous when the genotype is malformed (filter guarantees this
// does not happen for retained variants).
func (v *Variant) Zygosity() Zygosity {
	z, _, err := ParseGenotype(v.Genotype)
	if err != nil {
		return Heterozygous
	}
	return z
}

// Diplotype is the ordered pair of star alleles carried for a gene.
// Exactly one diplotype exists per gene per analysis; genes with no
// retained variant carry the wild-type pair.
type Diplotype struct {
	Gene    string `json:"gene"`
	Allele1 string `json:"allele1"`
	Allele2 string `json:"allele2"`
}

// String renders the conventional slash notation, e.g. "*4/*4".
func (d Diplotype) String() string {
	return d.Allele1 + "/" + d.Allele2
}

// ParseDiplotype splits slash notation into an ordered allele pair.
// Malformed input falls back to the wild-type pair.
func ParseDiplotype(gene, s string) Diplotype {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return Diplotype{Gene: gene, Allele1: "*1", Allele2: "*1"}
	}
	a1 := strings.TrimSpace(parts[0])
	a2 := strings.TrimSpace(parts[1])
	if a1 != "" && !strings.HasPrefix(a1, "*") && !strings.Contains(a1, ".") {
		a1 = "*" + a1
	}
	if a2 != "" && !strings.HasPrefix(a2, "*") && !strings.Contains(a2, ".") {
		a2 = "*" + a2
	}
	if a1 == "" {
		a1 = "*1"
	}
	if a2 == "" {
		a2 = "*1"
	}
	return Diplotype{Gene: gene, Allele1: a1, Allele2: a2}
}

// DetectedVariant is an actionable, non-reference variant finding for
// a gene. Reference genotype calls (0/0) and the reference star allele
// (*1) never produce a DetectedVariant.
type DetectedVariant struct {
	RSID                 string   `json:"rsid"`
	Gene                 string   `json:"gene"`
	StarAllele           string   `json:"star_allele"`
	Zygosity             Zygosity `json:"zygosity"`
	Function             string   `json:"function,omitempty"`
	ClinicalSignificance string   `json:"clinical_significance,omitempty"`
}

// ConcurrentMedication is a concurrently taken drug with its resolved
// inhibitor strength for a specific gene.
type ConcurrentMedication struct {
	Name     string            `json:"drug"`
	Strength InhibitorStrength `json:"strength"`
}

// PhenoconversionResult records a drug-interaction phenotype shift.
// Computed once per (gene, medication list), immutable afterwards.
type PhenoconversionResult struct {
	Gene                string                 `json:"gene"`
	Detected            bool                   `json:"phenoconversion_risk"`
	GeneticPhenotype    Phenotype              `json:"genetic_phenotype"`
	FunctionalPhenotype Phenotype              `json:"functional_phenotype"`
	Strength            InhibitorStrength      `json:"strength"`
	CausedBy            []ConcurrentMedication `json:"caused_by"`
	ConfidencePenalty   float64                `json:"confidence_penalty"`
	ClinicalNote        string                 `json:"clinical_note"`
}

// Citation holds guideline citation metadata for an evidence entry.
type Citation struct {
	Guideline string `json:"guideline"`
	Authors   string `json:"authors,omitempty"`
	Year      int    `json:"year,omitempty"`
	PMID      string `json:"pmid,omitempty"`
	DOI       string `json:"doi,omitempty"`
}

// Reference renders a formatted citation string, or "" when the entry
// carries no verifiable publication data. A fabricated citation is a
// defect; absence is represented, never invented.
func (c Citation) Reference() string {
	if c.Authors == "" || c.Year == 0 || c.PMID == "" {
		return ""
	}
	return fmt.Sprintf("%s (%d). PMID: %s", c.Authors, c.Year, c.PMID)
}

// EvidenceAnnotation is the resolved evidence record for a (gene,
// drug) pair. OnFile is false for the explicit "no evidence on file"
// sentinel.
type EvidenceAnnotation struct {
	Gene                 string   `json:"gene"`
	Drug                 string   `json:"drug"`
	Level                string   `json:"evidence_level"`
	ClinicalSignificance string   `json:"clinical_significance,omitempty"`
	FDARequirement       string   `json:"fda_requirement"`
	Citation             Citation `json:"citation"`
	Source               string   `json:"source"`
	OnFile               bool     `json:"on_file"`
}

// RiskRule is one curated (gene, phenotype, drug) risk rule.
// Exhaustively typed so missing fields are caught at catalog load, not
// at lookup time.
type RiskRule struct {
	Gene         string    `json:"gene"`
	Drug         string    `json:"drug"`
	Phenotype    Phenotype `json:"phenotype"`
	Label        RiskLabel `json:"risk_label"`
	Severity     Severity  `json:"severity"`
	Action       string    `json:"action"`
	Alternatives []string  `json:"alternatives"`
}

// Validate ensures the rule is complete and uses only vocabulary
// values. Called for every row at catalog load.
func (r *RiskRule) Validate() error {
	if r.Gene == "" {
		return fmt.Errorf("risk rule validation: %w", errors.New("gene is required"))
	}
	if r.Drug == "" {
		return fmt.Errorf("risk rule validation: %w", errors.New("drug is required"))
	}
	if !r.Phenotype.IsValid() {
		return fmt.Errorf("risk rule validation (%s/%s): %w", r.Gene, r.Drug, ErrInvalidPhenotype)
	}
	if !r.Label.IsValid() {
		return fmt.Errorf("risk rule validation (%s/%s): %w", r.Gene, r.Drug, ErrInvalidRiskLabel)
	}
	if !r.Severity.IsValid() {
		return fmt.Errorf("risk rule validation (%s/%s): %w", r.Gene, r.Drug, ErrInvalidSeverity)
	}
	if r.Action == "" {
		return fmt.Errorf("risk rule validation (%s/%s): %w", r.Gene, r.Drug, errors.New("action is required"))
	}
	return nil
}

// ConfidenceComponents are the four bounded inputs to the confidence
// score. Each component is within [0,1].
type ConfidenceComponents struct {
	Evidence     float64 `json:"evidence"`
	Genotype     float64 `json:"genotype"`
	Phenotype    float64 `json:"phenotype"`
	RuleCoverage float64 `json:"rule_coverage"`
}

// Validate checks the [0,1] bound on every component.
func (c ConfidenceComponents) Validate() error {
	for name, v := range map[string]float64{
		"evidence":      c.Evidence,
		"genotype":      c.Genotype,
		"phenotype":     c.Phenotype,
		"rule_coverage": c.RuleCoverage,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("confidence component %s out of range: %g", name, v)
		}
	}
	return nil
}

// RiskAssessment is the risk verdict with its calibrated confidence.
type RiskAssessment struct {
	Label         RiskLabel `json:"risk_label"`
	Severity      Severity  `json:"severity"`
	Confidence    float64   `json:"confidence_score"`
	RawConfidence float64   `json:"raw_confidence"`
}

// PharmacogenomicProfile is the per-gene genetic summary attached to a
// result.
type PharmacogenomicProfile struct {
	PrimaryGene      string            `json:"primary_gene"`
	Diplotype        string            `json:"diplotype"`
	Phenotype        Phenotype         `json:"phenotype"`
	ActivityScore    *float64          `json:"activity_score,omitempty"`
	DetectedVariants []DetectedVariant `json:"detected_variants"`
}

// ClinicalRecommendation carries the actionable guidance for a
// verdict.
type ClinicalRecommendation struct {
	Guideline        string   `json:"guideline"`
	Action           string   `json:"action"`
	AlternativeDrugs []string `json:"alternative_drugs"`
	Monitoring       string   `json:"monitoring,omitempty"`
	EvidenceLevel    string   `json:"evidence_level"`
	FDARequirement   string   `json:"fda_requirement"`
	Reference        string   `json:"reference,omitempty"`
}

// QualityMetrics summarizes input and analysis quality for a result.
type QualityMetrics struct {
	ParsingSuccess         bool            `json:"parsing_success"`
	InputQualityScore      float64         `json:"input_quality_score"`
	VariantsAnalyzed       int             `json:"variants_analyzed"`
	RecordsSkipped         int             `json:"records_skipped"`
	AnnotationCompleteness float64         `json:"annotation_completeness"`
	ConfidenceLevel        ConfidenceLevel `json:"confidence_level"`
	CatalogVersion         string          `json:"catalog_version"`
}

// TraceStep is one audited stage transition of the pipeline.
type TraceStep struct {
	Stage  string `json:"stage"`
	Input  string `json:"input"`
	Output string `json:"output"`
	Source string `json:"source"`
}

// DecisionTrace is the ordered, append-only audit log built alongside
// a pipeline run. It is an accumulator value threaded through stages,
// never global mutable state.
type DecisionTrace struct {
	Steps []TraceStep `json:"steps"`
}

// Add appends a stage record to the trace.
func (t *DecisionTrace) Add(stage, input, output, source string) {
	t.Steps = append(t.Steps, TraceStep{Stage: stage, Input: input, Output: output, Source: source})
}

// AnalysisResult is the complete per (patient, drug) output.
// Immutable once returned.
type AnalysisResult struct {
	PatientID        string                 `json:"patient_id"`
	Drug             string                 `json:"drug"`
	Timestamp        string                 `json:"timestamp"`
	RiskAssessment   RiskAssessment         `json:"risk_assessment"`
	Profile          PharmacogenomicProfile `json:"pharmacogenomic_profile"`
	Recommendation   ClinicalRecommendation `json:"clinical_recommendation"`
	Evidence         EvidenceAnnotation     `json:"evidence"`
	Phenoconversion  *PhenoconversionResult `json:"phenoconversion,omitempty"`
	QualityMetrics   QualityMetrics         `json:"quality_metrics"`
	Confidence       ConfidenceComponents   `json:"confidence_components"`
	RuleCovered      bool                   `json:"rule_covered"`
	Trace            *DecisionTrace         `json:"decision_trace,omitempty"`
}

// IsHighRisk reports whether the result marks the patient as high risk
// (actionable label or high/critical severity).
func (r *AnalysisResult) IsHighRisk() bool {
	return r.RiskAssessment.Label.IsActionable() || r.RiskAssessment.Severity.IsHighRisk()
}

// CohortSummary is the batch-level aggregate over many results.
type CohortSummary struct {
	CohortSize       int                          `json:"cohort_size"`
	RiskMatrix       map[string]map[RiskLabel]int `json:"risk_matrix"`
	HighRiskCount    int                          `json:"high_risk_count"`
	HighRiskPatients []string                     `json:"high_risk_patients"`
	Alert            string                       `json:"alert"`
}

// Timestamp format used across results; RFC3339 UTC with the Z suffix
// the downstream consumers expect.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

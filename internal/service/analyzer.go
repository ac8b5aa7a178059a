package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-engine/internal/catalog"
	"github.com/pharmaguard/pgx-engine/internal/domain"
)

// AnalysisRequest is one patient's input to the pipeline.
type AnalysisRequest struct {
	PatientID   string
	VCF         string
	Drugs       []string
	Medications []string
}

// DrugError pairs a requested drug with its per-drug failure. Batch
// analysis reports these instead of failing the whole request.
type DrugError struct {
	Drug string
	Err  error
}

// AnalyzerOptions tune pipeline behavior.
type AnalyzerOptions struct {
	MinQuality        float64
	EvidenceCacheSize int
	TraceEnabled      bool

	// Now overrides the timestamp source. Nil means time.Now.
	Now func() time.Time
}

// Analyzer runs the full risk inference pipeline for a patient:
// variant filtering, diplotype assembly, phenotype calling,
// phenoconversion, evidence resolution, rule matching, confidence
// scoring and calibration. All stage decisions come from the catalog,
// so identical inputs against the same catalog produce identical
// results except for the timestamp.
type Analyzer struct {
	logger  *logrus.Logger
	catalog *catalog.Catalog

	parser     *VCFParser
	assembler  *DiplotypeAssembler
	phenotyper *PhenotypeCaller
	detector   *PhenoconversionDetector
	evidence   *EvidenceResolver
	matcher    *RiskMatcher
	scorer     *ConfidenceScorer
	calibrator *Calibrator

	traceEnabled bool
	now          func() time.Time
}

// NewAnalyzer wires the pipeline stages against one catalog.
func NewAnalyzer(cat *catalog.Catalog, opts AnalyzerOptions, logger *logrus.Logger) (*Analyzer, error) {
	resolver, err := NewEvidenceResolver(cat, opts.EvidenceCacheSize, logger)
	if err != nil {
		return nil, fmt.Errorf("create evidence resolver: %w", err)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Analyzer{
		logger:       logger,
		catalog:      cat,
		parser:       NewVCFParser(cat, opts.MinQuality, logger),
		assembler:    NewDiplotypeAssembler(cat, logger),
		phenotyper:   NewPhenotypeCaller(cat, logger),
		detector:     NewPhenoconversionDetector(cat, logger),
		evidence:     resolver,
		matcher:      NewRiskMatcher(cat, logger),
		scorer:       NewConfidenceScorer(cat, logger),
		calibrator:   NewCalibrator(cat, logger),
		traceEnabled: opts.TraceEnabled,
		now:          now,
	}, nil
}

// AnalyzeBatch analyzes every requested drug. The VCF is parsed once;
// a failing drug is reported as a DrugError without aborting the rest.
// Result order follows request order; drugs resolving to the same
// canonical name are analyzed once.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, req AnalysisRequest) ([]*domain.AnalysisResult, []DrugError) {
	patientID := req.PatientID
	if patientID == "" {
		patientID = uuid.NewString()
	}

	parsed, err := a.parser.Parse(req.VCF)
	if err != nil {
		errs := make([]DrugError, 0, len(req.Drugs))
		for _, drug := range req.Drugs {
			errs = append(errs, DrugError{Drug: drug, Err: err})
		}
		return nil, errs
	}

	var results []*domain.AnalysisResult
	var errs []DrugError
	seen := map[string]bool{}
	for _, drug := range req.Drugs {
		canonical := a.catalog.NormalizeDrug(drug)
		if seen[canonical] {
			continue
		}
		seen[canonical] = true

		select {
		case <-ctx.Done():
			errs = append(errs, DrugError{Drug: drug, Err: ctx.Err()})
			continue
		default:
		}

		result, err := a.analyzeParsed(patientID, drug, req.Medications, parsed)
		if err != nil {
			errs = append(errs, DrugError{Drug: drug, Err: err})
			continue
		}
		results = append(results, result)
	}
	return results, errs
}

// AnalyzeDrug analyzes a single drug for a patient.
func (a *Analyzer) AnalyzeDrug(ctx context.Context, req AnalysisRequest, drug string) (*domain.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	patientID := req.PatientID
	if patientID == "" {
		patientID = uuid.NewString()
	}
	parsed, err := a.parser.Parse(req.VCF)
	if err != nil {
		return nil, err
	}
	return a.analyzeParsed(patientID, drug, req.Medications, parsed)
}

func (a *Analyzer) analyzeParsed(patientID, drug string, medications []string, parsed *ParseResult) (*domain.AnalysisResult, error) {
	canonical := a.catalog.NormalizeDrug(drug)
	gene, ok := a.catalog.PrimaryGene(canonical)
	if !ok {
		return nil, fmt.Errorf("analyze %s: %w", drug, domain.ErrUnsupportedDrug)
	}

	trace := &domain.DecisionTrace{}
	trace.Add("drug_normalization", drug, canonical, "drug_aliases")
	trace.Add("variant_filtering",
		fmt.Sprintf("%d records", parsed.TotalRecords),
		fmt.Sprintf("%d retained, %d skipped", len(parsed.Variants), parsed.Skipped),
		"quality_filter")

	diplotype := a.assembler.Assemble(gene, parsed.Variants)
	detected := a.assembler.DetectedVariants(gene, parsed.Variants)
	trace.Add("diplotype_assembly", gene, diplotype.String(), "variant_table")

	call := a.phenotyper.Call(diplotype)
	trace.Add("phenotype_mapping", diplotype.String(), call.Phenotype.String(), call.Source)

	pheno := a.detector.Evaluate(gene, call.Phenotype, medications)
	trace.Add("phenoconversion",
		call.Phenotype.String(),
		pheno.FunctionalPhenotype.String(),
		string(pheno.Strength)+"_inhibitor")

	evidence := a.evidence.Resolve(gene, canonical)
	trace.Add("evidence_resolution", gene+"/"+canonical, evidenceLevelLabel(evidence), evidence.Source)

	// Risk matching consumes the functional phenotype: the shifted
	// class, not the genetic one, decides the verdict.
	rule, covered := a.matcher.Match(gene, pheno.FunctionalPhenotype, canonical)
	trace.Add("risk_rule_match",
		fmt.Sprintf("%s/%s/%s", gene, pheno.FunctionalPhenotype, canonical),
		rule.Label.String(),
		ruleSource(covered))

	components, raw := a.scorer.Score(ScoreInputs{
		Diplotype:              diplotype,
		Detected:               detected,
		AnnotationCompleteness: AnnotationCompleteness(parsed.Variants),
		PhenotypeCall:          call,
		Evidence:               evidence,
		RuleCovered:            covered,
		Phenoconversion:        pheno,
	})
	calibrated := a.calibrator.Calibrate(raw)
	trace.Add("confidence_calibration",
		fmt.Sprintf("%.4f", raw),
		fmt.Sprintf("%.4f", calibrated),
		"calibration_bins")

	result := &domain.AnalysisResult{
		PatientID: patientID,
		Drug:      canonical,
		Timestamp: domain.FormatTimestamp(a.now()),
		RiskAssessment: domain.RiskAssessment{
			Label:         rule.Label,
			Severity:      rule.Severity,
			Confidence:    calibrated,
			RawConfidence: raw,
		},
		Profile: domain.PharmacogenomicProfile{
			PrimaryGene:      gene,
			Diplotype:        diplotype.String(),
			Phenotype:        call.Phenotype,
			ActivityScore:    call.ActivityScore,
			DetectedVariants: detected,
		},
		Recommendation: a.recommendation(rule, evidence),
		Evidence:       evidence,
		QualityMetrics: domain.QualityMetrics{
			ParsingSuccess:         parsed.ParsingSuccess,
			InputQualityScore:      QualityScore(parsed.Variants),
			VariantsAnalyzed:       len(parsed.Variants),
			RecordsSkipped:         parsed.Skipped,
			AnnotationCompleteness: AnnotationCompleteness(parsed.Variants),
			ConfidenceLevel:        domain.ConfidenceLevelFor(calibrated),
			CatalogVersion:         a.catalog.Version(),
		},
		Confidence:  components,
		RuleCovered: covered,
	}
	if pheno.Strength != domain.StrengthNone || pheno.Detected {
		result.Phenoconversion = &pheno
	}
	if a.traceEnabled {
		result.Trace = trace
	}

	a.logger.WithFields(logrus.Fields{
		"patient_id": patientID,
		"drug":       canonical,
		"gene":       gene,
		"diplotype":  diplotype.String(),
		"phenotype":  pheno.FunctionalPhenotype.String(),
		"risk_label": rule.Label.String(),
		"confidence": calibrated,
	}).Info("Completed drug risk analysis")

	return result, nil
}

// recommendation assembles the clinical guidance block from the
// matched rule and the resolved evidence.
func (a *Analyzer) recommendation(rule domain.RiskRule, evidence domain.EvidenceAnnotation) domain.ClinicalRecommendation {
	rec := domain.ClinicalRecommendation{
		Guideline:        evidence.Citation.Guideline,
		Action:           rule.Action,
		AlternativeDrugs: rule.Alternatives,
		Monitoring:       monitoringFor(rule.Severity),
		EvidenceLevel:    evidenceLevelLabel(evidence),
		FDARequirement:   evidence.FDARequirement,
		Reference:        evidence.Citation.Reference(),
	}
	if rec.Guideline == "" {
		rec.Guideline = "No guideline on file"
	}
	return rec
}

func monitoringFor(severity domain.Severity) string {
	switch severity {
	case domain.SeverityCritical:
		return "Close clinical monitoring required. Review therapy before first dose."
	case domain.SeverityHigh:
		return "Enhanced monitoring recommended during dose titration."
	case domain.SeverityModerate:
		return "Monitor response and adverse effects at standard intervals."
	default:
		return "Standard monitoring."
	}
}

func evidenceLevelLabel(ann domain.EvidenceAnnotation) string {
	if !ann.OnFile || ann.Level == "" {
		return "No evidence on file"
	}
	return strings.ToUpper(ann.Level)
}

func ruleSource(covered bool) string {
	if covered {
		return "risk_rules"
	}
	return "fallback"
}

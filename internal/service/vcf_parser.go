package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-engine/internal/catalog"
	"github.com/pharmaguard/pgx-engine/internal/domain"
)

// DefaultMinQuality is the quality threshold below which variant
// records are dropped.
const DefaultMinQuality = 20.0

// VCFParser extracts quality-filtered, annotated variants from VCF 4.x
// text. Malformed records are skipped and counted, never fatal; only a
// wholly unparseable input is rejected.
type VCFParser struct {
	logger     *logrus.Logger
	catalog    *catalog.Catalog
	minQuality float64
}

// ParseResult is the outcome of parsing one VCF document.
type ParseResult struct {
	Variants []domain.Variant

	// TotalRecords counts data lines seen, Skipped those dropped for
	// malformation or quality.
	TotalRecords int
	Skipped      int

	// ParsingSuccess is false when every data line was dropped (or
	// none existed). The analysis still proceeds on wild-type
	// defaults; the flag surfaces in quality metrics.
	ParsingSuccess bool
}

// NewVCFParser creates a VCF parser bound to a catalog for star-allele
// annotation. A non-positive minQuality falls back to the default
// threshold.
func NewVCFParser(cat *catalog.Catalog, minQuality float64, logger *logrus.Logger) *VCFParser {
	if minQuality <= 0 {
		minQuality = DefaultMinQuality
	}
	return &VCFParser{
		logger:     logger,
		catalog:    cat,
		minQuality: minQuality,
	}
}

// Parse extracts variants from VCF content. Only a blank input is
// rejected; content whose every record is malformed still returns a
// well-formed empty result with ParsingSuccess false so the analysis
// can proceed on wild-type defaults.
func (p *VCFParser) Parse(content string) (*ParseResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("parse vcf: %w", domain.ErrEmptyInput)
	}

	result := &ParseResult{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		result.TotalRecords++

		variant, ok := p.parseLine(line)
		if !ok {
			result.Skipped++
			continue
		}
		if variant.Quality < p.minQuality {
			result.Skipped++
			continue
		}
		result.Variants = append(result.Variants, variant)
	}

	result.ParsingSuccess = result.TotalRecords > 0 && result.Skipped < result.TotalRecords

	p.logger.WithFields(logrus.Fields{
		"total_records": result.TotalRecords,
		"retained":      len(result.Variants),
		"skipped":       result.Skipped,
		"min_quality":   p.minQuality,
	}).Debug("Parsed VCF input")

	return result, nil
}

// parseLine parses one tab-separated VCF data line. The columns are
// CHROM POS ID REF ALT QUAL FILTER INFO [FORMAT SAMPLE].
func (p *VCFParser) parseLine(line string) (domain.Variant, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return domain.Variant{}, false
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return domain.Variant{}, false
	}
	qual, err := strconv.ParseFloat(fields[5], 64)
	if err != nil {
		return domain.Variant{}, false
	}

	info := parseInfo(fields[7])
	genotype := extractGenotype(fields)
	if _, _, err := domain.ParseGenotype(genotype); err != nil {
		return domain.Variant{}, false
	}

	v := domain.Variant{
		Chromosome: fields[0],
		Position:   pos,
		RSID:       fields[2],
		Reference:  fields[3],
		Alternate:  fields[4],
		Quality:    qual,
		Genotype:   genotype,
		Gene:       info["GENE"],
		StarAllele: info["STAR"],
	}
	p.annotate(&v)
	return v, true
}

// annotate fills gene, star allele and functional annotation from the
// catalog's variant table. INFO-column annotations win when present.
func (p *VCFParser) annotate(v *domain.Variant) {
	mapping, ok := p.catalog.LookupAllele(v.RSID)
	if !ok {
		return
	}
	if v.Gene == "" {
		v.Gene = mapping.Gene
	}
	if v.StarAllele == "" {
		v.StarAllele = mapping.StarAllele
	}
	v.Function = mapping.Function
}

func parseInfo(raw string) map[string]string {
	info := map[string]string{}
	for _, part := range strings.Split(raw, ";") {
		if kv := strings.SplitN(part, "=", 2); len(kv) == 2 {
			info[strings.ToUpper(kv[0])] = kv[1]
		}
	}
	return info
}

// extractGenotype pulls GT from the FORMAT/SAMPLE columns. Records
// without a genotype column default to heterozygous.
func extractGenotype(fields []string) string {
	if len(fields) < 10 {
		return "0/1"
	}
	keys := strings.Split(fields[8], ":")
	values := strings.Split(fields[9], ":")
	for i, key := range keys {
		if key == "GT" && i < len(values) {
			return values[i]
		}
	}
	return "0/1"
}

// QualityScore summarizes input quality on a 0-100 scale from the mean
// variant quality and the annotation rate of the retained variants.
func QualityScore(variants []domain.Variant) float64 {
	if len(variants) == 0 {
		return 0
	}
	var sum float64
	for _, v := range variants {
		sum += v.Quality
	}
	avg := sum / float64(len(variants))
	if avg > 100 {
		avg = 100
	}
	return 0.7*avg + 30*AnnotationCompleteness(variants)
}

// AnnotationCompleteness is the fraction of retained variants that
// resolved to a star allele.
func AnnotationCompleteness(variants []domain.Variant) float64 {
	if len(variants) == 0 {
		return 0
	}
	annotated := 0
	for _, v := range variants {
		if v.StarAllele != "" {
			annotated++
		}
	}
	return float64(annotated) / float64(len(variants))
}

// Package main provides the command-line entry point for the
// pharmacogenomic risk analyzer. It reads one or more patient VCF
// files, analyzes the requested drugs against the rule catalog and
// writes the results (and a cohort summary for multiple patients) as
// JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-engine/internal/audit"
	"github.com/pharmaguard/pgx-engine/internal/catalog"
	"github.com/pharmaguard/pgx-engine/internal/config"
	"github.com/pharmaguard/pgx-engine/internal/domain"
	"github.com/pharmaguard/pgx-engine/internal/service"
)

type output struct {
	Results []*domain.AnalysisResult `json:"results"`
	Errors  []drugFailure            `json:"errors,omitempty"`
	Cohort  *domain.CohortSummary    `json:"cohort_summary,omitempty"`
}

type drugFailure struct {
	PatientID string `json:"patient_id"`
	Drug      string `json:"drug"`
	Error     string `json:"error"`
}

func main() {
	var (
		drugsFlag   = flag.String("drugs", "", "comma-separated drugs to analyze (required)")
		medsFlag    = flag.String("meds", "", "comma-separated concurrent medications")
		patientFlag = flag.String("patient", "", "patient identifier (single VCF only; generated when empty)")
		catalogFlag = flag.String("catalog", "", "path to a catalog JSON file (built-in catalog when empty)")
		auditFlag   = flag.String("audit-db", "", "path to the audit database (audit disabled when empty)")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] patient.vcf [more.vcf ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	vcfPaths := flag.Args()
	if len(vcfPaths) == 0 || *drugsFlag == "" {
		flag.Usage()
		os.Exit(2)
	}

	manager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := manager.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	cfg := manager.GetConfig()

	logger := newLogger(cfg.Logging)

	catalogPath := *catalogFlag
	if catalogPath == "" {
		catalogPath = cfg.Catalog.Path
	}
	cat := catalog.Default()
	if catalogPath != "" {
		cat, err = catalog.Load(catalogPath, logger)
		if err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
	}

	analyzer, err := service.NewAnalyzer(cat, service.AnalyzerOptions{
		MinQuality:        cfg.Pipeline.MinQuality,
		EvidenceCacheSize: cfg.Cache.EvidenceEntries,
		TraceEnabled:      cfg.Pipeline.TraceEnabled,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create analyzer: %v", err)
	}

	auditPath := *auditFlag
	if auditPath == "" && cfg.Audit.Enabled {
		auditPath = cfg.Audit.DBPath
	}
	var store *audit.SQLiteStore
	if auditPath != "" {
		store, err = audit.NewSQLiteStore(auditPath)
		if err != nil {
			log.Fatalf("Failed to open audit store: %v", err)
		}
		defer store.Close()
	}

	drugs := splitList(*drugsFlag)
	meds := splitList(*medsFlag)
	if len(drugs) > cfg.Pipeline.MaxBatchDrugs {
		log.Fatalf("Too many drugs requested: %d (limit %d)", len(drugs), cfg.Pipeline.MaxBatchDrugs)
	}

	ctx := context.Background()
	out := output{}
	for _, path := range vcfPaths {
		content, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("Failed to read VCF %s: %v", path, err)
		}

		patientID := *patientFlag
		if patientID == "" || len(vcfPaths) > 1 {
			patientID = patientIDFromPath(path)
		}

		results, errs := analyzer.AnalyzeBatch(ctx, service.AnalysisRequest{
			PatientID:   patientID,
			VCF:         string(content),
			Drugs:       drugs,
			Medications: meds,
		})
		out.Results = append(out.Results, results...)
		for _, e := range errs {
			out.Errors = append(out.Errors, drugFailure{
				PatientID: patientID,
				Drug:      e.Drug,
				Error:     e.Err.Error(),
			})
		}
	}

	if store != nil {
		for _, result := range out.Results {
			if _, err := store.Save(ctx, result); err != nil {
				log.Fatalf("Failed to persist result: %v", err)
			}
		}
	}

	if len(vcfPaths) > 1 {
		flat := make([]domain.AnalysisResult, 0, len(out.Results))
		for _, r := range out.Results {
			flat = append(flat, *r)
		}
		summary := service.AggregateCohort(flat)
		out.Cohort = &summary
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}

	if len(out.Errors) > 0 {
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func patientIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

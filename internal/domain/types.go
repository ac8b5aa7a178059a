// Package domain contains core business entities and types for
// pharmacogenomic (PGx) risk inference following CPIC guidelines and
// PharmGKB clinical annotation levels.
//
// Reference: Relling & Klein (2011) CPIC: Clinical Pharmacogenetics
// Implementation Consortium of the Pharmacogenomics Research Network.
// Clin Pharmacol Ther. 89(3):464-7. doi: 10.1038/clpt.2010.279
package domain

import (
	"errors"
	"fmt"
)

// RiskLabel represents the per-drug risk verdict for a patient.
// These labels are the clinical output vocabulary of the risk engine
// and are never silently defaulted: combinations without a curated
// rule are reported as RiskUnknown.
type RiskLabel string

const (
	RiskSafe         RiskLabel = "Safe"
	RiskAdjustDosage RiskLabel = "Adjust Dosage"
	RiskToxic        RiskLabel = "Toxic"
	RiskIneffective  RiskLabel = "Ineffective"
	RiskUnknown      RiskLabel = "Unknown"
)

// Severity represents the clinical severity of a risk verdict.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Phenotype represents the functional metabolizer class for a gene.
// Unknown is an explicit sentinel for diplotypes absent from the
// activity tables; it is never substituted with a guessed class.
type Phenotype string

const (
	PM               Phenotype = "PM"  // Poor Metabolizer
	IM               Phenotype = "IM"  // Intermediate Metabolizer
	NM               Phenotype = "NM"  // Normal Metabolizer
	RM               Phenotype = "RM"  // Rapid Metabolizer
	URM              Phenotype = "URM" // Ultrarapid Metabolizer
	PhenotypeUnknown Phenotype = "Unknown"
)

// InhibitorStrength represents the enzyme-inhibition strength of a
// concurrent medication against a given gene. Unrecognized medications
// resolve to StrengthNone.
type InhibitorStrength string

const (
	StrengthStrong   InhibitorStrength = "strong"
	StrengthModerate InhibitorStrength = "moderate"
	StrengthWeak     InhibitorStrength = "weak"
	StrengthNone     InhibitorStrength = "none"
)

// Zygosity distinguishes homozygous from heterozygous variant calls.
type Zygosity string

const (
	Homozygous   Zygosity = "homozygous"
	Heterozygous Zygosity = "heterozygous"
)

// ConfidenceLevel buckets the calibrated confidence score for quality
// metrics reporting.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Validation errors for clinical data integrity
var (
	ErrInvalidRiskLabel = errors.New("invalid risk label")
	ErrInvalidSeverity  = errors.New("invalid severity")
	ErrInvalidPhenotype = errors.New("invalid phenotype")
	ErrInvalidStrength  = errors.New("invalid inhibitor strength")
	ErrInvalidZygosity  = errors.New("invalid zygosity")
)

// IsValid validates that the RiskLabel is part of the output vocabulary.
// Critical for medical software: only curated labels may reach
// clinical decision-making.
func (r RiskLabel) IsValid() bool {
	switch r {
	case RiskSafe, RiskAdjustDosage, RiskToxic, RiskIneffective, RiskUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk label.
func (r RiskLabel) String() string {
	return string(r)
}

// IsActionable reports whether the label requires clinical attention.
// Used by the cohort aggregator to flag high-risk patients.
func (r RiskLabel) IsActionable() bool {
	switch r {
	case RiskToxic, RiskIneffective:
		return true
	default:
		return false
	}
}

// LogFields returns structured logging fields for audit trails.
func (r RiskLabel) LogFields() map[string]any {
	return map[string]any{
		"risk_label": string(r),
		"actionable": r.IsActionable(),
		"is_valid":   r.IsValid(),
	}
}

// IsValid validates the severity level.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityNone, SeverityLow, SeverityModerate, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// Rank returns a numeric rank for severity comparison. Higher is more
// severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityNone:
		return 0
	case SeverityLow:
		return 1
	case SeverityModerate:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return -1
	}
}

// IsHighRisk reports whether the severity alone marks a patient as
// high risk for cohort alerting.
func (s Severity) IsHighRisk() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// IsValid validates the phenotype class.
func (p Phenotype) IsValid() bool {
	switch p {
	case PM, IM, NM, RM, URM, PhenotypeUnknown:
		return true
	default:
		return false
	}
}

// String returns the abbreviated phenotype.
func (p Phenotype) String() string {
	return string(p)
}

// Display returns the full metabolizer-class name for clinical
// reporting and patient communication.
func (p Phenotype) Display() string {
	switch p {
	case PM:
		return "Poor Metabolizer"
	case IM:
		return "Intermediate Metabolizer"
	case NM:
		return "Normal Metabolizer"
	case RM:
		return "Rapid Metabolizer"
	case URM:
		return "Ultrarapid Metabolizer"
	default:
		return "Unknown"
	}
}

// IsValid validates the inhibitor strength.
func (is InhibitorStrength) IsValid() bool {
	switch is {
	case StrengthStrong, StrengthModerate, StrengthWeak, StrengthNone:
		return true
	default:
		return false
	}
}

// String returns the string representation of the strength.
func (is InhibitorStrength) String() string {
	return string(is)
}

// Rank returns a numeric rank for strength comparison. Higher is a
// stronger inhibitor.
func (is InhibitorStrength) Rank() int {
	switch is {
	case StrengthNone:
		return 0
	case StrengthWeak:
		return 1
	case StrengthModerate:
		return 2
	case StrengthStrong:
		return 3
	default:
		return -1
	}
}

// Stronger reports whether is outranks other.
func (is InhibitorStrength) Stronger(other InhibitorStrength) bool {
	return is.Rank() > other.Rank()
}

// IsValid validates the zygosity.
func (z Zygosity) IsValid() bool {
	switch z {
	case Homozygous, Heterozygous:
		return true
	default:
		return false
	}
}

// IsValid validates the confidence level bucket.
func (cl ConfidenceLevel) IsValid() bool {
	switch cl {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	default:
		return false
	}
}

// ConfidenceLevelFor buckets a calibrated confidence score for quality
// metrics reporting.
func ConfidenceLevelFor(score float64) ConfidenceLevel {
	switch {
	case score >= 0.85:
		return ConfidenceHigh
	case score >= 0.70:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// AlleleImpact ranks the functional impact of a star allele from its
// functional annotation. Higher impact sorts first when assembling a
// diplotype pair.
func AlleleImpact(function string) int {
	switch function {
	case "No function":
		return 3
	case "Decreased function":
		return 2
	case "Increased function":
		return 1
	case "Normal function":
		return 0
	default:
		return 0
	}
}

// ParseGenotype classifies a VCF genotype field into zygosity and
// reference status. Phased separators are normalized to unphased.
// An error is returned for genotypes outside the diploid 0/1 index
// space; callers skip (not fail) such records.
func ParseGenotype(gt string) (zygosity Zygosity, isReference bool, err error) {
	switch gt {
	case "0/0", "0|0":
		return Homozygous, true, nil
	case "1/1", "1|1":
		return Homozygous, false, nil
	case "0/1", "1/0", "0|1", "1|0":
		return Heterozygous, false, nil
	default:
		return "", false, fmt.Errorf("parse genotype %q: %w", gt, ErrInvalidZygosity)
	}
}

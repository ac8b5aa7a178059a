package catalog

import (
	"fmt"

	"github.com/pharmaguard/pgx-engine/internal/domain"
)

// Default returns the curated built-in catalog, assembled from CPIC
// guidelines and PharmGKB clinical annotations. It is used when no
// external catalog file is supplied and as the test fixture baseline.
func Default() *Catalog {
	cat, err := Build(DefaultDocument())
	if err != nil {
		panic(fmt.Sprintf("built-in catalog invalid: %v", err))
	}
	return cat
}

// DefaultDocument returns the curated catalog document. Exposed so
// tests can copy and perturb individual sections.
func DefaultDocument() *Document {
	return &Document{
		Version:       "cpic-2024.1",
		TargetGenes:   []string{"CYP2D6", "CYP2C19", "CYP2C9", "SLCO1B1", "TPMT", "DPYD"},
		DefaultAllele: "*1",

		SupportedDrugs: map[string]string{
			"CODEINE":      "CYP2D6",
			"CLOPIDOGREL":  "CYP2C19",
			"WARFARIN":     "CYP2C9",
			"SIMVASTATIN":  "SLCO1B1",
			"AZATHIOPRINE": "TPMT",
			"FLUOROURACIL": "DPYD",
		},
		DrugAliases: map[string]string{
			"TYLENOL 3":             "CODEINE",
			"TYLENOL-3":             "CODEINE",
			"TYLENOL WITH CODEINE":  "CODEINE",
			"CODEINE PHOSPHATE":     "CODEINE",
			"CODEINE SULFATE":       "CODEINE",
			"PLAVIX":                "CLOPIDOGREL",
			"COUMADIN":              "WARFARIN",
			"JANTOVEN":              "WARFARIN",
			"ZOCOR":                 "SIMVASTATIN",
			"IMURAN":                "AZATHIOPRINE",
			"AZASAN":                "AZATHIOPRINE",
			"5-FU":                  "FLUOROURACIL",
			"5-FLUOROURACIL":        "FLUOROURACIL",
			"ADRUCIL":               "FLUOROURACIL",
			"EFUDEX":                "FLUOROURACIL",
			"CARAC":                 "FLUOROURACIL",
		},

		// rsID to star-allele mappings (PharmVar).
		VariantTable: map[string]AlleleMapping{
			"rs3892097":  {Gene: "CYP2D6", StarAllele: "*4", Function: "No function"},
			"rs35742686": {Gene: "CYP2D6", StarAllele: "*3", Function: "No function"},
			"rs5030655":  {Gene: "CYP2D6", StarAllele: "*6", Function: "No function"},
			"rs16947":    {Gene: "CYP2D6", StarAllele: "*2", Function: "Normal function"},
			"rs1065852":  {Gene: "CYP2D6", StarAllele: "*10", Function: "Decreased function"},
			"rs4244285":  {Gene: "CYP2C19", StarAllele: "*2", Function: "No function"},
			"rs4986893":  {Gene: "CYP2C19", StarAllele: "*3", Function: "No function"},
			"rs12248560": {Gene: "CYP2C19", StarAllele: "*17", Function: "Increased function"},
			"rs28399504": {Gene: "CYP2C19", StarAllele: "*4", Function: "No function"},
			"rs1799853":  {Gene: "CYP2C9", StarAllele: "*2", Function: "Decreased function"},
			"rs1057910":  {Gene: "CYP2C9", StarAllele: "*3", Function: "Decreased function"},
			"rs28371686": {Gene: "CYP2C9", StarAllele: "*5", Function: "Decreased function"},
			"rs9332131":  {Gene: "CYP2C9", StarAllele: "*6", Function: "No function"},
			"rs4149056":  {Gene: "SLCO1B1", StarAllele: "*5", Function: "Decreased function"},
			"rs2306283":  {Gene: "SLCO1B1", StarAllele: "*1B", Function: "Normal function"},
			"rs1800462":  {Gene: "TPMT", StarAllele: "*2", Function: "No function"},
			"rs1800460":  {Gene: "TPMT", StarAllele: "*3B", Function: "No function"},
			"rs1142345":  {Gene: "TPMT", StarAllele: "*3C", Function: "No function"},
			"rs3918290":  {Gene: "DPYD", StarAllele: "*2A", Function: "No function"},
			"rs55886062": {Gene: "DPYD", StarAllele: "*13", Function: "No function"},
			"rs67376798": {Gene: "DPYD", StarAllele: "HapB3", Function: "Decreased function"},
			"rs75017182": {Gene: "DPYD", StarAllele: "c.1129-5923C>G", Function: "Decreased function"},
		},

		// Activity-score models (CPIC method). Sums are classified by
		// the first breakpoint whose max covers the sum.
		Activity: map[string]ActivityModel{
			"CYP2D6": {
				Scores: map[string]float64{
					"*1": 1.0, "*2": 1.0,
					"*3": 0.0, "*4": 0.0, "*5": 0.0, "*6": 0.0,
					"*9": 0.5, "*10": 0.25, "*17": 0.5, "*29": 0.5, "*41": 0.5,
					"*1xN": 2.0, "*2xN": 2.0,
				},
				Breakpoints: []Breakpoint{
					{Max: 0, Phenotype: domain.PM},
					{Max: 1.0, Phenotype: domain.IM},
					{Max: 2.25, Phenotype: domain.NM},
				},
				Else: domain.URM,
			},
			"CYP2C19": {
				Scores: map[string]float64{
					"*1": 1.0,
					"*2": 0.0, "*3": 0.0, "*4": 0.0,
					"*17": 1.5,
				},
				Breakpoints: []Breakpoint{
					{Max: 0, Phenotype: domain.PM},
					{Max: 1.0, Phenotype: domain.IM},
					{Max: 2.0, Phenotype: domain.NM},
					{Max: 2.5, Phenotype: domain.RM},
				},
				Else: domain.URM,
			},
		},

		DiplotypePhenotypes: map[string]map[string]domain.Phenotype{
			"CYP2D6": {
				"*1|*1": domain.NM, "*1|*2": domain.NM, "*2|*2": domain.NM,
				"*1|*4": domain.IM, "*2|*4": domain.IM, "*1|*10": domain.IM,
				"*4|*4": domain.PM, "*4|*5": domain.PM, "*5|*5": domain.PM, "*3|*4": domain.PM,
				"*1|*1xN": domain.URM, "*2|*2xN": domain.URM,
			},
			"CYP2C19": {
				"*1|*1": domain.NM,
				"*1|*2": domain.IM, "*1|*3": domain.IM,
				"*2|*2": domain.PM, "*2|*3": domain.PM, "*3|*3": domain.PM,
				"*1|*17": domain.RM, "*17|*17": domain.URM,
			},
			"CYP2C9": {
				"*1|*1": domain.NM,
				"*1|*2": domain.IM, "*1|*3": domain.IM,
				"*2|*2": domain.PM, "*2|*3": domain.PM, "*3|*3": domain.PM,
			},
			"SLCO1B1": {
				"*1|*1": domain.NM, "*1|*1B": domain.NM,
				"*1|*5": domain.IM, "*1B|*5": domain.IM,
				"*5|*5": domain.PM,
			},
			"TPMT": {
				"*1|*1": domain.NM,
				"*1|*2": domain.IM, "*1|*3A": domain.IM, "*1|*3B": domain.IM, "*1|*3C": domain.IM,
				"*3A|*3A": domain.PM, "*3B|*3C": domain.PM, "*2|*3A": domain.PM,
			},
			"DPYD": {
				"*1|*1": domain.NM,
				"*1|*2A": domain.IM, "*1|*13": domain.IM, "*1|HapB3": domain.IM,
				"*2A|*2A": domain.PM, "*2A|*13": domain.PM, "*13|*13": domain.PM,
			},
		},

		RiskRules: defaultRiskRules(),

		Annotations: []domain.EvidenceAnnotation{
			{
				Gene: "CYP2D6", Drug: "CODEINE", Level: "1A",
				ClinicalSignificance: "Toxicity/ADR and Efficacy", FDARequirement: "Required",
				Citation: cite("CPIC Guideline for Codeine and CYP2D6", "Crews et al.", 2014, "24458010"),
				Source:   "PharmGKB",
			},
			{
				Gene: "CYP2C19", Drug: "CLOPIDOGREL", Level: "1A",
				ClinicalSignificance: "Efficacy", FDARequirement: "Required",
				Citation: cite("CPIC Guideline for Clopidogrel and CYP2C19", "Scott et al.", 2013, "23698643"),
				Source:   "PharmGKB",
			},
			{
				Gene: "CYP2C9", Drug: "WARFARIN", Level: "1A",
				ClinicalSignificance: "Toxicity/ADR and Dosage", FDARequirement: "Required",
				Citation: cite("CPIC Guideline for Warfarin and CYP2C9", "Johnson et al.", 2011, "21900891"),
				Source:   "PharmGKB",
			},
			{
				Gene: "SLCO1B1", Drug: "SIMVASTATIN", Level: "1A",
				ClinicalSignificance: "Toxicity/ADR", FDARequirement: "Recommended",
				Citation: cite("CPIC Guideline for Simvastatin and SLCO1B1", "Ramsey et al.", 2014, "24918167"),
				Source:   "PharmGKB",
			},
			{
				Gene: "TPMT", Drug: "AZATHIOPRINE", Level: "1A",
				ClinicalSignificance: "Toxicity/ADR", FDARequirement: "Required",
				Citation: cite("CPIC Guideline for Azathioprine and TPMT", "Relling et al.", 2011, "21270794"),
				Source:   "PharmGKB",
			},
			{
				Gene: "DPYD", Drug: "FLUOROURACIL", Level: "1A",
				ClinicalSignificance: "Toxicity/ADR", FDARequirement: "Recommended",
				Citation: cite("CPIC Guideline for Fluorouracil and DPYD", "Caudle et al.", 2013, "23988873"),
				Source:   "PharmGKB",
			},
		},

		Citations: map[string]domain.Citation{
			"CYP2D6_CODEINE":       cite("CPIC Guideline for Codeine and CYP2D6", "Crews et al.", 2014, "24458010"),
			"CYP2C19_CLOPIDOGREL":  cite("CPIC Guideline for Clopidogrel and CYP2C19", "Scott et al.", 2013, "23698643"),
			"CYP2C9_WARFARIN":      cite("CPIC Guideline for Warfarin and CYP2C9", "Johnson et al.", 2011, "21900891"),
			"SLCO1B1_SIMVASTATIN":  cite("CPIC Guideline for Simvastatin and SLCO1B1", "Ramsey et al.", 2014, "24918167"),
			"TPMT_AZATHIOPRINE":    cite("CPIC Guideline for Azathioprine and TPMT", "Relling et al.", 2011, "21270794"),
			"DPYD_FLUOROURACIL":    cite("CPIC Guideline for Fluorouracil and DPYD", "Caudle et al.", 2013, "23988873"),
		},

		Evidence: map[string]EvidenceRange{
			"1A": {Low: 0.95, High: 0.97},
			"1B": {Low: 0.88, High: 0.93},
			"2A": {Low: 0.80, High: 0.87},
			"2B": {Low: 0.70, High: 0.79},
			"3":  {Low: 0.55, High: 0.69},
			"4":  {Low: 0.40, High: 0.54},
		},

		Inhibitors: map[string]map[string][]string{
			"CYP2D6": {
				"strong":   {"fluoxetine", "paroxetine", "bupropion", "quinidine"},
				"moderate": {"duloxetine", "terbinafine", "cinacalcet"},
				"weak":     {"amiodarone", "cimetidine"},
			},
			"CYP2C19": {
				"strong":   {"omeprazole", "esomeprazole", "fluvoxamine"},
				"moderate": {"fluconazole", "moclobemide"},
				"weak":     {"cimetidine", "etravirine"},
			},
			"CYP2C9": {
				"strong":   {"fluconazole", "amiodarone"},
				"moderate": {"miconazole", "metronidazole"},
				"weak":     {"ibuprofen"},
			},
		},

		// Deterministic phenotype transition table. This table is
		// exact; "strong always forces PM" would be wrong (URM under a
		// strong inhibitor lands on NM, not PM).
		Downgrade: map[string]map[domain.Phenotype]domain.Phenotype{
			"strong": {
				domain.URM: domain.NM,
				domain.RM:  domain.IM,
				domain.NM:  domain.IM,
				domain.IM:  domain.PM,
				domain.PM:  domain.PM,
			},
			"moderate": {
				domain.URM: domain.RM,
				domain.RM:  domain.NM,
				domain.NM:  domain.NM,
				domain.IM:  domain.IM,
				domain.PM:  domain.PM,
			},
			"weak": {
				domain.URM: domain.URM,
				domain.RM:  domain.RM,
				domain.NM:  domain.NM,
				domain.IM:  domain.IM,
				domain.PM:  domain.PM,
			},
		},

		Penalties: map[string]float64{
			"strong":   0.10,
			"moderate": 0.05,
			"weak":     0.02,
			"none":     0.0,
		},

		Weights: ConfidenceWeights{
			Evidence:     0.40,
			Genotype:     0.20,
			Phenotype:    0.25,
			RuleCoverage: 0.15,
		},
		FallbackCap: 0.69,

		// Piecewise calibration map fit on held-out labeled results.
		Calibration: []CalibrationBin{
			{Low: 0.00, High: 0.40, Calibrated: 0.30},
			{Low: 0.40, High: 0.50, Calibrated: 0.45},
			{Low: 0.50, High: 0.60, Calibrated: 0.57},
			{Low: 0.60, High: 0.70, Calibrated: 0.68},
			{Low: 0.70, High: 0.80, Calibrated: 0.78},
			{Low: 0.80, High: 0.90, Calibrated: 0.87},
			{Low: 0.90, High: 1.00, Calibrated: 0.95},
		},
	}
}

// cite is a shorthand constructor for curated CPIC citations.
func cite(guideline, authors string, year int, pmid string) domain.Citation {
	return domain.Citation{Guideline: guideline, Authors: authors, Year: year, PMID: pmid}
}

func defaultRiskRules() []domain.RiskRule {
	return []domain.RiskRule{
		// CODEINE - CYP2D6
		{
			Gene: "CYP2D6", Drug: "CODEINE", Phenotype: domain.PM,
			Label: domain.RiskToxic, Severity: domain.SeverityCritical,
			Action:       "Avoid codeine. Use morphine or non-opioid alternative. CPIC Level 1A.",
			Alternatives: []string{"morphine", "non-opioid analgesics", "tramadol"},
		},
		{
			Gene: "CYP2D6", Drug: "CODEINE", Phenotype: domain.URM,
			Label: domain.RiskToxic, Severity: domain.SeverityCritical,
			Action:       "Avoid codeine due to risk of respiratory depression. Use non-opioid alternative.",
			Alternatives: []string{"non-opioid analgesics", "morphine with reduced dose"},
		},
		{
			Gene: "CYP2D6", Drug: "CODEINE", Phenotype: domain.IM,
			Label: domain.RiskAdjustDosage, Severity: domain.SeverityModerate,
			Action:       "Use codeine with caution. Consider reduced dose or alternative.",
			Alternatives: []string{"morphine", "acetaminophen"},
		},
		{
			Gene: "CYP2D6", Drug: "CODEINE", Phenotype: domain.NM,
			Label: domain.RiskSafe, Severity: domain.SeverityNone,
			Action:       "Use codeine per standard dosing guidelines.",
			Alternatives: []string{},
		},
		// CLOPIDOGREL - CYP2C19
		{
			Gene: "CYP2C19", Drug: "CLOPIDOGREL", Phenotype: domain.PM,
			Label: domain.RiskIneffective, Severity: domain.SeverityHigh,
			Action:       "Avoid clopidogrel. Use prasugrel or ticagrelor instead. CPIC Level 1A.",
			Alternatives: []string{"prasugrel", "ticagrelor"},
		},
		{
			Gene: "CYP2C19", Drug: "CLOPIDOGREL", Phenotype: domain.IM,
			Label: domain.RiskAdjustDosage, Severity: domain.SeverityModerate,
			Action:       "Consider alternative antiplatelet or higher clopidogrel dose with monitoring.",
			Alternatives: []string{"prasugrel", "ticagrelor"},
		},
		{
			Gene: "CYP2C19", Drug: "CLOPIDOGREL", Phenotype: domain.RM,
			Label: domain.RiskAdjustDosage, Severity: domain.SeverityModerate,
			Action:       "Standard dosing expected to be effective. No change needed.",
			Alternatives: []string{},
		},
		{
			Gene: "CYP2C19", Drug: "CLOPIDOGREL", Phenotype: domain.URM,
			Label: domain.RiskSafe, Severity: domain.SeverityNone,
			Action:       "Standard dosing. Enhanced antiplatelet effect expected.",
			Alternatives: []string{},
		},
		{
			Gene: "CYP2C19", Drug: "CLOPIDOGREL", Phenotype: domain.NM,
			Label: domain.RiskSafe, Severity: domain.SeverityNone,
			Action:       "Use clopidogrel per standard dosing guidelines.",
			Alternatives: []string{},
		},
		// WARFARIN - CYP2C9
		{
			Gene: "CYP2C9", Drug: "WARFARIN", Phenotype: domain.PM,
			Label: domain.RiskToxic, Severity: domain.SeverityHigh,
			Action:       "Reduce warfarin dose by 50-80%. Use lower initial dose. Monitor INR closely.",
			Alternatives: []string{"direct oral anticoagulants (DOACs)", "apixaban", "rivaroxaban"},
		},
		{
			Gene: "CYP2C9", Drug: "WARFARIN", Phenotype: domain.IM,
			Label: domain.RiskAdjustDosage, Severity: domain.SeverityModerate,
			Action:       "Reduce initial warfarin dose by 25-50%. Monitor INR frequently.",
			Alternatives: []string{},
		},
		{
			Gene: "CYP2C9", Drug: "WARFARIN", Phenotype: domain.NM,
			Label: domain.RiskSafe, Severity: domain.SeverityNone,
			Action:       "Use warfarin per standard dosing algorithm.",
			Alternatives: []string{},
		},
		// SIMVASTATIN - SLCO1B1
		{
			Gene: "SLCO1B1", Drug: "SIMVASTATIN", Phenotype: domain.PM,
			Label: domain.RiskToxic, Severity: domain.SeverityHigh,
			Action:       "Avoid simvastatin or use <=20mg dose. Consider alternative statin.",
			Alternatives: []string{"pravastatin", "rosuvastatin", "atorvastatin (lower dose)"},
		},
		{
			Gene: "SLCO1B1", Drug: "SIMVASTATIN", Phenotype: domain.IM,
			Label: domain.RiskAdjustDosage, Severity: domain.SeverityModerate,
			Action:       "Use simvastatin <=20mg daily. Monitor for myopathy symptoms.",
			Alternatives: []string{"pravastatin", "rosuvastatin"},
		},
		{
			Gene: "SLCO1B1", Drug: "SIMVASTATIN", Phenotype: domain.NM,
			Label: domain.RiskSafe, Severity: domain.SeverityNone,
			Action:       "Use simvastatin per standard dosing guidelines.",
			Alternatives: []string{},
		},
		// AZATHIOPRINE - TPMT
		{
			Gene: "TPMT", Drug: "AZATHIOPRINE", Phenotype: domain.PM,
			Label: domain.RiskToxic, Severity: domain.SeverityCritical,
			Action:       "Drastically reduce dose (10% of standard) or use alternative agent. Risk of fatal myelosuppression.",
			Alternatives: []string{"mycophenolate mofetil", "alternative immunosuppressant"},
		},
		{
			Gene: "TPMT", Drug: "AZATHIOPRINE", Phenotype: domain.IM,
			Label: domain.RiskAdjustDosage, Severity: domain.SeverityModerate,
			Action:       "Reduce azathioprine dose by 30-70%. Monitor CBC weekly initially.",
			Alternatives: []string{},
		},
		{
			Gene: "TPMT", Drug: "AZATHIOPRINE", Phenotype: domain.NM,
			Label: domain.RiskSafe, Severity: domain.SeverityNone,
			Action:       "Use azathioprine per standard dosing guidelines.",
			Alternatives: []string{},
		},
		// FLUOROURACIL - DPYD
		{
			Gene: "DPYD", Drug: "FLUOROURACIL", Phenotype: domain.PM,
			Label: domain.RiskToxic, Severity: domain.SeverityCritical,
			Action:       "Avoid fluorouracil. Risk of fatal toxicity. Use alternative therapy.",
			Alternatives: []string{"alternative chemotherapy regimen per oncologist"},
		},
		{
			Gene: "DPYD", Drug: "FLUOROURACIL", Phenotype: domain.IM,
			Label: domain.RiskAdjustDosage, Severity: domain.SeverityHigh,
			Action:       "Reduce fluorouracil dose by 25-50%. Monitor closely for toxicity.",
			Alternatives: []string{},
		},
		{
			Gene: "DPYD", Drug: "FLUOROURACIL", Phenotype: domain.NM,
			Label: domain.RiskSafe, Severity: domain.SeverityNone,
			Action:       "Use fluorouracil per standard dosing guidelines.",
			Alternatives: []string{},
		},
	}
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskLabelValidation(t *testing.T) {
	for _, label := range []RiskLabel{RiskSafe, RiskAdjustDosage, RiskToxic, RiskIneffective, RiskUnknown} {
		assert.True(t, label.IsValid(), label)
	}
	assert.False(t, RiskLabel("Dangerous").IsValid())
	assert.False(t, RiskLabel("").IsValid())
}

func TestRiskLabelActionable(t *testing.T) {
	assert.True(t, RiskToxic.IsActionable())
	assert.True(t, RiskIneffective.IsActionable())
	assert.False(t, RiskSafe.IsActionable())
	assert.False(t, RiskAdjustDosage.IsActionable())
	assert.False(t, RiskUnknown.IsActionable())
}

func TestSeverityRanking(t *testing.T) {
	ordered := []Severity{SeverityNone, SeverityLow, SeverityModerate, SeverityHigh, SeverityCritical}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Rank(), ordered[i-1].Rank())
	}
	assert.Equal(t, -1, Severity("unknown").Rank())

	assert.True(t, SeverityHigh.IsHighRisk())
	assert.True(t, SeverityCritical.IsHighRisk())
	assert.False(t, SeverityModerate.IsHighRisk())
}

func TestPhenotypeDisplay(t *testing.T) {
	assert.Equal(t, "Poor Metabolizer", PM.Display())
	assert.Equal(t, "Ultrarapid Metabolizer", URM.Display())
	assert.Equal(t, "Unknown", PhenotypeUnknown.Display())
	assert.True(t, PhenotypeUnknown.IsValid())
	assert.False(t, Phenotype("XM").IsValid())
}

func TestInhibitorStrengthOrdering(t *testing.T) {
	assert.True(t, StrengthStrong.Stronger(StrengthModerate))
	assert.True(t, StrengthModerate.Stronger(StrengthWeak))
	assert.True(t, StrengthWeak.Stronger(StrengthNone))
	assert.False(t, StrengthNone.Stronger(StrengthNone))
	assert.False(t, StrengthWeak.Stronger(StrengthStrong))
}

func TestConfidenceLevelFor(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, ConfidenceLevelFor(0.95))
	assert.Equal(t, ConfidenceHigh, ConfidenceLevelFor(0.85))
	assert.Equal(t, ConfidenceMedium, ConfidenceLevelFor(0.78))
	assert.Equal(t, ConfidenceMedium, ConfidenceLevelFor(0.70))
	assert.Equal(t, ConfidenceLow, ConfidenceLevelFor(0.68))
	assert.Equal(t, ConfidenceLow, ConfidenceLevelFor(0))
}

func TestAlleleImpactOrdering(t *testing.T) {
	assert.Greater(t, AlleleImpact("No function"), AlleleImpact("Decreased function"))
	assert.Greater(t, AlleleImpact("Decreased function"), AlleleImpact("Increased function"))
	assert.Greater(t, AlleleImpact("Increased function"), AlleleImpact("Normal function"))
	assert.Equal(t, 0, AlleleImpact(""))
}

func TestParseGenotype(t *testing.T) {
	tests := []struct {
		gt        string
		zygosity  Zygosity
		reference bool
	}{
		{"0/0", Homozygous, true},
		{"0|0", Homozygous, true},
		{"1/1", Homozygous, false},
		{"1|1", Homozygous, false},
		{"0/1", Heterozygous, false},
		{"1/0", Heterozygous, false},
		{"0|1", Heterozygous, false},
		{"1|0", Heterozygous, false},
	}
	for _, tt := range tests {
		z, ref, err := ParseGenotype(tt.gt)
		require.NoError(t, err, tt.gt)
		assert.Equal(t, tt.zygosity, z, tt.gt)
		assert.Equal(t, tt.reference, ref, tt.gt)
	}

	for _, bad := range []string{"", "./.", "2/3", "0/0/1", "A/T"} {
		_, _, err := ParseGenotype(bad)
		assert.ErrorIs(t, err, ErrInvalidZygosity, bad)
	}
}

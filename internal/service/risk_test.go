package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pharmaguard/pgx-engine/internal/domain"
)

func TestMatchCoveredCombination(t *testing.T) {
	matcher := NewRiskMatcher(testCatalog(), testLogger())

	rule, covered := matcher.Match("CYP2D6", domain.PM, "codeine")
	assert.True(t, covered)
	assert.Equal(t, domain.RiskToxic, rule.Label)
	assert.Equal(t, domain.SeverityCritical, rule.Severity)
	assert.NotEmpty(t, rule.Action)
	assert.NotEmpty(t, rule.Alternatives)
}

func TestMatchExactPhenotypeOnly(t *testing.T) {
	matcher := NewRiskMatcher(testCatalog(), testLogger())

	// CYP2C9/RM has no warfarin rule; the neighboring NM rule must not
	// be substituted.
	rule, covered := matcher.Match("CYP2C9", domain.RM, "warfarin")
	assert.False(t, covered)
	assert.Equal(t, domain.RiskUnknown, rule.Label)
	assert.Equal(t, domain.SeverityNone, rule.Severity)
}

func TestMatchFallbackVerdict(t *testing.T) {
	matcher := NewRiskMatcher(testCatalog(), testLogger())

	rule, covered := matcher.Match("CYP2D6", domain.PhenotypeUnknown, "codeine")
	assert.False(t, covered)
	assert.Equal(t, domain.RiskUnknown, rule.Label)
	assert.Equal(t, domain.SeverityNone, rule.Severity)
	assert.Contains(t, rule.Action, "clinical pharmacologist")
	assert.Empty(t, rule.Alternatives)
}

func TestMatchNormalizesDrug(t *testing.T) {
	matcher := NewRiskMatcher(testCatalog(), testLogger())

	byBrand, covered := matcher.Match("CYP2C19", domain.PM, "Plavix")
	assert.True(t, covered)
	byName, _ := matcher.Match("CYP2C19", domain.PM, "clopidogrel")
	assert.Equal(t, byName, byBrand)
}

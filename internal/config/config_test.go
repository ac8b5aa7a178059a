package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerDefaults(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "", cfg.Catalog.Path)
	assert.Equal(t, 20.0, cfg.Pipeline.MinQuality)
	assert.True(t, cfg.Pipeline.TraceEnabled)
	assert.Equal(t, 16, cfg.Pipeline.MaxBatchDrugs)
	assert.False(t, cfg.Audit.Enabled)
	assert.Equal(t, "pgx_audit.db", cfg.Audit.DBPath)
	assert.Equal(t, 256, cfg.Cache.EvidenceEntries)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestValidateDefaults(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)
	assert.NoError(t, m.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "negative min quality",
			mutate: func(c *Config) { c.Pipeline.MinQuality = -1 },
			want:   "minimum variant quality",
		},
		{
			name:   "zero batch size",
			mutate: func(c *Config) { c.Pipeline.MaxBatchDrugs = 0 },
			want:   "max batch drugs",
		},
		{
			name:   "zero cache size",
			mutate: func(c *Config) { c.Cache.EvidenceEntries = 0 },
			want:   "evidence cache size",
		},
		{
			name: "audit enabled without path",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.DBPath = ""
			},
			want: "audit db path",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Logging.Level = "verbose" },
			want:   "invalid log level",
		},
		{
			name:   "bad log format",
			mutate: func(c *Config) { c.Logging.Format = "xml" },
			want:   "invalid log format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager()
			require.NoError(t, err)
			tt.mutate(m.GetConfig())

			err = m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("PGX_PIPELINE_MIN_QUALITY", "30")
	t.Setenv("PGX_LOGGING_LEVEL", "debug")

	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 30.0, cfg.Pipeline.MinQuality)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

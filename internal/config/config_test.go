package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/pqc_analyzer_go/internal/analysis"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pqc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "PQCFlutesLeft", cfg.Flute)
	assert.Equal(t, 150.0, cfg.RangeExtension)
	assert.Equal(t, analysis.DefaultLinearCut, cfg.Analysis.VdpCut)
	assert.Equal(t, "electrons", cfg.Analysis.Carrier)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigPartialFile(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
workers: 4
analysis:
  carrier: holes
  cv_cut: 0.01
quantities:
  v_fd:
    expected: 300
    stray: 0.2
  i600:
    max: 50
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "holes", cfg.Analysis.Carrier)
	assert.Equal(t, 0.01, cfg.Analysis.CVCut)
	assert.Equal(t, analysis.DefaultMOSCut, cfg.Analysis.MOSCut, "unset keys keep defaults")
	assert.Equal(t, "pqc_report", cfg.OutputDir)

	require.Contains(t, cfg.Quantities, "v_fd")
	assert.Equal(t, 300.0, *cfg.Quantities["v_fd"].Expected)
	assert.Equal(t, 0.2, *cfg.Quantities["v_fd"].Stray)
	assert.Nil(t, cfg.Quantities["v_fd"].Min)
	assert.Equal(t, 50.0, *cfg.Quantities["i600"].Max)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "workers: [1, 2"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PQC_LOG_LEVEL":  "warn",
		"PQC_OUTPUT_DIR": " /tmp/out ",
		"PQC_FLUTE":      "PQCFlutesRight",
		"PQC_WORKERS":    "8",
		"PQC_DB_PATH":    "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, "PQCFlutesRight", cfg.Flute)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "pqc_results.db", cfg.DBPath, "empty values are ignored")

	env["PQC_WORKERS"] = "many"
	assert.Error(t, DefaultConfig().ApplyEnv(lookup))
}

func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()
	dir := "report"
	workers := 2
	cfg.MergeWithFlags(nil, &dir, nil, nil, &workers, nil)

	assert.Equal(t, "report", cfg.OutputDir)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0, cfg.ChunkSize)
}

func TestValidate(t *testing.T) {
	neg := -0.1
	lo, hi := 5.0, 1.0

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "log level", mutate: func(c *Config) { c.LogLevel = "loud" }},
		{name: "output dir", mutate: func(c *Config) { c.OutputDir = "" }},
		{name: "flute", mutate: func(c *Config) { c.Flute = "" }},
		{name: "workers", mutate: func(c *Config) { c.Workers = -1 }},
		{name: "chunk size", mutate: func(c *Config) { c.ChunkSize = -3 }},
		{name: "range extension", mutate: func(c *Config) { c.RangeExtension = 0 }},
		{name: "cache size", mutate: func(c *Config) { c.CacheSize = -1 }},
		{name: "cut", mutate: func(c *Config) { c.Analysis.MOSCut = 0 }},
		{name: "diode area", mutate: func(c *Config) { c.Analysis.DiodeArea = -1 }},
		{name: "carrier", mutate: func(c *Config) { c.Analysis.Carrier = "ions" }},
		{name: "stray", mutate: func(c *Config) { c.Quantities["rho"] = QuantityOverride{Stray: &neg} }},
		{name: "bounds", mutate: func(c *Config) { c.Quantities["rho"] = QuantityOverride{Min: &lo, Max: &hi} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("PQC_WORKERS", "3")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load(writeConfig(t, "chunk_size: 10\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 10, cfg.ChunkSize)

	t.Setenv("PQC_LOG_LEVEL", "chatty")
	_, err = Load("")
	assert.Error(t, err)
}

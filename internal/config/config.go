package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/user/pqc_analyzer_go/internal/analysis"
)

// AnalysisConfig holds the extraction parameters of the batch pass.
type AnalysisConfig struct {
	// VdpCut is the derivative cut of the linear fits of resistive structures.
	VdpCut float64 `yaml:"vdp_cut"`

	// CVCut is the derivative cut of the diode CV region search.
	CVCut float64 `yaml:"cv_cut"`

	// MOSCut is the derivative cut of the MOS capacitor region search.
	MOSCut float64 `yaml:"mos_cut"`

	// DiodeArea is the implant area of the CV diode in m^2.
	DiodeArea float64 `yaml:"diode_area"`

	// Carrier is the majority carrier of the bulk: electrons or holes.
	Carrier string `yaml:"carrier"`
}

// QuantityOverride replaces the acceptance model of one catalogue quantity.
// Unset fields keep the catalogue value.
type QuantityOverride struct {
	Expected *float64 `yaml:"expected"`
	Stray    *float64 `yaml:"stray"`
	Min      *float64 `yaml:"min"`
	Max      *float64 `yaml:"max"`
}

// Config represents the analyzer configuration.
type Config struct {
	// LogLevel sets the minimum log level (trace, debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// OutputDir receives plots and the PDF report.
	OutputDir string `yaml:"output_dir"`

	// DBPath is the SQLite results database. Empty disables persistence.
	DBPath string `yaml:"db_path"`

	// Flute is the half-moon flute whose structures are evaluated.
	Flute string `yaml:"flute"`

	// Workers bounds the samples analysed in parallel. 0 means one per CPU.
	Workers int `yaml:"workers"`

	// ChunkSize splits the report into sub-batches of this many samples.
	// 0 reports the batch as a whole.
	ChunkSize int `yaml:"chunk_size"`

	// RangeExtension scales the upper acceptance bound for the extended
	// range histogram.
	RangeExtension float64 `yaml:"range_extension"`

	// CacheSize is the number of parsed measurement files kept in memory.
	CacheSize int `yaml:"cache_size"`

	Analysis AnalysisConfig `yaml:"analysis"`

	// Quantities overrides acceptance models by quantity key.
	Quantities map[string]QuantityOverride `yaml:"quantities"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:       "info",
		OutputDir:      "pqc_report",
		DBPath:         "pqc_results.db",
		Flute:          "PQCFlutesLeft",
		Workers:        0,
		ChunkSize:      0,
		RangeExtension: 150,
		CacheSize:      256,
		Analysis: AnalysisConfig{
			VdpCut:    analysis.DefaultLinearCut,
			CVCut:     analysis.DefaultCVCut,
			MOSCut:    analysis.DefaultMOSCut,
			DiodeArea: analysis.DefaultDiodeArea,
			Carrier:   string(analysis.CarrierElectrons),
		},
		Quantities: map[string]QuantityOverride{},
	}
}

// LoadConfig reads a YAML configuration file over the defaults. A missing
// file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// decoding into the defaults keeps every key the file leaves out
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Quantities == nil {
		cfg.Quantities = map[string]QuantityOverride{}
	}
	return cfg, nil
}

// Load reads the configuration file, the .env file of the working directory
// and the PQC_* environment, in increasing priority, and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	_ = godotenv.Load()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv applies PQC_LOG_LEVEL, PQC_OUTPUT_DIR, PQC_DB_PATH, PQC_FLUTE and
// PQC_WORKERS from lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("PQC_LOG_LEVEL", &c.LogLevel)
	str("PQC_OUTPUT_DIR", &c.OutputDir)
	str("PQC_DB_PATH", &c.DBPath)
	str("PQC_FLUTE", &c.Flute)

	if v, ok := lookup("PQC_WORKERS"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid PQC_WORKERS %q: %w", v, err)
		}
		c.Workers = n
	}
	return nil
}

// MergeWithFlags overrides config values with command line flags. Nil
// pointers mean the flag was not set.
func (c *Config) MergeWithFlags(logLevel, outputDir, dbPath, flute *string, workers, chunkSize *int) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if outputDir != nil {
		c.OutputDir = *outputDir
	}
	if dbPath != nil {
		c.DBPath = *dbPath
	}
	if flute != nil {
		c.Flute = *flute
	}
	if workers != nil {
		c.Workers = *workers
	}
	if chunkSize != nil {
		c.ChunkSize = *chunkSize
	}
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	if c.Flute == "" {
		return fmt.Errorf("flute must not be empty")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must be >= 0, got %d", c.ChunkSize)
	}
	if c.RangeExtension <= 0 {
		return fmt.Errorf("range_extension must be > 0, got %g", c.RangeExtension)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must be >= 0, got %d", c.CacheSize)
	}

	a := c.Analysis
	if a.VdpCut <= 0 || a.CVCut <= 0 || a.MOSCut <= 0 {
		return fmt.Errorf("analysis cuts must be > 0, got vdp=%g cv=%g mos=%g", a.VdpCut, a.CVCut, a.MOSCut)
	}
	if a.DiodeArea <= 0 {
		return fmt.Errorf("analysis.diode_area must be > 0, got %g", a.DiodeArea)
	}
	switch analysis.Carrier(a.Carrier) {
	case analysis.CarrierElectrons, analysis.CarrierHoles:
	default:
		return fmt.Errorf("invalid analysis.carrier %q, must be electrons or holes", a.Carrier)
	}

	for key, o := range c.Quantities {
		if o.Stray != nil && *o.Stray < 0 {
			return fmt.Errorf("quantities.%s.stray must be >= 0, got %g", key, *o.Stray)
		}
		if o.Min != nil && o.Max != nil && *o.Min >= *o.Max {
			return fmt.Errorf("quantities.%s: min %g must be below max %g", key, *o.Min, *o.Max)
		}
	}
	return nil
}

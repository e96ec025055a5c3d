package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/user/pqc_analyzer_go/internal/config"
	"github.com/user/pqc_analyzer_go/internal/logger"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// globalFlags are the persistent flags shared by all subcommands.
type globalFlags struct {
	configPath string
	logLevel   string
	outputDir  string
	dbPath     string
	flute      string
	workers    int
	chunkSize  int
}

// NewRootCommand creates and returns the root cobra command for pqc_analyzer
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "pqc_analyzer",
		Short: "Process quality control parameter extraction and batch statistics",
		Long: `pqc_analyzer extracts physical parameters (sheet resistances, linewidths,
depletion and flatband voltages, oxide properties, generation currents, ...)
from PQC test structure measurements and aggregates them per batch.

Each sample directory holds the measurement files of one half moon. The
batch statistics are written as plots and a PDF report and stored in a
SQLite database for later comparison.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "pqc_analyzer.yaml", "configuration file")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	pf.StringVarP(&flags.outputDir, "output-dir", "o", "", "directory for plots and reports")
	pf.StringVar(&flags.dbPath, "db", "", "SQLite results database")
	pf.StringVar(&flags.flute, "flute", "", "flute whose structures are evaluated")
	pf.IntVarP(&flags.workers, "workers", "j", 0, "samples analysed in parallel (0: one per CPU)")
	pf.IntVar(&flags.chunkSize, "chunk-size", 0, "split reports into sub-batches of this many samples")

	cmd.AddCommand(NewAnalyzeCommand(flags))
	cmd.AddCommand(NewCurveCommand(flags))
	cmd.AddCommand(NewStatsCommand(flags))

	return cmd
}

// load reads the configuration and applies the flags that were set on cmd.
func (f *globalFlags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	set := cmd.Flags().Changed
	var logLevel, outputDir, dbPath, flute *string
	var workers, chunkSize *int
	if set("log-level") {
		logLevel = &f.logLevel
	}
	if set("output-dir") {
		outputDir = &f.outputDir
	}
	if set("db") {
		dbPath = &f.dbPath
	}
	if set("flute") {
		flute = &f.flute
	}
	if set("workers") {
		workers = &f.workers
	}
	if set("chunk-size") {
		chunkSize = &f.chunkSize
	}
	cfg.MergeWithFlags(logLevel, outputDir, dbPath, flute, workers, chunkSize)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) *logger.ConsoleLogger {
	return logger.NewConsoleLogger(w, cfg.LogLevel)
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/user/pqc_analyzer_go/internal/store"
)

// NewStatsCommand creates the 'pqc_analyzer stats' command
func NewStatsCommand(flags *globalFlags) *cobra.Command {
	var listRuns bool

	cmd := &cobra.Command{
		Use:   "stats [run-id]",
		Short: "Show stored batch statistics",
		Long: `Display the summary statistics of a stored run. Without a run id the
most recent run is shown; a unique prefix of the id is enough.

  --runs lists the stored runs instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			output := cmd.OutOrStdout()

			if cfg.DBPath == "" {
				return fmt.Errorf("no results database configured")
			}
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Fprintf(output, "No results stored yet\n")
				fmt.Fprintf(output, "Database path: %s\n", cfg.DBPath)
				return nil
			}

			st, err := store.NewStore(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open results store: %w", err)
			}
			defer st.Close()

			if listRuns {
				runs, err := st.Runs(cmd.Context())
				if err != nil {
					return err
				}
				printRuns(output, runs)
				return nil
			}

			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			sums, err := st.LoadSummaries(cmd.Context(), runID)
			if errors.Is(err, store.ErrNoRun) && runID == "" {
				fmt.Fprintf(output, "No results stored yet\n")
				return nil
			}
			if err != nil {
				return err
			}
			printSummaries(output, sums)
			return nil
		},
	}

	cmd.Flags().BoolVar(&listRuns, "runs", false, "list stored runs")

	return cmd
}

func printRuns(w io.Writer, runs []store.Run) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(w, "\n=== Stored runs ===\n\n")
	if len(runs) == 0 {
		fmt.Fprintf(w, "  none\n")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "  %s  %-20s %4d samples  %s\n", r.ID, r.Batch, r.NSamples, r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(w)
}

func printSummaries(w io.Writer, sums []store.Summary) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	if len(sums) == 0 {
		fmt.Fprintf(w, "No summaries in run\n")
		return
	}
	cyan.Fprintf(w, "\n=== Run %s ===\n\n", sums[0].RunID)
	fmt.Fprintf(w, "  %-32s %12s %12s %12s %8s  %s\n", "Quantity", "Median", "Average", "Std dev.", "OK/Tot.", "Yield")
	for _, s := range sums {
		fmt.Fprintf(w, "  %-32s %12s %12s %12s %8s  ", s.Label,
			number(s.TotMed), number(s.TotAvg), number(s.TotStd), fmt.Sprintf("%d/%d", s.NSelected, s.NTot))
		yield := s.Yield()
		switch {
		case math.IsNaN(yield):
			fmt.Fprintf(w, "---\n")
		case yield >= 0.9:
			green.Fprintf(w, "%.1f%%\n", 100*yield)
		case yield >= 0.5:
			yellow.Fprintf(w, "%.1f%%\n", 100*yield)
		default:
			red.Fprintf(w, "%.1f%%\n", 100*yield)
		}
	}
	fmt.Fprintln(w)
}

func number(v float64) string {
	if math.IsNaN(v) {
		return "---"
	}
	return fmt.Sprintf("%.4g", v)
}

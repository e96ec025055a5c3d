package cmd

import (
	"github.com/spf13/cobra"
)

// NewAnalyzeCommand creates the 'pqc_analyzer analyze' command
func NewAnalyzeCommand(flags *globalFlags) *cobra.Command {
	var batch string
	var opts RunOptions

	cmd := &cobra.Command{
		Use:   "analyze <sample-dir>...",
		Short: "Analyse a batch of samples",
		Long: `Analyse every sample directory as one batch. A directory that contains
only subdirectories is treated as a batch directory and its subdirectories
are analysed as samples.

Missing measurements are reported as "---" and excluded from the totals,
failed extractions as "failed". Samples are sorted by measurement time.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			dirs, err := expandDirs(args)
			if err != nil {
				return err
			}
			app := NewApp(cfg, newLogger(cmd.ErrOrStderr(), cfg), cmd.OutOrStdout())
			_, err = app.GenerateReport(cmd.Context(), batch, dirs, opts)
			return err
		},
	}

	cmd.Flags().StringVarP(&batch, "batch", "b", "", "batch name (default: parent directory of the first sample)")
	cmd.Flags().BoolVar(&opts.NoReport, "no-report", false, "skip plots and the PDF report")
	cmd.Flags().BoolVar(&opts.NoStore, "no-store", false, "do not save the batch in the results database")

	return cmd
}

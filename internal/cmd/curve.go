package cmd

import (
	"fmt"
	"math"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/user/pqc_analyzer_go/internal/analysis"
	"github.com/user/pqc_analyzer_go/internal/parser"
	"github.com/user/pqc_analyzer_go/internal/resultset"
)

// NewCurveCommand creates the 'pqc_analyzer curve' command
func NewCurveCommand(flags *globalFlags) *cobra.Command {
	var structure string
	var rSheet float64

	cmd := &cobra.Command{
		Use:   "curve --structure <kind> <file>",
		Short: "Extract the parameters of a single measurement",
		Long: fmt.Sprintf(`Run one extraction on a single measurement file and print its outputs
in SI units together with the validity verdict.

Structures: %s

linewidth and cbkr need the sheet resistance of the layer (--rsheet).`, strings.Join(resultset.Structures(), ", ")),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			m, err := parser.Load(args[0])
			if err != nil {
				return err
			}
			a, err := resultset.NewAnalyzer(cfg, newLogger(cmd.ErrOrStderr(), cfg))
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("rsheet") {
				rSheet = math.NaN()
			}
			r, err := a.EvaluateCurve(structure, m, rSheet)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s (%s)\n", args[0], r.Structure)
			for _, f := range r.Fields {
				fmt.Fprintf(w, "  %-10s %14.6g %s\n", f.Name, f.Value, f.Unit)
			}
			if r.Status == analysis.StatusPassed {
				color.New(color.FgGreen).Fprintf(w, "  status: %s\n", r.Status)
				return nil
			}
			color.New(color.FgRed).Fprintf(w, "  status: %s", r.Status)
			if r.Err != nil {
				fmt.Fprintf(w, " (%v)", r.Err)
			}
			fmt.Fprintln(w)
			return nil
		},
	}

	cmd.Flags().StringVarP(&structure, "structure", "s", "", "structure kind")
	cmd.Flags().Float64Var(&rSheet, "rsheet", 0, "sheet resistance in Ohm/sq for linewidth and cbkr")
	_ = cmd.MarkFlagRequired("structure")

	return cmd
}

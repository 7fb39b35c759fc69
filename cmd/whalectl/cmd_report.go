package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"whale-index-lab/internal/reporting"
)

func reportCmd(flags *globalFlags) *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the markdown report and CSV exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer e.cleanup()

			if _, err := e.ingest(ctx); err != nil {
				return err
			}
			if _, err := e.preflight(ctx, cmd.OutOrStdout()); err != nil {
				return err
			}

			report, res, err := reporting.NewGenerator(e.engine, e.stores.Metrics).Generate(ctx)
			if err != nil {
				return fmt.Errorf("generate report: %w", err)
			}
			paths, err := reporting.WriteFiles(outputDir, report, res.Series)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range paths {
				fmt.Fprintf(out, "Written: %s\n", p)
			}
			if !report.DataQuality.AllChecksPassed {
				fmt.Fprintln(out, "Warning: data sufficiency checks failed, see Data Quality section")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outputDir, "output-dir", "docs", "Output directory for generated files")
	return cmd
}

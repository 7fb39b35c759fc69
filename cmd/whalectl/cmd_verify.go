package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/service"
	"whale-index-lab/internal/verification"
)

func verifyCmd(flags *globalFlags) *cobra.Command {
	var computedAt int64
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Recompute a stored index run and report divergences",
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
			v := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
				Engine:  e.engine,
				Metrics: e.stores.Metrics,
				Points:  e.stores.Points,
			})

			var report *verification.Report
			if computedAt > 0 {
				report, err = v.VerifyRun(ctx, computedAt)
			} else {
				report, err = v.VerifyLatest(ctx)
				if errors.Is(err, verification.ErrNoRun) {
					// Nothing persisted yet: compute and store a run first.
					svc, serr := service.New(service.Options{
						Engine:  e.engine,
						Metrics: e.stores.Metrics,
						Points:  e.stores.Points,
						Logger:  e.log,
					})
					if serr != nil {
						return serr
					}
					if _, serr := svc.Refresh(ctx); serr != nil {
						return serr
					}
					report, err = v.VerifyLatest(ctx)
				}
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:          %d\n", report.ComputedAtMs)
			fmt.Fprintf(out, "Data version: %s\n", report.DataVersion)
			fmt.Fprintf(out, "Days:         %d (%d matched, %d divergent)\n",
				report.TotalDays, report.MatchedDays, report.DivergentDays)
			for _, r := range report.Results {
				for _, d := range r.Divergences {
					fmt.Fprintf(out, "  %s %s: stored=%v replayed=%v\n",
						domain.FormatDate(r.Date), d.Field, d.Expected, d.Actual)
				}
			}
			if !report.OK() {
				return fmt.Errorf("verification failed: %d divergent days", report.DivergentDays)
			}
			fmt.Fprintln(out, "All stored points match.")
			return nil
		},
	}
	cmd.Flags().Int64Var(&computedAt, "run", 0, "computed_at_ms of the run to verify (default: latest)")
	return cmd
}

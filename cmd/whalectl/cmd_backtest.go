package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/service"
)

func backtestCmd(flags *globalFlags) *cobra.Command {
	var (
		horizon    int
		start, end string
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Backtest the intent and activity signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := parseRange(start, end)
			if err != nil {
				return err
			}
			if horizon < 0 || horizon > 90 {
				return fmt.Errorf("horizon must be between 1 and 90, got %d", horizon)
			}

			ctx := cmd.Context()
			e, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer e.cleanup()

			if _, err := e.ingest(ctx); err != nil {
				return err
			}
			svc, err := service.New(service.Options{Engine: e.engine, Metrics: e.stores.Metrics, Logger: e.log})
			if err != nil {
				return err
			}
			rep, err := svc.Backtest(ctx, rng, horizon)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Horizon: %d days\n\n", rep.Horizon)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SIGNAL\tDIRECTION\tSIGNALS\tTRADES\tWIN%\tMEAN\tMEDIAN\tMAXDD\tSHARPE")
			for _, r := range rep.Results {
				if r.Metrics == nil {
					fmt.Fprintf(w, "%s\t%s\t%d\t0\t-\t-\t-\t-\t-\n", r.SignalName, r.Direction, r.SignalCount)
					continue
				}
				m := r.Metrics
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2f\t%.4f\t%.4f\t%.4f\t%.2f\n",
					r.SignalName, r.Direction, r.SignalCount, m.TotalTrades, m.WinRate,
					m.ReturnMean, m.ReturnMedian, m.MaxDrawdown, m.Sharpe)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out)
			w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WII SIGNAL\tDAYS\tEVALUATED\tMEAN RETURN\tPOSITIVE%")
			for _, p := range rep.Profile {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", p.Signal, p.Days, p.Evaluated,
					fmtOpt(p.MeanReturn, "%.4f"), fmtOpt(p.PositivePct, "%.2f"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&horizon, "horizon", 0, "Forward horizon in days, 1..90 (default: engine config)")
	cmd.Flags().StringVar(&start, "start", "", "First day, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "Last day, YYYY-MM-DD")
	return cmd
}

func parseRange(start, end string) (service.Range, error) {
	var r service.Range
	var err error
	if start != "" {
		if r.Start, err = domain.ParseDate(start); err != nil {
			return r, fmt.Errorf("invalid --start %q: expected YYYY-MM-DD", start)
		}
	}
	if end != "" {
		if r.End, err = domain.ParseDate(end); err != nil {
			return r, fmt.Errorf("invalid --end %q: expected YYYY-MM-DD", end)
		}
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End) {
		return r, fmt.Errorf("--start %s is after --end %s", start, end)
	}
	return r, nil
}

func fmtOpt(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"whale-index-lab/internal/domain"
)

func ingestCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Fetch the upstream feed and store new days",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer e.cleanup()

			res, err := e.ingest(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Fetched: %d days\n", res.Fetched)
			fmt.Fprintf(out, "Stored:  %d days\n", res.Stored)
			fmt.Fprintf(out, "Skipped: %d days (already stored)\n", res.Skipped)
			if !res.LastDate.IsZero() {
				fmt.Fprintf(out, "Latest:  %s\n", domain.FormatDate(res.LastDate))
			}
			if !res.PricesAvailable {
				fmt.Fprintln(out, "Warning: price feed unavailable, days stored without prices")
			}
			return nil
		},
	}
}

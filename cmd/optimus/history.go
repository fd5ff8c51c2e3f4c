package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/samvad-hq/optimus/internal/app"
	"github.com/samvad-hq/optimus/internal/config"
	"github.com/samvad-hq/optimus/internal/domain"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent optimization runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withOptimizer(cmd, func(_ context.Context, o *app.Optimizer, _ *config.Config) error {
				runs, err := o.History(limit)
				if err != nil {
					return fmt.Errorf("read history: %w", err)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "STARTED\tSTATUS\tOPTION\tIN\tOUT\tSOURCE\tDETAIL")
				for _, r := range runs {
					detail := r.Output
					if r.Status != domain.RunStatusSucceeded {
						detail = r.ErrorKind
						if detail == "" {
							detail = r.Error
						}
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
						r.StartedAt.Local().Format(time.DateTime), r.Status, r.Option,
						r.InputBytes, r.OutputBytes, r.Source, detail)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show, 0 for all")
	return cmd
}

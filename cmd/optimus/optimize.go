package main

import (
	"context"
	"fmt"

	"github.com/samvad-hq/optimus/internal/app"
	"github.com/samvad-hq/optimus/internal/config"
	"github.com/samvad-hq/optimus/pkg/optimus"
	"github.com/spf13/cobra"
)

func newOptimizeCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "optimize <image>",
		Short: "Optimize a single image",
		Long: `Optimize a single image read from a local path, an http(s) URL or an
s3://bucket/key reference. The result is written next to a local source,
to the working directory for remote sources, to --out, or to stdout with --out -.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOptimizer(cmd, func(ctx context.Context, o *app.Optimizer, cfg *config.Config) error {
				if cfg.APIKey == "" {
					return fmt.Errorf("an API key is required (--api-key or OPTIMUS_API_KEY)")
				}
				run, err := o.Run(ctx, app.Job{
					Source: args[0],
					Option: cfg.Option,
					Output: out,
				})
				if err != nil {
					return err
				}
				if run.Output != app.StdoutOutput {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s -> %s (%d -> %d bytes)\n",
						run.Source, run.Output, run.InputBytes, run.OutputBytes)
				}
				return nil
			})
		},
	}

	cmd.Flags().String("option", "", fmt.Sprintf("processing mode: %s, %s or %s (env OPTIMUS_OPTION)",
		optimus.OptionOptimize, optimus.OptionClean, optimus.OptionWebP))
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path, - for stdout")
	return cmd
}

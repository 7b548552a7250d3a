package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const drainTimeout = 30 * time.Second

func newRouteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "route [file...]",
		Short: "Route notification files",
		Long: `Reads each notification JSON document (use - for stdin) and routes it
through the configured adapter. Queued jobs are drained before exiting.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := flags.openModule(cmd)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			adapter := module.Config().Router.Adapter

			var routeErr error
			for _, path := range args {
				body, err := readInput(cmd, path)
				if err != nil {
					routeErr = err
					break
				}
				n, err := module.Manager().Handle(ctx, body)
				if err != nil {
					routeErr = fmt.Errorf("%s: %w", path, err)
					break
				}
				fmt.Fprintf(cmd.OutOrStdout(), "routed %s via %s\n", n.ID, adapter)
			}

			drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
			if err := module.Close(drainCtx); err != nil && routeErr == nil {
				routeErr = err
			}
			return routeErr
		},
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

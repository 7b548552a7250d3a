package cli

import (
	"errors"
	"fmt"

	filestore "github.com/goliatone/go-pubrouter/internal/storage/file"
	"github.com/spf13/cobra"
)

func newPathCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "path [notification-id]",
		Short: "Print the sharded directory of a notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.NotificationsDir == "" {
				return errors.New("storage.notifications_dir is not configured")
			}
			dir, err := filestore.ShardPath(cfg.Storage.NotificationsDir, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), dir)
			return err
		},
	}
}

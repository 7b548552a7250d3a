package cli

import (
	"context"

	"github.com/goliatone/go-pubrouter/pkg/domain"
	"github.com/spf13/cobra"
)

type storedNotification struct {
	Notification *domain.Notification `json:"notification"`
	ContentLinks []domain.ContentLink `json:"content_links"`
}

func newShowCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show [notification-id]",
		Short: "Print a stored notification and its content links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := flags.openModule(cmd)
			if err != nil {
				return err
			}
			defer module.Close(context.Background())

			n, selected, err := module.Manager().Lookup(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, storedNotification{Notification: n, ContentLinks: selected})
		},
	}
}

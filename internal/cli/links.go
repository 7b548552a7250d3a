package cli

import (
	"encoding/json"

	"github.com/goliatone/go-pubrouter/pkg/domain"
	"github.com/goliatone/go-pubrouter/pkg/links"
	"github.com/spf13/cobra"
)

func newLinksCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "links [file]",
		Short: "Print the content links a notification would produce",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			body, err := readInput(cmd, path)
			if err != nil {
				return err
			}
			n, err := domain.ParseNotification(body)
			if err != nil {
				return err
			}
			selected := links.Select(n, cfg.Retrieval, newLogger(cmd, cfg))
			if selected == nil {
				selected = []domain.ContentLink{}
			}
			return printJSON(cmd, selected)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/bnema/uap-cli/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print every resolved setting",
			Args:  cobra.NoArgs,
			RunE: withClose(app, func(cmd *cobra.Command, _ []string) error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, setting := range config.Settings(app.cfg) {
					fmt.Fprintf(tw, "%s\t%v\n", setting.Key, setting.Value)
				}
				return tw.Flush()
			}),
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the uap home directory and config file path",
			Args:  cobra.NoArgs,
			RunE: withClose(app, func(cmd *cobra.Command, _ []string) error {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "home: %s\nconfig: %s\n",
					app.cfg.GetString(config.KeyHome), config.FilePath(app.cfg))
				return err
			}),
		},
	)

	return cmd
}

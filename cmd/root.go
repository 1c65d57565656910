package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/bnema/uap-cli/internal/config"
	"github.com/spf13/cobra"
)

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "uap",
		Short:         "Universal Agent Protocol: hand work between LLM agents through a shared context token",
		Long:          "uap runs LLM agents against a persistent Agent Context Token (ACT) so that each agent can pick up where the previous one stopped, without a human restating the task.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	var offline bool
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Run every agent on the scripted offline backend")

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}
	_ = app.cfg.BindPFlag(config.KeyLLMOffline, rootCmd.PersistentFlags().Lookup("offline"))

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(app),
		newHandoffCmd(app),
		newChainCmd(app),
		newBatchCmd(app),
		newSessionCmd(app),
		newAgentCmd(app),
		newTeamCmd(app),
		newConfigCmd(app),
	)

	return rootCmd
}

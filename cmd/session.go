package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	sessionrender "github.com/bnema/uap-cli/internal/adapters/render/session"
	"github.com/bnema/uap-cli/internal/domain"
	"github.com/bnema/uap-cli/internal/ports"
	"github.com/spf13/cobra"
)

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect stored sessions",
	}

	cmd.AddCommand(
		newSessionListCmd(app),
		newSessionShowCmd(app),
		newSessionValidateCmd(app),
		newSessionContextCmd(app),
		newSessionExportCmd(app),
		newSessionWatchCmd(app),
	)

	return cmd
}

func newSessionListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: withClose(app, func(cmd *cobra.Command, _ []string) error {
			summaries, err := app.states.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), summaries)
			}

			rendered, err := app.renderList(summaries, sessionrender.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render sessions: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		}),
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print sessions as JSON")
	return cmd
}

func newSessionShowCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's ACT",
		Args:  cobra.ExactArgs(1),
		RunE: withClose(app, func(cmd *cobra.Command, args []string) error {
			act, err := app.states.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), act)
			}

			rendered, err := app.renderDetail(act, sessionrender.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render session: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		}),
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the ACT as JSON")
	return cmd
}

func newSessionValidateCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate <session-id>",
		Short: "Check that a session shows a real multi-agent handshake",
		Args:  cobra.ExactArgs(1),
		RunE: withClose(app, func(cmd *cobra.Command, args []string) error {
			report, err := app.states.ValidateHandshake(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}

			rendered, err := app.renderValidation(report)
			if err != nil {
				return fmt.Errorf("render validation: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		}),
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func newSessionContextCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "context <session-id>",
		Short: "Print the handoff package the next agent would receive",
		Args:  cobra.ExactArgs(1),
		RunE: withClose(app, func(cmd *cobra.Command, args []string) error {
			pkg, err := app.states.PrepareHandoff(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), pkg)
		}),
	}
}

func newSessionExportCmd(app *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a session's ACT document",
		Args:  cobra.ExactArgs(1),
		RunE: withClose(app, func(cmd *cobra.Command, args []string) error {
			act, err := app.states.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(act, "", "  ")
			if err != nil {
				return fmt.Errorf("encode session: %w", err)
			}
			data = append(data, '\n')

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o600); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", act.SessionID, output)
			return err
		}),
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func newSessionWatchCmd(app *app) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "watch <session-id>",
		Short: "Print a line each time a stored session changes",
		Args:  cobra.ExactArgs(1),
		RunE: withClose(app, func(cmd *cobra.Command, args []string) error {
			watcher, ok := app.sessions.(ports.SessionWatcher)
			if !ok {
				return errors.New("session watch requires the file storage backend")
			}
			if err := domain.ValidateSessionID(args[0]); err != nil {
				return err
			}

			updates, err := watcher.Watch(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			seen := 0
			for act := range updates {
				summary := act.Summary()
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  agents=%d tasks=%d state=%s hint=%s\n",
					domain.FormatTimestamp(act.UpdatedAt),
					act.SessionID,
					summary.Agents,
					summary.Tasks,
					summary.State,
					orDash(act.NextAgentHint),
				); err != nil {
					return err
				}
				seen++
				if count > 0 && seen >= count {
					return nil
				}
			}
			return nil
		}),
	}

	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many updates (0 watches until interrupted)")
	return cmd
}

package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/spf13/cobra"
)

type agentView struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Backend     string            `json:"backend"`
	Model       string            `json:"model"`
	Source      string            `json:"source"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func toAgentView(agent domain.AgentConfig) agentView {
	return agentView{
		ID:          agent.ID,
		Type:        agent.Type,
		Backend:     string(agent.Backend),
		Model:       agent.Model,
		Source:      agent.Source,
		Description: agent.Description,
		Metadata:    agent.Metadata,
	}
}

func newAgentCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "List, install and remove agents",
	}

	cmd.AddCommand(
		newAgentListCmd(app),
		newAgentShowCmd(app),
		newAgentInstallCmd(app),
		newAgentRemoveCmd(app),
	)

	return cmd
}

func newAgentListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List built-in and installed agents",
		Args:  cobra.NoArgs,
		RunE: withClose(app, func(cmd *cobra.Command, _ []string) error {
			agents, err := app.catalog.List(cmd.Context())
			if err != nil {
				return err
			}

			views := make([]agentView, 0, len(agents))
			for _, agent := range agents {
				views = append(views, toAgentView(agent))
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), views)
			}
			return writeAgentTable(cmd.OutOrStdout(), views)
		}),
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print agents as JSON")
	return cmd
}

func writeAgentTable(w io.Writer, views []agentView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tBACKEND\tMODEL\tSOURCE")
	for _, view := range views {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", view.ID, view.Type, view.Backend, orDash(view.Model), view.Source)
	}
	return tw.Flush()
}

func newAgentShowCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <agent-id>",
		Short: "Show one agent and its system prompt",
		Args:  cobra.ExactArgs(1),
		RunE: withClose(app, func(cmd *cobra.Command, args []string) error {
			agent, err := app.catalog.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), struct {
					agentView
					SystemPrompt string `json:"system_prompt"`
				}{toAgentView(agent), agent.SystemPrompt})
			}

			lines := []string{
				fmt.Sprintf("Agent: %s", agent.ID),
				fmt.Sprintf("Type: %s", agent.Type),
				fmt.Sprintf("Backend: %s", agent.Backend),
				fmt.Sprintf("Model: %s", orDash(agent.Model)),
				fmt.Sprintf("Source: %s", agent.Source),
			}
			if agent.Description != "" {
				lines = append(lines, fmt.Sprintf("Description: %s", agent.Description))
			}
			keys := make([]string, 0, len(agent.Metadata))
			for key := range agent.Metadata {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				lines = append(lines, fmt.Sprintf("  %s: %s", key, agent.Metadata[key]))
			}
			lines = append(lines, "", renderAnswer(agent.SystemPrompt))

			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
			return err
		}),
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the agent as JSON")
	return cmd
}

func newAgentInstallCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install <source>",
		Short: "Install an agent from a local directory or github:owner/repo",
		Example: strings.Join([]string{
			"  uap agent install ./my-agent",
			"  uap agent install github:acme/security-auditor",
		}, "\n"),
		Args: cobra.ExactArgs(1),
		RunE: withClose(app, func(cmd *cobra.Command, args []string) error {
			agent, err := app.catalog.Install(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "installed agent %s (%s, %s/%s) from %s\n",
				agent.ID, agent.Type, agent.Backend, orDash(agent.Model), agent.Source)
			return err
		}),
	}
}

func newAgentRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <agent-id>",
		Aliases: []string{"rm"},
		Short:   "Remove an installed agent",
		Args:    cobra.ExactArgs(1),
		RunE: withClose(app, func(cmd *cobra.Command, args []string) error {
			if err := app.catalog.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "removed agent %s\n", args[0])
			return err
		}),
	}
}

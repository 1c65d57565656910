package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/bnema/uap-cli/internal/application"
	"github.com/bnema/uap-cli/internal/domain"
	"github.com/spf13/cobra"
)

type teamView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Members   []string `json:"members"`
	UpdatedAt string   `json:"updated_at,omitempty"`
}

func toTeamView(team domain.Team) teamView {
	view := teamView{ID: team.ID, Name: team.Name, Members: team.Members}
	if !team.UpdatedAt.IsZero() {
		view.UpdatedAt = domain.FormatTimestamp(team.UpdatedAt)
	}
	return view
}

func newTeamCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Manage named agent chains",
	}

	cmd.AddCommand(
		newTeamSetCmd(app),
		newTeamListCmd(app),
		newTeamShowCmd(app),
	)

	return cmd
}

func newTeamSetCmd(app *app) *cobra.Command {
	var (
		id      string
		name    string
		members []string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create or replace a team",
		Args:  cobra.NoArgs,
		RunE: withClose(app, func(cmd *cobra.Command, _ []string) error {
			team, err := app.teams.SetTeam(cmd.Context(), application.SetTeamCommand{
				ID:      id,
				Name:    name,
				Members: splitList(members),
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved team %s: %s\n", team.ID, strings.Join(team.Members, " -> "))
			return err
		}),
	}

	cmd.Flags().StringVar(&id, "id", "", "Team id")
	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the id)")
	cmd.Flags().StringSliceVar(&members, "members", nil, "Agent ids in chain order")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("members")

	return cmd
}

func newTeamListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List teams",
		Args:  cobra.NoArgs,
		RunE: withClose(app, func(cmd *cobra.Command, _ []string) error {
			teams, err := app.teams.ListTeams(cmd.Context())
			if err != nil {
				return err
			}

			views := make([]teamView, 0, len(teams))
			for _, team := range teams {
				views = append(views, toTeamView(team))
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), views)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tMEMBERS")
			for _, view := range views {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", view.ID, view.Name, strings.Join(view.Members, ","))
			}
			return tw.Flush()
		}),
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print teams as JSON")
	return cmd
}

func newTeamShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <team-id>",
		Short: "Show one team",
		Args:  cobra.ExactArgs(1),
		RunE: withClose(app, func(cmd *cobra.Command, args []string) error {
			team, err := app.teams.GetTeam(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), toTeamView(team))
		}),
	}
}

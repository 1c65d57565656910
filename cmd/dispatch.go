package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bnema/uap-cli/internal/application"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const fallbackAgentID = "coder"

func newRunCmd(app *app) *cobra.Command {
	var (
		agentID     string
		sessionID   string
		task        string
		autoHandoff bool
		maxHops     int
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one agent turn against a new or existing session",
		Example: `  uap run --agent planner --task "Build a todo API"
  uap run --session a1b2c3d4
  uap run --agent planner --task "Build a todo API" --auto-handoff --max-hops 3`,
		Args: cobra.NoArgs,
		RunE: withClose(app, func(cmd *cobra.Command, _ []string) error {
			if agentID == "" {
				if sessionID == "" {
					return errors.New("--agent is required when starting a new session")
				}
				act, err := app.states.Get(cmd.Context(), sessionID)
				if err != nil {
					return err
				}
				agentID = act.NextAgentHint
				if agentID == "" {
					agentID = fallbackAgentID
				}
			}

			dispatcher, err := app.dispatcher(cmd.Context(), 0)
			if err != nil {
				return err
			}
			if next, ok := dispatcher.Agents().Resolve(agentID); ok {
				agentID = next.ID
			}

			var result application.DispatchResult
			work := func(ctx context.Context) error {
				var err error
				result, err = dispatcher.Dispatch(ctx, application.DispatchCommand{
					AgentID:     agentID,
					SessionID:   sessionID,
					Task:        task,
					AutoHandoff: autoHandoff,
					MaxHops:     maxHops,
				})
				return err
			}
			if err := runWork(cmd, asJSON, fmt.Sprintf("Running %s...", agentID), work); err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return writeDispatchResult(cmd.OutOrStdout(), result)
		}),
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "Agent id or type to run (defaults to the session's next agent hint)")
	cmd.Flags().StringVar(&sessionID, "session", "", "Continue an existing session")
	cmd.Flags().StringVar(&task, "task", "", "Task for the agent")
	cmd.Flags().BoolVar(&autoHandoff, "auto-handoff", false, "Follow next_agent_hint until no handoff is requested")
	cmd.Flags().IntVar(&maxHops, "max-hops", 0, "Bound for --auto-handoff (default dispatch.max_hops)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the dispatch result as JSON")

	return cmd
}

func newHandoffCmd(app *app) *cobra.Command {
	var (
		sessionID string
		toAgentID string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "handoff",
		Short: "Hand an existing session to another agent using only the ACT",
		Args:  cobra.NoArgs,
		RunE: withClose(app, func(cmd *cobra.Command, _ []string) error {
			dispatcher, err := app.dispatcher(cmd.Context(), 0)
			if err != nil {
				return err
			}

			var result application.DispatchResult
			work := func(ctx context.Context) error {
				var err error
				result, err = dispatcher.Handoff(ctx, sessionID, toAgentID)
				return err
			}
			if err := runWork(cmd, asJSON, fmt.Sprintf("Handing off to %s...", toAgentID), work); err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return writeDispatchResult(cmd.OutOrStdout(), result)
		}),
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session to hand off")
	cmd.Flags().StringVar(&toAgentID, "to", "", "Receiving agent id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the dispatch result as JSON")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func newChainCmd(app *app) *cobra.Command {
	var (
		task      string
		agentIDs  []string
		teamID    string
		sessionID string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Run agents in order, each one continuing from the ACT",
		Example: `  uap chain --task "Build a todo API" --agents planner,coder,reviewer
  uap chain --task "Build a todo API" --team core`,
		Args: cobra.NoArgs,
		RunE: withClose(app, func(cmd *cobra.Command, _ []string) error {
			agents := splitList(agentIDs)
			if teamID != "" {
				if len(agents) > 0 {
					return errors.New("--agents and --team are mutually exclusive")
				}
				team, err := app.teams.GetTeam(cmd.Context(), teamID)
				if err != nil {
					return err
				}
				agents = team.Members
			}

			dispatcher, err := app.dispatcher(cmd.Context(), 0)
			if err != nil {
				return err
			}

			var result application.ChainResult
			work := func(ctx context.Context) error {
				var err error
				result, err = dispatcher.RunChain(ctx, application.ChainCommand{
					Task:      task,
					AgentIDs:  agents,
					SessionID: sessionID,
				})
				return err
			}
			if err := runWork(cmd, asJSON, fmt.Sprintf("Running chain of %d agent(s)...", len(agents)), work); err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return writeChainResult(cmd.OutOrStdout(), result)
		}),
	}

	cmd.Flags().StringVar(&task, "task", "", "Task for the first agent")
	cmd.Flags().StringSliceVar(&agentIDs, "agents", nil, "Comma-separated agent ids")
	cmd.Flags().StringVar(&teamID, "team", "", "Run the members of a team")
	cmd.Flags().StringVar(&sessionID, "session", "", "Continue an existing session")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the chain result as JSON")
	_ = cmd.MarkFlagRequired("task")

	return cmd
}

func newBatchCmd(app *app) *cobra.Command {
	var (
		agentIDs    []string
		tasks       []string
		file        string
		parallelism int
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run independent chains concurrently, one session per task",
		Example: `  uap batch --agents planner,coder --task "Build a CLI" --task "Build a web app" --parallel 2
  uap batch --file batch.yaml`,
		Args: cobra.NoArgs,
		RunE: withClose(app, func(cmd *cobra.Command, _ []string) error {
			var cmds []application.ChainCommand
			if file != "" {
				loaded, err := loadBatchFile(file)
				if err != nil {
					return err
				}
				cmds = loaded
			}
			agents := splitList(agentIDs)
			for _, task := range tasks {
				cmds = append(cmds, application.ChainCommand{Task: task, AgentIDs: agents})
			}
			if len(cmds) == 0 {
				return errors.New("batch needs --task or --file")
			}

			dispatcher, err := app.dispatcher(cmd.Context(), parallelism)
			if err != nil {
				return err
			}

			var results []application.ChainResult
			work := func(ctx context.Context) error {
				var err error
				results, err = dispatcher.RunBatch(ctx, cmds)
				return err
			}
			if err := runWork(cmd, asJSON, fmt.Sprintf("Running %d chain(s)...", len(cmds)), work); err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			for i, result := range results {
				if i > 0 {
					if _, err := fmt.Fprintln(cmd.OutOrStdout()); err != nil {
						return err
					}
				}
				if err := writeChainResult(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			}
			return nil
		}),
	}

	cmd.Flags().StringSliceVar(&agentIDs, "agents", nil, "Comma-separated agent ids for every --task")
	cmd.Flags().StringArrayVar(&tasks, "task", nil, "Task to run (repeatable)")
	cmd.Flags().StringVar(&file, "file", "", "YAML list of {task, agents, session_id} entries")
	cmd.Flags().IntVar(&parallelism, "parallel", 0, "Chains to run at once (default dispatch.parallelism)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the chain results as JSON")

	return cmd
}

func loadBatchFile(path string) ([]application.ChainCommand, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}

	var cmds []application.ChainCommand
	if err := yaml.Unmarshal(data, &cmds); err != nil {
		return nil, fmt.Errorf("decode batch file: %w", err)
	}
	return cmds, nil
}

// runWork shows a spinner on stderr unless JSON output was requested.
func runWork(cmd *cobra.Command, asJSON bool, label string, work func(context.Context) error) error {
	if asJSON || !isTerminal(cmd.ErrOrStderr()) {
		return work(cmd.Context())
	}
	return runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), label, work)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

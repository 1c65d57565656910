package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	sessionrender "github.com/bnema/uap-cli/internal/adapters/render/session"
	"github.com/bnema/uap-cli/internal/application"
	"github.com/bnema/uap-cli/internal/reply"
	"github.com/spf13/cobra"
)

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

// withClose releases app resources after fn, whatever its outcome.
func withClose(app *app, fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		closeErr := app.close(context.WithoutCancel(cmd.Context()))
		return errors.Join(err, closeErr)
	}
}

func renderAnswer(text string) string {
	rendered, err := sessionrender.RenderMarkdown(text, "", 0)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}

func writeDispatchResult(w io.Writer, result application.DispatchResult) error {
	lines := []string{
		fmt.Sprintf("Session: %s", result.SessionID),
		fmt.Sprintf("Agent: %s", result.AgentID),
	}
	for _, hop := range result.Hops {
		lines = append(lines, fmt.Sprintf("Hop: %s -> %s (%s)", hop.From, hop.To, hop.Reason))
	}
	lines = append(lines, "", renderAnswer(result.Response), "")
	lines = append(lines, parseLine(result.ParseStrategy, result.Degraded))

	if info := result.HandoffInfo; info != nil && info.ReadyForHandoff {
		lines = append(lines, fmt.Sprintf("Handoff: %s -> %s", info.Reason, orDash(info.NextAgentHint)))
	}
	if result.HopLimitReached {
		lines = append(lines, "Hop limit reached; run `uap run --session "+result.SessionID+"` to continue.")
	}

	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func writeChainResult(w io.Writer, result application.ChainResult) error {
	lines := []string{fmt.Sprintf("Session: %s", result.SessionID)}
	for i, step := range result.Chain {
		lines = append(lines, "", fmt.Sprintf("[%d] %s  %s", i+1, step.Agent, parseLine(step.ParseStrategy, step.Degraded)))
		lines = append(lines, step.Response)
	}

	validation := "INCOMPLETE"
	if result.Validation.Valid {
		validation = "VALID"
	}
	lines = append(lines, "", fmt.Sprintf("Handshake: %s (%d/3 checks)", validation, result.Validation.PassedCount()))

	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func parseLine(strategy reply.Strategy, degraded bool) string {
	if degraded {
		return fmt.Sprintf("parse: %s (degraded)", strategy)
	}
	return fmt.Sprintf("parse: %s", strategy)
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

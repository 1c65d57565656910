// Package session renders ACT sessions for the terminal.
package session

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const (
	barWidth       = 12
	previewRunes   = 72
	defaultWrap    = 80
	validationSize = 3
)

type RenderOptions struct {
	Now time.Time
}

func RenderList(summaries []domain.SessionSummary, opts RenderOptions) (string, error) {
	return run(func(s styles) string { return listView(summaries, opts, s) })
}

func RenderDetail(act domain.ACT, opts RenderOptions) (string, error) {
	return run(func(s styles) string { return detailView(act, opts, s) })
}

func RenderValidation(report domain.ValidationReport) (string, error) {
	return run(func(s styles) string { return validationView(report, s) })
}

// RenderMarkdown formats an agent answer. An empty style picks one from the
// terminal background.
func RenderMarkdown(text string, style string, width int) (string, error) {
	if width <= 0 {
		width = defaultWrap
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStandardStyle(style)
	}

	renderer, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := renderer.Render(text)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

func listView(summaries []domain.SessionSummary, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("UAP Sessions"),
		s.header.Render(fmt.Sprintf("sessions: %d", len(summaries))),
	}

	if len(summaries) == 0 {
		lines = append(lines, s.empty.Render("No sessions stored."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, summary := range summaries {
		entry := lipgloss.JoinVertical(lipgloss.Left,
			s.session.Render(summary.SessionID)+" "+s.detail.Render(preview(summary.Objective)),
			s.label.Render(fmt.Sprintf("agents: %d  tasks: %d  state: %s  %s",
				summary.Agents,
				summary.Tasks,
				summary.State,
				formatUpdated(summary.UpdatedAt, opts.Now),
			)),
		)
		lines = append(lines, s.section.Render(entry))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func detailView(act domain.ACT, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Session " + act.SessionID),
		s.header.Render(fmt.Sprintf("state: %s  %s", act.State(), formatUpdated(act.UpdatedAt, opts.Now))),
		field(s, "objective", act.CurrentObjective),
		field(s, "context", act.ContextSummary),
		field(s, "origin", act.OriginAgent),
	}

	if act.HandoffReason != "" {
		lines = append(lines, field(s, "handoff", fmt.Sprintf("%s -> %s", act.HandoffReason, orNone(act.NextAgentHint))))
	}

	lines = append(lines, s.section.Render(s.title.Render(fmt.Sprintf("Tasks (%d)", len(act.TaskChain)))))
	if len(act.TaskChain) == 0 {
		lines = append(lines, s.empty.Render("No tasks recorded."))
	}
	for i, task := range act.TaskChain {
		line := fmt.Sprintf("%d. %s %s", i+1, s.agent.Render(task.Agent), preview(task.Task))
		if task.ResultSummary != "" {
			line += " " + s.label.Render("["+task.ResultSummary+"]")
		}
		lines = append(lines, line)
	}

	lines = append(lines, s.section.Render(s.title.Render("Artifacts")))
	lines = append(lines, artifactLines(act.Artifacts, s)...)

	lines = append(lines, s.section.Render(s.title.Render(fmt.Sprintf("Handshake log (%d)", len(act.HandshakeLog)))))
	for _, entry := range act.HandshakeLog {
		lines = append(lines, fmt.Sprintf("%s %s %s",
			s.label.Render(entry.Timestamp.UTC().Format("15:04:05")),
			s.agent.Render(entry.Agent),
			s.detail.Render(strings.Join(entry.UpdatesApplied, ", ")),
		))
	}

	lines = append(lines, s.section.Render(validationView(domain.Validate(act), s)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func validationView(report domain.ValidationReport, s styles) string {
	passed := report.PassedCount()
	verdict := s.fail.Render("INCOMPLETE")
	if report.Valid {
		verdict = s.pass.Render("VALID")
	}

	lines := []string{
		lipgloss.JoinHorizontal(lipgloss.Top,
			s.title.Render("Handshake "),
			renderProgressBar(passed, validationSize, s),
			fmt.Sprintf(" %d/%d ", passed, validationSize),
			verdict,
		),
		checkLine(s, "multi-agent", report.Checks.MultiAgent.Passed, report.Checks.MultiAgent.Message),
		checkLine(s, "context", report.Checks.ContextPreserved.Passed, report.Checks.ContextPreserved.Message),
		checkLine(s, "tasks", report.Checks.TaskProgression.Passed, report.Checks.TaskProgression.Message),
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func artifactLines(a domain.Artifacts, s styles) []string {
	lines := []string{
		field(s, domain.BucketDecisions, countOrList(a.Decisions)),
		field(s, domain.BucketFilesModified, countOrList(a.FilesModified)),
		field(s, domain.BucketCodeSnippets, fmt.Sprintf("%d snippet(s)", len(a.CodeSnippets))),
	}

	keys := make([]string, 0, len(a.GameState))
	for k := range a.GameState {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines = append(lines, field(s, domain.BucketGameState, orNone(strings.Join(keys, ", "))))

	return lines
}

func checkLine(s styles, name string, passed bool, message string) string {
	mark := s.fail.Render("x")
	if passed {
		mark = s.pass.Render("ok")
	}
	return fmt.Sprintf("  %s %s %s", mark, s.label.Render(name+":"), s.detail.Render(message))
}

func field(s styles, label, value string) string {
	return s.label.Render(label+":") + " " + s.detail.Render(orNone(value))
}

func renderProgressBar(done, total int, s styles) string {
	if total <= 0 {
		return ""
	}

	filled := int(math.Round(float64(barWidth) * float64(done) / float64(total)))
	filled = max(0, min(filled, barWidth))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", barWidth-filled)),
		s.barBracket.Render("]"),
	)
}

func countOrList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	if len(items) <= 3 {
		return strings.Join(items, "; ")
	}
	return fmt.Sprintf("%s; and %d more", strings.Join(items[:3], "; "), len(items)-3)
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes-3]) + "..."
}

func orNone(value string) string {
	if strings.TrimSpace(value) == "" {
		return "none"
	}
	return value
}

func formatUpdated(updatedAt, now time.Time) string {
	if updatedAt.IsZero() {
		return "updated: unknown"
	}
	if now.IsZero() {
		return "updated: " + updatedAt.UTC().Format(time.RFC3339)
	}

	elapsed := now.Sub(updatedAt)
	switch {
	case elapsed < time.Minute:
		return "updated just now"
	case elapsed < time.Hour:
		return "updated " + plural(int(elapsed.Minutes()), "minute") + " ago"
	case elapsed < 24*time.Hour:
		return "updated " + plural(int(elapsed.Hours()), "hour") + " ago"
	default:
		return "updated " + plural(int(elapsed.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

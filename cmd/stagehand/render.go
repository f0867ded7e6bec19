package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/stagehand-dev/stagehand/pkg/models"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)

	stateStyles = map[models.TaskState]lipgloss.Style{
		models.TaskStatePending:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		models.TaskStateInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		models.TaskStateCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.TaskStateFailed:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}

	statusStyles = map[models.SessionStatus]lipgloss.Style{
		models.SessionRunning:   lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		models.SessionCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.SessionFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		models.SessionPartial:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
)

func renderState(state models.TaskState) string {
	if style, ok := stateStyles[state]; ok {
		return style.Render(string(state))
	}
	return string(state)
}

func renderStatus(status models.SessionStatus) string {
	if style, ok := statusStyles[status]; ok {
		return style.Render(string(status))
	}
	return string(status)
}

// renderTaskLine formats one progress task for the status listing.
func renderTaskLine(task models.ProgressTask) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %-12s %-12s %s", task.ID, renderState(task.State), task.DesignatedAgent)

	if len(task.Dependencies) > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  (after %s)", strings.Join(task.Dependencies, ", "))))
	}
	if task.SelfHealAttempts > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  [%d heal attempts]", task.SelfHealAttempts)))
	}
	return b.String()
}

func countPending(tasks []models.ProgressTask) int {
	n := 0
	for _, t := range tasks {
		if t.State == models.TaskStatePending {
			n++
		}
	}
	return n
}

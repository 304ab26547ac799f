package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"fairshare/internal/aggregate"
	"fairshare/internal/service"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	titleStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)

	urgencyStyles = map[aggregate.UrgencyClass]lipgloss.Style{
		aggregate.UrgencyOverdue:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		aggregate.UrgencyDueToday: lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		aggregate.UrgencyNormal:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		aggregate.UrgencyNone:     mutedStyle,
	}
)

func renderUrgency(u aggregate.Urgency) string {
	style, ok := urgencyStyles[u.Class]
	if !ok {
		style = mutedStyle
	}
	return style.Render(u.Label)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})
}

func renderProjects(projects []service.ProjectSummary) string {
	if len(projects) == 0 {
		return mutedStyle.Render("No projects found.") + "\n"
	}

	t := newTable("ID", "NAME", "DEADLINE", "STATUS", "MODULES", "PROGRESS")
	for _, p := range projects {
		deadline := "-"
		if p.Project.Deadline != nil {
			deadline = p.Project.Deadline.String()
		}
		t.Row(
			strconv.FormatInt(p.Project.ID, 10),
			p.Project.Name,
			deadline,
			renderUrgency(p.Urgency),
			fmt.Sprintf("%d/%d", p.CompletedModules, p.TotalModules),
			fmt.Sprintf("%d%%", p.Progress),
		)
	}
	return t.Render() + "\n"
}

func renderReport(r aggregate.Report) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(r.Project.Name))
	b.WriteString("  ")
	b.WriteString(renderUrgency(r.Urgency))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d of %d modules complete (%d%%)\n\n", r.CompletedModules, r.TotalModules, r.Progress)

	if len(r.Rows) == 0 {
		b.WriteString(mutedStyle.Render("No modules yet."))
		b.WriteString("\n")
		return b.String()
	}

	t := newTable("MODULE", "ASSIGNEE", "PRIORITY", "DONE", "UPDATES")
	for _, row := range r.Rows {
		done := ""
		if row.Completed {
			done = successStyle.Render("yes")
		}
		lines := make([]string, 0, len(row.Updates))
		for _, u := range row.Updates {
			lines = append(lines, u.Date.String()+"  "+u.Text)
		}
		updates := strings.Join(lines, "\n")
		if updates == "" {
			updates = mutedStyle.Render("-")
		}
		t.Row(row.Name, row.Assignee, row.Priority.String(), done, updates)
	}
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

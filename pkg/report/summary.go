package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-tempering/pkg/optimizer"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 1)

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

var columnWidths = []int{24, 12, 20, 16, 8}

func row(cells ...string) string {
	rendered := make([]string, len(cells))
	for i, c := range cells {
		rendered[i] = lipgloss.NewStyle().Width(columnWidths[i]).Render(c)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// RenderSummary renders one line per query plus a totals footer.
func RenderSummary(entries []Entry) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Tempering optimization summary"))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(row("QUERY", "MODE", "STATUS", "COST", "PATHS")))
	b.WriteString("\n")

	succeeded := 0
	for _, e := range entries {
		status, cost, paths := "", "-", "-"
		if e.OK() {
			succeeded++
			status = okStyle.Render("ok")
			cost = fmt.Sprintf("%.2f %s", e.Result.Cost, e.Query.Mode.Unit())
			paths = fmt.Sprintf("%d", len(e.Result.Paths))
			if e.Result.Cached {
				paths += dimStyle.Render(" (cached)")
			}
		} else {
			kind := optimizer.KindOf(e.Err).String()
			status = failStyle.Render(kind)
		}
		b.WriteString(row(e.Query.Name, e.Query.Mode.String(), status, cost, paths))
		b.WriteString("\n")
	}

	footer := fmt.Sprintf("%d queries, %d succeeded, %d failed", len(entries), succeeded, len(entries)-succeeded)
	return boxStyle.Render(strings.TrimRight(b.String(), "\n")+"\n\n"+footer) + "\n"
}

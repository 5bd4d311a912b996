package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/autogroup/internal/rules"
)

// ConfirmDelete asks before a rule is removed.
type ConfirmDelete struct {
	Rule rules.Rule
}

func (m ConfirmDelete) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	normalStyle := lipgloss.NewStyle().Padding(0, 1)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("196")).
		Padding(1, 2)

	name := m.Rule.Name
	if name == "" {
		name = m.Rule.GroupName
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Delete rule %q?", name)) + "\n\n")
	b.WriteString(normalStyle.Render("Tabs already grouped stay where they are.") + "\n\n")
	b.WriteString(normalStyle.Render("y delete · n/esc cancel"))

	return boxStyle.Render(b.String())
}

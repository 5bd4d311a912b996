package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/autogroup/internal/rules"
)

// RuleList renders the stored rules with a cursor.
type RuleList struct {
	Rules  []rules.Rule
	Cursor int
	Offset int // scroll offset
	Width  int
	Height int
}

func (m *RuleList) SetRules(rs []rules.Rule) {
	m.Rules = rs
	if m.Cursor >= len(rs) {
		m.Cursor = len(rs) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	m.ensureVisible()
}

func (m *RuleList) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
	m.ensureVisible()
}

func (m *RuleList) MoveDown() {
	if m.Cursor < len(m.Rules)-1 {
		m.Cursor++
	}
	m.ensureVisible()
}

// Selected returns the rule under the cursor.
func (m RuleList) Selected() (rules.Rule, bool) {
	if m.Cursor >= 0 && m.Cursor < len(m.Rules) {
		return m.Rules[m.Cursor], true
	}
	return rules.Rule{}, false
}

// Each rule takes two rows: the header and the pattern line.
func (m RuleList) visibleRules() int {
	if m.Height <= 0 {
		return len(m.Rules)
	}
	n := m.Height / 2
	if n < 1 {
		n = 1
	}
	return n
}

func (m *RuleList) ensureVisible() {
	rows := m.visibleRules()
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+rows {
		m.Offset = m.Cursor - rows + 1
	}
}

func (m RuleList) View() string {
	if len(m.Rules) == 0 {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("240")).
			Render("No rules yet. Press 'a' to add one.")
	}

	cursorStyle := lipgloss.NewStyle().Bold(true).Reverse(true)
	onStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	offStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	patternStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	end := m.Offset + m.visibleRules()
	if end > len(m.Rules) {
		end = len(m.Rules)
	}

	var b strings.Builder
	for i := m.Offset; i < end; i++ {
		r := m.Rules[i]

		status := onStyle.Render("● on ")
		if !r.Enabled {
			status = offStyle.Render("○ off")
		}
		name := r.Name
		if name == "" {
			name = r.GroupName
		}
		if i == m.Cursor {
			name = cursorStyle.Render(" " + name + " ")
		}
		fmt.Fprintf(&b, "%s %s  → %s\n", status, name, groupLabel(r.GroupName, r.GroupColor))

		patterns := strings.Join(r.Pattern, ", ")
		maxLen := m.Width - 6
		if maxLen > 10 && len(patterns) > maxLen {
			patterns = patterns[:maxLen-1] + "…"
		}
		b.WriteString("      " + patternStyle.Render(patterns))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

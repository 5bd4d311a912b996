package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/autogroup/internal/rules"
)

// swatchColors maps group colors to terminal colors.
var swatchColors = map[rules.Color]lipgloss.Color{
	rules.Grey:   lipgloss.Color("245"),
	rules.Blue:   lipgloss.Color("33"),
	rules.Red:    lipgloss.Color("196"),
	rules.Yellow: lipgloss.Color("226"),
	rules.Green:  lipgloss.Color("42"),
	rules.Pink:   lipgloss.Color("205"),
	rules.Purple: lipgloss.Color("135"),
	rules.Cyan:   lipgloss.Color("51"),
	rules.Orange: lipgloss.Color("214"),
}

func swatch(c rules.Color) string {
	c = c.OrDefault()
	return lipgloss.NewStyle().Foreground(swatchColors[c]).Render("■")
}

func groupLabel(name string, c rules.Color) string {
	c = c.OrDefault()
	return swatch(c) + " " + lipgloss.NewStyle().Foreground(swatchColors[c]).Bold(true).Render(name)
}

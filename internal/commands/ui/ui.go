// Package ui holds the terminal styles shared by the commands. Colours are
// dropped automatically when stdout is not a terminal.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	muted     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func Title(s string) string { return titleStyle.Render(s) }
func OK(s string) string    { return okStyle.Render("✅ " + s) }
func Fail(s string) string  { return failStyle.Render("❌ " + s) }
func Warn(s string) string  { return warnStyle.Render("⚠️  " + s) }
func Info(s string) string  { return infoStyle.Render("ℹ️  " + s) }
func Muted(s string) string { return muted.Render(s) }

// Panel boxes a block of lines.
func Panel(lines ...string) string {
	return panelStyle.Render(strings.Join(lines, "\n"))
}

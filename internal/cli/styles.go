// Package cli renders hearth's terminal output: tables, previews, prompts and
// progress, styled with lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/hearth/internal/model"
)

// Palette.
var (
	PrimaryColor = lipgloss.Color("#F28C28") // ember
	SuccessColor = lipgloss.Color("#4ECDC4")
	WarningColor = lipgloss.Color("#FFE66D")
	ErrorColor   = lipgloss.Color("#FF6B6B")
	InfoColor    = lipgloss.Color("#95E1D3")
	SubtleColor  = lipgloss.Color("#666666")
	BorderColor  = lipgloss.Color("#333333")
)

var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor).MarginBottom(1)
	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ErrorColor)
	InfoStyle    = lipgloss.NewStyle().Foreground(InfoColor)
	SubtleStyle  = lipgloss.NewStyle().Foreground(SubtleColor)
	PromptStyle  = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)

	// BoxStyle frames summaries such as a committed import.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2)

	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor).Padding(0, 1)
	TableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

const (
	successIcon = "✓"
	warningIcon = "⚠️"
	infoIcon    = "ℹ️"
	hearthIcon  = "🏠"
)

// ActionStyle returns the style used for an import action.
func ActionStyle(action model.ImportAction) lipgloss.Style {
	switch action {
	case model.ActionCreate:
		return SuccessStyle
	case model.ActionUpdate:
		return InfoStyle
	case model.ActionSkip:
		return WarningStyle
	default:
		return SubtleStyle
	}
}

// StatusStyle returns the style used for a recurring pattern status.
func StatusStyle(status model.PatternStatus) lipgloss.Style {
	switch status {
	case model.PatternConfirmed:
		return SuccessStyle
	case model.PatternDetected:
		return InfoStyle
	case model.PatternPaused:
		return WarningStyle
	default:
		return SubtleStyle
	}
}

func FormatSuccess(message string) string {
	return SuccessStyle.Render(successIcon + " " + message)
}

func FormatWarning(message string) string {
	return WarningStyle.Render(warningIcon + " " + message)
}

func FormatInfo(message string) string {
	return InfoStyle.Render(infoIcon + " " + message)
}

// FormatTitle prefixes title with the hearth icon.
func FormatTitle(title string) string {
	return TitleStyle.Render(hearthIcon + " " + title)
}

func FormatPrompt(prompt string) string {
	return PromptStyle.Render(prompt + " → ")
}

// RenderBox renders content in a bordered box under title.
func RenderBox(title, content string) string {
	heading := TitleStyle.UnsetMargins().Render(title)
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, heading, content))
}

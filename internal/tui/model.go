// Package tui provides the interactive import review screen.
package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/hearth/internal/cli"
	"github.com/Veraticus/hearth/internal/importer"
	"github.com/Veraticus/hearth/internal/model"
)

const (
	skipMark      = "✗"
	chromeHeight  = 7
	defaultHeight = 20
)

// ReviewModel lets the user mark preview rows to skip before an import is applied.
type ReviewModel struct {
	help      help.Model
	skipped   map[int]bool
	preview   model.ImportPreview
	table     table.Model
	keys      KeyMap
	confirmed bool
	done      bool
}

// NewReviewModel creates a review screen for preview. Rows listed in initialSkips
// start out skipped.
func NewReviewModel(preview model.ImportPreview, initialSkips []int) ReviewModel {
	columns := []table.Column{
		{Title: "Skip", Width: 4},
		{Title: "Row", Width: 5},
		{Title: "Action", Width: 10},
		{Title: "Date", Width: 10},
		{Title: "Description", Width: 32},
		{Title: "Amount", Width: 10},
		{Title: "Match", Width: 12},
		{Title: "Notes", Width: 40},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(defaultHeight),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(cli.SubtleColor).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#1a1a1a")).
		Background(cli.PrimaryColor)
	t.SetStyles(s)

	m := ReviewModel{
		preview: preview,
		skipped: make(map[int]bool),
		table:   t,
		keys:    DefaultKeyMap(),
		help:    help.New(),
	}
	for _, n := range initialSkips {
		if idx := m.indexOf(n); idx >= 0 && m.toggleable(idx) {
			m.skipped[n] = true
		}
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m ReviewModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-chromeHeight, 3))
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Confirm):
			m.confirmed = true
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Toggle):
			m.toggle(m.table.Cursor())
			return m, nil
		case key.Matches(msg, m.keys.SkipWarnings):
			for i, row := range m.preview.Rows {
				if len(row.Warnings) > 0 && m.toggleable(i) {
					m.skipped[row.RowNumber] = true
				}
			}
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Reset):
			clear(m.skipped)
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m ReviewModel) View() string {
	if m.done {
		return ""
	}

	summary := importer.ApplySkips(m.preview, m.SkipRowNumbers()).Summary
	return strings.Join([]string{
		cli.FormatTitle(fmt.Sprintf("Review import (%d rows, %d marked to skip)", m.preview.TotalRows, len(m.skipped))),
		m.table.View(),
		cli.FormatSummary(summary),
		m.help.View(m.keys),
	}, "\n")
}

// SkipRowNumbers returns the row numbers marked to skip in ascending order.
func (m ReviewModel) SkipRowNumbers() []int {
	rows := make([]int, 0, len(m.skipped))
	for n, skip := range m.skipped {
		if skip {
			rows = append(rows, n)
		}
	}
	slices.Sort(rows)
	return rows
}

// Confirmed reports whether the user chose to apply the import.
func (m ReviewModel) Confirmed() bool {
	return m.confirmed
}

// toggleable reports whether the row at idx can be skipped. Rows the preview already
// skips stay skipped.
func (m ReviewModel) toggleable(idx int) bool {
	if idx < 0 || idx >= len(m.preview.Rows) {
		return false
	}
	return m.preview.Rows[idx].Action != model.ActionSkip
}

func (m ReviewModel) indexOf(rowNumber int) int {
	for i, row := range m.preview.Rows {
		if row.RowNumber == rowNumber {
			return i
		}
	}
	return -1
}

func (m *ReviewModel) toggle(idx int) {
	if !m.toggleable(idx) {
		return
	}
	n := m.preview.Rows[idx].RowNumber
	if m.skipped[n] {
		delete(m.skipped, n)
	} else {
		m.skipped[n] = true
	}
	m.refresh()
}

func (m *ReviewModel) refresh() {
	base := cli.PreviewRows(m.preview)
	rows := make([]table.Row, 0, len(base))
	for i, cells := range base {
		mark := ""
		if m.skipped[m.preview.Rows[i].RowNumber] {
			mark = skipMark
		}
		rows = append(rows, append(table.Row{mark}, cells...))
	}
	m.table.SetRows(rows)
}

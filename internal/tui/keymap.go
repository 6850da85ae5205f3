package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the review screen shortcuts. Row movement uses the table's own
// bindings.
type KeyMap struct {
	Up           key.Binding
	Down         key.Binding
	Toggle       key.Binding
	SkipWarnings key.Binding
	Reset        key.Binding
	Confirm      key.Binding
	Quit         key.Binding
	Help         key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("x", "s"),
			key.WithHelp("x/s", "toggle skip"),
		),
		SkipWarnings: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "skip rows with warnings"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "clear skips"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "apply"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q/Esc", "cancel"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Confirm, k.Quit, k.Help}
}

// FullHelp returns all key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Toggle, k.SkipWarnings, k.Reset},
		{k.Confirm, k.Quit, k.Help},
	}
}

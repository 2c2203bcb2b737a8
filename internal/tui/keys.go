package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	NextTab  key.Binding
	PrevTab  key.Binding
	NextSpan key.Binding
	PrevSpan key.Binding
	Toggle   key.Binding
	Close    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	NextTab: key.NewBinding(
		key.WithKeys("right", "l", "]"),
		key.WithHelp("→/l", "next tab"),
	),
	PrevTab: key.NewBinding(
		key.WithKeys("left", "h", "["),
		key.WithHelp("←/h", "prev tab"),
	),
	NextSpan: key.NewBinding(
		key.WithKeys("tab", "n"),
		key.WithHelp("tab/n", "next comment"),
	),
	PrevSpan: key.NewBinding(
		key.WithKeys("shift+tab", "N"),
		key.WithHelp("S-tab/N", "prev comment"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "show/hide comment"),
	),
	Close: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close comment"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

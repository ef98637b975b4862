package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the inventag TUI.
type KeyMap struct {
	NextField key.Binding
	PrevField key.Binding
	Submit    key.Binding

	Save    key.Binding // Store the item on the server.
	Produce key.Binding // Compose a label and open the preview.

	// Preview modal.
	Download key.Binding
	Close    key.Binding
	ScrollUp key.Binding
	ScrollDn key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	NextField: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("tab", "next field"),
	),
	PrevField: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("S-tab", "prev field"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "log in"),
	),
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("C-s", "save item"),
	),
	Produce: key.NewBinding(
		key.WithKeys("ctrl+p"),
		key.WithHelp("C-p", "label"),
	),
	Download: key.NewBinding(
		key.WithKeys("d", "ctrl+d"),
		key.WithHelp("d", "download"),
	),
	Close: key.NewBinding(
		key.WithKeys("esc", "q"),
		key.WithHelp("esc", "close"),
	),
	ScrollUp: key.NewBinding(
		key.WithKeys("k", "up"),
	),
	ScrollDn: key.NewBinding(
		key.WithKeys("j", "down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("C-c", "quit"),
	),
}

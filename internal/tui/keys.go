package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the player screen
type KeyMap struct {
	// Transport
	PlayPause   key.Binding
	SeekBack    key.Binding
	SeekForward key.Binding

	// Session
	Captions key.Binding
	Episodes key.Binding
	Jump     key.Binding
	Info     key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Escape key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		PlayPause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "play/pause"),
		),
		SeekBack: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "seek back"),
		),
		SeekForward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "seek forward"),
		),
		Captions: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "captions"),
		),
		Episodes: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "episodes"),
		),
		Jump: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "jump to episode"),
		),
		Info: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "media info"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close/back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle      key.Binding
	Back        key.Binding
	Forward     key.Binding
	Sooner      key.Binding
	Later       key.Binding
	MuchSooner  key.Binding
	MuchLater   key.Binding
	ResetOffset key.Binding
	Copy        key.Binding
	Edit        key.Binding
	Header      key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space", "play/pause"),
		),
		Back: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "-5s"),
		),
		Forward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "+5s"),
		),
		Sooner: key.NewBinding(
			key.WithKeys("+", "=", "up", "k"),
			key.WithHelp("+", "lyrics sooner"),
		),
		Later: key.NewBinding(
			key.WithKeys("-", "down", "j"),
			key.WithHelp("-", "lyrics later"),
		),
		MuchSooner: key.NewBinding(
			key.WithKeys("]", "K"),
			key.WithHelp("]", "sooner ×5"),
		),
		MuchLater: key.NewBinding(
			key.WithKeys("[", "J"),
			key.WithHelp("[", "later ×5"),
		),
		ResetOffset: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "reset offset"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy line"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit lyrics"),
			key.WithDisabled(),
		),
		Header: key.NewBinding(
			key.WithKeys("tab", "i"),
			key.WithHelp("tab", "header"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

// updateEnabled turns bindings on and off for what the session supports.
func (k *keyMap) updateEnabled(s *Session) {
	hasTransport := s != nil && s.Transport != nil
	k.Toggle.SetEnabled(hasTransport)
	k.Back.SetEnabled(hasTransport)
	k.Forward.SetEnabled(hasTransport)
	k.Edit.SetEnabled(s != nil && s.Path != "")
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Sooner, k.Later, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Back, k.Forward},
		{k.Sooner, k.Later, k.MuchSooner, k.MuchLater, k.ResetOffset},
		{k.Copy, k.Edit, k.Header},
		{k.Help, k.Quit},
	}
}

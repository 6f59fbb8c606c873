package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	Enter    key.Binding
	Back     key.Binding
	Open     key.Binding
	New      key.Binding
	Rename   key.Binding
	Delete   key.Binding
	AddFiles key.Binding
	AddWeb   key.Binding
	Details  key.Binding
	Listen   key.Binding
	Save     key.Binding
	Revert   key.Binding
	Startup  key.Binding
	AutoSave key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit group")),
		Back:     key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
		Open:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open group")),
		New:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new group")),
		Rename:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
		Delete:   key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		AddFiles: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "add files")),
		AddWeb:   key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "add web page")),
		Details:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit details")),
		Listen:   key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "listen to dir")),
		Save:     key.NewBinding(key.WithKeys("s", "ctrl+s"), key.WithHelp("s", "save")),
		Revert:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "revert")),
		Startup:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "start with system")),
		AutoSave: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "auto save")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// groupsHelp and entriesHelp expose the bindings of each screen to
// help.Model.
type groupsHelp keyMap

func (k groupsHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.Open, k.New, k.Delete, k.Save, k.Help, k.Quit}
}

func (k groupsHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Enter},
		{k.Open, k.New, k.Rename, k.Delete},
		{k.Save, k.Revert, k.Startup, k.AutoSave},
		{k.Help, k.Quit},
	}
}

type entriesHelp keyMap

func (k entriesHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.AddFiles, k.AddWeb, k.Delete, k.Listen, k.Back, k.Help}
}

func (k entriesHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back},
		{k.Open, k.AddFiles, k.AddWeb, k.Details},
		{k.Delete, k.Listen, k.Save, k.Revert},
		{k.Help, k.Quit},
	}
}

package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	enter     key.Binding
	back      key.Binding
	nextTab   key.Binding
	prevTab   key.Binding
	search    key.Binding
	play      key.Binding
	next      key.Binding
	prev      key.Binding
	seekBack  key.Binding
	seekAhead key.Binding
	volUp     key.Binding
	volDown   key.Binding
	shuffle   key.Binding
	repeat    key.Binding
	expand    key.Binding
	favorite  key.Binding
	retry     key.Binding
	create    key.Binding
	remove    key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		nextTab:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		prevTab:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),
		search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		play:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		prev:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev")),
		seekBack:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "-10%")),
		seekAhead: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "+10%")),
		volUp:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "vol up")),
		volDown:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "vol down")),
		shuffle:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
		repeat:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat")),
		expand:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "expand")),
		favorite:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "favorite")),
		retry:     key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "retry")),
		create:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "new playlist")),
		remove:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.play, k.next, k.prev, k.search, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.nextTab, k.prevTab, k.search, k.retry},
		{k.play, k.next, k.prev, k.seekBack, k.seekAhead},
		{k.volUp, k.volDown, k.shuffle, k.repeat, k.expand, k.favorite},
		{k.create, k.remove, k.quit},
	}
}

package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit        key.Binding
	reload      key.Binding
	toggleHelp  key.Binding
	nextTab     key.Binding
	prevTab     key.Binding
	moveUp      key.Binding
	moveDown    key.Binding
	details     key.Binding
	newEntry    key.Binding
	newEvidence key.Binding
	kindFilter  key.Binding
	copySummary key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		nextTab:     key.NewBinding(key.WithKeys("tab", "l", "right"), key.WithHelp("tab/l", "next tab")),
		prevTab:     key.NewBinding(key.WithKeys("shift+tab", "h", "left"), key.WithHelp("shift+tab/h", "previous tab")),
		moveUp:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "category up")),
		moveDown:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "category down")),
		details:     key.NewBinding(key.WithKeys("i", "enter"), key.WithHelp("i/enter", "category details")),
		newEntry:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new micro-action")),
		newEvidence: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "new evidence")),
		kindFilter:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter kind")),
		copySummary: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy summary")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.nextTab, k.moveDown, k.details, k.newEntry, k.newEvidence, k.kindFilter, k.copySummary, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.nextTab, k.prevTab, k.moveUp, k.moveDown, k.details},
		{k.newEntry, k.newEvidence, k.kindFilter, k.copySummary},
		{k.reload, k.toggleHelp, k.quit},
	}
}

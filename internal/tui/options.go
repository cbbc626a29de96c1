package tui

import "github.com/atotto/clipboard"

type Option func(*Model)

type ClipboardFunc func(string) error

func WithDisplayName(name string) Option {
	return func(m *Model) {
		m.displayName = name
	}
}

func WithClipboard(fn ClipboardFunc) Option {
	return func(m *Model) {
		if fn != nil {
			m.copyText = fn
		}
	}
}

// WithChangeFeed reloads the dashboard whenever the channel fires.
func WithChangeFeed(changes <-chan struct{}) Option {
	return func(m *Model) {
		m.changes = changes
	}
}

// systemClipboard writes to the OS clipboard.
func systemClipboard(text string) error {
	return clipboard.WriteAll(text)
}

package app

import (
	"context"

	"github.com/colibri-os/rlab/internal/domain"
)

// EventLog represents the append-only event store used by this package.
type EventLog interface {
	LoadEvents(context.Context) ([]domain.Event, LoadReport, error)
	AppendEvent(context.Context, domain.Event) error
}

// LoadReport describes how much of the stored log could be read back.
type LoadReport struct {
	Loaded    int    `json:"loaded"`
	Skipped   int    `json:"skipped"`
	Corrupt   bool   `json:"corrupt,omitempty"`
	BackupKey string `json:"backup_key,omitempty"`
	Failure   string `json:"failure,omitempty"`
}

// Degraded reports whether any stored data was ignored during load.
func (r LoadReport) Degraded() bool {
	return r.Skipped > 0 || r.Corrupt || r.Failure != ""
}

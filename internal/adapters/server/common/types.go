// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"

	"github.com/colibri-os/rlab/internal/app"
	"github.com/colibri-os/rlab/internal/domain"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing resources.
var ErrNotFound = errors.New("not found")

// ErrConflict reports a submission whose event id is already stored.
var ErrConflict = errors.New("conflict")

// ErrStorageUnavailable reports event log write failures.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ProgressReader exposes progress snapshots to transports.
type ProgressReader interface {
	Progress(context.Context) (Progress, error)
}

// TimelineReader exposes the display-ordered event timeline.
type TimelineReader interface {
	Timeline(context.Context, TimelineRequest) (Timeline, error)
}

// CatalogReader exposes the static category and level tables.
type CatalogReader interface {
	Categories(context.Context) ([]domain.Category, error)
	Levels(context.Context) ([]domain.Level, error)
}

// EventSubmitter accepts new user submissions.
type EventSubmitter interface {
	SubmitEvent(context.Context, SubmitEventRequest) (SubmitEventResult, error)
}

// ReputationService is the full transport-facing surface.
type ReputationService interface {
	ProgressReader
	TimelineReader
	CatalogReader
	EventSubmitter
}

// TimelineRequest stores timeline filter input.
type TimelineRequest struct {
	Category string `json:"category,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

// SubmitEventRequest stores one new event submission.
type SubmitEventRequest struct {
	Kind                 string `json:"kind"`
	Category             string `json:"category,omitempty"`
	Title                string `json:"title"`
	Description          string `json:"description"`
	RegisteredExternally bool   `json:"registered_externally,omitempty"`
}

// Event is the transport view of one stored event.
type Event struct {
	ID                   string    `json:"id"`
	Kind                 string    `json:"kind"`
	KindLabel            string    `json:"kind_label"`
	Category             string    `json:"category,omitempty"`
	CategoryLabel        string    `json:"category_label,omitempty"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	RegisteredExternally bool      `json:"registered_externally"`
	CreatedAt            time.Time `json:"created_at"`
}

// Progress is the transport view of one computed snapshot plus load diagnostics.
type Progress struct {
	app.ProgressSnapshot
	Load app.LoadReport `json:"load"`
}

// Timeline is the transport view of one filtered timeline.
type Timeline struct {
	Filter TimelineRequest    `json:"filter"`
	Events []Event            `json:"events"`
	Counts app.TimelineCounts `json:"counts"`
	Load   app.LoadReport     `json:"load"`
}

// SubmitEventResult stores one accepted submission.
type SubmitEventResult struct {
	Event   Event  `json:"event"`
	Message string `json:"message"`
}

// SupportedKinds returns the canonical kind values accepted by transport adapters.
func SupportedKinds() []string {
	return []string{
		string(domain.EventKindMicroAction),
		string(domain.EventKindEvidence),
		string(domain.EventKindMilestone),
	}
}

// SupportedCategories returns the canonical category ids accepted by transport adapters.
func SupportedCategories() []string {
	ids := domain.CategoryIDs()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

// EventFromDomain maps one domain event onto its transport view.
func EventFromDomain(event domain.Event) Event {
	kind := event.DisplayKind()
	out := Event{
		ID:                   event.ID,
		Kind:                 string(kind),
		KindLabel:            kind.Label(),
		Category:             string(event.Category),
		Title:                event.Title,
		Description:          event.Description,
		RegisteredExternally: event.RegisteredExternally,
		CreatedAt:            event.CreatedAt,
	}
	if category, ok := domain.LookupCategory(event.Category); ok {
		out.CategoryLabel = category.Label
	}
	return out
}

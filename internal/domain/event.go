package domain

import (
	"slices"
	"strings"
	"time"
)

// EventKind identifies the kind of one progress event.
type EventKind string

// EventKind values, stored in their persisted form.
const (
	EventKindMicroAction EventKind = "microaccion"
	EventKindEvidence    EventKind = "evidencia"
	EventKindMilestone   EventKind = "hito"
)

// validEventKinds stores all supported kind values.
var validEventKinds = []EventKind{
	EventKindMicroAction,
	EventKindEvidence,
	EventKindMilestone,
}

// eventKindAliases maps accepted spellings onto stored kind values.
var eventKindAliases = map[string]EventKind{
	"microaccion":  EventKindMicroAction,
	"microacción":  EventKindMicroAction,
	"micro":        EventKindMicroAction,
	"micro-action": EventKindMicroAction,
	"micro_action": EventKindMicroAction,
	"microaction":  EventKindMicroAction,
	"evidencia":    EventKindEvidence,
	"evidence":     EventKindEvidence,
	"hito":         EventKindMilestone,
	"milestone":    EventKindMilestone,
}

// Event stores one immutable entry in the progress log.
type Event struct {
	ID                   string
	Kind                 EventKind
	Category             CategoryID
	Title                string
	Description          string
	RegisteredExternally bool
	CreatedAt            time.Time
}

// EventInput holds write-time values for event creation.
type EventInput struct {
	ID                   string
	Kind                 EventKind
	Category             CategoryID
	Title                string
	Description          string
	RegisteredExternally bool
}

// createdAtPrecision is the finest timestamp resolution every store persists.
const createdAtPrecision = time.Millisecond

// NewEvent validates a user submission and constructs a normalized event.
// CreatedAt is truncated to createdAtPrecision so a stored event reloads equal.
func NewEvent(in EventInput, now time.Time) (Event, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Kind = NormalizeEventKind(in.Kind)
	in.Category = NormalizeCategoryID(in.Category)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	if in.ID == "" {
		return Event{}, ErrInvalidID
	}
	if !IsValidEventKind(in.Kind) {
		return Event{}, ErrInvalidKind
	}
	if in.Kind.Countable() && !IsKnownCategory(in.Category) {
		return Event{}, ErrInvalidCategory
	}
	if in.Kind == EventKindMilestone && in.Category != "" && !IsKnownCategory(in.Category) {
		return Event{}, ErrInvalidCategory
	}
	if in.Title == "" {
		return Event{}, ErrInvalidTitle
	}
	if in.Description == "" {
		return Event{}, ErrInvalidDescription
	}

	return Event{
		ID:                   in.ID,
		Kind:                 in.Kind,
		Category:             in.Category,
		Title:                in.Title,
		Description:          in.Description,
		RegisteredExternally: in.RegisteredExternally,
		CreatedAt:            now.UTC().Truncate(createdAtPrecision),
	}, nil
}

// StoredEventInput holds persisted values for event restoration.
type StoredEventInput struct {
	ID                   string
	Kind                 EventKind
	Category             CategoryID
	Title                string
	Description          string
	RegisteredExternally bool
	CreatedAt            time.Time
}

// RestoreEvent rebuilds an event read back from storage.
// Unknown kinds and categories are preserved so aggregation can exclude them;
// only records without an id or title are rejected.
func RestoreEvent(in StoredEventInput) (Event, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return Event{}, ErrInvalidID
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Event{}, ErrInvalidTitle
	}
	kind := NormalizeEventKind(in.Kind)
	if kind == "" {
		kind = EventKind(strings.TrimSpace(string(in.Kind)))
	}
	createdAt := in.CreatedAt
	if !createdAt.IsZero() {
		createdAt = createdAt.UTC()
	}
	return Event{
		ID:                   id,
		Kind:                 kind,
		Category:             NormalizeCategoryID(in.Category),
		Title:                title,
		Description:          strings.TrimSpace(in.Description),
		RegisteredExternally: in.RegisteredExternally,
		CreatedAt:            createdAt,
	}, nil
}

// NormalizeEventKind canonicalizes kind spellings. Unknown values return "".
func NormalizeEventKind(kind EventKind) EventKind {
	key := strings.TrimSpace(strings.ToLower(string(kind)))
	if key == "" {
		return ""
	}
	return eventKindAliases[key]
}

// IsValidEventKind reports whether a kind value is supported.
func IsValidEventKind(kind EventKind) bool {
	return slices.Contains(validEventKinds, NormalizeEventKind(kind))
}

// Countable reports whether events of this kind feed category progress.
func (k EventKind) Countable() bool {
	return k == EventKindMicroAction || k == EventKindEvidence
}

// Label returns the human-facing kind name.
func (k EventKind) Label() string {
	switch k {
	case EventKindMicroAction:
		return "Microacción"
	case EventKindEvidence:
		return "Evidencia"
	default:
		return "Hito"
	}
}

// DisplayKind maps unknown kinds onto milestones for timeline rendering.
func (e Event) DisplayKind() EventKind {
	if IsValidEventKind(e.Kind) {
		return e.Kind
	}
	return EventKindMilestone
}

// Counts reports whether the event contributes to category progress.
func (e Event) Counts() bool {
	return e.Kind.Countable() && IsKnownCategory(e.Category)
}

package app

import (
	"slices"

	"github.com/colibri-os/rlab/internal/domain"
)

// TimelineFilter narrows a timeline view. Empty fields match everything.
type TimelineFilter struct {
	Category domain.CategoryID `json:"category,omitempty"`
	Kind     domain.EventKind  `json:"kind,omitempty"`
}

// Matches reports whether one event passes the filter.
func (f TimelineFilter) Matches(event domain.Event) bool {
	if category := domain.NormalizeCategoryID(f.Category); category != "" && event.Category != category {
		return false
	}
	if f.Kind != "" {
		kind := domain.NormalizeEventKind(f.Kind)
		if kind == "" || event.DisplayKind() != kind {
			return false
		}
	}
	return true
}

// TimelineCounts summarizes a timeline by kind.
type TimelineCounts struct {
	Total                int `json:"total"`
	MicroActions         int `json:"micro_actions"`
	Evidence             int `json:"evidence"`
	Milestones           int `json:"milestones"`
	RegisteredExternally int `json:"registered_externally"`
}

// Timeline stores one filtered, display-ordered view of the log.
type Timeline struct {
	Filter TimelineFilter `json:"filter"`
	Events []domain.Event `json:"events"`
	Counts TimelineCounts `json:"counts"`
}

// SortForDisplay returns events newest first; ties keep insertion order.
func SortForDisplay(events []domain.Event) []domain.Event {
	out := slices.Clone(events)
	slices.SortStableFunc(out, func(a, b domain.Event) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// BuildTimeline sorts and filters events; counts cover the whole log.
func BuildTimeline(events []domain.Event, filter TimelineFilter) Timeline {
	filter.Category = domain.NormalizeCategoryID(filter.Category)
	if kind := domain.NormalizeEventKind(filter.Kind); kind != "" {
		filter.Kind = kind
	}
	sorted := SortForDisplay(events)
	out := Timeline{Filter: filter, Events: make([]domain.Event, 0, len(sorted))}
	for _, event := range sorted {
		switch event.DisplayKind() {
		case domain.EventKindMicroAction:
			out.Counts.MicroActions++
		case domain.EventKindEvidence:
			out.Counts.Evidence++
		default:
			out.Counts.Milestones++
		}
		if event.RegisteredExternally {
			out.Counts.RegisteredExternally++
		}
		out.Counts.Total++
		if filter.Matches(event) {
			out.Events = append(out.Events, event)
		}
	}
	return out
}

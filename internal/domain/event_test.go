package domain

import (
	"errors"
	"testing"
	"time"
)

// TestNewEventDefaultsAndNormalization trims text, resolves kind and category aliases, and stores UTC.
func TestNewEventDefaultsAndNormalization(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.FixedZone("CLT", -3*60*60))
	event, err := NewEvent(EventInput{
		ID:                   " local-1 ",
		Kind:                 EventKind(" Micro-Action "),
		Category:             CategoryID(" c1 "),
		Title:                "  C1.1 Historia personal  ",
		Description:          "\tBiografía breve\n",
		RegisteredExternally: true,
	}, now)
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}
	if event.ID != "local-1" {
		t.Fatalf("expected trimmed id, got %q", event.ID)
	}
	if event.Kind != EventKindMicroAction {
		t.Fatalf("expected micro-action kind, got %q", event.Kind)
	}
	if event.Category != CategoryPurpose {
		t.Fatalf("expected C1 category, got %q", event.Category)
	}
	if event.Title != "C1.1 Historia personal" || event.Description != "Biografía breve" {
		t.Fatalf("expected trimmed title and description, got %q / %q", event.Title, event.Description)
	}
	if !event.RegisteredExternally {
		t.Fatal("expected external registration flag to be kept")
	}
	if event.CreatedAt.Location() != time.UTC || !event.CreatedAt.Equal(now) {
		t.Fatalf("expected UTC timestamp at input time, got %s", event.CreatedAt)
	}
}

// TestNewEventTruncatesToMilliseconds verifies sub-millisecond clock readings are dropped at creation.
func TestNewEventTruncatesToMilliseconds(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 123456789, time.UTC)
	event, err := NewEvent(EventInput{
		ID:          "e1",
		Kind:        EventKindMicroAction,
		Category:    CategoryPurpose,
		Title:       "Historia",
		Description: "Biografía",
	}, now)
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}
	want := time.Date(2026, 2, 10, 9, 0, 0, 123000000, time.UTC)
	if !event.CreatedAt.Equal(want) {
		t.Fatalf("CreatedAt = %s, want %s", event.CreatedAt.Format(time.RFC3339Nano), want.Format(time.RFC3339Nano))
	}
}

// TestNewEventValidation rejects blank text and unknown kinds or categories.
func TestNewEventValidation(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	valid := EventInput{
		ID:          "e1",
		Kind:        EventKindEvidence,
		Category:    CategoryTeam,
		Title:       "Acta de acuerdos",
		Description: "Documento firmado",
	}

	tests := []struct {
		name   string
		mutate func(*EventInput)
		want   error
	}{
		{name: "missing id", mutate: func(in *EventInput) { in.ID = "  " }, want: ErrInvalidID},
		{name: "unknown kind", mutate: func(in *EventInput) { in.Kind = "badge" }, want: ErrInvalidKind},
		{name: "empty kind", mutate: func(in *EventInput) { in.Kind = "" }, want: ErrInvalidKind},
		{name: "unknown category", mutate: func(in *EventInput) { in.Category = "C9" }, want: ErrInvalidCategory},
		{name: "missing category", mutate: func(in *EventInput) { in.Category = "" }, want: ErrInvalidCategory},
		{name: "whitespace title", mutate: func(in *EventInput) { in.Title = "   " }, want: ErrInvalidTitle},
		{name: "whitespace description", mutate: func(in *EventInput) { in.Description = "\n\t" }, want: ErrInvalidDescription},
		{
			name: "milestone with unknown category",
			mutate: func(in *EventInput) {
				in.Kind = EventKindMilestone
				in.Category = "C0"
			},
			want: ErrInvalidCategory,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			_, err := NewEvent(in, now)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

// TestNewEventMilestoneWithoutCategory allows a milestone with no category.
func TestNewEventMilestoneWithoutCategory(t *testing.T) {
	event, err := NewEvent(EventInput{
		ID:          "ev-008",
		Kind:        EventKindMilestone,
		Title:       "NFT en estado Torpor",
		Description: "Inicio del recorrido",
	}, time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}
	if event.Category != "" {
		t.Fatalf("expected empty category, got %q", event.Category)
	}
	if event.Counts() {
		t.Fatal("expected milestone not to count toward progress")
	}
}

// TestRestoreEventLenient keeps unknown kinds and categories from stored data but still requires id and title.
func TestRestoreEventLenient(t *testing.T) {
	event, err := RestoreEvent(StoredEventInput{
		ID:       "legacy-1",
		Kind:     "badge",
		Category: "c9",
		Title:    "Importado",
	})
	if err != nil {
		t.Fatalf("RestoreEvent() error = %v", err)
	}
	if event.Kind != "badge" {
		t.Fatalf("expected unknown kind to be preserved, got %q", event.Kind)
	}
	if event.Category != "C9" {
		t.Fatalf("expected unknown category to be preserved, got %q", event.Category)
	}
	if event.DisplayKind() != EventKindMilestone {
		t.Fatalf("expected unknown kind to display as milestone, got %q", event.DisplayKind())
	}
	if event.Counts() {
		t.Fatal("expected unknown kind/category not to count")
	}

	if _, err := RestoreEvent(StoredEventInput{Title: "x"}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := RestoreEvent(StoredEventInput{ID: "x"}); !errors.Is(err, ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
}

// TestEventCounts counts only micro and evidence events in a known category.
func TestEventCounts(t *testing.T) {
	cases := []struct {
		event Event
		want  bool
	}{
		{Event{Kind: EventKindMicroAction, Category: CategoryPurpose}, true},
		{Event{Kind: EventKindEvidence, Category: CategoryTraction}, true},
		{Event{Kind: EventKindEvidence, Category: "C9"}, false},
		{Event{Kind: EventKindMilestone, Category: CategoryPurpose}, false},
		{Event{Kind: EventKindMicroAction}, false},
	}
	for _, tc := range cases {
		if got := tc.event.Counts(); got != tc.want {
			t.Fatalf("Counts(%q,%q) = %t, want %t", tc.event.Kind, tc.event.Category, got, tc.want)
		}
	}
}

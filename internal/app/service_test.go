package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/colibri-os/rlab/internal/domain"
)

type fakeEventLog struct {
	events    []domain.Event
	report    LoadReport
	loadErr   error
	appendErr error
}

func newFakeEventLog(events ...domain.Event) *fakeEventLog {
	return &fakeEventLog{events: append([]domain.Event(nil), events...)}
}

func (f *fakeEventLog) LoadEvents(context.Context) ([]domain.Event, LoadReport, error) {
	if f.loadErr != nil {
		return nil, LoadReport{}, f.loadErr
	}
	report := f.report
	report.Loaded = len(f.events)
	return append([]domain.Event(nil), f.events...), report, nil
}

func (f *fakeEventLog) AppendEvent(_ context.Context, event domain.Event) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	for _, existing := range f.events {
		if existing.ID == event.ID {
			return ErrDuplicateEventID
		}
	}
	f.events = append(f.events, event)
	return nil
}

func newTestService(store EventLog) *Service {
	now := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	nextID := 0
	return NewService(store, func() string {
		nextID++
		return fmt.Sprintf("local-%d", nextID)
	}, func() time.Time {
		now = now.Add(time.Minute)
		return now
	}, ServiceConfig{})
}

// TestServiceSubmitAppendsAndRecomputes trims the submission, appends it, and reflects it in progress.
func TestServiceSubmitAppendsAndRecomputes(t *testing.T) {
	store := newFakeEventLog()
	svc := newTestService(store)
	ctx := context.Background()

	result, err := svc.Submit(ctx, SubmitEventInput{
		Kind:                 domain.EventKindEvidence,
		Category:             domain.CategoryProblem,
		Title:                "  Entrevistas  ",
		Description:          " 5 entrevistas ",
		RegisteredExternally: true,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.Event.ID != "local-1" || result.Event.Title != "Entrevistas" {
		t.Fatalf("unexpected submitted event %#v", result.Event)
	}
	if !strings.HasPrefix(result.Message, "Evidencia registrada") {
		t.Fatalf("unexpected message %q", result.Message)
	}

	snap, report := svc.Progress(ctx)
	if report.Degraded() {
		t.Fatalf("expected clean load, got %#v", report)
	}
	if snap.Evidence != 1 || snap.CompletionIndex != 7 {
		t.Fatalf("expected 1 evidence and IC 7, got %d / %d", snap.Evidence, snap.CompletionIndex)
	}
}

// TestServiceSubmitRejectsInvalidWithoutMutation leaves the log untouched when the title is blank.
func TestServiceSubmitRejectsInvalidWithoutMutation(t *testing.T) {
	store := newFakeEventLog(DemoEvents()...)
	svc := newTestService(store)
	ctx := context.Background()

	before, _ := svc.Load(ctx)
	_, err := svc.Submit(ctx, SubmitEventInput{
		Kind:        domain.EventKindMicroAction,
		Category:    domain.CategoryPurpose,
		Title:       "   ",
		Description: "algo",
	})
	if !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if ValidationMessage(err) != "Por favor completa título y descripción." {
		t.Fatalf("unexpected validation message %q", ValidationMessage(err))
	}
	after, _ := svc.Load(ctx)
	if len(after) != len(before) {
		t.Fatalf("expected log unchanged, got %d -> %d", len(before), len(after))
	}
}

// TestServiceSubmitWrapsStorageFailure reports a failed append as ErrStorageWrite with its cause.
func TestServiceSubmitWrapsStorageFailure(t *testing.T) {
	store := newFakeEventLog()
	store.appendErr = errors.New("disk full")
	svc := newTestService(store)

	_, err := svc.Submit(context.Background(), SubmitEventInput{
		Kind:        domain.EventKindMicroAction,
		Category:    domain.CategoryPurpose,
		Title:       "t",
		Description: "d",
	})
	if !errors.Is(err, ErrStorageWrite) {
		t.Fatalf("expected ErrStorageWrite, got %v", err)
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected cause in error, got %v", err)
	}
}

// TestServiceLoadFailureDegradesToEmpty turns an unreadable log into an empty Torpor snapshot.
func TestServiceLoadFailureDegradesToEmpty(t *testing.T) {
	store := newFakeEventLog()
	store.loadErr = errors.New("permission denied")
	svc := newTestService(store)

	snap, report := svc.Progress(context.Background())
	if report.Failure == "" || !report.Degraded() {
		t.Fatalf("expected failure in report, got %#v", report)
	}
	if snap.TotalRecords != 0 || snap.CompletionIndex != 0 || snap.CurrentLevel.Name != "Torpor" {
		t.Fatalf("expected empty snapshot, got %#v", snap)
	}
}

// TestServiceSeedDemoIsIdempotent adds the demo journey once.
func TestServiceSeedDemoIsIdempotent(t *testing.T) {
	store := newFakeEventLog()
	svc := newTestService(store)
	ctx := context.Background()

	added, err := svc.SeedDemo(ctx)
	if err != nil {
		t.Fatalf("SeedDemo() error = %v", err)
	}
	if added != len(DemoEvents()) {
		t.Fatalf("expected %d seeded events, got %d", len(DemoEvents()), added)
	}
	added, err = svc.SeedDemo(ctx)
	if err != nil || added != 0 {
		t.Fatalf("expected second seed to add nothing, got %d err=%v", added, err)
	}

	timeline, _ := svc.Timeline(ctx, TimelineFilter{})
	if timeline.Events[0].ID != "ev-003" {
		t.Fatalf("expected newest demo event first, got %q", timeline.Events[0].ID)
	}
	if timeline.Counts.Milestones != 1 || timeline.Counts.RegisteredExternally != 1 {
		t.Fatalf("unexpected counts %#v", timeline.Counts)
	}
}

// TestServiceImportExportLegacy re-imports an exported dump, skipping ids already stored.
func TestServiceImportExportLegacy(t *testing.T) {
	source := newTestService(newFakeEventLog(DemoEvents()...))
	ctx := context.Background()
	data, _, err := source.ExportLegacy(ctx)
	if err != nil {
		t.Fatalf("ExportLegacy() error = %v", err)
	}

	dump := fmt.Sprintf(`{%q: %q}`, LegacyStorageKey, string(data))
	target := newTestService(newFakeEventLog(DemoEvents()[0]))
	report, err := target.ImportLegacy(ctx, []byte(dump), "")
	if err != nil {
		t.Fatalf("ImportLegacy() error = %v", err)
	}
	if report.Imported != len(DemoEvents())-1 || report.Duplicates != 1 {
		t.Fatalf("unexpected import report %#v", report)
	}
	events, _ := target.Load(ctx)
	for idx, event := range events {
		want := DemoEvents()[idx]
		if event.ID != want.ID || !event.CreatedAt.Equal(want.CreatedAt) {
			t.Fatalf("event %d mismatch: got %s@%s want %s@%s", idx, event.ID, event.CreatedAt, want.ID, want.CreatedAt)
		}
	}
}

// TestServiceUsesConfiguredRules computes with a custom ladder and zero evidence cap.
func TestServiceUsesConfiguredRules(t *testing.T) {
	ladder, err := domain.NewLevelLadder([]domain.Level{
		{ID: "start", Name: "Start"},
		{ID: "done", Name: "Done", MicroThreshold: 1},
	})
	if err != nil {
		t.Fatalf("NewLevelLadder() error = %v", err)
	}
	rules := ProgressRules{MicroPerCategory: 1, EvidencePerCategory: 1, MicroMax: 1, EvidenceMax: 0, Ladder: ladder}
	svc := NewService(newFakeEventLog(DemoEvents()...), nil, nil, ServiceConfig{Rules: rules})

	snap, _ := svc.Progress(context.Background())
	if snap.CurrentLevel.ID != "done" || !snap.Evolved {
		t.Fatalf("expected configured ladder to evolve, got %#v", snap.CurrentLevel)
	}
	if snap.CompletionIndex != 50 {
		t.Fatalf("expected zero evidence max to contribute 0, got %d", snap.CompletionIndex)
	}
	if len(svc.Levels()) != 2 {
		t.Fatalf("expected configured levels, got %d", len(svc.Levels()))
	}
}

// TestServiceSubmitReturnsDuplicateIDUnwrapped keeps an id collision distinguishable
// from a storage failure so callers can report a conflict.
func TestServiceSubmitReturnsDuplicateIDUnwrapped(t *testing.T) {
	store := newFakeEventLog()
	svc := NewService(store, func() string { return "local-fixed" }, nil, ServiceConfig{})
	ctx := context.Background()
	in := SubmitEventInput{
		Kind:        domain.EventKindMicroAction,
		Category:    domain.CategoryPurpose,
		Title:       "t",
		Description: "d",
	}

	if _, err := svc.Submit(ctx, in); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	_, err := svc.Submit(ctx, in)
	if !errors.Is(err, ErrDuplicateEventID) {
		t.Fatalf("expected ErrDuplicateEventID, got %v", err)
	}
	if errors.Is(err, ErrStorageWrite) {
		t.Fatalf("expected duplicate id not to be reported as a storage failure, got %v", err)
	}
	if ValidationMessage(err) != "Ya existe un registro con ese identificador." {
		t.Fatalf("unexpected duplicate message %q", ValidationMessage(err))
	}
	if events, _ := svc.Load(ctx); len(events) != 1 {
		t.Fatalf("expected one stored event, got %d", len(events))
	}
}

type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) Info(string, ...any) {}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.warnings = append(l.warnings, msg)
}

// TestServiceLoadWarnsThroughConfiguredLogger checks degraded loads are reported
// on the logger passed in ServiceConfig.
func TestServiceLoadWarnsThroughConfiguredLogger(t *testing.T) {
	store := newFakeEventLog(DemoEvents()...)
	store.report = LoadReport{Skipped: 2}
	logger := &recordingLogger{}
	svc := NewService(store, nil, nil, ServiceConfig{Logger: logger})

	events, report := svc.Load(context.Background())
	if len(events) != len(DemoEvents()) || report.Skipped != 2 {
		t.Fatalf("unexpected load %d report=%#v", len(events), report)
	}
	if len(logger.warnings) != 1 || logger.warnings[0] != "event log partially recovered" {
		t.Fatalf("expected one recovery warning, got %#v", logger.warnings)
	}

	store.loadErr = errors.New("permission denied")
	if events, _ := svc.Load(context.Background()); len(events) != 0 {
		t.Fatalf("expected empty log on failure, got %d", len(events))
	}
	if len(logger.warnings) != 2 || !strings.Contains(logger.warnings[1], "unreadable") {
		t.Fatalf("expected unreadable warning, got %#v", logger.warnings)
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/colibri-os/rlab/internal/domain"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	Rules  ProgressRules
	Logger Logger
}

// IDGenerator returns unique identifiers for new events.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service coordinates the event log, aggregation, and level derivation.
type Service struct {
	store EventLog
	idGen IDGenerator
	clock Clock
	rules ProgressRules
	log   Logger
}

// NewService constructs a new value for this package.
func NewService(store EventLog, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if clock == nil {
		clock = time.Now
	}
	if idGen == nil {
		idGen = func() string { return fmt.Sprintf("local-%d", clock().UnixMilli()) }
	}
	rules := cfg.Rules
	if len(rules.Ladder.Levels()) == 0 {
		rules = DefaultProgressRules()
	}
	return &Service{
		store: store,
		idGen: idGen,
		clock: clock,
		rules: rules,
		log:   OrDefault(cfg.Logger),
	}
}

// Rules returns the progress rules the service computes with.
func (s *Service) Rules() ProgressRules {
	return s.rules
}

// Categories returns the fixed category table.
func (s *Service) Categories() []domain.Category {
	return domain.Categories()
}

// Levels returns the configured level ladder.
func (s *Service) Levels() []domain.Level {
	return s.rules.Ladder.Levels()
}

// Load reads the event log in insertion order. Load failures degrade to an
// empty log and are described by the report instead of being returned.
func (s *Service) Load(ctx context.Context) ([]domain.Event, LoadReport) {
	events, report, err := s.store.LoadEvents(ctx)
	if err != nil {
		s.log.Warn("event log unreadable, continuing with empty log", "err", err)
		report.Failure = err.Error()
		return []domain.Event{}, report
	}
	if report.Skipped > 0 || report.Corrupt {
		s.log.Warn("event log partially recovered", "loaded", report.Loaded, "skipped", report.Skipped, "corrupt", report.Corrupt, "backup_key", report.BackupKey)
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, report
}

// Progress loads the log and computes the current snapshot.
func (s *Service) Progress(ctx context.Context) (ProgressSnapshot, LoadReport) {
	events, report := s.Load(ctx)
	return Compute(events, s.rules), report
}

// Timeline loads the log and returns one filtered display view.
func (s *Service) Timeline(ctx context.Context, filter TimelineFilter) (Timeline, LoadReport) {
	events, report := s.Load(ctx)
	return BuildTimeline(events, filter), report
}

// SubmitEventInput holds input values for event submission.
type SubmitEventInput struct {
	Kind                 domain.EventKind
	Category             domain.CategoryID
	Title                string
	Description          string
	RegisteredExternally bool
}

// SubmitResult stores the appended event and a confirmation message.
type SubmitResult struct {
	Event   domain.Event `json:"event"`
	Message string       `json:"message"`
}

// Submit validates one user entry and appends it. Validation failures leave the log untouched.
func (s *Service) Submit(ctx context.Context, in SubmitEventInput) (SubmitResult, error) {
	event, err := domain.NewEvent(domain.EventInput{
		ID:                   s.idGen(),
		Kind:                 in.Kind,
		Category:             in.Category,
		Title:                in.Title,
		Description:          in.Description,
		RegisteredExternally: in.RegisteredExternally,
	}, s.clock())
	if err != nil {
		return SubmitResult{}, err
	}
	if err := s.append(ctx, event); err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{Event: event, Message: SubmitMessage(event.Kind)}, nil
}

// append writes one event and classifies write failures.
func (s *Service) append(ctx context.Context, event domain.Event) error {
	if err := s.store.AppendEvent(ctx, event); err != nil {
		if errors.Is(err, ErrStorageWrite) || errors.Is(err, ErrDuplicateEventID) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	return nil
}

// SubmitMessage returns the confirmation shown after a successful submission.
func SubmitMessage(kind domain.EventKind) string {
	switch kind {
	case domain.EventKindEvidence:
		return "Evidencia registrada en tu panel. Ya aparece en el Timeline."
	case domain.EventKindMilestone:
		return "Hito registrado en tu panel. Ya aparece en el Timeline."
	default:
		return "Microacción registrada en tu panel. Ya aparece en el Timeline."
	}
}

// ValidationMessage maps a submission error onto the message shown to the user.
func ValidationMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrInvalidTitle), errors.Is(err, domain.ErrInvalidDescription):
		return "Por favor completa título y descripción."
	case errors.Is(err, domain.ErrInvalidCategory):
		return "Selecciona una categoría entre C1 y C7."
	case errors.Is(err, domain.ErrInvalidKind):
		return "Selecciona microacción o evidencia."
	case errors.Is(err, ErrDuplicateEventID):
		return "Ya existe un registro con ese identificador."
	case errors.Is(err, ErrStorageWrite):
		return "No se pudo guardar el registro. Intenta nuevamente."
	default:
		return err.Error()
	}
}

// ImportReport summarizes one legacy import.
type ImportReport struct {
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
}

// ImportLegacy appends events from a stored array or local-storage dump,
// keeping their ids and timestamps. Ids already in the log are skipped.
func (s *Service) ImportLegacy(ctx context.Context, data []byte, key string) (ImportReport, error) {
	array, err := ExtractLegacyArray(data, key)
	if err != nil {
		return ImportReport{}, err
	}
	incoming, decodeReport, err := DecodeLegacyEvents(array)
	if err != nil {
		return ImportReport{}, err
	}
	report := ImportReport{Skipped: decodeReport.Skipped}
	added, dupes, err := s.appendMissing(ctx, incoming)
	report.Imported = added
	report.Duplicates = dupes
	return report, err
}

// ExportLegacy encodes the log in insertion order as a stored array.
func (s *Service) ExportLegacy(ctx context.Context) ([]byte, LoadReport, error) {
	events, report := s.Load(ctx)
	data, err := EncodeLegacyEvents(events)
	return data, report, err
}

// SeedDemo appends the sample journey once. It returns how many events were added.
func (s *Service) SeedDemo(ctx context.Context) (int, error) {
	added, _, err := s.appendMissing(ctx, DemoEvents())
	return added, err
}

// appendMissing appends events whose ids are not already stored.
func (s *Service) appendMissing(ctx context.Context, incoming []domain.Event) (int, int, error) {
	existing, _ := s.Load(ctx)
	seen := make(map[string]struct{}, len(existing))
	for _, event := range existing {
		seen[event.ID] = struct{}{}
	}
	added, dupes := 0, 0
	for _, event := range incoming {
		if _, ok := seen[event.ID]; ok {
			dupes++
			continue
		}
		if err := s.append(ctx, event); err != nil {
			return added, dupes, err
		}
		seen[event.ID] = struct{}{}
		added++
	}
	return added, dupes, nil
}

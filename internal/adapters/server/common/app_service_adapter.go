package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/colibri-os/rlab/internal/app"
	"github.com/colibri-os/rlab/internal/domain"
)

// AppServiceAdapter maps transport contracts onto app.Service progress APIs.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// Progress computes the current snapshot through app-level APIs.
func (a *AppServiceAdapter) Progress(ctx context.Context) (Progress, error) {
	if err := a.ready(ctx); err != nil {
		return Progress{}, err
	}
	snapshot, report := a.service.Progress(ctx)
	return Progress{ProgressSnapshot: snapshot, Load: report}, nil
}

// Timeline lists display-ordered events matching the request filters.
func (a *AppServiceAdapter) Timeline(ctx context.Context, in TimelineRequest) (Timeline, error) {
	if err := a.ready(ctx); err != nil {
		return Timeline{}, err
	}
	filter, err := normalizeTimelineRequest(in)
	if err != nil {
		return Timeline{}, err
	}

	timeline, report := a.service.Timeline(ctx, filter)
	events := make([]Event, 0, len(timeline.Events))
	for _, event := range timeline.Events {
		events = append(events, EventFromDomain(event))
	}
	return Timeline{
		Filter: TimelineRequest{Category: string(filter.Category), Kind: string(filter.Kind)},
		Events: events,
		Counts: timeline.Counts,
		Load:   report,
	}, nil
}

// Categories returns the fixed category table.
func (a *AppServiceAdapter) Categories(ctx context.Context) ([]domain.Category, error) {
	if err := a.ready(ctx); err != nil {
		return nil, err
	}
	return a.service.Categories(), nil
}

// Levels returns the configured level ladder.
func (a *AppServiceAdapter) Levels(ctx context.Context) ([]domain.Level, error) {
	if err := a.ready(ctx); err != nil {
		return nil, err
	}
	return a.service.Levels(), nil
}

// SubmitEvent validates and appends one submission.
func (a *AppServiceAdapter) SubmitEvent(ctx context.Context, in SubmitEventRequest) (SubmitEventResult, error) {
	if err := a.ready(ctx); err != nil {
		return SubmitEventResult{}, err
	}
	result, err := a.service.Submit(ctx, app.SubmitEventInput{
		Kind:                 domain.EventKind(in.Kind),
		Category:             domain.CategoryID(in.Category),
		Title:                in.Title,
		Description:          in.Description,
		RegisteredExternally: in.RegisteredExternally,
	})
	if err != nil {
		return SubmitEventResult{}, mapAppError("submit event", err)
	}
	return SubmitEventResult{
		Event:   EventFromDomain(result.Event),
		Message: result.Message,
	}, nil
}

// ready rejects calls on an unconfigured adapter or a canceled context.
func (a *AppServiceAdapter) ready(ctx context.Context) error {
	if a == nil || a.service == nil {
		return fmt.Errorf("app service adapter is not configured: %w", ErrStorageUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("request canceled: %w", err)
	}
	return nil
}

// normalizeTimelineRequest validates and canonicalizes timeline filters.
func normalizeTimelineRequest(in TimelineRequest) (app.TimelineFilter, error) {
	filter := app.TimelineFilter{}
	if category := strings.TrimSpace(in.Category); category != "" {
		id := domain.NormalizeCategoryID(domain.CategoryID(category))
		if !domain.IsKnownCategory(id) {
			return app.TimelineFilter{}, fmt.Errorf("unknown category %q: %w", category, ErrInvalidRequest)
		}
		filter.Category = id
	}
	if kind := strings.TrimSpace(in.Kind); kind != "" {
		normalized := domain.NormalizeEventKind(domain.EventKind(kind))
		if normalized == "" {
			return app.TimelineFilter{}, fmt.Errorf("unknown kind %q: %w", kind, ErrInvalidRequest)
		}
		filter.Kind = normalized
	}
	return filter, nil
}

// mapAppError maps app/domain errors into transport-layer error sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidKind),
		errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidDescription):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	case errors.Is(err, app.ErrDuplicateEventID):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrConflict, err))
	case errors.Is(err, app.ErrStorageWrite):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrStorageUnavailable, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}

package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/colibri-os/rlab/internal/domain"
)

// LegacyStorageKey is the versioned key the event array is stored under.
const LegacyStorageKey = "colibri_timeline_custom_events_v1"

// legacyTimeLayout matches the millisecond ISO-8601 form browsers emit.
const legacyTimeLayout = "2006-01-02T15:04:05.000Z"

// LegacyRecord is the persisted shape of one event.
type LegacyRecord struct {
	ID           string  `json:"id"`
	Type         string  `json:"type"`
	Category     *string `json:"category"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	IsIPOnStory  bool    `json:"isIpOnStory"`
	CreatedAtISO string  `json:"createdAtIso"`
}

// LegacyEntry pairs one raw array element with its decoded event, when valid.
type LegacyEntry struct {
	Raw   json.RawMessage
	Event domain.Event
	Valid bool
}

// LegacyRecordFromEvent converts an event into its persisted shape.
func LegacyRecordFromEvent(event domain.Event) LegacyRecord {
	rec := LegacyRecord{
		ID:          event.ID,
		Type:        string(event.Kind),
		Title:       event.Title,
		Description: event.Description,
		IsIPOnStory: event.RegisteredExternally,
	}
	if event.Category != "" {
		category := string(event.Category)
		rec.Category = &category
	}
	if !event.CreatedAt.IsZero() {
		rec.CreatedAtISO = event.CreatedAt.UTC().Format(legacyTimeLayout)
	}
	return rec
}

// toDomain restores the event held by one record.
func (r LegacyRecord) toDomain() (domain.Event, error) {
	var category domain.CategoryID
	if r.Category != nil {
		category = domain.CategoryID(*r.Category)
	}
	return domain.RestoreEvent(domain.StoredEventInput{
		ID:                   r.ID,
		Kind:                 domain.EventKind(r.Type),
		Category:             category,
		Title:                r.Title,
		Description:          r.Description,
		RegisteredExternally: r.IsIPOnStory,
		CreatedAt:            parseLegacyTime(r.CreatedAtISO),
	})
}

// parseLegacyTime accepts full ISO-8601 timestamps and bare dates; anything else is zero.
func parseLegacyTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// ParseLegacyEntries splits a stored array into entries, decoding each one on its own.
// An empty value is an empty log; a value that is not an array returns ErrCorruptLog.
func ParseLegacyEntries(data []byte) ([]LegacyEntry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptLog, err)
	}
	out := make([]LegacyEntry, 0, len(raws))
	for _, raw := range raws {
		entry := LegacyEntry{Raw: raw}
		var rec LegacyRecord
		if err := json.Unmarshal(raw, &rec); err == nil {
			if event, err := rec.toDomain(); err == nil {
				entry.Event = event
				entry.Valid = true
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// DecodeLegacyEvents decodes a stored array, skipping elements that do not parse.
func DecodeLegacyEvents(data []byte) ([]domain.Event, LoadReport, error) {
	entries, err := ParseLegacyEntries(data)
	if err != nil {
		return nil, LoadReport{Corrupt: true, Failure: err.Error()}, err
	}
	return ValidLegacyEvents(entries)
}

// ValidLegacyEvents extracts decoded events and reports how many were skipped.
func ValidLegacyEvents(entries []LegacyEntry) ([]domain.Event, LoadReport, error) {
	events := make([]domain.Event, 0, len(entries))
	report := LoadReport{}
	for _, entry := range entries {
		if !entry.Valid {
			report.Skipped++
			continue
		}
		events = append(events, entry.Event)
	}
	report.Loaded = len(events)
	return events, report, nil
}

// EncodeLegacyEvents writes events as a stored array in the given order.
func EncodeLegacyEvents(events []domain.Event) ([]byte, error) {
	records := make([]LegacyRecord, 0, len(events))
	for _, event := range events {
		records = append(records, LegacyRecordFromEvent(event))
	}
	return json.Marshal(records)
}

// ExtractLegacyArray finds the event array inside an import payload.
// Accepted shapes: a bare array, or an object keyed by storage key whose value
// is an array or a string holding an array.
func ExtractLegacyArray(data []byte, key string) ([]byte, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrCorruptLog)
	}
	if data[0] == '[' {
		return data, nil
	}
	if strings.TrimSpace(key) == "" {
		key = LegacyStorageKey
	}
	var dump map[string]json.RawMessage
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptLog, err)
	}
	value, ok := dump[key]
	if !ok {
		return nil, fmt.Errorf("%w: key %q not present", ErrCorruptLog, key)
	}
	value = bytes.TrimSpace(value)
	if len(value) > 0 && value[0] == '"' {
		var inner string
		if err := json.Unmarshal(value, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptLog, err)
		}
		return []byte(inner), nil
	}
	return value, nil
}

package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/colibri-os/rlab/internal/app"
	"github.com/colibri-os/rlab/internal/domain"
)

// Store keeps the event log as one string value inside a local-storage style
// JSON object file. Writes replace the file atomically; concurrent writers in
// other processes follow last-writer-wins.
type Store struct {
	path string
	key  string
	now  func() time.Time
	log  app.Logger
	mu   sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to name corrupt-value backups.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger routes recovery and watcher diagnostics to logger.
func WithLogger(logger app.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.log = logger
		}
	}
}

// Open prepares a store at path, creating the parent directory.
func Open(path, key string, opts ...Option) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("jsonfile path is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = app.LegacyStorageKey
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create jsonfile dir: %w", err)
	}
	s := &Store{path: filepath.Clean(path), key: key, now: time.Now, log: app.DefaultLogger()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Key returns the storage key the log is kept under.
func (s *Store) Key() string {
	return s.key
}

// LoadEvents reads the log in insertion order. Undecodable elements are skipped
// and counted; an unreadable value yields an empty log flagged as corrupt.
func (s *Store) LoadEvents(ctx context.Context) ([]domain.Event, app.LoadReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, app.LoadReport{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument()
	if err != nil {
		if errors.Is(err, app.ErrCorruptLog) {
			return []domain.Event{}, app.LoadReport{Corrupt: true}, nil
		}
		return nil, app.LoadReport{}, err
	}
	value, err := doc.value(s.key)
	if err != nil {
		return []domain.Event{}, app.LoadReport{Corrupt: true}, nil
	}
	entries, err := app.ParseLegacyEntries(value)
	if err != nil {
		return []domain.Event{}, app.LoadReport{Corrupt: true}, nil
	}
	return app.ValidLegacyEvents(entries)
}

// AppendEvent adds one event to the end of the stored array. Elements that
// did not decode are written back untouched; a corrupt value is first copied
// to a backup key.
func (s *Store) AppendEvent(ctx context.Context, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument()
	if err != nil {
		if !errors.Is(err, app.ErrCorruptLog) {
			return err
		}
		if err := s.backupFile(); err != nil {
			return err
		}
		doc = document{}
	}

	var entries []app.LegacyEntry
	value, valueErr := doc.value(s.key)
	if valueErr == nil {
		entries, valueErr = app.ParseLegacyEntries(value)
	}
	if valueErr != nil {
		backupKey := fmt.Sprintf("%s.corrupt.%d", s.key, s.now().UTC().Unix())
		doc[backupKey] = doc[s.key]
		s.log.Warn("stored event log unreadable, preserved under backup key", "key", s.key, "backup_key", backupKey)
		entries = nil
	}

	raws := make([]json.RawMessage, 0, len(entries)+1)
	for _, entry := range entries {
		if entry.Valid && entry.Event.ID == event.ID {
			return fmt.Errorf("%w: %q", app.ErrDuplicateEventID, event.ID)
		}
		raws = append(raws, entry.Raw)
	}
	encoded, err := json.Marshal(app.LegacyRecordFromEvent(event))
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	raws = append(raws, encoded)

	array, err := json.Marshal(raws)
	if err != nil {
		return fmt.Errorf("encode event log: %w", err)
	}
	stored, err := json.Marshal(string(array))
	if err != nil {
		return fmt.Errorf("encode event log value: %w", err)
	}
	doc[s.key] = stored
	return s.writeDocument(doc)
}

// document is the decoded key/value file.
type document map[string]json.RawMessage

// value returns the event array held under key. Values may be stored as a
// string (local-storage form) or inline.
func (d document) value(key string) ([]byte, error) {
	raw, ok := d[key]
	if !ok {
		return nil, nil
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", app.ErrCorruptLog, err)
		}
		return []byte(inner), nil
	}
	return raw, nil
}

// readDocument loads the file. A missing or empty file is an empty document.
func (s *Store) readDocument() (document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return document{}, nil
		}
		return nil, fmt.Errorf("read jsonfile: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return document{}, nil
	}
	doc := document{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", app.ErrCorruptLog, err)
	}
	if doc == nil {
		doc = document{}
	}
	return doc, nil
}

// writeDocument replaces the file through a temp file and rename.
func (s *Store) writeDocument(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode jsonfile: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp jsonfile: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp jsonfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp jsonfile: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace jsonfile: %w", err)
	}
	return nil
}

// backupFile moves an unparseable file aside before it is replaced.
func (s *Store) backupFile() error {
	backup := fmt.Sprintf("%s.corrupt.%d", s.path, s.now().UTC().Unix())
	if err := os.Rename(s.path, backup); err != nil {
		return fmt.Errorf("backup corrupt jsonfile: %w", err)
	}
	s.log.Warn("jsonfile unreadable, moved aside", "path", s.path, "backup", backup)
	return nil
}

// Watch emits a signal whenever the backing file changes on disk. The channel
// is closed when ctx ends.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch jsonfile dir: %w", err)
	}
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != s.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				select {
				case out <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn("jsonfile watcher error", "err", err)
			}
		}
	}()
	return out, nil
}

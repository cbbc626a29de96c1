package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/colibri-os/rlab/internal/app"
	"github.com/colibri-os/rlab/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository stores the append-only event log in one sqlite table.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	dsn := fmt.Sprintf("file:rlab-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			registered_externally INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// AppendEvent inserts one event at the end of the log.
func (r *Repository) AppendEvent(ctx context.Context, event domain.Event) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events(id, kind, category, title, description, registered_externally, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)
	`, event.ID, string(event.Kind), string(event.Category), event.Title, event.Description, boolToInt(event.RegisteredExternally), ts(event.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", app.ErrDuplicateEventID, event.ID)
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// LoadEvents returns every event in insertion order, skipping rows that do not restore.
func (r *Repository) LoadEvents(ctx context.Context) ([]domain.Event, app.LoadReport, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, category, title, description, registered_externally, created_at
		FROM events
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, app.LoadReport{}, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Event, 0)
	report := app.LoadReport{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			report.Skipped++
			continue
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, app.LoadReport{}, fmt.Errorf("iterate events: %w", err)
	}
	report.Loaded = len(out)
	return out, report, nil
}

// CountEvents returns the number of stored rows.
func (r *Repository) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

// scanEvent restores one row into an event.
func scanEvent(s scanner) (domain.Event, error) {
	var (
		id, kind, category, title, description, createdRaw string
		registered                                         int
	)
	if err := s.Scan(&id, &kind, &category, &title, &description, &registered, &createdRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Event{}, app.ErrNotFound
		}
		return domain.Event{}, err
	}
	return domain.RestoreEvent(domain.StoredEventInput{
		ID:                   id,
		Kind:                 domain.EventKind(kind),
		Category:             domain.CategoryID(category),
		Title:                title,
		Description:          description,
		RegisteredExternally: registered != 0,
		CreatedAt:            parseTS(createdRaw),
	})
}

// ts handles ts.
func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// boolToInt handles bool to int.
func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// isUniqueViolation reports whether the expected condition is satisfied.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/statusdesk/internal/app"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository stores project definitions and journal entries in SQLite.
type Repository struct {
	db *sql.DB
}

// Open opens a file-backed repository, creating the parent directory when missing.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path+"?_pragma=foreign_keys(1)")
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

// OpenInMemory opens a private in-memory repository.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Every pooled connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			definition_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS journal_entries (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT NOT NULL,
			id TEXT NOT NULL,
			date_ns INTEGER NOT NULL,
			date TEXT NOT NULL,
			headline TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			details TEXT NOT NULL DEFAULT '',
			alert_level TEXT NOT NULL,
			author_id TEXT NOT NULL DEFAULT '',
			subject_id TEXT NOT NULL DEFAULT '',
			timesheet_json TEXT,
			UNIQUE(project_id, id),
			FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_journal_author_date ON journal_entries(project_id, author_id, date_ns);`,
		`CREATE INDEX IF NOT EXISTS idx_journal_subject_date ON journal_entries(project_id, subject_id, date_ns);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// UpsertProject inserts or replaces one project definition, keeping its original created_at.
func (r *Repository) UpsertProject(ctx context.Context, p app.SnapshotProject) error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("project id is required")
	}
	definition, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode project definition: %w", err)
	}
	now := ts(time.Now())
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO projects(id, name, definition_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			definition_json = excluded.definition_json,
			updated_at = excluded.updated_at
	`, p.ID, p.Name, string(definition), ts(p.CreatedAt), now)
	return err
}

// GetProject returns one project definition.
func (r *Repository) GetProject(ctx context.Context, id string) (app.SnapshotProject, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, definition_json, created_at
		FROM projects
		WHERE id = ?
	`, id)
	return scanProject(row)
}

// ListProjects lists project definitions ordered by id.
func (r *Repository) ListProjects(ctx context.Context) ([]app.SnapshotProject, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, definition_json, created_at
		FROM projects
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []app.SnapshotProject{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertJournalEntry inserts one entry or updates it in place; an update keeps the entry's store order.
func (r *Repository) UpsertJournalEntry(ctx context.Context, e app.SnapshotJournalEntry) error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("journal entry id is required")
	}
	var timesheet any
	if e.TimeSheet != nil {
		raw, err := json.Marshal(e.TimeSheet)
		if err != nil {
			return fmt.Errorf("encode timesheet: %w", err)
		}
		timesheet = string(raw)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO journal_entries(project_id, id, date_ns, date, headline, summary, details, alert_level, author_id, subject_id, timesheet_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, id) DO UPDATE SET
			date_ns = excluded.date_ns,
			date = excluded.date,
			headline = excluded.headline,
			summary = excluded.summary,
			details = excluded.details,
			alert_level = excluded.alert_level,
			author_id = excluded.author_id,
			subject_id = excluded.subject_id,
			timesheet_json = excluded.timesheet_json
	`, e.ProjectID, e.ID, e.Date.UTC().UnixNano(), ts(e.Date), e.Headline, e.Summary, e.Details, e.AlertLevel,
		e.AuthorID, e.SubjectID, timesheet)
	if err != nil {
		if isForeignKeyErr(err) {
			return fmt.Errorf("journal entry %q project %q: %w", e.ID, e.ProjectID, app.ErrNotFound)
		}
		return err
	}
	return nil
}

// ListJournalEntries lists entries matching filter in store order.
func (r *Repository) ListJournalEntries(ctx context.Context, filter app.JournalFilter) ([]app.SnapshotJournalEntry, error) {
	query := `
		SELECT project_id, id, date, headline, summary, details, alert_level, author_id, subject_id, timesheet_json
		FROM journal_entries
	`
	var (
		where []string
		args  []any
	)
	if id := strings.TrimSpace(filter.ProjectID); id != "" {
		where = append(where, "project_id = ?")
		args = append(args, id)
	}
	if id := strings.TrimSpace(filter.AuthorID); id != "" {
		where = append(where, "author_id = ?")
		args = append(args, id)
	}
	if len(filter.SubjectIDs) > 0 {
		where = append(where, "subject_id IN ("+placeholders(len(filter.SubjectIDs))+")")
		for _, id := range filter.SubjectIDs {
			args = append(args, id)
		}
	}
	if !filter.Start.IsZero() {
		where = append(where, "date_ns >= ?")
		args = append(args, filter.Start.UTC().UnixNano())
	}
	if !filter.End.IsZero() {
		where = append(where, "date_ns < ?")
		args = append(args, filter.End.UTC().UnixNano())
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []app.SnapshotJournalEntry{}
	for rows.Next() {
		e, err := scanJournalEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanProject decodes one projects row.
func scanProject(s scanner) (app.SnapshotProject, error) {
	var (
		id            string
		definitionRaw string
		createdRaw    string
	)
	if err := s.Scan(&id, &definitionRaw, &createdRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return app.SnapshotProject{}, app.ErrNotFound
		}
		return app.SnapshotProject{}, err
	}
	if strings.TrimSpace(definitionRaw) == "" {
		definitionRaw = "{}"
	}
	var p app.SnapshotProject
	if err := json.Unmarshal([]byte(definitionRaw), &p); err != nil {
		return app.SnapshotProject{}, fmt.Errorf("decode project definition_json: %w", err)
	}
	p.ID = id
	p.CreatedAt = parseTS(createdRaw)
	return p, nil
}

// scanJournalEntry decodes one journal_entries row.
func scanJournalEntry(s scanner) (app.SnapshotJournalEntry, error) {
	var (
		e            app.SnapshotJournalEntry
		dateRaw      string
		timesheetRaw sql.NullString
	)
	if err := s.Scan(&e.ProjectID, &e.ID, &dateRaw, &e.Headline, &e.Summary, &e.Details, &e.AlertLevel, &e.AuthorID, &e.SubjectID, &timesheetRaw); err != nil {
		return app.SnapshotJournalEntry{}, err
	}
	e.Date = parseTS(dateRaw)
	if timesheetRaw.Valid && strings.TrimSpace(timesheetRaw.String) != "" {
		var sheet app.SnapshotTimeSheet
		if err := json.Unmarshal([]byte(timesheetRaw.String), &sheet); err != nil {
			return app.SnapshotJournalEntry{}, fmt.Errorf("decode journal timesheet_json: %w", err)
		}
		e.TimeSheet = &sheet
	}
	return e, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// ts handles ts.
func ts(t time.Time) string {
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

func isForeignKeyErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}

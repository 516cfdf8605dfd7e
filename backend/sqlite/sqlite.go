// Package sqlite implements backend.Store on an embedded SQLite database.
// It also serves keyword rules from the keyword_rules table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"tasktree/backend"
)

// DefaultFileName is the database file created inside the data directory.
const DefaultFileName = "tasktree.db"

// Store implements backend.Store using SQLite
type Store struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the database at path and initializes the schema.
func New(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("sqlite.New: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.New: %w", err)
	}
	return s, nil
}

// initSchema creates the database tables if they don't exist
func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tags (
			name TEXT PRIMARY KEY,
			position INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			tag TEXT NOT NULL DEFAULT '',
			score INTEGER NOT NULL DEFAULT 0,
			due_date TEXT NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			completed_at TEXT NOT NULL DEFAULT '',
			parent_id TEXT NOT NULL DEFAULT '',
			recur TEXT NOT NULL DEFAULT 'none'
		);

		CREATE TABLE IF NOT EXISTS keyword_rules (
			position INTEGER PRIMARY KEY,
			tag TEXT NOT NULL,
			keywords TEXT NOT NULL DEFAULT '[]'
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_completed ON tasks(completed);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// scanner is an interface satisfied by both *sql.Rows and *sql.Row
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (backend.Task, error) {
	var (
		t                                 backend.Task
		due, completedAt, parentID, recur string
		completed                         int
	)
	if err := sc.Scan(&t.ID, &t.Title, &t.Tag, &t.Score, &due, &completed, &completedAt, &parentID, &recur); err != nil {
		return t, err
	}

	d, err := backend.ParseDate(due)
	if err != nil {
		return t, fmt.Errorf("task %d: due date %q: %w", t.ID, due, err)
	}
	t.DueDate = d
	t.Completed = completed != 0
	t.CompletedAt = backend.ParseTimestamp(completedAt)
	t.ParentID = backend.ParseParentRef(parentID)
	t.Recur = backend.Recur(recur)
	t.Normalize()
	return t, nil
}

// Load reads every task and tag.
func (s *Store) Load(ctx context.Context) (*backend.Snapshot, error) {
	snap := &backend.Snapshot{Tasks: []backend.Task{}, Tags: []string{}}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, tag, score, due_date, completed, completed_at, parent_id, recur FROM tasks ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("sqlite.Load: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite.Load: %w", err)
		}
		snap.Tasks = append(snap.Tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite.Load: %w", err)
	}

	tagRows, err := s.db.QueryContext(ctx, "SELECT name FROM tags ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("sqlite.Load: %w", err)
	}
	defer func() { _ = tagRows.Close() }()

	for tagRows.Next() {
		var name string
		if err := tagRows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlite.Load: %w", err)
		}
		snap.Tags = append(snap.Tags, name)
	}
	if err := tagRows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite.Load: %w", err)
	}
	return snap, nil
}

// Save replaces all tasks and tags in one transaction.
func (s *Store) Save(ctx context.Context, snap *backend.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite.Save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks"); err != nil {
		return fmt.Errorf("sqlite.Save: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM tags"); err != nil {
		return fmt.Errorf("sqlite.Save: %w", err)
	}

	insTask, err := tx.PrepareContext(ctx,
		`INSERT INTO tasks (id, title, tag, score, due_date, completed, completed_at, parent_id, recur)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite.Save: %w", err)
	}
	defer func() { _ = insTask.Close() }()

	for _, t := range snap.Tasks {
		completed := 0
		if t.Completed {
			completed = 1
		}
		_, err := insTask.ExecContext(ctx,
			t.ID, t.Title, t.Tag, t.Score, backend.FormatDate(t.DueDate),
			completed, backend.FormatTimestamp(t.CompletedAt), t.ParentID.String(), string(t.Recur),
		)
		if err != nil {
			return fmt.Errorf("sqlite.Save: task %d: %w", t.ID, err)
		}
	}

	for i, name := range snap.Tags {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO tags (name, position) VALUES (?, ?)", name, i); err != nil {
			return fmt.Errorf("sqlite.Save: tag %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite.Save: %w", err)
	}
	return nil
}

// LoadRules implements backend.RuleSource, returning rules in stored order.
func (s *Store) LoadRules(ctx context.Context) ([]backend.KeywordRule, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT tag, keywords FROM keyword_rules ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("sqlite.LoadRules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []backend.KeywordRule
	for rows.Next() {
		var r backend.KeywordRule
		var keywords string
		if err := rows.Scan(&r.Tag, &keywords); err != nil {
			return nil, fmt.Errorf("sqlite.LoadRules: %w", err)
		}
		if err := json.Unmarshal([]byte(keywords), &r.Keywords); err != nil {
			return nil, fmt.Errorf("sqlite.LoadRules: rule %q: %w", r.Tag, err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// SaveRules replaces the stored keyword rules, keeping their order.
func (s *Store) SaveRules(ctx context.Context, rules []backend.KeywordRule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite.SaveRules: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM keyword_rules"); err != nil {
		return fmt.Errorf("sqlite.SaveRules: %w", err)
	}
	for i, r := range rules {
		keywords, err := json.Marshal(r.Keywords)
		if err != nil {
			return fmt.Errorf("sqlite.SaveRules: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO keyword_rules (position, tag, keywords) VALUES (?, ?, ?)", i, r.Tag, string(keywords)); err != nil {
			return fmt.Errorf("sqlite.SaveRules: rule %q: %w", r.Tag, err)
		}
	}
	return tx.Commit()
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DetectableStore wraps Store with auto-detection capabilities
type DetectableStore struct {
	*Store
}

// CanDetect returns true - SQLite is always available as a fallback
func (d *DetectableStore) CanDetect() (bool, error) {
	return true, nil
}

// DetectionInfo returns information about the SQLite database
func (d *DetectableStore) DetectionInfo() string {
	return d.path + " (always available)"
}

func init() {
	backend.RegisterDetectableWithPriority("sqlite", func(dataDir string) (backend.DetectableStore, error) {
		st, err := New(filepath.Join(dataDir, DefaultFileName))
		if err != nil {
			return nil, err
		}
		return &DetectableStore{Store: st}, nil
	}, 100)
}

// Verify interface compliance at compile time
var _ backend.Store = (*Store)(nil)
var _ backend.RuleStore = (*Store)(nil)
var _ backend.DetectableStore = (*DetectableStore)(nil)

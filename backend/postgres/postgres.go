// Package postgres implements backend.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tasktree/backend"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasktree_tasks (
	id           INTEGER PRIMARY KEY,
	title        TEXT NOT NULL,
	tag          TEXT NOT NULL DEFAULT '',
	score        INTEGER NOT NULL DEFAULT 0,
	due_date     DATE NOT NULL,
	completed    BOOLEAN NOT NULL DEFAULT FALSE,
	completed_at TIMESTAMPTZ,
	parent_id    TEXT NOT NULL DEFAULT '',
	recur        TEXT NOT NULL DEFAULT 'none'
);

CREATE TABLE IF NOT EXISTS tasktree_tags (
	name     TEXT PRIMARY KEY,
	position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tasktree_keyword_rules (
	position INTEGER PRIMARY KEY,
	tag      TEXT NOT NULL,
	keywords TEXT[] NOT NULL DEFAULT '{}'
);
`

var taskColumns = []string{"id", "title", "tag", "score", "due_date", "completed", "completed_at", "parent_id", "recur"}

type Store struct {
	pool *pgxpool.Pool
}

var (
	_ backend.Store     = (*Store)(nil)
	_ backend.RuleStore = (*Store)(nil)
)

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Load(ctx context.Context) (*backend.Snapshot, error) {
	snap := &backend.Snapshot{Tasks: []backend.Task{}, Tags: []string{}}

	rows, err := s.pool.Query(ctx,
		`SELECT id, title, tag, score, due_date, completed, completed_at, parent_id, recur
		 FROM tasktree_tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres.Load: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t           backend.Task
			completedAt *time.Time
			parentID    string
			recur       string
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Tag, &t.Score, &t.DueDate, &t.Completed, &completedAt, &parentID, &recur); err != nil {
			return nil, fmt.Errorf("postgres.Load: scan: %w", err)
		}
		snap.Tasks = append(snap.Tasks, fromRow(t, completedAt, parentID, recur))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres.Load: %w", err)
	}

	tagRows, err := s.pool.Query(ctx, `SELECT name FROM tasktree_tags ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("postgres.Load: tags: %w", err)
	}
	tags, err := pgx.CollectRows(tagRows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres.Load: tags: %w", err)
	}
	snap.Tags = append(snap.Tags, tags...)
	return snap, nil
}

// fromRow converts the column values that need translation.
func fromRow(t backend.Task, completedAt *time.Time, parentID, recur string) backend.Task {
	t.DueDate = time.Date(t.DueDate.Year(), t.DueDate.Month(), t.DueDate.Day(), 0, 0, 0, 0, time.UTC)
	if completedAt != nil {
		local := completedAt.In(time.Local)
		t.CompletedAt = &local
	}
	t.ParentID = backend.ParseParentRef(parentID)
	t.Recur = backend.Recur(recur)
	t.Normalize()
	return t
}

// taskRows turns tasks into CopyFrom rows in taskColumns order.
func taskRows(tasks []backend.Task) [][]any {
	out := make([][]any, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, []any{
			t.ID, t.Title, t.Tag, t.Score, t.DueDate, t.Completed, t.CompletedAt, t.ParentID.String(), string(t.Recur),
		})
	}
	return out
}

func (s *Store) Save(ctx context.Context, snap *backend.Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres.Save: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `TRUNCATE tasktree_tasks, tasktree_tags`); err != nil {
		return fmt.Errorf("postgres.Save: truncate: %w", err)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"tasktree_tasks"}, taskColumns, pgx.CopyFromRows(taskRows(snap.Tasks))); err != nil {
		return fmt.Errorf("postgres.Save: copy tasks: %w", err)
	}

	batch := &pgx.Batch{}
	seen := make(map[string]bool, len(snap.Tags))
	for i, name := range snap.Tags {
		if seen[name] {
			continue
		}
		seen[name] = true
		batch.Queue(`INSERT INTO tasktree_tags (name, position) VALUES ($1, $2)`, name, i)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres.Save: tags: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres.Save: commit: %w", err)
	}
	return nil
}

func (s *Store) LoadRules(ctx context.Context) ([]backend.KeywordRule, error) {
	rows, err := s.pool.Query(ctx, `SELECT tag, keywords FROM tasktree_keyword_rules ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("postgres.LoadRules: %w", err)
	}
	rules, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (backend.KeywordRule, error) {
		var r backend.KeywordRule
		err := row.Scan(&r.Tag, &r.Keywords)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres.LoadRules: %w", err)
	}
	return rules, nil
}

func (s *Store) SaveRules(ctx context.Context, rules []backend.KeywordRule) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres.SaveRules: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM tasktree_keyword_rules`); err != nil {
		return fmt.Errorf("postgres.SaveRules: %w", err)
	}
	for i, r := range rules {
		if _, err := tx.Exec(ctx,
			`INSERT INTO tasktree_keyword_rules (position, tag, keywords) VALUES ($1, $2, $3)`,
			i, r.Tag, r.Keywords,
		); err != nil {
			return fmt.Errorf("postgres.SaveRules: %w", err)
		}
	}
	return tx.Commit(ctx)
}

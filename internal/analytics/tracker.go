package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tasktree/internal/engine"
)

// Tracker handles analytics event recording
type Tracker struct {
	db        *sql.DB
	enabled   bool
	sessionID string
	now       func() time.Time
	mu        sync.Mutex
	pending   sync.WaitGroup
}

// NewTracker creates a new analytics tracker with a fresh session id.
// If enabled is false, tracking is disabled but the database is still created.
func NewTracker(dbPath string, enabled bool) (*Tracker, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	return &Tracker{
		db:        db,
		enabled:   enabled,
		sessionID: uuid.NewString(),
		now:       time.Now,
	}, nil
}

// SessionID identifies the events written by this tracker.
func (t *Tracker) SessionID() string {
	return t.sessionID
}

// Close waits for pending writes and closes the database connection
func (t *Tracker) Close() error {
	t.Flush()
	if t.db != nil {
		return t.db.Close()
	}
	return nil
}

// Flush blocks until every queued event has been written.
func (t *Tracker) Flush() {
	t.pending.Wait()
}

// TrackCommand wraps command execution with analytics tracking.
// The provided function is always executed, but events are only recorded
// when analytics is enabled.
func (t *Tracker) TrackCommand(cmd, subcmd, backend string, flags []string, fn func() error) error {
	if !t.enabled {
		return fn()
	}

	start := t.now()
	err := fn()
	duration := t.now().Sub(start).Milliseconds()

	event := Event{
		SessionID:  t.sessionID,
		Timestamp:  t.now().Unix(),
		Command:    cmd,
		Subcommand: subcmd,
		Backend:    backend,
		Success:    err == nil,
		DurationMs: duration,
	}

	if len(flags) > 0 {
		flagsJSON, _ := json.Marshal(flags)
		event.Flags = string(flagsJSON)
	}

	if err != nil {
		event.ErrorType = categorizeError(err)
	}

	// Written in the background; Close waits for it.
	t.pending.Add(1)
	go func() {
		defer t.pending.Done()
		t.logEvent(event)
	}()

	return err
}

// logEvent records an event to the database
func (t *Tracker) logEvent(event Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, _ = t.db.Exec(`
		INSERT INTO events (session_id, timestamp, command, subcommand, backend, success, duration_ms, error_type, flags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, event.SessionID, event.Timestamp, event.Command, nullString(event.Subcommand), nullString(event.Backend),
		boolToInt(event.Success), event.DurationMs, nullString(event.ErrorType), nullString(event.Flags))
}

// Events returns the recorded events, oldest first.
func (t *Tracker) Events(ctx context.Context) ([]Event, error) {
	t.Flush()
	rows, err := t.db.QueryContext(ctx, `
		SELECT id, session_id, timestamp, command, COALESCE(subcommand, ''), COALESCE(backend, ''),
		       success, COALESCE(duration_ms, 0), COALESCE(error_type, ''), COALESCE(flags, '')
		FROM events ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var e Event
		var success int
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Timestamp, &e.Command, &e.Subcommand, &e.Backend,
			&success, &e.DurationMs, &e.ErrorType, &e.Flags); err != nil {
			return nil, err
		}
		e.Success = success == 1
		events = append(events, e)
	}
	return events, rows.Err()
}

// Summary aggregates events per command, most used first.
func (t *Tracker) Summary(ctx context.Context) ([]CommandStats, error) {
	t.Flush()
	rows, err := t.db.QueryContext(ctx, `
		SELECT command, COUNT(*), SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), CAST(AVG(COALESCE(duration_ms, 0)) AS INTEGER)
		FROM events GROUP BY command ORDER BY COUNT(*) DESC, command`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var stats []CommandStats
	for rows.Next() {
		var s CommandStats
		if err := rows.Scan(&s.Command, &s.Runs, &s.Failures, &s.AvgDurationMs); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup removes events older than the specified retention period.
// Returns the number of deleted events.
func (t *Tracker) Cleanup(retentionDays int) (int64, error) {
	t.Flush()
	cutoff := t.now().Unix() - int64(retentionDays*86400)

	result, err := t.db.Exec("DELETE FROM events WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, err
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	// Vacuum to reclaim space
	_, _ = t.db.Exec("VACUUM")

	return deleted, nil
}

// categorizeError categorizes an error into a general type
func categorizeError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, engine.ErrEmptyTitle), errors.Is(err, engine.ErrNegativeScore):
		return "validation"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "timeout"):
		return "timeout"
	case strings.Contains(errStr, "network") || strings.Contains(errStr, "connection"):
		return "network"
	case strings.Contains(errStr, "not found"):
		return "not_found"
	case strings.Contains(errStr, "invalid") || strings.Contains(errStr, "validation"):
		return "validation"
	default:
		return "unknown"
	}
}

// nullString returns nil for empty strings, otherwise the string pointer
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false)
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Package file implements a backend.Store on two CSV files in a data
// directory: tasks.csv and tags.csv. The layout matches the data directory
// written by earlier versions of the tracker, so existing data loads as-is.
package file

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/moby/sys/atomicwriter"

	"tasktree/backend"
)

const (
	TasksFileName = "tasks.csv"
	TagsFileName  = "tags.csv"
)

// taskFields is the column order of tasks.csv.
var taskFields = []string{"id", "title", "tag", "score", "due_date", "completed", "completed_at", "parent_id", "recur"}

// Config holds file store configuration
type Config struct {
	Dir string // Data directory holding tasks.csv and tags.csv
}

// Store implements backend.Store on CSV files
type Store struct {
	dir string // Resolved absolute path
}

// New creates a new file store. Nothing is created on disk until the first Save.
func New(cfg Config) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "data"
	}

	// Resolve relative paths
	if !filepath.IsAbs(dir) {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve data directory: %w", err)
		}
		dir = abs
	}
	return &Store{dir: dir}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) tasksPath() string { return filepath.Join(s.dir, TasksFileName) }
func (s *Store) tagsPath() string { return filepath.Join(s.dir, TagsFileName) }

// Close closes the store
func (s *Store) Close() error {
	return nil
}

// Load reads both files. Missing files load as empty.
func (s *Store) Load(ctx context.Context) (*backend.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tasks, err := readTasks(s.tasksPath())
	if err != nil {
		return nil, err
	}
	tags, err := readTags(s.tagsPath())
	if err != nil {
		return nil, err
	}
	return &backend.Snapshot{Tasks: tasks, Tags: tags}, nil
}

// Save rewrites both files. Each file is replaced atomically.
func (s *Store) Save(ctx context.Context, snap *backend.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tasks, err := encodeTasks(snap.Tasks)
	if err != nil {
		return err
	}
	tags, err := encodeTags(snap.Tags)
	if err != nil {
		return err
	}

	if err := atomicwriter.WriteFile(s.tasksPath(), tasks, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", TasksFileName, err)
	}
	if err := atomicwriter.WriteFile(s.tagsPath(), tags, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", TagsFileName, err)
	}
	return nil
}

// openCSV returns a reader positioned after the header, with the column index
// of every header name. A missing file returns a nil reader.
func openCSV(path string) (*csv.Reader, map[string]int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s header: %w", filepath.Base(path), err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	return r, cols, nil
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func readTasks(path string) ([]backend.Task, error) {
	tasks := []backend.Task{}
	r, cols, err := openCSV(path)
	if err != nil || r == nil {
		return tasks, err
	}
	if _, ok := cols["id"]; !ok {
		return nil, fmt.Errorf("%s: missing id column", TasksFileName)
	}

	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", TasksFileName, err)
		}

		t, err := parseTask(record, cols)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", TasksFileName, line, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func parseTask(record []string, cols map[string]int) (backend.Task, error) {
	var t backend.Task

	id, err := strconv.Atoi(strings.TrimSpace(field(record, cols, "id")))
	if err != nil || id <= 0 {
		return t, fmt.Errorf("invalid id %q", field(record, cols, "id"))
	}
	t.ID = id
	t.Title = field(record, cols, "title")
	t.Tag = field(record, cols, "tag")

	if s := strings.TrimSpace(field(record, cols, "score")); s != "" {
		if t.Score, err = strconv.Atoi(s); err != nil {
			return t, fmt.Errorf("invalid score %q", s)
		}
	}
	if t.DueDate, err = backend.ParseDate(field(record, cols, "due_date")); err != nil {
		return t, fmt.Errorf("invalid due_date %q", field(record, cols, "due_date"))
	}

	t.Completed = backend.ParseBool(field(record, cols, "completed"))
	t.CompletedAt = backend.ParseTimestamp(field(record, cols, "completed_at"))
	t.ParentID = backend.ParseParentRef(field(record, cols, "parent_id"))
	t.Recur = backend.Recur(field(record, cols, "recur"))
	t.Normalize()
	return t, nil
}

func readTags(path string) ([]string, error) {
	tags := []string{}
	r, cols, err := openCSV(path)
	if err != nil || r == nil {
		return tags, err
	}
	if _, ok := cols["tag"]; !ok {
		return nil, fmt.Errorf("%s: missing tag column", TagsFileName)
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", TagsFileName, err)
		}
		if tag := field(record, cols, "tag"); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

func encodeTasks(tasks []backend.Task) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(taskFields)
	for _, t := range tasks {
		_ = w.Write([]string{
			strconv.Itoa(t.ID),
			t.Title,
			t.Tag,
			strconv.Itoa(t.Score),
			backend.FormatDate(t.DueDate),
			backend.FormatBool(t.Completed),
			backend.FormatTimestamp(t.CompletedAt),
			t.ParentID.String(),
			string(t.Recur),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode tasks: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeTags(tags []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"tag"})
	for _, tag := range tags {
		_ = w.Write([]string{tag})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	return buf.Bytes(), nil
}

// CanDetect reports whether the data directory already holds a tasks.csv.
func (s *Store) CanDetect() (bool, error) {
	info, err := os.Stat(s.tasksPath())
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DetectionInfo returns the detected file.
func (s *Store) DetectionInfo() string {
	return s.tasksPath()
}

func init() {
	backend.RegisterDetectableWithPriority("file", func(dataDir string) (backend.DetectableStore, error) {
		return New(Config{Dir: dataDir})
	}, 10)
}

var _ backend.DetectableStore = (*Store)(nil)

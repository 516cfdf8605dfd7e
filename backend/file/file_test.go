package file_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"tasktree/backend"
	"tasktree/backend/file"
)

// legacyTasks is a tasks.csv as written by the earlier web version.
const legacyTasks = `id,title,tag,score,due_date,completed,completed_at,parent_id,recur
1,家賃,マイタスク,30,2024-01-31,1,2024-01-31 08:15:00,,monthly
2,"title, with comma",仕事,,2024-02-01,0,,1,none
3,子タスク,仕事,50,2024-02-02,0,,abc,weekly
`

const legacyTags = "tag\nマイタスク\n仕事\n"

// testDir creates a data directory with the given files
func testDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	return dir
}

func mustNew(t *testing.T, dir string) *file.Store {
	t.Helper()
	s, err := file.New(file.Config{Dir: dir})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return s
}

func TestLoadLegacyData(t *testing.T) {
	dir := testDir(t, map[string]string{file.TasksFileName: legacyTasks, file.TagsFileName: legacyTags})
	snap, err := mustNew(t, dir).Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if !slices.Equal(snap.Tags, []string{"マイタスク", "仕事"}) {
		t.Errorf("tags = %v", snap.Tags)
	}
	if len(snap.Tasks) != 3 {
		t.Fatalf("loaded %d tasks, want 3", len(snap.Tasks))
	}

	rent := snap.Tasks[0]
	if !rent.Completed || rent.CompletedAt == nil || rent.Recur != backend.RecurMonthly {
		t.Errorf("task 1 = %+v", rent)
	}
	want := time.Date(2024, time.January, 31, 8, 15, 0, 0, time.Local)
	if rent.CompletedAt != nil && !rent.CompletedAt.Equal(want) {
		t.Errorf("completed_at = %v, want %v", rent.CompletedAt, want)
	}

	comma := snap.Tasks[1]
	if comma.Title != "title, with comma" || comma.Score != 0 || comma.ParentID != backend.ParentOf(1) {
		t.Errorf("task 2 = %+v", comma)
	}
	if !snap.Tasks[2].ParentID.IsRoot() {
		t.Errorf("non-numeric parent should load as root, got %v", snap.Tasks[2].ParentID)
	}
}

func TestLoadMissingFilesIsEmpty(t *testing.T) {
	snap, err := mustNew(t, filepath.Join(t.TempDir(), "none")).Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(snap.Tasks) != 0 || len(snap.Tags) != 0 {
		t.Errorf("snapshot = %+v, want empty", snap)
	}
}

func TestLoadRejectsBadRows(t *testing.T) {
	tests := map[string]string{
		"bad id":   "id,title,due_date\nx,a,2024-01-01\n",
		"bad date": "id,title,due_date\n1,a,01/02/2024\n",
		"no id":    "title,due_date\na,2024-01-01\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := testDir(t, map[string]string{file.TasksFileName: content})
			if _, err := mustNew(t, dir).Load(context.Background()); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSaveWritesLegacyLayout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	s := mustNew(t, dir)
	ctx := context.Background()

	done := time.Date(2024, time.March, 9, 7, 0, 5, 0, time.Local)
	snap := &backend.Snapshot{
		Tags: []string{backend.DefaultTagName, "x,y"},
		Tasks: []backend.Task{
			{ID: 1, Title: "a", Tag: "x,y", Score: 30, DueDate: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), Completed: true, CompletedAt: &done, Recur: backend.RecurNone},
			{ID: 2, Title: "b", Tag: backend.DefaultTagName, Score: 60, DueDate: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), ParentID: backend.ParentOf(1), Recur: backend.RecurWeekly},
		},
	}
	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, file.TasksFileName))
	if err != nil {
		t.Fatalf("read tasks.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if lines[0] != "id,title,tag,score,due_date,completed,completed_at,parent_id,recur" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != `1,a,"x,y",30,2024-03-09,1,2024-03-09 07:00:05,,none` {
		t.Errorf("row 1 = %q", lines[1])
	}
	if lines[2] != "2,b,マイタスク,60,2024-03-10,0,,1,weekly" {
		t.Errorf("row 2 = %q", lines[2])
	}

	back, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !slices.Equal(back.Tags, snap.Tags) || len(back.Tasks) != 2 || back.Tasks[1].ParentID != backend.ParentOf(1) {
		t.Errorf("reloaded = %+v", back)
	}
}

func TestCanDetect(t *testing.T) {
	empty := mustNew(t, t.TempDir())
	if ok, err := empty.CanDetect(); ok || err != nil {
		t.Errorf("CanDetect on empty dir = (%v, %v)", ok, err)
	}

	withData := mustNew(t, testDir(t, map[string]string{file.TasksFileName: legacyTasks}))
	if ok, err := withData.CanDetect(); !ok || err != nil {
		t.Errorf("CanDetect with tasks.csv = (%v, %v)", ok, err)
	}
	if !strings.HasSuffix(withData.DetectionInfo(), file.TasksFileName) {
		t.Errorf("DetectionInfo = %q", withData.DetectionInfo())
	}
}

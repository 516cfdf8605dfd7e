package sqlite

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"tasktree/backend"
)

// mustNewStore creates an in-memory store and registers cleanup
func mustNewStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, context.Background()
}

func sampleSnapshot() *backend.Snapshot {
	done := time.Date(2024, time.March, 9, 21, 15, 0, 0, time.Local)
	return &backend.Snapshot{
		Tags: []string{backend.DefaultTagName, "仕事", "買い物"},
		Tasks: []backend.Task{
			{ID: 1, Title: "plan", Tag: "仕事", Score: 40, DueDate: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), Recur: backend.RecurMonthly},
			{ID: 2, Title: "draft", Tag: "仕事", Score: 30, DueDate: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), ParentID: backend.ParentOf(1), Recur: backend.RecurNone},
			{ID: 5, Title: "milk", Tag: "買い物", Score: 30, DueDate: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), Completed: true, CompletedAt: &done, Recur: backend.RecurWeekly},
		},
	}
}

func TestNewStoreEmpty(t *testing.T) {
	s, ctx := mustNewStore(t)

	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if snap == nil || len(snap.Tasks) != 0 || len(snap.Tags) != 0 {
		t.Errorf("empty store loaded %+v", snap)
	}
}

func TestSaveLoadPreservesSnapshot(t *testing.T) {
	s, ctx := mustNewStore(t)
	want := sampleSnapshot()

	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if !slices.Equal(got.Tags, want.Tags) {
		t.Errorf("tags = %v, want %v", got.Tags, want.Tags)
	}
	if len(got.Tasks) != len(want.Tasks) {
		t.Fatalf("loaded %d tasks, want %d", len(got.Tasks), len(want.Tasks))
	}
	for i := range want.Tasks {
		g, w := got.Tasks[i], want.Tasks[i]
		if g.ID != w.ID || g.Title != w.Title || g.Tag != w.Tag || g.Score != w.Score ||
			!g.DueDate.Equal(w.DueDate) || g.Completed != w.Completed || g.ParentID != w.ParentID || g.Recur != w.Recur {
			t.Errorf("task %d = %+v, want %+v", w.ID, g, w)
		}
		if (g.CompletedAt == nil) != (w.CompletedAt == nil) || (g.CompletedAt != nil && !g.CompletedAt.Equal(*w.CompletedAt)) {
			t.Errorf("task %d completed_at = %v, want %v", w.ID, g.CompletedAt, w.CompletedAt)
		}
	}
}

func TestSaveReplacesEverything(t *testing.T) {
	s, ctx := mustNewStore(t)
	if err := s.Save(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	smaller := &backend.Snapshot{
		Tags:  []string{backend.DefaultTagName},
		Tasks: []backend.Task{{ID: 9, Title: "only", Tag: backend.DefaultTagName, DueDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Recur: backend.RecurNone}},
	}
	if err := s.Save(ctx, smaller); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, _ := s.Load(ctx)
	if len(got.Tasks) != 1 || got.Tasks[0].ID != 9 || len(got.Tags) != 1 {
		t.Errorf("after replace: %+v", got)
	}
}

func TestKeywordRulesKeepOrder(t *testing.T) {
	s, ctx := mustNewStore(t)

	rules, err := s.LoadRules(ctx)
	if err != nil || len(rules) != 0 {
		t.Fatalf("LoadRules on empty store = (%v, %v)", rules, err)
	}

	want := []backend.KeywordRule{
		{Tag: "買い物", Keywords: []string{"牛乳", "卵"}},
		{Tag: "仕事", Keywords: []string{"会議"}},
	}
	if err := s.SaveRules(ctx, want); err != nil {
		t.Fatalf("SaveRules error: %v", err)
	}
	got, err := s.LoadRules(ctx)
	if err != nil {
		t.Fatalf("LoadRules error: %v", err)
	}
	if len(got) != 2 || got[0].Tag != "買い物" || got[1].Tag != "仕事" || !slices.Equal(got[0].Keywords, want[0].Keywords) {
		t.Errorf("rules = %+v, want %+v", got, want)
	}
}

func TestFileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)
	ctx := context.Background()

	s, err := New(path)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := s.Save(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	_ = s.Close()

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	snap, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(snap.Tasks) != 3 {
		t.Errorf("reopened store has %d tasks, want 3", len(snap.Tasks))
	}
}

func TestDetectableAlwaysAvailable(t *testing.T) {
	s, _ := mustNewStore(t)
	d := &DetectableStore{Store: s}
	if ok, err := d.CanDetect(); !ok || err != nil {
		t.Errorf("CanDetect() = (%v, %v), want (true, nil)", ok, err)
	}
	if d.DetectionInfo() == "" {
		t.Error("DetectionInfo should not be empty")
	}
}

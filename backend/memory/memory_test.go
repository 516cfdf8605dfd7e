package memory

import (
	"context"
	"testing"

	"tasktree/backend"
)

func TestLoadReturnsIsolatedCopies(t *testing.T) {
	ctx := context.Background()
	s := New(&backend.Snapshot{Tags: []string{backend.DefaultTagName}, Tasks: []backend.Task{{ID: 1, Title: "a"}}})

	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	snap.Tasks[0].Title = "changed"

	again, _ := s.Load(ctx)
	if again.Tasks[0].Title != "a" {
		t.Errorf("store was mutated through a loaded snapshot")
	}

	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	again, _ = s.Load(ctx)
	if again.Tasks[0].Title != "changed" {
		t.Errorf("Save did not persist")
	}
	if s.Saves() != 1 {
		t.Errorf("Saves() = %d, want 1", s.Saves())
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(nil).Load(ctx); err == nil {
		t.Error("expected Load to fail with a cancelled context")
	}
}

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktree/backend"
)

func TestTaskRowsColumnOrder(t *testing.T) {
	t.Parallel()

	done := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	rows := taskRows([]backend.Task{{
		ID: 3, Title: "a", Tag: "x", Score: 30, DueDate: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		Completed: true, CompletedAt: &done, ParentID: backend.ParentOf(1), Recur: backend.RecurWeekly,
	}})

	require.Len(t, rows, 1)
	require.Len(t, rows[0], len(taskColumns))
	assert.Equal(t, 3, rows[0][0])
	assert.Equal(t, "1", rows[0][7])
	assert.Equal(t, "weekly", rows[0][8])
}

func TestFromRowNormalizes(t *testing.T) {
	t.Parallel()

	due := time.Date(2024, 3, 9, 0, 0, 0, 0, time.FixedZone("X", 3600))
	got := fromRow(backend.Task{ID: 1, DueDate: due}, nil, "abc", "yearly")

	assert.True(t, got.ParentID.IsRoot())
	assert.Equal(t, backend.RecurNone, got.Recur)
	assert.Equal(t, time.UTC, got.DueDate.Location())
	assert.Equal(t, 9, got.DueDate.Day())
}

// TestRoundTrip needs a database: TASKTREE_TEST_POSTGRES_DSN=postgres://...
func TestRoundTrip(t *testing.T) {
	dsn := os.Getenv("TASKTREE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TASKTREE_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	s, err := New(ctx, dsn, 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	snap := &backend.Snapshot{
		Tags:  []string{backend.DefaultTagName, "仕事"},
		Tasks: []backend.Task{{ID: 1, Title: "a", Tag: "仕事", Score: 30, DueDate: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), Recur: backend.RecurNone}},
	}
	require.NoError(t, s.Save(ctx, snap))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Tags, got.Tags)
	require.Len(t, got.Tasks, 1)
	assert.Equal(t, "a", got.Tasks[0].Title)

	require.NoError(t, s.SaveRules(ctx, []backend.KeywordRule{{Tag: "仕事", Keywords: []string{"会議"}}}))
	rules, err := s.LoadRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, []string{"会議"}, rules[0].Keywords)
}

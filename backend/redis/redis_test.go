package redis_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktree/backend"
	redisstore "tasktree/backend/redis"
)

func TestKeys(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "tasktree:snapshot", redisstore.SnapshotKey(redisstore.DefaultPrefix))
	assert.Equal(t, "work:rules", redisstore.RulesKey("work"))
}

func TestDecodeSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("empty value", func(t *testing.T) {
		t.Parallel()

		snap, err := redisstore.DecodeSnapshot(nil)
		require.NoError(t, err)
		assert.Empty(t, snap.Tasks)
		assert.NotNil(t, snap.Tags)
	})

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		done := time.Date(2024, 3, 9, 10, 0, 0, 0, time.Local)
		in := backend.Snapshot{
			Tags: []string{backend.DefaultTagName},
			Tasks: []backend.Task{{
				ID:          2,
				Title:       "a",
				Tag:         backend.DefaultTagName,
				Score:       30,
				DueDate:     time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
				Completed:   true,
				CompletedAt: &done,
				ParentID:    backend.ParentOf(1),
				Recur:       backend.RecurMonthly,
			}},
		}
		data, err := json.Marshal(in)
		require.NoError(t, err)

		out, err := redisstore.DecodeSnapshot(data)
		require.NoError(t, err)
		require.Len(t, out.Tasks, 1)
		assert.Equal(t, backend.ParentOf(1), out.Tasks[0].ParentID)
		assert.True(t, out.Tasks[0].CompletedAt.Equal(done))
		assert.True(t, out.Tasks[0].DueDate.Equal(in.Tasks[0].DueDate))
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()

		_, err := redisstore.DecodeSnapshot([]byte("{"))
		assert.Error(t, err)
	})
}

// TestRoundTrip needs a server: TASKTREE_TEST_REDIS_ADDR=localhost:6379
func TestRoundTrip(t *testing.T) {
	addr := os.Getenv("TASKTREE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TASKTREE_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	s, err := redisstore.New(ctx, addr, "", 0, "tasktree-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	snap := &backend.Snapshot{Tags: []string{backend.DefaultTagName}}
	require.NoError(t, s.Save(ctx, snap))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Tags, got.Tags)
}

package v1_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/rs/zerolog"

	v1 "tasktree/internal/api/v1"
	"tasktree/backend"
	"tasktree/backend/memory"
	"tasktree/internal/engine"
)

var fixedNow = time.Date(2024, time.March, 10, 9, 0, 0, 0, time.Local)

// newAPI registers every route against an engine over an in-memory store.
func newAPI(t *testing.T, seed *backend.Snapshot) (humatest.TestAPI, *engine.Engine) {
	t.Helper()
	if seed == nil {
		seed = &backend.Snapshot{}
	}
	seed.EnsureDefaultTag(backend.DefaultTagName)
	e := engine.New(memory.New(seed), engine.Options{
		Now:    func() time.Time { return fixedNow },
		Logger: zerolog.Nop(),
	})
	_, api := humatest.New(t)
	v1.RegisterRoutes(api, e)
	return api, e
}

// failingStore fails every load.
type failingStore struct{}

func (failingStore) Load(context.Context) (*backend.Snapshot, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) Save(context.Context, *backend.Snapshot) error { return nil }

func (failingStore) Close() error { return nil }

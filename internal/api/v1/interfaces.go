package v1

import (
	"context"
	"time"

	"tasktree/backend"
	"tasktree/internal/engine"
)

// TaskService abstracts the engine for handler testing.
// *engine.Engine satisfies this interface.
type TaskService interface {
	Dashboard(ctx context.Context) (*engine.Dashboard, error)
	Task(ctx context.Context, id int) (backend.Task, bool, error)
	CreateTask(ctx context.Context, in engine.NewTask) (int, error)
	CompleteTask(ctx context.Context, id int) (engine.Completion, error)
	UndoTask(ctx context.Context, id int) (bool, error)
	RescheduleTask(ctx context.Context, id int, due time.Time) (bool, error)
	UpdateTask(ctx context.Context, id int, upd engine.MetadataUpdate) (bool, error)
	DeleteTask(ctx context.Context, id int) ([]int, error)
	Tags(ctx context.Context) ([]string, error)
	AddTag(ctx context.Context, name string) (bool, error)
	DeleteTag(ctx context.Context, name string) (int, error)
	DefaultTag() string
}

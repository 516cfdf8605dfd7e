package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"tasktree/backend"
	"tasktree/internal/dates"
	"tasktree/internal/engine"
)

type CreateTaskInput struct {
	Body struct {
		Title    string `json:"title" minLength:"1" maxLength:"500" doc:"Task title"`
		Tag      string `json:"tag,omitempty" doc:"Tag; unknown tags fall back to the default tag"`
		Score    int    `json:"score,omitempty" minimum:"0" doc:"Points earned on completion (0 = default 30)"`
		DueDate  string `json:"due_date,omitempty" pattern:"^\\d{4}-\\d{2}-\\d{2}$" doc:"Due date YYYY-MM-DD (default today)"`
		Recur    string `json:"recur,omitempty" enum:"none,weekly,monthly" doc:"Recurrence"`
		ParentID int    `json:"parent_id,omitempty" minimum:"0" doc:"Parent task id (0 = root)"`
	}
}

type TaskOutput struct {
	Body Task
}

type TaskIDInput struct {
	ID int `path:"id" minimum:"1" doc:"Task ID"`
}

type CompleteTaskOutput struct {
	Body engine.Completion
}

type ChangedOutput struct {
	Body struct {
		Changed bool `json:"changed" doc:"Whether the stored state changed"`
	}
}

type RescheduleTaskInput struct {
	ID   int `path:"id" minimum:"1" doc:"Task ID"`
	Body struct {
		DueDate string `json:"due_date,omitempty" pattern:"^\\d{4}-\\d{2}-\\d{2}$" doc:"New due date YYYY-MM-DD (default today)"`
	}
}

type UpdateTaskInput struct {
	ID   int `path:"id" minimum:"1" doc:"Task ID"`
	Body struct {
		Tag      *string `json:"tag,omitempty" doc:"New tag; unknown tags become the default tag"`
		ParentID *int    `json:"parent_id,omitempty" minimum:"0" doc:"New parent id (0 = root); invalid parents resolve to root"`
	}
}

type DeleteTaskOutput struct {
	Body struct {
		Deleted []int `json:"deleted" doc:"Ids removed, including descendants"`
	}
}

func parseDue(text string) (time.Time, error) {
	if text == "" {
		return time.Time{}, nil
	}
	d, err := dates.Parse(text)
	if err != nil {
		return time.Time{}, huma.Error422UnprocessableEntity("invalid due_date", err)
	}
	return d, nil
}

func RegisterTaskRoutes(api huma.API, svc TaskService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create a new task",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTaskInput) (*TaskOutput, error) {
		due, err := parseDue(input.Body.DueDate)
		if err != nil {
			return nil, err
		}

		id, err := svc.CreateTask(ctx, engine.NewTask{
			Title:   input.Body.Title,
			Tag:     input.Body.Tag,
			Score:   input.Body.Score,
			DueDate: due,
			Recur:   backend.ParseRecur(input.Body.Recur),
			Parent:  backend.ParentOf(input.Body.ParentID),
		})
		if err != nil {
			return nil, engineError("failed to create task", err)
		}

		t, ok, err := svc.Task(ctx, id)
		if err != nil || !ok {
			return nil, huma.Error500InternalServerError("failed to read created task", err)
		}
		return &TaskOutput{Body: NewTask(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get a task by ID",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*TaskOutput, error) {
		t, ok, err := svc.Task(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to get task", err)
		}
		if !ok {
			return nil, huma.Error404NotFound("task not found")
		}
		return &TaskOutput{Body: NewTask(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/complete",
		Summary:     "Complete a task, spawning the next occurrence for recurring tasks",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*CompleteTaskOutput, error) {
		c, err := svc.CompleteTask(ctx, input.ID)
		if err != nil {
			return nil, engineError("failed to complete task", err)
		}
		if !c.Found {
			return nil, huma.Error404NotFound("task not found")
		}
		return &CompleteTaskOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "undo-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/undo",
		Summary:     "Reopen a completed task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*ChangedOutput, error) {
		if _, ok, err := svc.Task(ctx, input.ID); err != nil || !ok {
			if err != nil {
				return nil, huma.Error500InternalServerError("failed to get task", err)
			}
			return nil, huma.Error404NotFound("task not found")
		}
		changed, err := svc.UndoTask(ctx, input.ID)
		if err != nil {
			return nil, engineError("failed to undo task", err)
		}
		out := &ChangedOutput{}
		out.Body.Changed = changed
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reschedule-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/reschedule",
		Summary:     "Move an active task to a new due date and add the reschedule bonus",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *RescheduleTaskInput) (*TaskOutput, error) {
		due, err := parseDue(input.Body.DueDate)
		if err != nil {
			return nil, err
		}
		if _, err := svc.RescheduleTask(ctx, input.ID, due); err != nil {
			return nil, engineError("failed to reschedule task", err)
		}
		t, ok, err := svc.Task(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to get task", err)
		}
		if !ok {
			return nil, huma.Error404NotFound("task not found")
		}
		return &TaskOutput{Body: NewTask(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Change the tag or parent of a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *UpdateTaskInput) (*TaskOutput, error) {
		upd := engine.MetadataUpdate{Tag: input.Body.Tag}
		if input.Body.ParentID != nil {
			p := backend.ParentOf(*input.Body.ParentID)
			upd.Parent = &p
		}
		if _, err := svc.UpdateTask(ctx, input.ID, upd); err != nil {
			return nil, engineError("failed to update task", err)
		}
		t, ok, err := svc.Task(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to get task", err)
		}
		if !ok {
			return nil, huma.Error404NotFound("task not found")
		}
		return &TaskOutput{Body: NewTask(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}",
		Summary:     "Delete a task and all of its descendants",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*DeleteTaskOutput, error) {
		removed, err := svc.DeleteTask(ctx, input.ID)
		if err != nil {
			return nil, engineError("failed to delete task", err)
		}
		if len(removed) == 0 {
			return nil, huma.Error404NotFound("task not found")
		}
		out := &DeleteTaskOutput{}
		out.Body.Deleted = removed
		return out, nil
	})
}

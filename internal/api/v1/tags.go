package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

type ListTagsInput struct{}

type ListTagsOutput struct {
	Body struct {
		Tags       []string `json:"tags" doc:"Tags in display order"`
		DefaultTag string   `json:"default_tag" doc:"Tag that cannot be deleted"`
	}
}

type AddTagInput struct {
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"100" doc:"Tag name"`
	}
}

type AddTagOutput struct {
	Body struct {
		Added bool `json:"added" doc:"False when the tag already existed"`
	}
}

type DeleteTagInput struct {
	Name string `path:"name" doc:"Tag name"`
}

type DeleteTagOutput struct {
	Body struct {
		Moved int `json:"moved" doc:"Tasks reassigned to the default tag"`
	}
}

func RegisterTagRoutes(api huma.API, svc TaskService) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tags",
		Method:      http.MethodGet,
		Path:        "/tags",
		Summary:     "List tags",
		Tags:        []string{"Tags"},
	}, func(ctx context.Context, _ *ListTagsInput) (*ListTagsOutput, error) {
		tags, err := svc.Tags(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list tags", err)
		}
		out := &ListTagsOutput{}
		out.Body.Tags = tags
		out.Body.DefaultTag = svc.DefaultTag()
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-tag",
		Method:      http.MethodPost,
		Path:        "/tags",
		Summary:     "Add a tag",
		Tags:        []string{"Tags"},
	}, func(ctx context.Context, input *AddTagInput) (*AddTagOutput, error) {
		added, err := svc.AddTag(ctx, input.Body.Name)
		if err != nil {
			return nil, engineError("failed to add tag", err)
		}
		out := &AddTagOutput{}
		out.Body.Added = added
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-tag",
		Method:      http.MethodDelete,
		Path:        "/tags/{name}",
		Summary:     "Delete a tag, moving its tasks to the default tag",
		Tags:        []string{"Tags"},
	}, func(ctx context.Context, input *DeleteTagInput) (*DeleteTagOutput, error) {
		if input.Name == svc.DefaultTag() {
			return nil, huma.Error409Conflict("the default tag cannot be deleted")
		}
		moved, err := svc.DeleteTag(ctx, input.Name)
		if err != nil {
			return nil, engineError("failed to delete tag", err)
		}
		out := &DeleteTagOutput{}
		out.Body.Moved = moved
		return out, nil
	})
}

// RegisterRoutes wires every /api/v1 operation.
func RegisterRoutes(api huma.API, svc TaskService) {
	RegisterDashboardRoutes(api, svc)
	RegisterTaskRoutes(api, svc)
	RegisterTagRoutes(api, svc)
}

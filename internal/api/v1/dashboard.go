package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"tasktree/internal/markdown"
)

type GetDashboardInput struct{}

type GetDashboardOutput struct {
	Body *Dashboard
}

type ExportInput struct{}

type ExportOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

func RegisterDashboardRoutes(api huma.API, svc TaskService) {
	huma.Register(api, huma.Operation{
		OperationID: "get-dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboard",
		Summary:     "Get the task tree, week view, and scores",
		Tags:        []string{"Dashboard"},
	}, func(ctx context.Context, _ *GetDashboardInput) (*GetDashboardOutput, error) {
		d, err := svc.Dashboard(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to build dashboard", err)
		}
		return &GetDashboardOutput{Body: NewDashboard(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "export-markdown",
		Method:      http.MethodGet,
		Path:        "/export",
		Summary:     "Export the dashboard as a markdown checklist",
		Tags:        []string{"Dashboard"},
	}, func(ctx context.Context, _ *ExportInput) (*ExportOutput, error) {
		d, err := svc.Dashboard(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to build dashboard", err)
		}
		return &ExportOutput{
			ContentType: "text/markdown; charset=utf-8",
			Body:        []byte(markdown.Export(d)),
		}, nil
	})
}

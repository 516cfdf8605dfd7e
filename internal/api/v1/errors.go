package v1

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"tasktree/internal/engine"
)

// engineError maps engine failures to problem responses.
func engineError(msg string, err error) error {
	switch {
	case errors.Is(err, engine.ErrEmptyTitle), errors.Is(err, engine.ErrNegativeScore):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}

package identity

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// errorResponse maps a domain error to an HTTP status plus JSON payload.
// Rich errors carry their own status code, the category is the fallback.
func errorResponse(err error) (int, map[string]any) {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return router.StatusInternalServerError, map[string]any{
			"error": "unexpected error",
		}
	}

	status := richErr.Code
	if status == 0 {
		status = categoryStatus(richErr.Category)
	}

	payload := map[string]any{
		"error": richErr.Message,
	}
	if richErr.TextCode != "" {
		payload["text_code"] = richErr.TextCode
	}

	return status, payload
}

func categoryStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth:
		return router.StatusUnauthorized
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return router.StatusBadRequest
	case goerrors.CategoryConflict:
		return router.StatusConflict
	case goerrors.CategoryNotFound:
		return router.StatusNotFound
	case goerrors.CategoryOperation:
		return router.StatusBadGateway
	default:
		return router.StatusInternalServerError
	}
}

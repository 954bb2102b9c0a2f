// Package errhttp maps domain sentinel errors to HTTP status codes.
// Add a case to mapErrorToStatus for each new domain sentinel error.
package errhttp

import (
	"errors"
	"net/http"

	"github.com/ghuser/productcatalog/pkg/auth"
	"github.com/ghuser/productcatalog/pkg/httpx"
	"github.com/ghuser/productcatalog/pkg/telemetry"
	catalogdomain "github.com/ghuser/productcatalog/services/catalog/domain"
)

// WriteError maps err to an HTTP status code and writes a JSON error response.
// Uses errors.Is() so wrapped sentinel errors are matched correctly.
// Defaults to 500 Internal Server Error for unrecognized errors, whose
// message is not echoed to the client and which are reported to Sentry
// tagged with the request's workspace.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToStatus(err)
	if status == http.StatusInternalServerError {
		telemetry.CaptureError(r.Context(), err)
	}
	httpx.JSONError(w, status, httpx.SafeError(err, status, true))
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrWorkspaceNotFound):
		return http.StatusUnauthorized // 401
	case errors.Is(err, catalogdomain.ErrNotFound):
		return http.StatusNotFound // 404
	case errors.Is(err, catalogdomain.ErrDuplicateCode),
		errors.Is(err, catalogdomain.ErrBundleCycle):
		return http.StatusConflict // 409
	case errors.Is(err, catalogdomain.ErrInvalidItemCode),
		errors.Is(err, catalogdomain.ErrInvalidItemName),
		errors.Is(err, catalogdomain.ErrInvalidPrice),
		errors.Is(err, catalogdomain.ErrInvalidDiscount):
		return http.StatusUnprocessableEntity // 422
	default:
		return http.StatusInternalServerError // 500
	}
}

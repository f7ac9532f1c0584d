package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/source"
	"github.com/cmlabs-hris/attendance-sync-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrMissingCredentials):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")

	// Sync errors
	case errors.Is(err, attendance.ErrSyncInProgress):
		Conflict(w, "A sync cycle is already running")
	case errors.Is(err, source.ErrUnauthorized):
		BadGateway(w, "Remote attendance server rejected the configured credentials")
	case errors.Is(err, attendance.ErrSourceFetch):
		BadGateway(w, "Failed to fetch data from the remote attendance server")
	case errors.Is(err, attendance.ErrStorage):
		InternalServerError(w, "Failed to store attendance data")

	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}

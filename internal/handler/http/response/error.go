package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/reference"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/validator"
)

// Error codes carried in the envelope. The store client maps them back to
// the error kinds.
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeValidation      = "VALIDATION_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodePolicyViolation = "POLICY_VIOLATION"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth errors
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrWrongTokenUse):
		Unauthorized(w, err.Error())

	// Memorandum errors
	case errors.Is(err, memorandum.ErrForbidden),
		errors.Is(err, memorandum.ErrNotOwner),
		errors.Is(err, memorandum.ErrReviewerRequired):
		Forbidden(w, err.Error())
	case errors.Is(err, memorandum.ErrUnauthorized):
		Unauthorized(w, err.Error())
	case errors.Is(err, memorandum.ErrMemorandumNotFound):
		NotFound(w, "Memorandum not found")
	case errors.Is(err, memorandum.ErrNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, memorandum.ErrPolicyViolation):
		PolicyViolation(w, err.Error())
	case errors.Is(err, memorandum.ErrValidation):
		ValidationError(w, map[string]string{"request": err.Error()})

	// Reference and attendance errors
	case errors.Is(err, reference.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}

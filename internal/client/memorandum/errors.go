package memorandum

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/validator"
	"github.com/go-resty/resty/v2"
)

// APIError is an error envelope returned by the backend.
type APIError struct {
	StatusCode int
	Code       string
	Message    string

	kind error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("memorandum API error [%d] %s: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap exposes the error kind, and the specific sentinel when the message
// names one.
func (e *APIError) Unwrap() error {
	return e.kind
}

// specific lists the sentinels whose text the backend echoes in its messages.
var specific = []error{
	memorandum.ErrNotOwner,
	memorandum.ErrReviewerRequired,
	memorandum.ErrMissingCompanyID,
	memorandum.ErrMissingEmployeeID,
	memorandum.ErrForbidden,
	memorandum.ErrDeadlinePassed,
	memorandum.ErrAlreadyJustified,
	memorandum.ErrNotPending,
	memorandum.ErrNotReviewable,
	memorandum.ErrTerminalState,
	memorandum.ErrInvalidTransition,
	memorandum.ErrDuplicateAnomaly,
	memorandum.ErrStaleTransition,
}

func decodeError(op string, resp *resty.Response) error {
	var env envelope
	_ = json.Unmarshal(resp.Body(), &env)

	apiErr := &APIError{StatusCode: resp.StatusCode()}
	var details map[string]string
	if env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		details = env.Error.Details
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(apiErr.StatusCode)
	}

	if apiErr.StatusCode >= http.StatusInternalServerError {
		return &memorandum.TransientError{Op: op, Err: apiErr}
	}

	switch {
	case apiErr.Code == response.CodeValidation || apiErr.StatusCode == http.StatusUnprocessableEntity:
		if len(details) > 0 {
			return validator.FromMap(details)
		}
		return validator.ValidationErrors{{Field: "request", Message: apiErr.Message}}
	case apiErr.Code == response.CodeBadRequest || apiErr.StatusCode == http.StatusBadRequest:
		return validator.ValidationErrors{{Field: "request", Message: apiErr.Message}}
	case apiErr.Code == response.CodeNotFound || apiErr.StatusCode == http.StatusNotFound:
		apiErr.kind = memorandum.ErrNotFound
		if strings.Contains(strings.ToLower(apiErr.Message), "memorandum") {
			apiErr.kind = memorandum.ErrMemorandumNotFound
		}
	case apiErr.Code == response.CodeUnauthorized || apiErr.Code == response.CodeForbidden ||
		apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		apiErr.kind = specificOr(apiErr.Message, memorandum.ErrUnauthorized)
	case apiErr.Code == response.CodePolicyViolation || apiErr.StatusCode == http.StatusConflict:
		apiErr.kind = specificOr(apiErr.Message, memorandum.ErrPolicyViolation)
	default:
		return &memorandum.TransientError{Op: op, Err: apiErr}
	}
	return apiErr
}

func specificOr(message string, kind error) error {
	for _, s := range specific {
		if strings.Contains(message, s.Error()) {
			return s
		}
	}
	return kind
}

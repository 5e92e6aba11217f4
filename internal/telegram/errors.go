package telegram

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a failed Bot API call.
type APIError struct {
	Method      string
	Code        int    // error_code, or the HTTP status when the body was not an API envelope
	Description string // description returned by the API
	RetryAfter  int    // seconds to wait, set on 429 responses
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("telegram %s: %d %s (retry after %ds)", e.Method, e.Code, e.Description, e.RetryAfter)
	}
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// Temporary reports whether retrying the same call may succeed.
func (e *APIError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// IsAPIError reports whether err carries an APIError with the given code.
func IsAPIError(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

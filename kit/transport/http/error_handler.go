package http

import (
	"net/http"

	"github.com/taskdata/taskd/kit/platform/errors"
)

// ErrorCodeHeader carries the machine-readable error code of a failed
// request.
const ErrorCodeHeader = "X-Taskd-Error-Code"

const internalErrorMsg = "An internal error has occurred."

// encodeError resolves an error into the message, structured details and
// HTTP status code to send to the caller. Internal errors are collapsed to a
// generic message so store internals never leak.
func encodeError(err error) (msg string, details interface{}, status int) {
	code := errors.ErrorCode(err)

	status, ok := statusCodePlatformError[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		return internalErrorMsg, nil, status
	}

	return errors.ErrorMessage(err), errors.ErrorDetails(err), status
}

// statusCodePlatformError converts platform error codes to HTTP status codes.
var statusCodePlatformError = map[string]int{
	errors.EInternal:     http.StatusInternalServerError,
	errors.EInvalid:      http.StatusBadRequest,
	errors.EConflict:     http.StatusConflict,
	errors.ENotFound:     http.StatusNotFound,
	errors.EForbidden:    http.StatusForbidden,
	errors.EUnauthorized: http.StatusUnauthorized,
}

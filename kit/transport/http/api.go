package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/taskdata/taskd/kit/platform/errors"
	"go.uber.org/zap"
)

// Envelope is the uniform success body returned by every endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Count returns a pointer suitable for Envelope.Count.
func Count(n int) *int {
	return &n
}

// API is a collection of handlers for encoding requests and responses in a
// uniform fashion.
type API struct {
	log *zap.Logger

	errFn func(err error) (string, interface{}, int)
}

// APIOptFn configures an API.
type APIOptFn func(*API)

// WithLog sets the logger internal errors are reported to.
func WithLog(log *zap.Logger) APIOptFn {
	return func(a *API) {
		a.log = log
	}
}

// NewAPI creates a new API type.
func NewAPI(opts ...APIOptFn) *API {
	a := &API{
		log:   zap.NewNop(),
		errFn: encodeError,
	}
	for _, o := range opts {
		o(a)
	}

	return a
}

// DecodeJSON decodes the reader into v, returning an invalid error when the
// body is not well-formed JSON.
func (a *API) DecodeJSON(r io.Reader, v interface{}) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return &errors.Error{
			Code: errors.EInvalid,
			Msg:  "request body is not valid JSON",
			Err:  err,
		}
	}

	return nil
}

// Respond writes v as JSON with the given status code.
func (a *API) Respond(w http.ResponseWriter, r *http.Request, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("failed to encode response body", zap.Error(err), zap.String("path", r.URL.Path))
	}
}

// Err writes the error body for err. Codes mapping to a 500 have their
// message replaced with a generic one and the original error is logged
// instead of returned.
func (a *API) Err(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	msg, details, status := a.errFn(err)
	if status >= http.StatusInternalServerError {
		a.log.Error("api internal error",
			zap.Error(err),
			zap.String("op", errors.ErrorOp(err)),
			zap.String("path", r.URL.Path))
	}

	w.Header().Set(ErrorCodeHeader, errors.ErrorCode(err))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	body := struct {
		Error   string      `json:"error"`
		Details interface{} `json:"details,omitempty"`
	}{
		Error:   msg,
		Details: details,
	}

	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.log.Error("failed to encode error body", zap.Error(err), zap.String("path", r.URL.Path))
	}
}

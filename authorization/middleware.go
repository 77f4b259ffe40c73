// Package authorization resolves the bearer credential on an inbound request
// into a verified subject before any handler runs. Verification failures are
// distinct from a missing credential: no credential at all is a 401, a
// credential that fails verification is a 403.
package authorization

import (
	"context"
	"net/http"
	"strings"

	"github.com/taskdata/taskd"
	"github.com/taskdata/taskd/jsonweb"
	"github.com/taskdata/taskd/kit/platform/errors"
	kithttp "github.com/taskdata/taskd/kit/transport/http"
	"go.uber.org/zap"
)

type contextKey string

const subjectContextKey contextKey = "taskd/subject"

var (
	// ErrMissingCredential means no bearer token was presented at all.
	ErrMissingCredential = &errors.Error{
		Code: errors.EUnauthorized,
		Msg:  "authorization header missing",
	}

	errMalformedHeader = &errors.Error{
		Code: errors.EUnauthorized,
		Msg:  "invalid authorization header format",
	}

	errNoSubject = &errors.Error{
		Code: errors.EUnauthorized,
		Msg:  "no authenticated subject on request",
	}
)

// Middleware verifies the Authorization header of every request it wraps and
// stores the resulting subject ID in the request context.
func Middleware(log *zap.Logger, parser *jsonweb.TokenParser) kithttp.Middleware {
	api := kithttp.NewAPI(kithttp.WithLog(log))

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			cred, err := extractBearer(r)
			if err != nil {
				api.Err(w, r, err)
				return
			}

			token, err := parser.Parse(cred)
			if err != nil {
				api.Err(w, r, err)
				return
			}

			subject, err := token.UserID()
			if err != nil {
				// a verified token without a usable subject claim is treated
				// the same as one that failed verification
				api.Err(w, r, &errors.Error{
					Code: errors.EForbidden,
					Msg:  "invalid or expired token",
					Err:  err,
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(withSubject(r.Context(), subject)))
		}
		return http.HandlerFunc(fn)
	}
}

func extractBearer(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingCredential
	}

	scheme, cred, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || cred == "" {
		return "", errMalformedHeader
	}

	return cred, nil
}

func withSubject(ctx context.Context, id taskd.ID) context.Context {
	return context.WithValue(ctx, subjectContextKey, id)
}

// SubjectFromContext returns the verified subject stored by Middleware.
func SubjectFromContext(ctx context.Context) (taskd.ID, error) {
	id, ok := ctx.Value(subjectContextKey).(taskd.ID)
	if !ok {
		return taskd.InvalidID(), errNoSubject
	}

	return id, nil
}

package authorization

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taskdata/taskd"
	"github.com/taskdata/taskd/jsonweb"
	"go.uber.org/zap/zaptest"
)

var testKey = []byte("correct horse battery staple....")

func TestMiddleware(t *testing.T) {
	t.Parallel()

	signer := jsonweb.NewTokenSigner("primary", testKey)
	parser := jsonweb.NewTokenParser(jsonweb.SingleKeyStore("primary", testKey))

	valid, err := signer.Sign(taskd.ID(42), time.Minute)
	require.NoError(t, err)

	expired, err := signer.Sign(taskd.ID(42), -time.Minute)
	require.NoError(t, err)

	var gotSubject taskd.ID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := SubjectFromContext(r.Context())
		require.NoError(t, err)
		gotSubject = subject
		w.WriteHeader(http.StatusNoContent)
	})

	handler := Middleware(zaptest.NewLogger(t), parser)(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic dXNlcjpwYXNz", wantStatus: http.StatusUnauthorized},
		{name: "empty credential", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "garbage credential", header: "Bearer nope", wantStatus: http.StatusForbidden},
		{name: "expired token", header: "Bearer " + expired, wantStatus: http.StatusForbidden},
		{name: "valid token", header: "Bearer " + valid, wantStatus: http.StatusNoContent},
		{name: "case-insensitive scheme", header: "bearer " + valid, wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSubject = taskd.InvalidID()

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, r)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusNoContent {
				require.Equal(t, taskd.ID(42), gotSubject)
			}
		})
	}
}

func TestSubjectFromContext(t *testing.T) {
	t.Parallel()

	_, err := SubjectFromContext(context.Background())
	require.Error(t, err)

	subject, err := SubjectFromContext(withSubject(context.Background(), taskd.ID(7)))
	require.NoError(t, err)
	require.Equal(t, taskd.ID(7), subject)
}

package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/identity"
)

// ErrNoSubject is returned by Subject when the request is anonymous
var ErrNoSubject = errors.New("request has no authenticated subject")

// Checker answers permission checks
type Checker interface {
	Can(ctx context.Context, identifier, action, target any) (bool, error)
}

// ValueFunc extracts an identifier or target from a request
type ValueFunc func(r *http.Request) (any, error)

// Subject resolves to the authenticated token subject
func Subject(r *http.Request) (any, error) {
	id, ok := identity.Get(r.Context())
	if !ok || id.Subject == "" {
		return nil, ErrNoSubject
	}
	return id.Subject, nil
}

// Static always resolves to v
func Static(v any) ValueFunc {
	return func(*http.Request) (any, error) {
		return v, nil
	}
}

// Var resolves to a mux route variable
func Var(name string) ValueFunc {
	return func(r *http.Request) (any, error) {
		v, ok := mux.Vars(r)[name]
		if !ok {
			return nil, errors.New("missing route variable " + name)
		}
		return v, nil
	}
}

// Require only lets the request through when checker allows the resolved
// identifier to perform action on the resolved target. An unresolvable
// identifier is 401, a denied check 403 and a failed check 500.
func Require(checker Checker, action any, identifierFn, targetFn ValueFunc, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier, err := identifierFn(r)
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(err.Error()))
				return
			}
			target, err := targetFn(r)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(err.Error()))
				return
			}

			allowed, err := checker.Can(r.Context(), identifier, action, target)
			if err != nil {
				logger.Error("permission check failed", zap.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("Permission check failed"))
				return
			}
			if !allowed {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte("Forbidden"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

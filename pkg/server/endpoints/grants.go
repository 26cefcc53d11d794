package endpoints

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/grant"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/server"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/server/middleware"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/whocan"
)

const (
	// maxBodyBytes bounds a grant request body
	maxBodyBytes = 1 << 20

	// ManageAction and GrantsTarget name the permission needed to change
	// grants over HTTP when tokens are required
	ManageAction = "manage"
	GrantsTarget = "grants"
)

// CheckResponse represents the response from POST /grants/check
type CheckResponse struct {
	Allowed bool `json:"allowed"`
}

// RegisterGrantsEndpoints registers the grant management endpoints. When a
// JWT secret is configured every route needs a bearer token and the write
// routes additionally need ("<subject>", "manage", "grants").
func RegisterGrantsEndpoints(s *server.Server) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	guard := func(next http.Handler) http.Handler { return next }

	grants := s.Router.PathPrefix("/grants").Subrouter()
	if s.Config != nil && s.Config.JWTSecret != "" {
		grants.Use(middleware.NewJWTAuthenticator([]byte(s.Config.JWTSecret)).Middleware)
		guard = middleware.Require(s.WhoCan, ManageAction, middleware.Subject, middleware.Static(GrantsTarget), logger)
	}

	// PUT /grants - Allow
	grants.Handle("", guard(handleAllow(s.WhoCan, logger))).Methods("PUT")

	// DELETE /grants - Disallow
	grants.Handle("", guard(handleDisallow(s.WhoCan, logger))).Methods("DELETE")

	// POST /grants/check - Can
	grants.Handle("/check", handleCheck(s.WhoCan, logger)).Methods("POST")
}

func readTriple(w http.ResponseWriter, r *http.Request) (grant.Triple, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return grant.Triple{}, false
		}
		respondWithError(w, http.StatusBadRequest, "failed to read request body")
		return grant.Triple{}, false
	}

	t, err := grant.ParseTriple(body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return grant.Triple{}, false
	}
	return t, true
}

func handleAllow(m whocan.Manager, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t, ok := readTriple(w, r)
		if !ok {
			return
		}

		if err := m.Allow(r.Context(), t.Identifier, t.Action, t.Target); err != nil {
			logger.Error("allow failed", zap.Stringer("triple", t), zap.Error(err))
			respondWithError(w, http.StatusInternalServerError, "failed to store grant")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func handleDisallow(m whocan.Manager, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t, ok := readTriple(w, r)
		if !ok {
			return
		}

		if err := m.Disallow(r.Context(), t.Identifier, t.Action, t.Target); err != nil {
			logger.Error("disallow failed", zap.Stringer("triple", t), zap.Error(err))
			respondWithError(w, http.StatusInternalServerError, "failed to remove grant")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func handleCheck(c whocan.Checker, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t, ok := readTriple(w, r)
		if !ok {
			return
		}

		allowed, err := c.Can(r.Context(), t.Identifier, t.Action, t.Target)
		if err != nil {
			logger.Error("check failed", zap.Stringer("triple", t), zap.Error(err))
			respondWithError(w, http.StatusInternalServerError, "failed to check grant")
			return
		}

		respondWithJSON(w, http.StatusOK, CheckResponse{Allowed: allowed})
	})
}

package endpoints

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/audit"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/config"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/server"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/server/middleware"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store/memory"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/whocan"
)

const testSecret = "test-secret"

// failingStore fails every operation
type failingStore struct {
	err error
}

func (f failingStore) Allow(context.Context, any, any, any) error { return f.err }

func (f failingStore) Disallow(context.Context, any, any, any) error { return f.err }

func (f failingStore) Can(context.Context, any, any, any) (bool, error) { return false, f.err }

func (f failingStore) CheckConnectivity(context.Context) error { return f.err }

func newTestServer(t *testing.T, s store.Store, cfg *config.WhoCanConfig) *server.Server {
	t.Helper()
	if cfg == nil {
		cfg = &config.WhoCanConfig{Backend: config.BackendMemory}
	}
	srv := server.NewServer(whocan.New(s, whocan.WithAudit(audit.Discard)), s, cfg, nil, "127.0.0.1", "0")
	RegisterAll(srv)
	return srv
}

func do(srv *server.Server, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)
	return w
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t, memory.New(), nil)

	w := do(srv, "GET", "/", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"status":"ok","version":"0.1.0","backend":"memory"}`, w.Body.String())
}

func TestHandleHealth(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		srv := newTestServer(t, memory.New(), nil)

		w := do(srv, "GET", "/health", "", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := newTestServer(t, failingStore{err: errors.New("connection refused")}, nil)

		w := do(srv, "GET", "/health", "", "")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"error","error":"database connectivity check failed"}`, w.Body.String())
	})

	t.Run("no store", func(t *testing.T) {
		w := httptest.NewRecorder()
		handleHealth(nil, nil)(w, httptest.NewRequest("GET", "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestGrantsLifecycle(t *testing.T) {
	srv := newTestServer(t, memory.New(), nil)
	body := `{"identifier":"u1","action":"read","target":"doc1"}`

	w := do(srv, "POST", "/grants/check", body, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"allowed":false}`, w.Body.String())

	w = do(srv, "PUT", "/grants", body, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(srv, "POST", "/grants/check", body, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"allowed":true}`, w.Body.String())

	w = do(srv, "DELETE", "/grants", body, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(srv, "POST", "/grants/check", body, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"allowed":false}`, w.Body.String())
}

func TestGrantsKeyOrder(t *testing.T) {
	mem := memory.New()
	srv := newTestServer(t, mem, nil)

	w := do(srv, "PUT", "/grants", `{"identifier":"u1","action":"read","target":{"type":"doc","id":"1"}}`, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, mem.Len())

	w = do(srv, "POST", "/grants/check", `{"identifier":"u1","action":"read","target":{"type":"doc","id":"1"}}`, "")
	assert.JSONEq(t, `{"allowed":true}`, w.Body.String())

	w = do(srv, "POST", "/grants/check", `{"identifier":"u1","action":"read","target":{"id":"1","type":"doc"}}`, "")
	assert.JSONEq(t, `{"allowed":false}`, w.Body.String())
}

func TestGrantsNumericValues(t *testing.T) {
	srv := newTestServer(t, memory.New(), nil)

	w := do(srv, "PUT", "/grants", `{"identifier":42,"action":"read","target":"doc1"}`, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(srv, "POST", "/grants/check", `{"identifier":42,"action":"read","target":"doc1"}`, "")
	assert.JSONEq(t, `{"allowed":true}`, w.Body.String())

	w = do(srv, "POST", "/grants/check", `{"identifier":"42","action":"read","target":"doc1"}`, "")
	assert.JSONEq(t, `{"allowed":false}`, w.Body.String())
}

func TestGrantsInvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `identifier=u1`},
		{name: "empty", body: ``},
		{name: "null identifier", body: `{"identifier":null,"action":"read","target":"doc1"}`},
		{name: "missing target", body: `{"identifier":"u1","action":"read"}`},
		{name: "unknown field", body: `{"identifier":"u1","action":"read","target":"doc1","extra":1}`},
		{name: "operator target", body: `{"identifier":"u1","action":"read","target":{"$ne":null}}`},
		{name: "operator identifier", body: `{"identifier":{"$in":["u1","u2"]},"action":"read","target":"doc1"}`},
		{name: "nested operator", body: `{"identifier":"u1","action":"read","target":{"type":"doc","id":{"$gt":""}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := memory.New()
			srv := newTestServer(t, mem, nil)

			for _, method := range []string{"PUT", "DELETE"} {
				w := do(srv, method, "/grants", tt.body, "")
				assert.Equal(t, http.StatusBadRequest, w.Code, method)
				assert.Contains(t, w.Body.String(), `"error"`)
			}
			w := do(srv, "POST", "/grants/check", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)

			assert.Equal(t, 0, mem.Len())
		})
	}
}

func TestGrantsOperatorValuesDoNotMatch(t *testing.T) {
	mem := memory.New()
	srv := newTestServer(t, mem, nil)

	w := do(srv, "PUT", "/grants", `{"identifier":"u1","action":"read","target":"doc1"}`, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	body := `{"identifier":"u1","action":"read","target":{"$ne":null}}`

	w = do(srv, "POST", "/grants/check", body, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "reserved key")

	w = do(srv, "DELETE", "/grants", body, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, mem.Len())

	w = do(srv, "POST", "/grants/check", `{"identifier":"u1","action":"read","target":"doc1"}`, "")
	assert.JSONEq(t, `{"allowed":true}`, w.Body.String())
}

func TestGrantsBodyTooLarge(t *testing.T) {
	srv := newTestServer(t, memory.New(), nil)
	body := `{"identifier":"` + strings.Repeat("a", maxBodyBytes) + `","action":"read","target":"doc1"}`

	w := do(srv, "PUT", "/grants", body, "")

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestGrantsStoreFailure(t *testing.T) {
	srv := newTestServer(t, failingStore{err: errors.New("connection refused")}, nil)
	body := `{"identifier":"u1","action":"read","target":"doc1"}`

	tests := []struct {
		method string
		path   string
	}{
		{method: "PUT", path: "/grants"},
		{method: "DELETE", path: "/grants"},
		{method: "POST", path: "/grants/check"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			w := do(srv, tt.method, tt.path, body, "")

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}

func TestGrantsWithJWT(t *testing.T) {
	mem := memory.New()
	srv := newTestServer(t, mem, &config.WhoCanConfig{Backend: config.BackendMemory, JWTSecret: testSecret})
	body := `{"identifier":"u1","action":"read","target":"doc1"}`

	token := func(subject string) string {
		tok, err := middleware.NewToken([]byte(testSecret), subject, time.Hour, time.Now())
		require.NoError(t, err)
		return tok
	}

	t.Run("status stays public", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, do(srv, "GET", "/", "", "").Code)
	})

	t.Run("token required", func(t *testing.T) {
		w := do(srv, "POST", "/grants/check", body, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Authorization missing", w.Body.String())
	})

	t.Run("check with token", func(t *testing.T) {
		w := do(srv, "POST", "/grants/check", body, token("alice"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("write without manage", func(t *testing.T) {
		w := do(srv, "PUT", "/grants", body, token("alice"))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, 0, mem.Len())
	})

	t.Run("write with manage", func(t *testing.T) {
		require.NoError(t, mem.Allow(context.Background(), "admin", ManageAction, GrantsTarget))

		w := do(srv, "PUT", "/grants", body, token("admin"))
		assert.Equal(t, http.StatusNoContent, w.Code)

		can, err := mem.Can(context.Background(), "u1", "read", "doc1")
		require.NoError(t, err)
		assert.True(t, can)
	})
}

package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/config"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/identity"
)

// ClientIP returns the address of the caller. X-Forwarded-For is only
// honoured when the direct peer is a trusted proxy.
func ClientIP(r *http.Request, cfg *config.WhoCanConfig) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	if cfg != nil && cfg.IsTrustedProxy(host) {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
			if ip := net.ParseIP(first); ip != nil {
				return ip
			}
		}
	}
	return net.ParseIP(host)
}

// ClientIdentity stores an anonymous Identity carrying the client IP on
// every request
func ClientIdentity(cfg *config.WhoCanConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := (&identity.Identity{}).WithRemoteIP(ClientIP(r, cfg))
			next.ServeHTTP(w, r.WithContext(identity.Set(r.Context(), id)))
		})
	}
}

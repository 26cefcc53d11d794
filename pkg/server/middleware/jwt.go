package middleware

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/audit"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/identity"
)

var bearerRegex = regexp.MustCompile(`^Bearer\s+(\S+)$`)

// JWTAuthenticator is middleware that validates HS256 bearer tokens
type JWTAuthenticator struct {
	secret []byte
	parser *jwt.Parser
	audit  audit.Sink
}

// NewJWTAuthenticator creates a new JWT authenticator middleware
func NewJWTAuthenticator(secret []byte) *JWTAuthenticator {
	return &JWTAuthenticator{
		secret: secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
		audit: audit.DefaultSink,
	}
}

// WithAudit replaces the sink receiving failed authentication events
func (j *JWTAuthenticator) WithAudit(sink audit.Sink) *JWTAuthenticator {
	j.audit = sink
	return j
}

// NewToken mints an HS256 token for subject valid for ttl
func NewToken(secret []byte, subject string, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (j *JWTAuthenticator) reject(w http.ResponseWriter, r *http.Request, message string) {
	id, _ := identity.Get(r.Context())
	j.audit.Log(audit.AuthenticateEvent{
		ClientIP:     id.ClientIP(),
		ErrorMessage: message,
	})

	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(message))
}

// Middleware returns an HTTP middleware that validates JWT tokens
func (j *JWTAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")

		if len(authHeader) == 0 {
			j.reject(w, r, "Authorization missing")
			return
		}

		tokenMatches := bearerRegex.FindStringSubmatch(authHeader)
		if len(tokenMatches) != 2 {
			j.reject(w, r, "Malformed authorization header")
			return
		}

		claims := &jwt.RegisteredClaims{}
		_, err := j.parser.ParseWithClaims(tokenMatches[1], claims, func(*jwt.Token) (interface{}, error) {
			return j.secret, nil
		})
		if err != nil {
			switch {
			case errors.Is(err, jwt.ErrTokenExpired):
				j.reject(w, r, "Token expired")
			case errors.Is(err, jwt.ErrTokenSignatureInvalid):
				j.reject(w, r, "Invalid signature")
			default:
				j.reject(w, r, "Invalid token")
			}
			return
		}

		if claims.Subject == "" {
			j.reject(w, r, "Token subject missing")
			return
		}

		id := identity.FromClaims(claims)
		if existing, ok := identity.Get(r.Context()); ok {
			id.WithRemoteIP(existing.RemoteIP)
		}

		next.ServeHTTP(w, r.WithContext(identity.Set(r.Context(), id)))
	})
}

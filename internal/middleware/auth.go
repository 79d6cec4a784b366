package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the caller's authorisation level, carried in the token's "role" claim.
type Role string

const (
	RoleDriver Role = "driver"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleDriver || r == RoleAdmin }

// Claims is the bearer token payload.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Session is the authenticated caller of a request.
type Session struct {
	Subject string
	Role    Role
}

type sessionKey struct{}
type holderKey struct{}

// sessionHolder lets the request logger, which wraps the auth middleware, see
// the session the auth middleware established.
type sessionHolder struct {
	session *Session
}

func withSessionHolder(ctx context.Context, h *sessionHolder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

// WithSession returns ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	if h, ok := ctx.Value(holderKey{}).(*sessionHolder); ok {
		h.session = &s
	}
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session stored by NewAuth, if any.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// NewAuth returns a middleware that requires an "Authorization: Bearer <jwt>"
// header signed with secret (HS256). Valid tokens must carry a subject and a
// known role; the resulting Session is stored in the request context.
// Failures are answered with 401.
func NewAuth(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			claims := &Claims{}
			_, err := parser.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
				return key, nil
			})
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, jwt.ErrTokenExpired) {
					msg = "token expired"
				}
				writeError(w, http.StatusUnauthorized, "unauthorized", msg)
				return
			}
			if claims.Subject == "" || !claims.Role.Valid() {
				writeError(w, http.StatusUnauthorized, "unauthorized", "token lacks subject or role")
				return
			}

			ctx := WithSession(r.Context(), Session{Subject: claims.Subject, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns a middleware that answers 403 unless the session's role
// is one of allowed. It must run after NewAuth.
func RequireRole(allowed ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := SessionFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
				return
			}
			if !slices.Contains(allowed, s.Role) {
				writeError(w, http.StatusForbidden, "forbidden", "role "+string(s.Role)+" may not do this")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IssueToken signs an HS256 token for subject with the given role, valid for ttl.
func IssueToken(secret, subject string, role Role, ttl time.Duration) (string, error) {
	if !role.Valid() {
		return "", errors.New("middleware.IssueToken: unknown role " + string(role))
	}
	now := time.Now().UTC()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// writeError writes the API's standard {"error":{"code","message"}} body.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

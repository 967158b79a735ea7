// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a type for context keys.
type ContextKey string

// ClaimsKey is the context key for the verified admin token claims.
const ClaimsKey ContextKey = "claims"

// ScopeChatRead grants read access to the persisted chat transcript.
const ScopeChatRead = "chat:read"

// ScopeList is the "scope" claim. Tokens may carry it as a JSON array or as
// an OAuth style space-delimited string.
type ScopeList []string

// UnmarshalJSON accepts both encodings of the scope claim.
func (s *ScopeList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	*s = strings.Fields(joined)
	return nil
}

// Claims represents the admin token claims.
type Claims struct {
	jwt.RegisteredClaims
	Scopes ScopeList `json:"scope"`
}

var tokenParser = jwt.NewParser(
	jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
	jwt.WithExpirationRequired(),
	jwt.WithLeeway(30*time.Second),
)

// Auth verifies an HMAC-signed bearer token. An empty secret rejects every request,
// so the admin surface stays closed unless JWT_SECRET is configured.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	key := []byte(jwtSecret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(key) == 0 {
				writeJSONError(w, http.StatusUnauthorized, "authentication not configured")
				return
			}

			raw, ok := bearerToken(r)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "missing or malformed bearer token")
				return
			}

			claims := &Claims{}
			if _, err := tokenParser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
				return key, nil
			}); err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ClaimsKey, claims)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func claimsFrom(ctx context.Context) *Claims {
	c, _ := ctx.Value(ClaimsKey).(*Claims)
	return c
}

// GetSubject returns the token subject, or "" for unauthenticated requests.
func GetSubject(ctx context.Context) string {
	if c := claimsFrom(ctx); c != nil {
		return c.Subject
	}
	return ""
}

// GetScopes returns the token scopes.
func GetScopes(ctx context.Context) []string {
	if c := claimsFrom(ctx); c != nil {
		return c.Scopes
	}
	return nil
}

// HasScope checks if the context has a specific scope.
func HasScope(ctx context.Context, scope string) bool {
	return slices.Contains(GetScopes(ctx), scope)
}

// RequireScope creates middleware that requires a specific scope.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !HasScope(r.Context(), scope) {
				writeJSONError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

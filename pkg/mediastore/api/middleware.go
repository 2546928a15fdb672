package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/jwtauth"
)

// Context keys for middleware
type contextKey string

const (
	// ActorIDKey carries the authenticated user's id (int64).
	ActorIDKey contextKey = "actor_id"
)

// ActorFromToken extracts the numeric user_id claim from the verified JWT and
// stores it in the request context. It must run after jwtauth.Verifier and
// jwtauth.Authenticator; requests whose token lacks a usable user_id claim are
// rejected.
func ActorFromToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		actorID, ok := actorIDClaim(claims)
		if !ok {
			http.Error(w, "token missing user_id claim", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ActorIDKey, actorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorID returns the authenticated user id stored by ActorFromToken.
func ActorID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ActorIDKey).(int64)
	return id, ok
}

// JWT numeric claims decode as float64; some issuers send them as strings.
func actorIDClaim(claims map[string]interface{}) (int64, bool) {
	switch v := claims["user_id"].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}

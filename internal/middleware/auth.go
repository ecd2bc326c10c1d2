package middleware

import (
	"context"
	"net/http"
	"strings"
)

type ContextKey string

const UserIDKey ContextKey = "userID"

// UserHeader carries the caller's uid as set by the gateway in front of the
// service.
const UserHeader = "X-User-ID"

// Identify stores the uid from UserHeader in the request context. Requests
// without the header pass through untouched.
func Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid := strings.TrimSpace(r.Header.Get(UserHeader)); uid != "" {
			r = r.WithContext(context.WithValue(r.Context(), UserIDKey, uid))
		}
		next.ServeHTTP(w, r)
	})
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(UserIDKey)
	if val == nil {
		return "", false
	}

	id, ok := val.(string)
	return id, ok && id != ""
}

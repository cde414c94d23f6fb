package middleware

import (
	"net/http"
	"strings"
)

// RequireBearer stores the caller's bearer token in the request context so
// upstream clients can forward it. Token validation is the backend's job.
func RequireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := parseBearer(r.Header.Get("Authorization"))
		if !ok {
			WriteError(w, r, http.StatusUnauthorized, ErrorResponse{
				Error: "missing bearer token",
				Code:  "unauthorized",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithBearerToken(r.Context(), token)))
	})
}

func parseBearer(h string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(h), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

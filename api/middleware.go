package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"heimdall/internal/auth"
	"heimdall/services/sessions"
)

// Re-export from auth package for handlers that only import api.
var (
	GetAccountID = auth.GetAccountID
	GetUsername  = auth.GetUsername
)

// DefaultCookieName carries the session token for browser clients.
const DefaultCookieName = "heimdall_session"

// AccountAuthMiddleware creates middleware that validates session tokens.
// Tokens can be provided via Authorization header, session cookie or ?token= query param.
func AccountAuthMiddleware(sessionsSvc *sessions.Service, cookieName string) mux.MiddlewareFunc {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Always allow OPTIONS for CORS
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := ExtractToken(r, cookieName)
			if token == "" || sessionsSvc == nil {
				writeUnauthorized(w)
				return
			}

			session, err := sessionsSvc.Validate(token)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": "Not logged in"})
}

// ExtractToken extracts the session token from the request.
// Priority: Authorization header > session cookie > ?token= query param
func ExtractToken(r *http.Request, cookieName string) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token
			}
		}
	}

	if cookie, err := r.Cookie(cookieName); err == nil {
		if token := strings.TrimSpace(cookie.Value); token != "" {
			return token
		}
	}

	// Fall back to query parameter for websocket and media URLs (they can't set headers)
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}

	return ""
}

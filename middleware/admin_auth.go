package middleware

import (
	"encoding/json"
	"net/http"

	"gestorreportes/models"
	"gestorreportes/service"
)

// RequireAdminSession lets the request through only while the admin mode is active.
// The session is process-wide; there is no per-request credential.
func RequireAdminSession(sessions *service.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !sessions.IsAdmin() {
				respondWithError(w, http.StatusForbidden, "Forbidden", "Admin session required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession lets the request through while any mode (admin or user) is active.
func RequireSession(sessions *service.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			current := sessions.Current()
			if !current.IsAdmin() && !current.IsUser() {
				respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Login required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: errorType, Message: message, Code: statusCode})
}

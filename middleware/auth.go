package middleware

import (
	"context"
	"net/http"
	"strings"

	"pocketchat/database"
	"pocketchat/models"
)

type contextKey string

const UserContextKey contextKey = "user"

// tokenFromRequest extracts the session token from the Authorization
// header, falling back to the token query parameter for websocket dials
// (browser and client dialers cannot always set headers on upgrade).
func tokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// Auth middleware checks for a valid session token and adds the user to context
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
			return
		}

		session, err := database.GetSession(token)
		if err != nil {
			http.Error(w, `{"error": "Invalid session"}`, http.StatusUnauthorized)
			return
		}

		user, err := database.GetUserByID(session.UserID)
		if err != nil {
			http.Error(w, `{"error": "User not found"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

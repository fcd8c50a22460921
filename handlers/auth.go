package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"pocketchat/database"
	"pocketchat/middleware"
	"pocketchat/models"
)

type signInRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// SignInAnonymously mints an anonymous identity for the chosen display
// name and background color and hands back a session token. There are no
// credentials; every sign-in creates a fresh identity.
func SignInAnonymously(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	// Validate input
	req.Name = strings.TrimSpace(req.Name)
	if len(req.Name) < 1 || len(req.Name) > 20 {
		http.Error(w, `{"error": "Name must be 1-20 characters"}`, http.StatusBadRequest)
		return
	}

	user, err := database.CreateAnonymousUser(req.Name, req.Color)
	if err != nil {
		http.Error(w, `{"error": "Failed to create user"}`, http.StatusInternalServerError)
		return
	}

	// Create session
	token := generateSessionToken()
	expiresAt := time.Now().Add(7 * 24 * time.Hour) // 7 days
	if err := database.CreateSession(token, user.ID, expiresAt); err != nil {
		http.Error(w, `{"error": "Failed to create session"}`, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(models.Session{
		UserID: user.ID,
		Token:  token,
		Name:   user.Name,
		Color:  user.Color,
	})
}

// SignOut deletes the caller's session
func SignOut(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		database.DeleteSession(strings.TrimPrefix(auth, "Bearer "))
	}

	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// Me returns the current authenticated user
func Me(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	user := middleware.GetUserFromContext(r)
	if user == nil {
		http.Error(w, `{"error": "Not authenticated"}`, http.StatusUnauthorized)
		return
	}

	json.NewEncoder(w).Encode(user)
}

func generateSessionToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

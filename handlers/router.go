package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"pocketchat/middleware"
)

// NewRouter wires all API routes
func NewRouter() *mux.Router {
	r := mux.NewRouter()

	// Identity
	r.HandleFunc("/api/auth/anonymous", SignInAnonymously).Methods("POST")
	r.HandleFunc("/api/auth/signout", SignOut).Methods("POST")
	r.Handle("/api/auth/me", middleware.Auth(http.HandlerFunc(Me))).Methods("GET")

	// Messages
	r.Handle("/api/messages", middleware.Auth(http.HandlerFunc(GetMessages))).Methods("GET")
	r.Handle("/api/messages", middleware.Auth(http.HandlerFunc(SendMessage))).Methods("POST")

	// Live feed
	r.Handle("/api/feed", middleware.Auth(http.HandlerFunc(HandleFeed)))

	// Blob storage
	r.Handle("/api/uploads", middleware.Auth(http.HandlerFunc(Upload))).Methods("POST")
	r.HandleFunc("/uploads/{name}", Download).Methods("GET")

	// Client-facing config
	r.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"room": "messages"})
	}).Methods("GET")

	return r
}

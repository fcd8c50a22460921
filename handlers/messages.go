package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"pocketchat/database"
	"pocketchat/middleware"
	"pocketchat/models"
)

type sendMessageRequest struct {
	Text     string           `json:"text"`
	Image    string           `json:"image"`
	Location *models.Location `json:"location"`
}

// GetMessages returns the feed ordered by creation time descending
func GetMessages(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	user := middleware.GetUserFromContext(r)
	if user == nil {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	messages, err := database.GetMessages(limit)
	if err != nil {
		http.Error(w, `{"error": "Failed to get messages"}`, http.StatusInternalServerError)
		return
	}

	if messages == nil {
		messages = []models.Message{}
	}

	json.NewEncoder(w).Encode(messages)
}

// SendMessage appends a single message to the feed. The identifier and
// creation time are assigned server-side at write time; the stored copy is
// echoed back and broadcast to every live feed subscriber.
func SendMessage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	user := middleware.GetUserFromContext(r)
	if user == nil {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	msg := models.Message{
		Author:   models.Author{ID: user.ID, Name: user.Name},
		Text:     req.Text,
		Image:    req.Image,
		Location: req.Location,
	}
	if !msg.HasPayload() {
		http.Error(w, `{"error": "Message needs text, image or location"}`, http.StatusBadRequest)
		return
	}

	stored, err := database.AppendMessage(&msg)
	if err != nil {
		http.Error(w, `{"error": "Failed to send message"}`, http.StatusInternalServerError)
		return
	}

	// Push to feed subscribers
	BroadcastMessage(*stored)

	json.NewEncoder(w).Encode(stored)
}

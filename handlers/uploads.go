package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"pocketchat/middleware"
)

const maxUploadBytes = 10 << 20 // 10 MiB

// UploadDir returns the directory blobs are stored in
func UploadDir() string {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = "./uploads"
	}
	return dir
}

// validBlobName rejects names that could escape the upload directory.
// Clients generate collision-resistant names; the server only stores them.
func validBlobName(name string) bool {
	if name == "" || len(name) > 200 {
		return false
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return false
	}
	return filepath.Base(name) == name
}

// Upload stores a blob under the caller-generated name and responds with
// the durable download URL. Objects are write-once: uploading an existing
// name is a conflict, never an overwrite.
func Upload(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	user := middleware.GetUserFromContext(r)
	if user == nil {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	name := r.URL.Query().Get("name")
	if !validBlobName(name) {
		http.Error(w, `{"error": "Invalid blob name"}`, http.StatusBadRequest)
		return
	}

	dir := UploadDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		http.Error(w, `{"error": "Storage unavailable"}`, http.StatusInternalServerError)
		return
	}

	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			http.Error(w, `{"error": "Blob already exists"}`, http.StatusConflict)
			return
		}
		http.Error(w, `{"error": "Storage unavailable"}`, http.StatusInternalServerError)
		return
	}
	defer f.Close()

	// Oversize bodies are rejected outright, never stored truncated
	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if _, err := io.Copy(f, body); err != nil {
		os.Remove(path)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, `{"error": "Blob too large"}`, http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, `{"error": "Upload failed"}`, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"name": name,
		"url":  "/uploads/" + name,
	})
}

// Download serves a previously uploaded blob
func Download(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !validBlobName(name) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(UploadDir(), name))
}

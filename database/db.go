package database

import (
	"database/sql"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"pocketchat/models"
)

var DB *sql.DB

// Initialize sets up the database connection and creates tables
func Initialize() error {
	path := os.Getenv("DATABASE_PATH")
	if path == "" {
		path = "./pocketchat.db"
	}

	var err error
	DB, err = sql.Open("sqlite3", path+"?_fk=on")
	if err != nil {
		return err
	}

	// Test connection
	if err := DB.Ping(); err != nil {
		return err
	}

	// Create tables
	if err := createTables(); err != nil {
		return err
	}

	log.Println("Database initialized successfully")
	return nil
}

func createTables() error {
	tables := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		color TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		author_id TEXT NOT NULL,
		author_name TEXT NOT NULL,
		text TEXT DEFAULT '',
		image TEXT DEFAULT '',
		latitude REAL,
		longitude REAL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
	`

	_, err := DB.Exec(tables)
	return err
}

// User queries

// CreateAnonymousUser mints a new anonymous identity with the chosen
// display name and background color.
func CreateAnonymousUser(name, color string) (*models.User, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := DB.Exec(
		"INSERT INTO users (id, name, color, created_at) VALUES (?, ?, ?, ?)",
		id, name, color, now,
	)
	if err != nil {
		return nil, err
	}
	return &models.User{ID: id, Name: name, Color: color, CreatedAt: now}, nil
}

// GetUserByID retrieves a user by their ID
func GetUserByID(id string) (*models.User, error) {
	user := &models.User{}
	err := DB.QueryRow(
		"SELECT id, name, color, created_at FROM users WHERE id = ?",
		id,
	).Scan(&user.ID, &user.Name, &user.Color, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Session queries

// CreateSession creates a new session for a user
func CreateSession(token, userID string, expiresAt time.Time) error {
	_, err := DB.Exec(
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt,
	)
	return err
}

// GetSession retrieves an unexpired session by its token
func GetSession(token string) (*models.StoredSession, error) {
	session := &models.StoredSession{}
	err := DB.QueryRow(
		"SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ? AND expires_at > ?",
		token, time.Now().UTC(),
	).Scan(&session.Token, &session.UserID, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSession removes a session
func DeleteSession(token string) error {
	_, err := DB.Exec("DELETE FROM sessions WHERE token = ?", token)
	return err
}

// Message queries

// AppendMessage stamps the message with a generated identifier and a
// server-assigned creation time, then inserts it. The stored copy is
// returned so callers see exactly what the feed will deliver.
func AppendMessage(msg *models.Message) (*models.Message, error) {
	stored := *msg
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC()

	var lat, lng interface{}
	if stored.Location != nil {
		lat, lng = stored.Location.Latitude, stored.Location.Longitude
	}

	_, err := DB.Exec(
		`INSERT INTO messages (id, author_id, author_name, text, image, latitude, longitude, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.Author.ID, stored.Author.Name,
		stored.Text, stored.Image, lat, lng, stored.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetMessages retrieves messages ordered by creation time descending.
// A limit <= 0 returns the whole feed.
func GetMessages(limit int) ([]models.Message, error) {
	query := `SELECT id, author_id, author_name, text, image, latitude, longitude, created_at
		FROM messages ORDER BY created_at DESC, id DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = DB.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = DB.Query(query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var lat, lng sql.NullFloat64
		if err := rows.Scan(
			&msg.ID, &msg.Author.ID, &msg.Author.Name,
			&msg.Text, &msg.Image, &lat, &lng, &msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		if lat.Valid && lng.Valid {
			msg.Location = &models.Location{Latitude: lat.Float64, Longitude: lng.Float64}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

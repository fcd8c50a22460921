package client

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"

	"pocketchat/models"
)

const cacheKey = "cached_messages"

// Cache persists the most recent known message list for offline viewing.
// It holds exactly one entry, overwritten wholesale on every successful
// sync; a point-in-time mirror of the feed, not an incremental log.
type Cache struct {
	db *sql.DB
}

// OpenCache opens or creates the snapshot cache at path.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate cache: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Write persists a full message list, overwriting any prior snapshot.
// Best-effort: a failure is logged and never surfaced to the caller, so a
// sync is never rolled back over a cache problem.
func (c *Cache) Write(messages []models.Message) {
	if err := c.write(messages); err != nil {
		log.Printf("Cache write failed: %v", err)
	}
}

func (c *Cache) write(messages []models.Message) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	_, err = c.db.Exec(`
		INSERT INTO snapshots (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, cacheKey, string(data))
	return err
}

// Read returns the last written snapshot, or an empty list on first run or
// on any failure. Best-effort: errors are logged, never returned, so the
// UI degrades to an empty list rather than crashing.
func (c *Cache) Read() []models.Message {
	messages, err := c.read()
	if err != nil {
		log.Printf("Cache read failed: %v", err)
		return []models.Message{}
	}
	return messages
}

func (c *Cache) read() ([]models.Message, error) {
	var value string
	err := c.db.QueryRow(`SELECT value FROM snapshots WHERE key = ?`, cacheKey).Scan(&value)
	if err == sql.ErrNoRows {
		return []models.Message{}, nil
	}
	if err != nil {
		return nil, err
	}

	var messages []models.Message
	if err := json.Unmarshal([]byte(value), &messages); err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}

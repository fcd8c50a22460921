package models

import "time"

// User represents an anonymous user in the system. There are no
// credentials; an identity is minted at sign-in and identified only by its
// opaque ID.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"` // chosen chat background color
	CreatedAt time.Time `json:"created_at"`
}

// Session is the transient identity handed back to a client at sign-in.
// It is held in memory for the lifetime of the chat screen and never
// persisted across restarts.
type Session struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

// StoredSession is the server-side session record backing a token.
type StoredSession struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

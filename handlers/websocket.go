package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"pocketchat/database"
	"pocketchat/middleware"
	"pocketchat/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Client represents a feed subscriber
type Client struct {
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string
}

// Hub maintains the set of active feed subscribers
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mutex      sync.RWMutex
}

var hub = &Hub{
	clients:    make(map[*Client]bool),
	register:   make(chan *Client),
	unregister: make(chan *Client),
	broadcast:  make(chan []byte, 256),
}

// RunHub starts the feed hub
func RunHub() {
	for {
		select {
		case client := <-hub.register:
			hub.mutex.Lock()
			hub.clients[client] = true
			hub.mutex.Unlock()
			log.Printf("Feed subscriber connected: UserID %s", client.UserID)

			// The very first delivery is the full current feed
			sendSnapshot(client)

		case client := <-hub.unregister:
			hub.mutex.Lock()
			if _, ok := hub.clients[client]; ok {
				delete(hub.clients, client)
				close(client.Send)
			}
			hub.mutex.Unlock()
			log.Printf("Feed subscriber disconnected: UserID %s", client.UserID)

		case data := <-hub.broadcast:
			hub.mutex.RLock()
			for client := range hub.clients {
				select {
				case client.Send <- data:
				default:
					// slow subscriber, drop the frame
				}
			}
			hub.mutex.RUnlock()
		}
	}
}

// SubscriberCount returns the number of live feed subscribers
func SubscriberCount() int {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	return len(hub.clients)
}

// BroadcastMessage pushes a newly appended message to every subscriber
func BroadcastMessage(msg models.Message) {
	env, err := models.NewFeedEnvelope(models.FeedMessage, models.MessageData{Message: msg})
	if err != nil {
		log.Printf("Error marshaling feed message: %v", err)
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("Error marshaling feed envelope: %v", err)
		return
	}

	hub.broadcast <- data
}

// sendSnapshot delivers the full current feed, newest first, to one subscriber
func sendSnapshot(client *Client) {
	messages, err := database.GetMessages(0)
	if err != nil {
		log.Printf("Error loading feed snapshot: %v", err)
		env, _ := models.NewFeedEnvelope(models.FeedError, models.ErrorData{
			Code:    "internal_error",
			Message: "failed to load feed",
		})
		if data, err := json.Marshal(env); err == nil {
			client.Send <- data
		}
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	env, err := models.NewFeedEnvelope(models.FeedSnapshot, models.SnapshotData{Messages: messages})
	if err != nil {
		log.Printf("Error marshaling snapshot: %v", err)
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("Error marshaling snapshot envelope: %v", err)
		return
	}

	select {
	case client.Send <- data:
	default:
	}
}

// HandleFeed upgrades the connection and subscribes the caller to the feed
func HandleFeed(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		Conn:   conn,
		Send:   make(chan []byte, 256),
		UserID: user.ID,
	}

	hub.register <- client

	// Start goroutines for reading and writing
	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		// Subscribers never send application frames; reads only detect close
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

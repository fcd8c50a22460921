package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"pocketchat/models"
)

// FeedListener subscribes to the live message feed and produces complete
// snapshots: every update replaces the whole list, newest first. It is not
// a diff stream. Each successfully mapped list is persisted to the cache
// before being handed to the update callback.
//
// At most one subscription is live at a time; callers stop the current one
// before starting the next.
type FeedListener struct {
	baseURL  string
	token    string
	dialer   *websocket.Dialer
	cache    *Cache
	onUpdate func([]models.Message)

	mu     sync.Mutex
	active *Subscription
}

// NewFeedListener creates a listener for the feed at baseURL
// (http:// or https://), authenticating with the session token.
func NewFeedListener(baseURL, token string, cache *Cache) *FeedListener {
	return &FeedListener{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		dialer:  websocket.DefaultDialer,
		cache:   cache,
	}
}

// SetUpdateHandler sets the callback receiving each complete message list.
func (l *FeedListener) SetUpdateHandler(handler func([]models.Message)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onUpdate = handler
}

func (l *FeedListener) updateHandler() func([]models.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.onUpdate
}

// Active returns the live subscription, or nil.
func (l *FeedListener) Active() *Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *FeedListener) feedURL() string {
	// http -> ws, https -> wss
	ws := "ws" + strings.TrimPrefix(l.baseURL, "http")
	return ws + "/api/feed?token=" + url.QueryEscape(l.token)
}

// Listen establishes the feed subscription. The first delivery is the full
// current snapshot; later deliveries fold appended messages into a fresh
// full list. Callers own the returned handle and must Stop it before
// calling Listen again.
func (l *FeedListener) Listen(ctx context.Context) (*Subscription, error) {
	l.mu.Lock()
	if l.active != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("feed subscription already active: stop it before starting another")
	}
	l.mu.Unlock()

	conn, _, err := l.dialer.DialContext(ctx, l.feedURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to feed: %w", err)
	}

	sub := &Subscription{
		listener: l,
		conn:     conn,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}

	l.mu.Lock()
	l.active = sub
	l.mu.Unlock()

	go sub.readPump()
	return sub, nil
}

func (l *FeedListener) clearActive(sub *Subscription) {
	l.mu.Lock()
	if l.active == sub {
		l.active = nil
	}
	l.mu.Unlock()
}

// Subscription is an owned handle on one live feed subscription.
type Subscription struct {
	listener *FeedListener
	conn     *websocket.Conn
	messages []models.Message // touched only by the read pump

	done     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
}

// Stop tears the subscription down. It blocks until the read pump has
// exited, so no update callback fires after Stop returns.
func (s *Subscription) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
	<-s.finished
}

func (s *Subscription) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Subscription) readPump() {
	defer func() {
		s.listener.clearActive(s)
		s.conn.Close()
		close(s.finished)
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.stopped() && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("Feed connection error: %v", err)
			}
			return
		}
		s.handleFrame(data)
	}
}

func (s *Subscription) handleFrame(data []byte) {
	env, err := models.ParseFeedEnvelope(data)
	if err != nil {
		log.Printf("Failed to parse feed frame: %v", err)
		return
	}

	switch env.Type {
	case models.FeedSnapshot:
		var snap models.SnapshotData
		if err := json.Unmarshal(env.Data, &snap); err != nil {
			log.Printf("Failed to parse snapshot: %v", err)
			return
		}
		s.messages = snap.Messages

	case models.FeedMessage:
		var md models.MessageData
		if err := json.Unmarshal(env.Data, &md); err != nil {
			log.Printf("Failed to parse message frame: %v", err)
			return
		}
		s.messages = append([]models.Message{md.Message}, s.messages...)
		sortNewestFirst(s.messages)

	case models.FeedError:
		var ed models.ErrorData
		if err := json.Unmarshal(env.Data, &ed); err == nil {
			log.Printf("Feed error: [%s] %s", ed.Code, ed.Message)
		}
		return

	default:
		return
	}

	s.deliver()
}

// deliver persists the current list and hands a copy to the update
// callback. The cache write is best-effort; an in-memory update is never
// rolled back over it.
func (s *Subscription) deliver() {
	if s.stopped() {
		return
	}

	list := make([]models.Message, len(s.messages))
	copy(list, s.messages)

	if s.listener.cache != nil {
		s.listener.cache.Write(list)
	}
	if handler := s.listener.updateHandler(); handler != nil {
		handler(list)
	}
}

func sortNewestFirst(messages []models.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID > messages[j].ID
		}
		return messages[i].CreatedAt.After(messages[j].CreatedAt)
	})
}

package client

import (
	"context"
	"log"
	"sync"
)

// Gate switches the data source on connectivity changes. Online, it keeps
// exactly one live feed subscription; offline, it stops remote reads and
// serves the last cached snapshot instead. It is a two-state machine,
// with the unknown startup state counting as disconnected.
type Gate struct {
	listener *FeedListener
	cache    *Cache
	alert    func(string)

	notifyInitialOffline bool

	mu     sync.Mutex
	online bool
	seen   bool // a connectivity reading has arrived
	sub    *Subscription
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// NotifyInitialOffline makes the very first offline reading raise the
// connection-lost alert, instead of treating startup as silently offline.
func NotifyInitialOffline() GateOption {
	return func(g *Gate) { g.notifyInitialOffline = true }
}

// NewGate wires a listener, its cache and a user-facing alert callback.
// The listener's update handler should be set before the gate goes online.
func NewGate(listener *FeedListener, cache *Cache, alert func(string), opts ...GateOption) *Gate {
	g := &Gate{
		listener: listener,
		cache:    cache,
		alert:    alert,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetOnline feeds the gate a connectivity reading. On a transition to
// connected it tears down any previous subscription and starts exactly one
// new one; on a transition to disconnected it notifies the user, stops
// remote reads, and serves the cached snapshot.
func (g *Gate) SetOnline(ctx context.Context, online bool) {
	g.mu.Lock()
	wasOnline := g.online
	firstReading := !g.seen
	g.online = online
	g.seen = true
	g.mu.Unlock()

	if online {
		if wasOnline && g.listener.Active() != nil {
			return // already subscribed
		}
		g.resubscribe(ctx)
		return
	}

	// Offline: stop before alerting so no further remote reads happen.
	g.stopSub()
	if wasOnline || (firstReading && g.notifyInitialOffline) {
		g.notify("Connection lost!")
	}
	g.serveCached()
}

// Close stops any live subscription. No callbacks fire after it returns.
func (g *Gate) Close() {
	g.stopSub()
}

func (g *Gate) resubscribe(ctx context.Context) {
	// Stop-before-next-start: never two live subscriptions.
	g.stopSub()

	sub, err := g.listener.Listen(ctx)
	if err != nil {
		log.Printf("Feed subscription failed: %v", err)
		g.notify("Unable to reach the chat service")
		g.serveCached()
		return
	}

	g.mu.Lock()
	g.sub = sub
	g.mu.Unlock()
}

func (g *Gate) stopSub() {
	g.mu.Lock()
	sub := g.sub
	g.sub = nil
	g.mu.Unlock()

	if sub != nil {
		sub.Stop()
	}
}

func (g *Gate) serveCached() {
	if g.cache == nil {
		return
	}
	cached := g.cache.Read()
	if handler := g.listener.updateHandler(); handler != nil {
		handler(cached)
	}
}

func (g *Gate) notify(msg string) {
	if g.alert != nil {
		g.alert(msg)
	}
}

package client

import (
	"context"
	"testing"
	"time"

	"pocketchat/handlers"
	"pocketchat/models"
)

func waitAlert(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for alert")
		return ""
	}
}

func eventually(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition never held: %s", what)
}

func TestGateOfflineServesCachedSnapshot(t *testing.T) {
	// No reachable server: offline startup must not issue remote reads.
	cache := openTestCache(t)
	cache.Write(testMessages("cached-2", "cached-1"))

	listener := NewFeedListener("http://127.0.0.1:1", "unused", cache)
	updates := make(chan []models.Message, 16)
	listener.SetUpdateHandler(func(list []models.Message) { updates <- list })

	alerts := make(chan string, 16)
	gate := NewGate(listener, cache, func(msg string) { alerts <- msg })

	gate.SetOnline(context.Background(), false)

	list := waitList(t, updates)
	if len(list) != 2 || list[0].Text != "cached-2" {
		t.Errorf("offline list = %+v, want cached snapshot", list)
	}
	if listener.Active() != nil {
		t.Error("offline gate holds a live subscription")
	}

	// Startup offline is silent by default
	select {
	case msg := <-alerts:
		t.Errorf("unexpected alert on startup: %q", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestGateNotifyInitialOffline(t *testing.T) {
	cache := openTestCache(t)
	listener := NewFeedListener("http://127.0.0.1:1", "unused", cache)
	listener.SetUpdateHandler(func([]models.Message) {})

	alerts := make(chan string, 16)
	gate := NewGate(listener, cache, func(msg string) { alerts <- msg }, NotifyInitialOffline())

	gate.SetOnline(context.Background(), false)

	if msg := waitAlert(t, alerts); msg != "Connection lost!" {
		t.Errorf("alert = %q, want %q", msg, "Connection lost!")
	}
}

func TestGateReconnectCycle(t *testing.T) {
	ts, session := startChatServer(t)
	seedMessage(t, "hello")

	cache := openTestCache(t)
	listener := NewFeedListener(ts.URL, session.Token, cache)
	updates := make(chan []models.Message, 16)
	listener.SetUpdateHandler(func(list []models.Message) { updates <- list })

	alerts := make(chan string, 16)
	gate := NewGate(listener, cache, func(msg string) { alerts <- msg })
	defer gate.Close()

	ctx := context.Background()

	// Online: exactly one live subscription, snapshot delivered and cached
	gate.SetOnline(ctx, true)
	list := waitList(t, updates)
	if len(list) != 1 || list[0].Text != "hello" {
		t.Fatalf("online list = %+v, want [hello]", list)
	}
	eventually(t, func() bool { return handlers.SubscriberCount() == 1 }, "one feed subscriber")

	// Offline: alert, remote reads stop, cached snapshot served
	gate.SetOnline(ctx, false)
	if msg := waitAlert(t, alerts); msg != "Connection lost!" {
		t.Errorf("alert = %q, want %q", msg, "Connection lost!")
	}
	list = waitList(t, updates)
	if len(list) != 1 || list[0].Text != "hello" {
		t.Errorf("offline list = %+v, want cached [hello]", list)
	}
	if listener.Active() != nil {
		t.Error("subscription live while offline")
	}
	eventually(t, func() bool { return handlers.SubscriberCount() == 0 }, "no feed subscribers")

	// Feed grows while this client is offline
	seedMessage(t, "missed")

	// Reconnect: exactly one new subscription, live feed replaces the list
	gate.SetOnline(ctx, true)
	list = waitList(t, updates)
	if len(list) != 2 {
		t.Fatalf("reconnect list has %d messages, want 2", len(list))
	}
	if list[0].Text != "missed" || list[1].Text != "hello" {
		t.Errorf("reconnect order = [%q, %q], want [missed, hello]", list[0].Text, list[1].Text)
	}
	eventually(t, func() bool { return handlers.SubscriberCount() == 1 }, "one feed subscriber after reconnect")
}

func TestGateOnlineIsIdempotent(t *testing.T) {
	ts, session := startChatServer(t)

	cache := openTestCache(t)
	listener := NewFeedListener(ts.URL, session.Token, cache)
	updates := make(chan []models.Message, 16)
	listener.SetUpdateHandler(func(list []models.Message) { updates <- list })

	gate := NewGate(listener, cache, nil)
	defer gate.Close()

	ctx := context.Background()
	gate.SetOnline(ctx, true)
	waitList(t, updates)
	first := listener.Active()
	if first == nil {
		t.Fatal("no subscription after going online")
	}

	// A repeated online reading must not spawn a second subscription
	gate.SetOnline(ctx, true)
	if got := listener.Active(); got != first {
		t.Error("repeated online reading replaced the subscription")
	}
	eventually(t, func() bool { return handlers.SubscriberCount() == 1 }, "exactly one feed subscriber")
}

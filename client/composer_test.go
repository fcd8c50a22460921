package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pocketchat/models"
)

// fakeBackend records the order of uploads and appends so tests can assert
// the upload-then-send sequencing without a real store.
type fakeBackend struct {
	mu       sync.Mutex
	events   []string
	uploads  map[string][]byte
	messages []models.Message
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{uploads: map[string][]byte{}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/uploads", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		data, _ := io.ReadAll(r.Body)

		fb.mu.Lock()
		fb.events = append(fb.events, "upload")
		fb.uploads[name] = data
		fb.mu.Unlock()

		json.NewEncoder(w).Encode(map[string]string{"name": name, "url": "/uploads/" + name})
	})
	mux.HandleFunc("POST /api/messages", func(w http.ResponseWriter, r *http.Request) {
		var msg models.Message
		json.NewDecoder(r.Body).Decode(&msg)

		fb.mu.Lock()
		fb.events = append(fb.events, "send")
		fb.messages = append(fb.messages, msg)
		fb.mu.Unlock()

		json.NewEncoder(w).Encode(msg)
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return fb, ts
}

func (fb *fakeBackend) snapshot() ([]string, []models.Message) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	events := append([]string(nil), fb.events...)
	messages := append([]models.Message(nil), fb.messages...)
	return events, messages
}

func testSession() models.Session {
	return models.Session{UserID: "user-1", Token: "tok", Name: "Ada", Color: "#090C08"}
}

type deniedImageSource struct{}

func (deniedImageSource) Image(ctx context.Context) (string, error) {
	return "", ErrPermissionDenied
}

type deniedLocationSource struct{}

func (deniedLocationSource) Current(ctx context.Context) (*models.Location, error) {
	return nil, ErrPermissionDenied
}

type failingLocationSource struct{}

func (failingLocationSource) Current(ctx context.Context) (*models.Location, error) {
	return nil, errors.New("no fix")
}

func TestComposerSendText(t *testing.T) {
	fb, ts := newFakeBackend(t)
	composer := NewComposer(ts.URL, testSession(), nil)

	if err := composer.SendText(context.Background(), "hello"); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}

	events, messages := fb.snapshot()
	if len(events) != 1 || events[0] != "send" {
		t.Fatalf("events = %v, want [send]", events)
	}
	msg := messages[0]
	if msg.Text != "hello" || msg.Image != "" || msg.Location != nil {
		t.Errorf("payload = %+v, want text only", msg)
	}
}

func TestComposerUploadThenSend(t *testing.T) {
	fb, ts := newFakeBackend(t)

	content := []byte("jpeg bytes")
	path := filepath.Join(t.TempDir(), "pic.jpg")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write temp image: %v", err)
	}

	composer := NewComposer(ts.URL, testSession(), nil)
	fixed := time.UnixMilli(1700000000000)
	composer.now = func() time.Time { return fixed }

	if err := composer.SendImage(context.Background(), FileImage(path)); err != nil {
		t.Fatalf("SendImage() error = %v", err)
	}

	events, messages := fb.snapshot()
	// The append happens strictly after the upload, never before
	if len(events) != 2 || events[0] != "upload" || events[1] != "send" {
		t.Fatalf("events = %v, want [upload send]", events)
	}

	wantName := fmt.Sprintf("user-1-%d-pic.jpg", fixed.UnixMilli())
	data, ok := fb.uploads[wantName]
	if !ok {
		t.Fatalf("upload name not found, uploads = %v", keys(fb.uploads))
	}
	if string(data) != string(content) {
		t.Errorf("uploaded bytes mismatch")
	}

	msg := messages[0]
	if msg.Image != ts.URL+"/uploads/"+wantName {
		t.Errorf("message image = %q, want resolved download URL", msg.Image)
	}
	if msg.Text != "" || msg.Location != nil {
		t.Errorf("image message carries extra payload: %+v", msg)
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestComposerImagePermissionDenied(t *testing.T) {
	fb, ts := newFakeBackend(t)

	var alerts []string
	composer := NewComposer(ts.URL, testSession(), func(msg string) { alerts = append(alerts, msg) })

	err := composer.SendImage(context.Background(), deniedImageSource{})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("error = %v, want ErrPermissionDenied", err)
	}

	// Zero uploads, zero appends, one user-visible alert
	events, _ := fb.snapshot()
	if len(events) != 0 {
		t.Errorf("events = %v, want none", events)
	}
	if len(alerts) != 1 || alerts[0] != "Permissions haven't been granted." {
		t.Errorf("alerts = %v", alerts)
	}
}

func TestComposerSendLocation(t *testing.T) {
	fb, ts := newFakeBackend(t)
	composer := NewComposer(ts.URL, testSession(), nil)

	src := StaticLocation{Latitude: 52.52, Longitude: 13.405}
	if err := composer.SendLocation(context.Background(), src); err != nil {
		t.Fatalf("SendLocation() error = %v", err)
	}

	_, messages := fb.snapshot()
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	loc := messages[0].Location
	if loc == nil || loc.Latitude != 52.52 || loc.Longitude != 13.405 {
		t.Errorf("location = %+v, want fixed coordinates", loc)
	}
}

func TestComposerLocationFailures(t *testing.T) {
	tests := []struct {
		name      string
		src       LocationSource
		wantAlert string
	}{
		{"permission denied", deniedLocationSource{}, "Permissions haven't been granted."},
		{"no fix", failingLocationSource{}, "Error occurred while fetching location"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb, ts := newFakeBackend(t)

			var alerts []string
			composer := NewComposer(ts.URL, testSession(), func(msg string) { alerts = append(alerts, msg) })

			if err := composer.SendLocation(context.Background(), tt.src); err == nil {
				t.Fatal("SendLocation() succeeded, want error")
			}

			events, _ := fb.snapshot()
			if len(events) != 0 {
				t.Errorf("events = %v, want none", events)
			}
			if len(alerts) != 1 || alerts[0] != tt.wantAlert {
				t.Errorf("alerts = %v, want [%q]", alerts, tt.wantAlert)
			}
		})
	}
}

func TestComposerImageSourceFailure(t *testing.T) {
	fb, ts := newFakeBackend(t)
	composer := NewComposer(ts.URL, testSession(), nil)

	if err := composer.SendImage(context.Background(), FileImage("/does/not/exist.jpg")); err == nil {
		t.Fatal("SendImage() succeeded for missing file")
	}

	events, _ := fb.snapshot()
	if len(events) != 0 {
		t.Errorf("events = %v, want none", events)
	}
}

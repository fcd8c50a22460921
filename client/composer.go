package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pocketchat/models"
)

// Composer sends outgoing messages to the remote feed, stamped with the
// session identity. Appends are single-shot: there is no retry, outbox or
// delivery acknowledgement, and a failed send is reported once for the
// user to retry manually. The authoritative copy of every sent message
// arrives back through the feed listener.
type Composer struct {
	baseURL string
	session models.Session
	http    *http.Client
	alert   func(string)
	now     func() time.Time
}

// NewComposer creates a composer for the service at baseURL. The alert
// callback surfaces permission and device failures to the user.
func NewComposer(baseURL string, session models.Session, alert func(string)) *Composer {
	return &Composer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		session: session,
		http:    http.DefaultClient,
		alert:   alert,
		now:     time.Now,
	}
}

type sendMessageRequest struct {
	Text     string           `json:"text,omitempty"`
	Image    string           `json:"image,omitempty"`
	Location *models.Location `json:"location,omitempty"`
}

// SendText appends a single text message to the feed.
func (c *Composer) SendText(ctx context.Context, text string) error {
	return c.send(ctx, sendMessageRequest{Text: text})
}

// SendLocation reads the device's coordinates once and sends them as a
// single immutable point. No reverse geocoding, no accuracy check.
func (c *Composer) SendLocation(ctx context.Context, src LocationSource) error {
	loc, err := src.Current(ctx)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			c.notify("Permissions haven't been granted.")
		} else {
			c.notify("Error occurred while fetching location")
		}
		return err
	}
	return c.send(ctx, sendMessageRequest{Location: loc})
}

// SendImage picks or captures a local image, uploads it to blob storage
// under a collision-resistant name, resolves the durable download URL, and
// only then appends the message carrying that URL. The append never
// precedes upload completion.
func (c *Composer) SendImage(ctx context.Context, src ImageSource) error {
	path, err := src.Image(ctx)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			c.notify("Permissions haven't been granted.")
		}
		return err
	}

	imageURL, err := c.uploadImage(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to upload image: %w", err)
	}

	return c.send(ctx, sendMessageRequest{Image: imageURL})
}

// blobName derives a collision-resistant remote object name from the
// sender, the current time and the source filename.
func (c *Composer) blobName(path string) string {
	return fmt.Sprintf("%s-%d-%s", c.session.UserID, c.now().UnixMilli(), filepath.Base(path))
}

func (c *Composer) uploadImage(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	name := c.blobName(path)
	uploadURL := c.baseURL + "/api/uploads?name=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.session.Token)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload rejected: %s", resp.Status)
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return c.baseURL + result.URL, nil
}

func (c *Composer) send(ctx context.Context, payload sendMessageRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.session.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("send rejected: %s", resp.Status)
	}
	return nil
}

func (c *Composer) notify(msg string) {
	if c.alert != nil {
		c.alert(msg)
	}
}

// Package client implements the chat-room client: anonymous sign-in, the
// live feed listener with its offline snapshot cache, the connectivity
// gate that switches between them, and the message composer. Consumers
// (the presentation layer) receive complete message lists through a
// callback and send through the composer; nothing here renders.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"pocketchat/models"
)

// SignInAnonymously creates a fresh anonymous identity on the server for
// the chosen display name and background color. The returned session is
// transient: callers hold it in memory for the lifetime of the chat screen
// and it is never persisted across restarts.
func SignInAnonymously(ctx context.Context, baseURL, name, color string) (*models.Session, error) {
	body, err := json.Marshal(map[string]string{"name": name, "color": color})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/auth/anonymous", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sign-in rejected: %s", resp.Status)
	}

	var session models.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// BridgeConnector fetches activity from an HTTP bridge that fronts the chat
// platform session. The bridge owns login state; this side is a plain REST
// client.
type BridgeConnector struct {
	baseURL    string
	httpClient *http.Client
}

// NewBridgeConnector builds a connector against the bridge base URL.
func NewBridgeConnector(baseURL string) *BridgeConnector {
	return &BridgeConnector{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type bridgeFetchRequest struct {
	ChatIDs []string  `json:"chat_ids"`
	Since   time.Time `json:"since,omitempty"`
	Limit   int       `json:"limit,omitempty"`
}

type bridgeFetchResponse struct {
	Activities []Activity `json:"activities"`
}

// Fetch implements Connector.
func (c *BridgeConnector) Fetch(ctx context.Context, chatIDs []string, since time.Time, limit int) ([]Activity, error) {
	body, err := json.Marshal(bridgeFetchRequest{ChatIDs: chatIDs, Since: since, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fetch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/activity/fetch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: bridge request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: bridge returned %d: %s", ErrUnavailable, resp.StatusCode, string(raw))
	}

	var decoded bridgeFetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode bridge response: %w", err)
	}
	return decoded.Activities, nil
}

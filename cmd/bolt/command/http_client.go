package command

// http_client.go talks to the bolt-server HTTP trigger.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

type PoolAttachRequest struct {
	Topic  string  `json:"topic"`
	PoolID *string `json:"pool_id,omitempty"`
}

type RegisterRequest struct {
	Topic         string  `json:"topic"`
	Username      *string `json:"username,omitempty"`
	Password      *string `json:"password,omitempty"`
	Environment   *string `json:"environment,omitempty"`
	ActivationKey *string `json:"activation_key,omitempty"`
}

type PublishResponse struct {
	Topic   string `json:"topic"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts payload as JSON to path and decodes the publish result.
func (c *HTTPClient) Send(path string, payload any) (*PublishResponse, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		var e errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			return nil, fmt.Errorf("publish failed: %s", resp.Status)
		}
		return nil, fmt.Errorf("publish failed (%d): %s", resp.StatusCode, e.Error)
	}

	var out PublishResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

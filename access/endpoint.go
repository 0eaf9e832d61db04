package access

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Endpoint submits a payload to the protected resource.
type Endpoint interface {
	// Submit returns an error only when no usable response was obtained.
	Submit(ctx context.Context, payload string) (Reply, error)
}

// Reply is the protected endpoint's answer.
type Reply struct {
	StatusCode int    `json:"-"`
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

// OK reports a 2xx status.
func (r Reply) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type accessRequest struct {
	Altcha string `json:"altcha"`
}

// HTTPEndpoint posts {"altcha": payload} as JSON.
type HTTPEndpoint struct {
	URL    string
	Client *http.Client
}

// NewHTTPEndpoint uses a client without a timeout; callers bound the
// request through ctx when they need one.
func NewHTTPEndpoint(url string) *HTTPEndpoint {
	return &HTTPEndpoint{
		URL:    url,
		Client: &http.Client{},
	}
}

func (e *HTTPEndpoint) Submit(ctx context.Context, payload string) (Reply, error) {
	body, err := json.Marshal(accessRequest{Altcha: payload})
	if err != nil {
		return Reply{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(body))
	if err != nil {
		return Reply{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return Reply{}, err
	}
	defer resp.Body.Close()

	var reply Reply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	reply.StatusCode = resp.StatusCode
	return reply, nil
}

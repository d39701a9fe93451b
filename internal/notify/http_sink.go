package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPSink is a thin JSON-over-HTTP client for an external conversation
// store. The store's actual API is outside this module's scope, so this
// is a generic POST/GET client rather than a purpose-built SDK.
type HTTPSink struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPSink builds an HTTPSink against the given base URL, using a
// bounded-timeout client to avoid a slow or unreachable store wedging
// notification delivery.
func NewHTTPSink(baseURL string) *HTTPSink {
	return &HTTPSink{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSink) List(ctx context.Context, opts ListOptions) ([]Conversation, error) {
	u := fmt.Sprintf("%s/conversations?orderBy=%s&limit=%d",
		s.BaseURL, url.QueryEscape(opts.OrderBy), opts.Limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("conversation store returned %s", resp.Status)
	}

	var conversations []Conversation
	if err := json.NewDecoder(resp.Body).Decode(&conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

func (s *HTTPSink) AppendMessage(ctx context.Context, conversationID, role, body string) error {
	payload, err := json.Marshal(struct {
		Role string `json:"role"`
		Body string `json:"body"`
	}{Role: role, Body: body})
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/conversations/%s/messages", s.BaseURL, url.PathEscape(conversationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("conversation store returned %s", resp.Status)
	}
	return nil
}

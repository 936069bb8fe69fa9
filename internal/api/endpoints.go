package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/engagekit/client-go/internal/apierrors"
)

// CheckKey validates the API key.
func (c *Client) CheckKey(ctx context.Context) error {
	result, err := c.Do(ctx, http.MethodGet, "/api/check-key", true, nil, nil)
	if err != nil {
		return err
	}
	if ok, _ := result["ok"].(bool); !ok {
		return apierrors.ErrUnauthorized
	}
	return nil
}

// TrackBatch sends a batch of events to the ingest endpoint. The caller
// assigns idempotencyKey once per batch and reuses it for every delivery
// attempt of that batch, so the server can dedupe retried submissions.
func (c *Client) TrackBatch(ctx context.Context, events []BatchEvent, idempotencyKey string) (*BatchResult, error) {
	if len(events) == 0 {
		return &BatchResult{}, nil
	}

	body := map[string]any{"events": events}
	header := http.Header{}
	header.Set("Idempotency-Key", idempotencyKey)

	result, err := c.do(ctx, http.MethodPost, "/api/events/batch", true, body, nil, header)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{Accepted: len(events)}
	if n, ok := result["accepted"].(float64); ok {
		batch.Accepted = int(n)
	}
	if failed, ok := result["failed"].([]any); ok {
		for _, f := range failed {
			if id, ok := f.(string); ok {
				batch.Failed = append(batch.Failed, id)
			}
		}
	}
	return batch, nil
}

// GetMessages fetches the candidate messages for the current user.
func (c *Client) GetMessages(ctx context.Context) ([]Message, error) {
	result, err := c.Do(ctx, http.MethodGet, "/api/messages", true, nil, nil)
	if err != nil {
		return nil, err
	}

	raw, ok := result["messages"]
	if !ok {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode messages: %w", err)
	}
	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return messages, nil
}

// ConfirmSubscription redeems a one-time subscription token. The endpoint
// is public: the token, not the account credential, authorizes it.
func (c *Client) ConfirmSubscription(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return &apierrors.ValidationError{Field: "token", Message: "must not be blank"}
	}
	body := map[string]string{"token": token}
	_, err := c.Do(ctx, http.MethodPost, "/api/subscriptions/confirm", false, body, nil)
	return err
}

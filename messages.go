package engagekit

import (
	"context"

	"github.com/engagekit/client-go/internal/api"
	"github.com/engagekit/client-go/internal/retry"
)

// Message is a server-supplied in-app message. Nil limit fields mean the
// corresponding constraint does not apply; a nil DismissDays means a
// dismissal suppresses the message forever.
type Message = api.Message

// Messages fetches the candidate messages for the current user, removes
// those suppressed by local dismissal and impression state, and returns
// the rest ordered by priority, highest first. The caller presents the
// winning message and reports the outcome via MarkMessageShown and
// DismissMessage.
func (c *Client) Messages(ctx context.Context) ([]Message, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	var candidates []Message
	err := retry.Do(ctx, c.retryPolicy, func(ctx context.Context) error {
		var err error
		candidates, err = c.apiClient.GetMessages(ctx)
		return err
	})
	if err != nil {
		return nil, wrapError(err)
	}

	return c.engine.FilterAndRank(candidates), nil
}

// MarkMessageShown records an impression: it increments the message's
// impression count and stamps the last-shown time. Call it exactly once
// per presentation, immediately before rendering.
func (c *Client) MarkMessageShown(messageID string) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	return wrapError(c.engine.RecordImpression(messageID))
}

// DismissMessage records a dismissal. Call it on explicit user dismissal
// or on any terminal interaction that ends the presentation.
func (c *Client) DismissMessage(messageID string) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	return wrapError(c.engine.RecordDismissal(messageID))
}

// ConfirmSubscription redeems a one-time subscription token. The call is
// unauthenticated: the token itself, not the account credential,
// authorizes it.
func (c *Client) ConfirmSubscription(ctx context.Context, token string) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	return wrapError(retry.Do(ctx, c.retryPolicy, func(ctx context.Context) error {
		return c.apiClient.ConfirmSubscription(ctx, token)
	}))
}

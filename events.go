package engagekit

import "context"

// Track enqueues a telemetry event for batched delivery. The event type
// must be non-blank; properties may be nil. Track returns promptly: any
// network work happens in the background when a batch fills or the flush
// timer fires.
func (c *Client) Track(eventType string, properties map[string]any) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	return wrapError(c.queue.Enqueue(eventType, properties))
}

// Flush sends all pending events as one batch and returns the delivery
// failure, if any. Flushing an empty queue performs no network call.
//
// The host application's lifecycle observer should call Flush when the
// application leaves the foreground; the SDK does not watch for this
// itself.
func (c *Client) Flush(ctx context.Context) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	return wrapError(c.queue.Flush(ctx))
}

// PendingEvents returns the number of events waiting to be flushed.
func (c *Client) PendingEvents() int {
	return c.queue.Len()
}

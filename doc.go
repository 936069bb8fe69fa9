// Package engagekit provides a Go client SDK for EngageKit: it batches
// telemetry events to the ingest API and fetches targeted in-app messages,
// filtering them against locally persisted eligibility state.
//
// Basic usage:
//
//	client, err := engagekit.New("your-api-key")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Record an event; it is delivered in the background.
//	client.Track("checkout_completed", map[string]any{"total": 42.50})
//
//	// Fetch eligible messages, highest priority first.
//	messages, err := client.Messages(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if len(messages) > 0 {
//	    client.MarkMessageShown(messages[0].ID)
//	    // render messages[0].Payload ...
//	}
//
// Events accumulate in a bounded in-memory queue and are sent when a batch
// fills, when the flush timer fires, or on an explicit Flush. Failures of
// background flushes are logged and the events re-queued; only an explicit
// Flush surfaces the delivery error to the caller. The queue is not
// durable: pending events are lost on process death, so lifecycle hooks
// should call Flush when the application leaves the foreground.
package engagekit

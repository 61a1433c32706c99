// Package channel implements the host side of the request/response bridge.
//
// A Channel owns one outbound queue (requests) and one inbound queue
// (responses and stream chunks). It correlates every reply with the request
// that produced it by correlation id and handles:
//   - Unary submission with per-request timeouts and mandatory cleanup
//   - Streaming submission yielding chunks until the final one
//   - Backpressure: at most MaxPending requests in flight, fail fast beyond
//   - A poll loop that drains the inbound queue in FIFO order
//   - Teardown that cancels unary waits and unblocks stream consumers
//
// Example usage:
//
//	ch := channel.New(log, cfg, requests, responses)
//	ch.StartPolling(ctx)
//	defer ch.StopPolling()
//
//	req, _ := message.NewRequest(message.NewID(), "echo", payload)
//	resp, err := ch.Submit(ctx, req, 5*time.Second)
package channel

// Package worker implements the serving side of the bridge, run inside the
// worker process.
//
// A Server reads requests from its inbound queue, dispatches each one by
// method name to a registered handler, and writes the handler's reply (or
// stream of chunks) to its outbound queue. Handlers run concurrently up to a
// configured limit.
package worker

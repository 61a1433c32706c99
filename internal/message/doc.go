// Package message defines the envelope carried on the host and worker queues.
//
// Every item on either queue is a *Message. The Kind field tags the variant:
//   - KindRequest: host to worker, carries Method and Payload
//   - KindResponse: worker to host, the single answer to a unary request
//   - KindChunk: worker to host, one piece of a streaming answer; the last
//     chunk of a stream has Final set
//
// Messages are checked once with Validate when they cross a channel boundary,
// so code past that point can rely on the ID being present and the Final flag
// only appearing on chunks.
package message

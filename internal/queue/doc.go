// Package queue provides the two one-directional message queues that connect
// a host and its worker.
//
// Each direction has exactly one producer and one consumer. The host Puts on
// the request queue and Gets from the response queue; the worker does the
// opposite. Two implementations are provided:
//   - Memory: a buffered in-process queue, used by tests and in-process workers
//   - Writer/Reader: newline-delimited JSON over OS pipes, which survive worker
//     restarts because the host keeps both pipe ends open and hands the worker
//     ends to every spawned process as extra file descriptors
package queue

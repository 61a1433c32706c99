// Package host pairs a Channel with a supervised worker process.
//
// A Host owns the two OS pipes that carry requests and replies. The host
// ends feed the Channel; the worker ends are inherited by every worker the
// Supervisor spawns, so the queues outlive any individual worker and a
// restarted worker picks up where the previous one stopped reading.
//
// Requests that were in flight when a worker crashed are not replayed. Their
// callers observe a timeout.
package host

// Package supervisor owns the lifecycle of a worker process.
//
// A Supervisor spawns the worker, watches it from a dedicated monitor
// goroutine, restarts it after crashes according to a fixed-delay,
// bounded-count policy, and shuts it down with SIGTERM followed by SIGKILL
// if the worker outlives the grace period.
//
// Exit status 0 is an intentional shutdown and is never restarted. Any other
// status, including death by signal, is a crash.
//
// The package depends only on a process-spawn primitive (Spawner), not on
// the channel. It targets unix systems.
package supervisor

package supervisor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/wagiedev/procbridge-go/internal/config"
	"github.com/wagiedev/procbridge-go/internal/errors"
)

// Supervisor runs one worker process and keeps it running.
//
// State is mutated only under mu. Blocking waits on the process happen
// outside mu so concurrent callers never wait on process I/O while holding it.
type Supervisor struct {
	log     *slog.Logger
	cfg     *config.SupervisorConfig
	spawner Spawner
	lock    *flock.Flock

	mu            sync.Mutex
	proc          Process
	runID         string
	restartCount  int
	lastRestart   time.Time
	stopRequested bool
	exhausted     bool
	lastExit      error
	monitorDone   chan struct{}
	stopCh        chan struct{}
}

// Status is a snapshot of supervisor state.
type Status struct {
	Running       bool      `json:"running"`
	PID           int       `json:"pid,omitempty"`
	RunID         string    `json:"run_id,omitempty"`
	Restarts      int       `json:"restarts"`
	LastRestart   time.Time `json:"last_restart"`
	Exhausted     bool      `json:"exhausted"`
	StopRequested bool      `json:"stop_requested"`
	LastExit      string    `json:"last_exit,omitempty"`
}

// New creates a supervisor. The config must already be validated.
func New(log *slog.Logger, cfg *config.SupervisorConfig, spawner Spawner) *Supervisor {
	s := &Supervisor{
		log:     log.With("component", "supervisor"),
		cfg:     cfg,
		spawner: spawner,
	}

	if cfg.LockPath != "" {
		s.lock = flock.New(cfg.LockPath)
	}

	return s
}

// Start spawns the worker. It fails with errors.ErrWorkerAlreadyRunning if a
// worker is alive or a crash recovery is in progress, and with
// errors.ErrLockHeld if another supervisor holds the lock file.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if (s.proc != nil && !exited(s.proc)) || s.monitorDone != nil {
		return errors.ErrWorkerAlreadyRunning
	}

	if s.lock != nil && !s.lock.Locked() {
		ok, err := s.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire supervisor lock: %w", err)
		}

		if !ok {
			return fmt.Errorf("%w: %s", errors.ErrLockHeld, s.cfg.LockPath)
		}
	}

	s.restartCount = 0
	s.stopRequested = false
	s.exhausted = false
	s.stopCh = make(chan struct{})

	if err := s.spawnLocked(); err != nil {
		s.unlockFile()

		return err
	}

	return nil
}

// spawnLocked starts a worker and records it. The caller holds mu.
func (s *Supervisor) spawnLocked() error {
	runID := uuid.NewString()

	proc, err := s.spawner.Spawn(runID)
	if err != nil {
		return err
	}

	s.proc = proc
	s.runID = runID
	s.lastRestart = time.Now()

	s.log.Info("Worker spawned", "pid", proc.PID(), "run_id", runID, "restart_count", s.restartCount)

	switch {
	case s.cfg.AutoRestart && s.monitorDone == nil:
		done := make(chan struct{})
		s.monitorDone = done

		go s.monitor(done, s.stopCh)

	case !s.cfg.AutoRestart:
		go s.reap(proc)
	}

	return nil
}

// monitor watches the worker and applies the restart policy. It runs until
// the worker exits cleanly, restarts are exhausted, or Stop is called.
func (s *Supervisor) monitor(done chan struct{}, stopCh <-chan struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		if s.monitorDone == done {
			s.monitorDone = nil
		}
		s.mu.Unlock()
	}()

	s.log.Debug("Monitor started")
	defer s.log.Debug("Monitor stopped")

	ticker := time.NewTicker(s.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		s.mu.Lock()
		proc, stopping := s.proc, s.stopRequested
		s.mu.Unlock()

		if stopping || proc == nil {
			return
		}

		select {
		case <-proc.Done():
		case <-ticker.C:
			continue
		case <-stopCh:
			return
		}

		if !s.handleExit(proc) {
			return
		}

		select {
		case <-time.After(s.cfg.RestartDelay):
		case <-stopCh:
			return
		}

		if !s.respawn() {
			return
		}
	}
}

// handleExit inspects an exited worker. It reports whether a restart should
// follow.
func (s *Supervisor) handleExit(proc Process) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopRequested {
		return false
	}

	code := proc.ExitCode()
	exitErr := exitError(proc)
	s.lastExit = exitErr

	if code == 0 {
		s.proc = nil
		s.log.Info("Worker exited cleanly, not restarting", "pid", proc.PID())

		return false
	}

	if !s.cfg.RestartBudgetLeft(s.restartCount) {
		s.proc = nil
		s.exhausted = true
		s.log.Error("Worker crashed, restart budget spent",
			"pid", proc.PID(),
			"exit_code", code,
			"restart_count", s.restartCount,
			"max_restarts", s.cfg.MaxRestarts,
			"error", errors.ErrRestartsExhausted,
			"exit_error", exitErr,
		)

		return false
	}

	s.log.Warn("Worker crashed, restarting",
		"pid", proc.PID(),
		"exit_code", code,
		"restart_count", s.restartCount,
		"restart_delay", s.cfg.RestartDelay,
		"error", exitErr,
	)

	return true
}

// respawn performs one restart. A failed spawn leaves the dead process in
// place so the next monitor pass treats it as another crash.
func (s *Supervisor) respawn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopRequested {
		return false
	}

	s.restartCount++

	if err := s.spawnLocked(); err != nil {
		s.log.Error("Worker respawn failed", "restart_count", s.restartCount, "error", err)
	}

	return true
}

// reap clears the handle of an unmonitored worker once it exits.
func (s *Supervisor) reap(proc Process) {
	<-proc.Done()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == proc {
		s.proc = nil
		s.lastExit = exitError(proc)
		s.log.Info("Worker exited", "pid", proc.PID(), "exit_code", proc.ExitCode(), "error", s.lastExit)
	}
}

// exitError returns the failure recorded by proc, if it records one.
func exitError(proc Process) error {
	if p, ok := proc.(interface{ Err() error }); ok {
		return p.Err()
	}

	return nil
}

// Stop ends supervision and shuts the worker down: SIGTERM, wait up to
// ShutdownTimeout, then SIGKILL and wait. It's safe to call Stop multiple
// times.
func (s *Supervisor) Stop() {
	s.mu.Lock()

	if !s.stopRequested && s.stopCh != nil {
		close(s.stopCh)
	}

	s.stopRequested = true
	monitorDone := s.monitorDone
	s.mu.Unlock()

	if monitorDone != nil {
		select {
		case <-monitorDone:
		case <-time.After(s.cfg.ShutdownTimeout):
			s.log.Warn("Monitor did not stop in time", "timeout", s.cfg.ShutdownTimeout)
		}
	}

	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()

	if proc != nil {
		s.terminate(proc)
	}

	s.mu.Lock()
	if s.proc == proc {
		s.proc = nil
	}
	s.unlockFile()
	s.mu.Unlock()
}

// terminate escalates from SIGTERM to SIGKILL.
func (s *Supervisor) terminate(proc Process) {
	if exited(proc) {
		return
	}

	pid := proc.PID()

	s.log.Info("Stopping worker", "pid", pid, "shutdown_timeout", s.cfg.ShutdownTimeout)

	if err := proc.Signal(unix.SIGTERM); err != nil {
		s.log.Warn("Failed to send SIGTERM", "pid", pid, "error", err)
	}

	timer := time.NewTimer(s.cfg.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-proc.Done():
		s.log.Info("Worker stopped", "pid", pid, "exit_code", proc.ExitCode())

		return
	case <-timer.C:
	}

	s.log.Warn("Worker ignored SIGTERM, killing", "pid", pid)

	if err := proc.Kill(); err != nil {
		s.log.Error("Failed to kill worker", "pid", pid, "error", err)
	}

	<-proc.Done()

	s.log.Info("Worker killed", "pid", pid)
}

func (s *Supervisor) unlockFile() {
	if s.lock == nil || !s.lock.Locked() {
		return
	}

	if err := s.lock.Unlock(); err != nil {
		s.log.Warn("Failed to release supervisor lock", "path", s.cfg.LockPath, "error", err)
	}
}

// IsAlive reports whether a worker process is currently running.
func (s *Supervisor) IsAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.proc != nil && !exited(s.proc)
}

// RestartCount returns the number of restarts since Start.
func (s *Supervisor) RestartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.restartCount
}

// Status returns a snapshot of supervisor state.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		RunID:         s.runID,
		Restarts:      s.restartCount,
		LastRestart:   s.lastRestart,
		Exhausted:     s.exhausted,
		StopRequested: s.stopRequested,
	}

	if s.lastExit != nil {
		st.LastExit = s.lastExit.Error()
	}

	if s.proc != nil && !exited(s.proc) {
		st.Running = true
		st.PID = s.proc.PID()
	}

	return st
}

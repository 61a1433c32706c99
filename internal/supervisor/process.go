package supervisor

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/wagiedev/procbridge-go/internal/errors"
)

// RunIDEnv is the environment variable carrying the id of one worker run.
const RunIDEnv = "PROCBRIDGE_RUN_ID"

// Process is a spawned worker.
type Process interface {
	// PID returns the operating system process id.
	PID() int

	// Signal delivers sig to the worker.
	Signal(sig os.Signal) error

	// Kill forcefully terminates the worker.
	Kill() error

	// Done is closed once the worker has exited and been reaped.
	Done() <-chan struct{}

	// ExitCode returns the exit status. It is only meaningful after Done is
	// closed and is -1 if the worker was killed by a signal.
	ExitCode() int
}

// Spawner starts worker processes.
type Spawner interface {
	Spawn(runID string) (Process, error)
}

// ExecSpawner starts the worker as a child process.
type ExecSpawner struct {
	log  *slog.Logger
	Path string
	Args []string
	Env  []string
	Dir  string

	// ExtraFiles are inherited by every spawned worker starting at fd 3.
	ExtraFiles []*os.File

	// Stdout and Stderr receive the worker's output. They default to the
	// host's stderr. An *os.File avoids copy goroutines that would delay
	// reaping.
	Stdout io.Writer
	Stderr io.Writer
}

// Compile-time verification that ExecSpawner implements Spawner.
var _ Spawner = (*ExecSpawner)(nil)

// NewExecSpawner creates a spawner for path and args.
func NewExecSpawner(log *slog.Logger, path string, args ...string) *ExecSpawner {
	return &ExecSpawner{
		log:    log.With("component", "spawner"),
		Path:   path,
		Args:   args,
		Stdout: os.Stderr,
		Stderr: os.Stderr,
	}
}

// Spawn starts one worker. The worker runs in its own process group so
// signals reach any children it starts.
func (s *ExecSpawner) Spawn(runID string) (Process, error) {
	//nolint:gosec // G204: launching the configured worker is the point
	cmd := exec.Command(s.Path, s.Args...)
	cmd.Dir = s.Dir
	cmd.Env = append(append(os.Environ(), s.Env...), RunIDEnv+"="+runID)
	cmd.ExtraFiles = s.ExtraFiles
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		s.log.Error("Failed to start worker process", "path", s.Path, "error", err)

		return nil, fmt.Errorf("start worker %s: %w", s.Path, err)
	}

	p := &execProcess{
		log:  s.log,
		cmd:  cmd,
		done: make(chan struct{}),
	}

	go p.wait()

	s.log.Debug("Worker process started", "pid", cmd.Process.Pid, "run_id", runID)

	return p, nil
}

// execProcess adapts exec.Cmd to Process.
type execProcess struct {
	log  *slog.Logger
	cmd  *exec.Cmd
	done chan struct{}

	mu       sync.Mutex
	exitCode int
	err      error
}

func (p *execProcess) wait() {
	err := p.cmd.Wait()

	code := 0

	if err != nil {
		code = -1
		if exitErr, ok := stderrors.AsType[*exec.ExitError](err); ok {
			code = exitErr.ExitCode()
		}
	}

	p.mu.Lock()
	p.exitCode = code
	if err != nil {
		p.err = &errors.ProcessError{PID: p.cmd.Process.Pid, ExitCode: code, Err: err}
	}
	p.mu.Unlock()

	close(p.done)
}

func (p *execProcess) PID() int {
	return p.cmd.Process.Pid
}

// Signal delivers sig to the worker's process group.
func (p *execProcess) Signal(sig os.Signal) error {
	ssig, ok := sig.(unix.Signal)
	if !ok {
		return p.cmd.Process.Signal(sig)
	}

	if err := unix.Kill(-p.cmd.Process.Pid, ssig); err != nil {
		if stderrors.Is(err, unix.ESRCH) {
			return nil
		}

		return fmt.Errorf("signal worker group %d: %w", p.cmd.Process.Pid, err)
	}

	return nil
}

func (p *execProcess) Kill() error {
	return p.Signal(unix.SIGKILL)
}

func (p *execProcess) Done() <-chan struct{} {
	return p.done
}

func (p *execProcess) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.exitCode
}

// Err returns the *errors.ProcessError describing a non-zero exit, if any.
func (p *execProcess) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.err
}

func exited(p Process) bool {
	select {
	case <-p.Done():
		return true
	default:
		return false
	}
}

//go:build unix

package supervisor

import "syscall"

// sysProcAttr places the worker in its own process group. Terminal
// interrupts aimed at the host do not reach it; only the supervisor stops it.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

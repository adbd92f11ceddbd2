//go:build unix

package runner

import (
	"os/exec"
	"syscall"
)

// setProcessGroup configures the command to run in its own process group.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup sends SIGKILL to the entire process group.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		return cmd.Process.Kill()
	}
	return syscall.Kill(-pgid, syscall.SIGKILL)
}

// exitCodeFromError extracts the exit status from an exec.ExitError.
// A process terminated by a signal reports 128+signal, as shells do.
func exitCodeFromError(exitErr *exec.ExitError) (int, bool) {
	waitStatus, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return 0, false
	}
	if waitStatus.Signaled() {
		return 128 + int(waitStatus.Signal()), true
	}
	return waitStatus.ExitStatus(), true
}

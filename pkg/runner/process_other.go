//go:build !unix

package runner

import (
	"os/exec"
)

// setProcessGroup is a no-op on non-Unix platforms.
func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills the process directly on non-Unix platforms.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

// exitCodeFromError extracts the exit code from an exec.ExitError.
func exitCodeFromError(exitErr *exec.ExitError) (int, bool) {
	if exitErr.ProcessState != nil && exitErr.ProcessState.ExitCode() >= 0 {
		return exitErr.ProcessState.ExitCode(), true
	}
	return 0, false
}

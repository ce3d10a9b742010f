package daemon

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

// DefaultStopTimeout is how long Stop waits before reporting failure, and
// before escalating under --force.
const DefaultStopTimeout = 30 * time.Second

// RequestStop creates the stopping sentinel so a running daemon shuts down
// at its next tick even without receiving a signal.
func RequestStop(stateDir string) error {
	f, err := os.OpenFile(StoppingPath(stateDir), os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	return f.Close()
}

// ClearStopRequest removes the sentinel. The daemon clears it on startup so
// a stale sentinel cannot kill a fresh run.
func ClearStopRequest(stateDir string) {
	_ = os.Remove(StoppingPath(stateDir))
}

// StopRequested reports whether the sentinel exists.
func StopRequested(stateDir string) bool {
	_, err := os.Stat(StoppingPath(stateDir))
	return err == nil
}

// Stop terminates a running daemon: sentinel plus SIGTERM, then a bounded
// wait for exit. With force, escalates to SIGKILL after the timeout.
func Stop(stateDir string, timeout time.Duration, force bool) error {
	pid := RunningPID(PIDPath(stateDir))
	if pid == 0 {
		ClearStopRequest(stateDir)
		return fmt.Errorf("no daemon is running")
	}

	if err := RequestStop(stateDir); err != nil {
		return fmt.Errorf("failed to write stop sentinel: %w", err)
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			RemovePIDFile(PIDPath(stateDir))
			ClearStopRequest(stateDir)
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	if !force {
		return fmt.Errorf("daemon (pid %d) did not stop within %s", pid, timeout)
	}
	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to kill pid %d: %w", pid, err)
	}
	RemovePIDFile(PIDPath(stateDir))
	ClearStopRequest(stateDir)
	return nil
}

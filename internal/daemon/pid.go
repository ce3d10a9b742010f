package daemon

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// ErrAlreadyRunning means a live daemon holds the PID file.
var ErrAlreadyRunning = errors.New("daemon already running")

// WritePIDFile records the current process's PID. It refuses to overwrite a
// PID file belonging to a live process; a stale file is reclaimed.
func WritePIDFile(path string) error {
	if pid, err := ReadPIDFile(path); err == nil {
		if processAlive(pid) {
			return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
		}
		_ = os.Remove(path)
	}
	return atomicWrite(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

// ReadPIDFile returns the recorded PID.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed pid file %s: %w", path, err)
	}
	return pid, nil
}

// RemovePIDFile deletes the PID file, ignoring absence.
func RemovePIDFile(path string) {
	_ = os.Remove(path)
}

// RunningPID returns the PID of a live daemon, or 0 when none is running.
func RunningPID(path string) int {
	pid, err := ReadPIDFile(path)
	if err != nil || !processAlive(pid) {
		return 0
	}
	return pid
}

// processAlive probes a PID with signal 0. EPERM still means alive.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

package daemon

import (
	"fmt"
	"os"
	"os/exec"
)

// daemonEnvMarker tells a re-executed child it is the background daemon.
const daemonEnvMarker = "SOBA_DAEMON"

// IsDaemonChild reports whether this process is the re-executed background
// daemon rather than the foreground CLI.
func IsDaemonChild() bool {
	return os.Getenv(daemonEnvMarker) == "1"
}

// SpawnBackground re-executes the current binary detached from the terminal,
// with stdout/stderr directed to the daemon log. Returns the child PID.
func SpawnBackground(stateDir string, args []string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to resolve executable: %w", err)
	}

	logFile, err := os.OpenFile(LogPath(stateDir), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open daemon log: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	cmd := exec.Command(exe, args...)
	cmd.Env = append(os.Environ(), daemonEnvMarker+"=1")
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}
	pid := cmd.Process.Pid
	// Detach; the child outlives this CLI invocation.
	_ = cmd.Process.Release()
	return pid, nil
}

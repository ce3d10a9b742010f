// Package daemon handles the local process lifecycle: the state directory,
// PID file, status record, background forking, and shutdown signaling.
package daemon

import (
	"os"
	"path/filepath"
)

// StateDirName is the per-project (or per-user) state directory.
const StateDirName = ".soba"

// Well-known file names inside the state directory.
const (
	ConfigFileName   = "config.yml"
	PIDFileName      = "soba.pid"
	StatusFileName   = "status.json"
	StoppingFileName = "stopping"
	LogDirName       = "logs"
	LogFileName      = "daemon.log"
)

// StateDir resolves the state directory: a project-local .soba/ when the
// current directory has one, the user's home otherwise.
func StateDir() string {
	local := StateDirName
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return local
	}
	return filepath.Join(home, StateDirName)
}

// EnsureStateDir creates the state directory and its log subdirectory.
func EnsureStateDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, LogDirName), 0755)
}

// ConfigPath returns the configuration file path inside the state dir.
func ConfigPath(dir string) string { return filepath.Join(dir, ConfigFileName) }

// PIDPath returns the PID file path.
func PIDPath(dir string) string { return filepath.Join(dir, PIDFileName) }

// StatusPath returns the status record path.
func StatusPath(dir string) string { return filepath.Join(dir, StatusFileName) }

// StoppingPath returns the graceful-stop sentinel path.
func StoppingPath(dir string) string { return filepath.Join(dir, StoppingFileName) }

// LogPath returns the daemon log file path.
func LogPath(dir string) string { return filepath.Join(dir, LogDirName, LogFileName) }

// HistoryPath returns the phase-transition history database path.
func HistoryPath(dir string) string { return filepath.Join(dir, "history.db") }

// LockDir returns the directory for workflow file locks.
func LockDir(dir string) string { return filepath.Join(dir, "locks") }

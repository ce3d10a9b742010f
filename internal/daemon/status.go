package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StatusRecord is the daemon's externally visible state, rewritten every
// tick. Readers may race with the writer, so writes go through a temp-file
// rename and a reader always sees a complete record.
type StatusRecord struct {
	PID        int       `json:"pid"`
	Repository string    `json:"repository"`
	Running    bool      `json:"running"`
	Mode       string    `json:"mode"` // tmux | direct
	StartedAt  time.Time `json:"started_at"`
	LastTickAt time.Time `json:"last_tick_at"`

	// Most recent processing outcome, if any.
	CurrentIssue int    `json:"current_issue,omitempty"`
	CurrentPhase string `json:"current_phase,omitempty"`
	LastError    string `json:"last_error,omitempty"`

	TicksCompleted int `json:"ticks_completed"`
	IssuesMerged   int `json:"issues_merged"`
}

// WriteStatus atomically replaces the status record.
func WriteStatus(path string, record *StatusRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	return atomicWrite(path, data, 0644)
}

// ReadStatus loads the status record.
func ReadStatus(path string) (*StatusRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var record StatusRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("malformed status file %s: %w", path, err)
	}
	return &record, nil
}

// atomicWrite replaces a file via temp-file and rename so readers never
// observe a partial write.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

package workflow

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/douhashi/soba/internal/session"
	"github.com/douhashi/soba/internal/tmux"
)

// windowRunner fakes just the tmux surface the cleaner touches.
type windowRunner struct {
	sessions map[string][]string // session -> window names
	killed   []string
}

func (r *windowRunner) Run(args ...string) (string, error) {
	switch args[0] {
	case "list-sessions":
		var names []string
		for name := range r.sessions {
			names = append(names, name)
		}
		return strings.Join(names, "\n"), nil
	case "list-windows":
		sess := strings.TrimPrefix(args[2], "=")
		var lines []string
		for _, w := range r.sessions[sess] {
			lines = append(lines, "@"+w+" "+w)
		}
		return strings.Join(lines, "\n"), nil
	case "kill-window":
		r.killed = append(r.killed, args[2])
		sess, window, _ := strings.Cut(args[2], ":")
		var kept []string
		for _, w := range r.sessions[sess] {
			if w != window {
				kept = append(kept, w)
			}
		}
		r.sessions[sess] = kept
		return "", nil
	}
	return "", fmt.Errorf("unhandled tmux command %q", args[0])
}

func TestCleanerRemovesOnlyClosedIssueWindows(t *testing.T) {
	runner := &windowRunner{sessions: map[string][]string{
		"soba-douhashi-soba": {"issue-3", "issue-5", "issue-5-backup", "shell"},
		"unrelated":          {"issue-3"},
	}}
	manager := session.NewManager(tmux.NewClientWithRunner(runner), t.TempDir(), 3)

	forge := newFakeForge(map[int][]string{3: {LabelMerged}, 5: {LabelDoing}})
	forge.closed[3] = true

	cleaner := NewCleaner(forge, manager, 300*time.Second)
	if err := cleaner.Run(context.Background(), time.Now()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(runner.killed) != 1 || runner.killed[0] != "soba-douhashi-soba:issue-3" {
		t.Errorf("killed = %v, want only the closed issue window in the owned session", runner.killed)
	}
	// Open issue, non-issue windows, and foreign sessions stay.
	left := runner.sessions["soba-douhashi-soba"]
	if len(left) != 3 {
		t.Errorf("remaining windows = %v", left)
	}
	if len(runner.sessions["unrelated"]) != 1 {
		t.Errorf("cleaner touched a session outside its prefix")
	}
}

func TestCleanerDueGate(t *testing.T) {
	forge := newFakeForge(map[int][]string{})
	cleaner := NewCleaner(forge, nil, 300*time.Second)

	start := time.Unix(1_700_000_000, 0)
	if !cleaner.Due(start) {
		t.Error("fresh cleaner should be due")
	}

	runner := &windowRunner{sessions: map[string][]string{}}
	cleaner = NewCleaner(forge, session.NewManager(tmux.NewClientWithRunner(runner), t.TempDir(), 3), 300*time.Second)
	if err := cleaner.Run(context.Background(), start); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cleaner.Due(start.Add(299 * time.Second)) {
		t.Error("cleaner due again before the interval elapsed")
	}
	if !cleaner.Due(start.Add(300 * time.Second)) {
		t.Error("cleaner not due after the interval")
	}
}

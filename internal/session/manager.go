// Package session manages the tmux hierarchy the orchestrator works in:
// one session per repository, one window per issue, one pane per phase run.
package session

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/douhashi/soba/internal/lock"
	"github.com/douhashi/soba/internal/logging"
	"github.com/douhashi/soba/internal/tmux"
)

// SessionPrefix is shared by all orchestrator-owned sessions. The cleaner
// only ever touches sessions under this prefix.
const SessionPrefix = "soba-"

// DefaultMaxPanes caps live panes per issue window before LRU eviction.
const DefaultMaxPanes = 3

// windowRe matches issue windows exactly; "issue-12-backup" must not match.
var windowRe = regexp.MustCompile(`^issue-(\d+)$`)

// slugRe collapses the characters tmux session names cannot carry.
var slugRe = regexp.MustCompile(`[/._]`)

// Manager owns session, window, and pane lifecycle for one repository.
type Manager struct {
	tmux     *tmux.Client
	lockDir  string
	maxPanes int
	log      *slog.Logger
}

// NewManager creates a session manager. lockDir holds the per-window file
// locks that serialize pane creation.
func NewManager(client *tmux.Client, lockDir string, maxPanes int) *Manager {
	if maxPanes <= 0 {
		maxPanes = DefaultMaxPanes
	}
	return &Manager{
		tmux:     client,
		lockDir:  lockDir,
		maxPanes: maxPanes,
		log:      logging.WithComponent("session"),
	}
}

// SessionName derives the session name for a repository slug:
// "owner/repo" becomes "soba-owner-repo".
func SessionName(repository string) string {
	return SessionPrefix + slugRe.ReplaceAllString(repository, "-")
}

// WindowName returns the window name for an issue.
func WindowName(issueNumber int) string {
	return fmt.Sprintf("issue-%d", issueNumber)
}

// IssueNumberFromWindow parses a window name, returning false for anything
// that is not exactly an issue window.
func IssueNumberFromWindow(name string) (int, bool) {
	m := windowRe.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// FindOrCreateSession returns the repository's session name, creating the
// session when absent. Older releases suffixed the session with the daemon
// PID, so a prefix match on existing sessions is accepted before creating.
func (m *Manager) FindOrCreateSession(repository string) (string, error) {
	name := SessionName(repository)
	if m.tmux.HasSession(name) {
		return name, nil
	}

	sessions, err := m.tmux.ListSessions()
	if err != nil {
		return "", fmt.Errorf("failed to list sessions: %w", err)
	}
	for _, existing := range sessions {
		if strings.HasPrefix(existing, name+"-") {
			m.log.Info("reusing legacy session", "session", existing)
			return existing, nil
		}
	}

	if err := m.tmux.NewSession(name); err != nil {
		return "", fmt.Errorf("failed to create session %s: %w", name, err)
	}
	m.log.Info("created session", "session", name)
	return name, nil
}

// FindOrCreateIssueWindow returns the target (session:window) for an issue,
// creating the window when absent. Matching is exact on the window name.
func (m *Manager) FindOrCreateIssueWindow(session string, issueNumber int) (string, error) {
	name := WindowName(issueNumber)
	windows, err := m.tmux.ListWindows(session)
	if err != nil {
		return "", fmt.Errorf("failed to list windows in %s: %w", session, err)
	}
	for _, w := range windows {
		if w.Name == name {
			return session + ":" + name, nil
		}
	}

	if _, err := m.tmux.NewWindow(session, name); err != nil {
		return "", fmt.Errorf("failed to create window %s: %w", name, err)
	}
	m.log.Info("created issue window", "session", session, "window", name)
	return session + ":" + name, nil
}

// FindIssueWindow reports whether the issue window exists, without creating it.
func (m *Manager) FindIssueWindow(session string, issueNumber int) (string, bool, error) {
	name := WindowName(issueNumber)
	windows, err := m.tmux.ListWindows(session)
	if err != nil {
		return "", false, err
	}
	for _, w := range windows {
		if w.Name == name {
			return session + ":" + name, true, nil
		}
	}
	return "", false, nil
}

// ListIssueWindows returns the issue numbers that have windows in a session.
func (m *Manager) ListIssueWindows(session string) (map[int]string, error) {
	windows, err := m.tmux.ListWindows(session)
	if err != nil {
		return nil, err
	}
	issues := make(map[int]string)
	for _, w := range windows {
		if n, ok := IssueNumberFromWindow(w.Name); ok {
			issues[n] = session + ":" + w.Name
		}
	}
	return issues, nil
}

// CreatePhasePane adds a pane to the issue window for a new phase run,
// evicting the oldest panes while the window is at capacity. Pane creation
// for a window is serialized through a file lock so concurrent phase starts
// cannot blow past the cap.
func (m *Manager) CreatePhasePane(target string) (string, error) {
	var paneID string
	err := lock.WithLock(m.lockDir, "pane-"+target, lock.Options{}, func() error {
		panes, err := m.tmux.ListPanes(target)
		if err != nil {
			return fmt.Errorf("failed to list panes in %s: %w", target, err)
		}

		for len(panes) >= m.maxPanes {
			oldest := 0
			for i, p := range panes {
				if p.StartTime < panes[oldest].StartTime {
					oldest = i
				}
			}
			m.log.Debug("evicting oldest pane", "window", target, "pane", panes[oldest].ID)
			if err := m.tmux.KillPane(panes[oldest].ID); err != nil {
				return fmt.Errorf("failed to evict pane %s: %w", panes[oldest].ID, err)
			}
			panes = append(panes[:oldest], panes[oldest+1:]...)
		}

		paneID, err = m.tmux.SplitWindow(target)
		if err != nil {
			return fmt.Errorf("failed to split window %s: %w", target, err)
		}
		if err := m.tmux.SelectLayout(target); err != nil {
			m.log.Warn("failed to apply layout", "window", target, "error", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return paneID, nil
}

// SendKeys types a command into a pane and presses Enter.
func (m *Manager) SendKeys(pane, command string) error {
	return m.tmux.SendKeys(pane, command)
}

// KillIssueWindow destroys the window for an issue if it exists.
func (m *Manager) KillIssueWindow(session string, issueNumber int) error {
	target, ok, err := m.FindIssueWindow(session, issueNumber)
	if err != nil || !ok {
		return err
	}
	m.log.Info("removing issue window", "window", target)
	return m.tmux.KillWindow(target)
}

// Sessions returns all orchestrator-owned session names on the server.
func (m *Manager) Sessions() ([]string, error) {
	all, err := m.tmux.ListSessions()
	if err != nil {
		return nil, err
	}
	var owned []string
	for _, s := range all {
		if strings.HasPrefix(s, SessionPrefix) {
			owned = append(owned, s)
		}
	}
	return owned, nil
}

// Attach attaches the caller's terminal to the repository session.
func (m *Manager) Attach(session string) error {
	return m.tmux.Attach(session)
}

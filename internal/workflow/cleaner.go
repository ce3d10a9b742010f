package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/douhashi/soba/internal/logging"
	"github.com/douhashi/soba/internal/session"
)

// Cleaner removes tmux windows whose issues have been closed. It keeps the
// multiplexer tree from accumulating dead windows across long daemon runs.
type Cleaner struct {
	forge    Forge
	sessions *session.Manager
	interval time.Duration
	lastRun  time.Time
	log      *slog.Logger
}

// NewCleaner creates the window cleaner.
func NewCleaner(forge Forge, sessions *session.Manager, interval time.Duration) *Cleaner {
	return &Cleaner{
		forge:    forge,
		sessions: sessions,
		interval: interval,
		log:      logging.WithComponent("cleaner"),
	}
}

// Due reports whether a sweep should run at the given time.
func (c *Cleaner) Due(now time.Time) bool {
	return now.Sub(c.lastRun) >= c.interval
}

// Run removes windows for closed issues across all orchestrator-owned
// sessions. Windows whose issue is still open, and windows whose name is
// not an issue window, are never touched.
func (c *Cleaner) Run(ctx context.Context, now time.Time) error {
	c.lastRun = now

	sessions, err := c.sessions.Sessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return nil
	}

	closedIssues, err := c.forge.ListClosedIssues(ctx)
	if err != nil {
		return err
	}
	closed := make(map[int]bool, len(closedIssues))
	for _, issue := range closedIssues {
		closed[issue.Number] = true
	}

	for _, sess := range sessions {
		windows, err := c.sessions.ListIssueWindows(sess)
		if err != nil {
			c.log.Warn("failed to list windows", "session", sess, "error", err)
			continue
		}
		for issueNumber := range windows {
			if !closed[issueNumber] {
				continue
			}
			if err := c.sessions.KillIssueWindow(sess, issueNumber); err != nil {
				c.log.Warn("failed to remove window", "session", sess, "issue", issueNumber, "error", err)
				continue
			}
			c.log.Info("removed window for closed issue", "session", sess, "issue", issueNumber)
		}
	}
	return nil
}

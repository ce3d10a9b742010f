package workflow

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/douhashi/soba/internal/config"
	"github.com/douhashi/soba/internal/daemon"
	"github.com/douhashi/soba/internal/github"
	"github.com/douhashi/soba/internal/logging"
)

// Clock abstracts time so tests drive ticks with a virtual clock.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until the context is done.
	Sleep(ctx context.Context, d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Loop is the polling control loop. One tick is a linear sequence: fetch,
// queue, merge, clean, process, status. The forge's labels are the source
// of truth; any transient failure is repaired on the next tick.
type Loop struct {
	cfg       *config.Config
	forge     Forge
	queueing  *Queueing
	processor *Processor
	merger    *AutoMerger
	cleaner   *Cleaner
	notifier  Notifier
	stateDir  string
	mode      string

	clock   Clock
	running atomic.Bool
	status  daemon.StatusRecord
	log     *slog.Logger
}

// NewLoop wires the control loop. merger, cleaner, and notifier may be nil
// when the corresponding feature is disabled.
func NewLoop(cfg *config.Config, forge Forge, queueing *Queueing, processor *Processor, merger *AutoMerger, cleaner *Cleaner, notifier Notifier, stateDir, mode string) *Loop {
	return &Loop{
		cfg:       cfg,
		forge:     forge,
		queueing:  queueing,
		processor: processor,
		merger:    merger,
		cleaner:   cleaner,
		notifier:  notifier,
		stateDir:  stateDir,
		mode:      mode,
		clock:     realClock{},
		log:       logging.WithComponent("loop"),
	}
}

// SetClock replaces the wall clock (for tests).
func (l *Loop) SetClock(c Clock) { l.clock = c }

// Stop requests a graceful shutdown; the in-flight tick finishes first.
func (l *Loop) Stop() { l.running.Store(false) }

// Run polls until stopped by signal, sentinel file, or context.
func (l *Loop) Run(ctx context.Context) error {
	l.running.Store(true)
	l.status = daemon.StatusRecord{
		PID:        os.Getpid(),
		Repository: l.forge.Repository(),
		Running:    true,
		Mode:       l.mode,
		StartedAt:  l.clock.Now(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig := <-sigCh
		l.log.Info("received signal, stopping after current tick", "signal", sig.String())
		l.running.Store(false)
	}()

	interval := time.Duration(l.cfg.Workflow.Interval) * time.Second
	l.log.Info("control loop started",
		"repository", l.forge.Repository(), "interval", interval, "mode", l.mode)

	for l.running.Load() && ctx.Err() == nil {
		if daemon.StopRequested(l.stateDir) {
			l.log.Info("stop sentinel found, shutting down")
			break
		}

		if err := l.Tick(ctx); err != nil {
			l.handleTickError(ctx, err)
		}

		l.status.LastTickAt = l.clock.Now()
		l.status.TicksCompleted++
		l.writeStatus()

		l.clock.Sleep(ctx, interval)
	}

	l.status.Running = false
	l.writeStatus()
	l.log.Info("control loop stopped")
	return ctx.Err()
}

// Tick runs one iteration of the loop.
func (l *Loop) Tick(ctx context.Context) error {
	issues, err := l.forge.ListOpenIssues(ctx)
	if err != nil {
		return err
	}

	if CountWithLabel(issues, LabelTodo) > 0 && !IsBlocked(issues) {
		promoted, err := l.queueing.QueueNextIssue(ctx, issues)
		if err != nil {
			return err
		}
		if promoted != nil {
			issues, err = l.forge.ListOpenIssues(ctx)
			if err != nil {
				return err
			}
		}
	}

	processable := processableIssues(issues)

	if l.merger != nil && l.cfg.Workflow.AutoMerge {
		report, err := l.merger.Run(ctx)
		if err != nil {
			l.logKindError("auto-merge sweep failed", err)
		} else if !report.Empty() {
			l.status.IssuesMerged += len(report.Merged)
			l.log.Info("auto-merge report", "merged", report.Merged, "failed", len(report.Failed))
		}
	}

	if l.cleaner != nil && l.cfg.Workflow.CleanupEnabled && l.cleaner.Due(l.clock.Now()) {
		if err := l.cleaner.Run(ctx, l.clock.Now()); err != nil {
			l.logKindError("window cleanup failed", err)
		}
	}

	if len(processable) > 0 {
		if active := CountActive(issues); active > 1 {
			l.log.Error("multiple active issues detected, skipping tick", "count", active)
			if l.notifier != nil {
				_ = l.notifier.Anomaly(ctx, "multiple active issues detected")
			}
			return nil
		}
		result, err := l.processor.Process(ctx, processable[0])
		if err != nil {
			return err
		}
		l.recordResult(result)
	}

	return nil
}

// processableIssues filters to issues the processor can act on this tick:
// those with a determinable phase other than the queueing edge, in
// ascending issue order.
func processableIssues(issues []*github.Issue) []*github.Issue {
	var out []*github.Issue
	for _, issue := range issues {
		phase := DeterminePhaseFor(issue)
		if phase == nil || phase.Name == PhasePlan.Name {
			continue
		}
		out = append(out, issue)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func (l *Loop) recordResult(result *ProcessResult) {
	if result.Skipped {
		l.log.Info("issue skipped", "issue", result.IssueNumber, "reason", result.Reason)
		return
	}
	l.status.CurrentIssue = result.IssueNumber
	l.status.CurrentPhase = result.Phase
	l.status.LastError = ""
	if result.Exec != nil && result.Exec.Mode != "" {
		l.status.Mode = result.Exec.Mode
	}
}

// handleTickError applies the per-kind policy: rate limits sleep until the
// quota resets, everything else logs and lets the next tick retry.
func (l *Loop) handleTickError(ctx context.Context, err error) {
	l.status.LastError = err.Error()

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		wait := rateErr.Reset.Sub(l.clock.Now()) + time.Second
		if wait < time.Second {
			wait = time.Second
		}
		l.log.Warn("rate limited, sleeping until reset", "reset", rateErr.Reset, "wait", wait)
		l.clock.Sleep(ctx, wait)
		return
	}

	l.logKindError("tick failed", err)
}

func (l *Loop) logKindError(msg string, err error) {
	kind := Classify(err)
	if kind == KindAuth {
		l.log.Error(msg, "kind", kind.String(), "error", err,
			"hint", "check forge credentials (gh auth status or SOBA_GITHUB_TOKEN)")
		return
	}
	l.log.Warn(msg, "kind", kind.String(), "error", err)
}

func (l *Loop) writeStatus() {
	if err := daemon.WriteStatus(daemon.StatusPath(l.stateDir), &l.status); err != nil {
		l.log.Warn("failed to write status record", "error", err)
	}
}

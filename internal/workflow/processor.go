package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/douhashi/soba/internal/config"
	"github.com/douhashi/soba/internal/github"
	"github.com/douhashi/soba/internal/lock"
	"github.com/douhashi/soba/internal/logging"
)

// issueLockTimeout bounds how long a tick waits for the per-issue lock.
const issueLockTimeout = 5 * time.Second

// ProcessResult is the outcome of processing one issue in a tick.
type ProcessResult struct {
	IssueNumber int
	Phase       string
	// Skipped means nothing was written: in-progress, unknown labels, or a
	// lost label race.
	Skipped bool
	Reason  string
	// WorkflowSkipped means the label CAS happened but no command is
	// configured for the phase.
	WorkflowSkipped bool
	Exec            *ExecResult
}

// Processor drives one issue through its next phase: CAS the label edge,
// notify, launch the external command, record the transition.
type Processor struct {
	cfg      *config.Config
	forge    Forge
	executor *Executor
	notifier Notifier
	history  TransitionRecorder
	lockDir  string
	log      *slog.Logger
}

// NewProcessor creates an issue processor. notifier and history may be nil.
func NewProcessor(cfg *config.Config, forge Forge, executor *Executor, notifier Notifier, history TransitionRecorder, lockDir string) *Processor {
	return &Processor{
		cfg:      cfg,
		forge:    forge,
		executor: executor,
		notifier: notifier,
		history:  history,
		lockDir:  lockDir,
		log:      logging.WithComponent("processor"),
	}
}

// Process advances one issue. Re-entry within the daemon is serialized by a
// per-issue file lock; cross-daemon races are handled by the label CAS.
func (p *Processor) Process(ctx context.Context, issue *github.Issue) (*ProcessResult, error) {
	phase := DeterminePhaseFor(issue)
	if phase == nil {
		return &ProcessResult{
			IssueNumber: issue.Number,
			Skipped:     true,
			Reason:      "in-progress or unknown",
		}, nil
	}

	result := &ProcessResult{IssueNumber: issue.Number, Phase: phase.Name}
	key := fmt.Sprintf("%s-issue-%d", p.forge.Repository(), issue.Number)

	err := lock.WithLock(p.lockDir, key, lock.Options{Timeout: issueLockTimeout}, func() error {
		return p.processLocked(ctx, issue, phase, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Processor) processLocked(ctx context.Context, issue *github.Issue, phase *Phase, result *ProcessResult) error {
	log := logging.WithIssue("processor", issue.Number)

	ok, err := p.forge.UpdateLabelsWithCheck(ctx, issue.Number, phase.From, phase.To)
	if err != nil {
		return err
	}
	if !ok {
		result.Skipped = true
		result.Reason = "label state changed"
		log.Info("skipping issue, label state changed", "phase", phase.Name)
		return nil
	}

	if phase.CommandKey == "" || p.cfg.PhaseCommandFor(phase.CommandKey) == nil {
		result.WorkflowSkipped = true
		log.Info("transition applied without command", "phase", phase.Name, "from", phase.From, "to", phase.To)
		p.record(ctx, issue.Number, phase, "")
		return nil
	}

	if p.notifier != nil {
		if nerr := p.notifier.PhaseStarted(ctx, issue.Number, phase.Name); nerr != nil {
			log.Warn("phase-start notification failed", "error", nerr)
		}
	}

	exec, err := p.executor.Execute(ctx, phase, issue.Number)
	if err != nil {
		return fmt.Errorf("phase %s failed for issue #%d: %w", phase.Name, issue.Number, err)
	}
	result.Exec = exec
	p.record(ctx, issue.Number, phase, exec.ExecutionID)

	log.Info("phase started", "phase", phase.Name, "from", phase.From, "to", phase.To, "mode", exec.Mode)
	return nil
}

// record appends to the transition history. History is observability only,
// so failures just log.
func (p *Processor) record(ctx context.Context, issueNumber int, phase *Phase, executionID string) {
	if p.history == nil {
		return
	}
	if err := p.history.RecordTransition(ctx, issueNumber, phase.Name, phase.From, phase.To, executionID); err != nil {
		p.log.Warn("failed to record transition", "issue", issueNumber, "error", err)
	}
}

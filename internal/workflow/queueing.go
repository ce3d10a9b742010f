package workflow

import (
	"context"
	"log/slog"

	"github.com/douhashi/soba/internal/github"
	"github.com/douhashi/soba/internal/logging"
)

// Queueing promotes one todo issue into the workflow slot per tick.
type Queueing struct {
	forge Forge
	log   *slog.Logger
}

// NewQueueing creates the queueing service.
func NewQueueing(forge Forge) *Queueing {
	return &Queueing{
		forge: forge,
		log:   logging.WithComponent("queueing"),
	}
}

// QueueNextIssue selects the lowest-numbered todo issue and CASes it
// todo→queued. Returns nil when the slot is occupied, when no candidate
// exists, or when the CAS loses a race. The queued→planning step happens on
// a later tick so a crash here leaves a visible marker instead of a stuck
// half-transition.
func (q *Queueing) QueueNextIssue(ctx context.Context, issues []*github.Issue) (*github.Issue, error) {
	if IsBlocked(issues) {
		return nil, nil
	}

	var candidate *github.Issue
	for _, issue := range issues {
		if !issue.HasLabel(LabelTodo) {
			continue
		}
		if candidate == nil || issue.Number < candidate.Number {
			candidate = issue
		}
	}
	if candidate == nil {
		return nil, nil
	}

	ok, err := q.forge.UpdateLabelsWithCheck(ctx, candidate.Number, LabelTodo, LabelQueued)
	if err != nil {
		return nil, err
	}
	if !ok {
		q.log.Warn("queueing lost label race", "issue", candidate.Number)
		return nil, nil
	}

	q.log.Info("queued issue", "issue", candidate.Number, "title", candidate.Title)
	return candidate, nil
}

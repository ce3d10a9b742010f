package workflow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/douhashi/soba/internal/github"
	"github.com/douhashi/soba/internal/logging"
)

// MergeFailure is one PR the auto-merger could not merge this tick.
type MergeFailure struct {
	Number int    `json:"number"`
	Reason string `json:"reason"`
}

// MergeReport aggregates one auto-merge sweep.
type MergeReport struct {
	Merged []int          `json:"merged"`
	Failed []MergeFailure `json:"failed"`
}

// Empty reports whether the sweep did nothing worth reporting.
func (r *MergeReport) Empty() bool {
	return len(r.Merged) == 0 && len(r.Failed) == 0
}

// AutoMerger squash-merges approved PRs and closes their linked issues.
type AutoMerger struct {
	forge    Forge
	notifier Notifier
	log      *slog.Logger
}

// NewAutoMerger creates the auto-merger. notifier may be nil.
func NewAutoMerger(forge Forge, notifier Notifier) *AutoMerger {
	return &AutoMerger{
		forge:    forge,
		notifier: notifier,
		log:      logging.WithComponent("automerge"),
	}
}

// Run sweeps open PRs labeled for merge. Unmergeable PRs are skipped with a
// reason rather than failing the tick.
func (m *AutoMerger) Run(ctx context.Context) (*MergeReport, error) {
	report := &MergeReport{}

	prs, err := m.forge.SearchPRsWithLabel(ctx, LabelLGTM)
	if err != nil {
		return nil, err
	}

	for _, candidate := range prs {
		pr, err := m.forge.GetPullRequest(ctx, candidate.Number)
		if err != nil {
			report.Failed = append(report.Failed, MergeFailure{candidate.Number, err.Error()})
			continue
		}
		if reason, ok := unmergeableReason(pr); ok {
			m.log.Info("skipping unmergeable PR", "pr", pr.Number, "reason", reason)
			report.Failed = append(report.Failed, MergeFailure{pr.Number, reason})
			continue
		}

		if _, err := m.forge.MergePullRequest(ctx, pr.Number, github.MergeMethodSquash); err != nil {
			var conflict *github.MergeConflictError
			if errors.As(err, &conflict) {
				report.Failed = append(report.Failed, MergeFailure{pr.Number, "merge conflict"})
				continue
			}
			report.Failed = append(report.Failed, MergeFailure{pr.Number, err.Error()})
			continue
		}

		report.Merged = append(report.Merged, pr.Number)
		m.log.Info("merged PR", "pr", pr.Number, "title", pr.Title)

		issueNumber, found := github.LinkedIssue(pr.Body)
		if found {
			if err := m.forge.CloseIssueWithLabel(ctx, issueNumber, LabelMerged); err != nil {
				m.log.Warn("merged PR but failed to close linked issue",
					"pr", pr.Number, "issue", issueNumber, "error", err)
			} else {
				m.log.Info("closed linked issue", "pr", pr.Number, "issue", issueNumber)
			}
		}

		if m.notifier != nil {
			if nerr := m.notifier.MergeCompleted(ctx, pr.Number, issueNumber); nerr != nil {
				m.log.Warn("merge notification failed", "pr", pr.Number, "error", nerr)
			}
		}
	}

	return report, nil
}

// unmergeableReason decides whether a PR should be skipped this sweep.
// A nil mergeable field means the forge is still computing; skip and let a
// later tick retry.
func unmergeableReason(pr *github.PullRequest) (string, bool) {
	if pr.Merged {
		return "already merged", true
	}
	if pr.Mergeable == nil {
		return "mergeability not yet computed", true
	}
	if !*pr.Mergeable {
		return "not mergeable", true
	}
	switch pr.MergeableState {
	case "dirty":
		return "merge conflicts", true
	case "blocked":
		return "blocked by branch protection", true
	}
	return "", false
}

package workflow

import (
	"context"

	"github.com/douhashi/soba/internal/github"
)

// Forge is the slice of the forge client the workflow needs. *github.Client
// satisfies it; tests substitute a fake.
type Forge interface {
	Repository() string
	ListOpenIssues(ctx context.Context) ([]*github.Issue, error)
	ListClosedIssues(ctx context.Context) ([]*github.Issue, error)
	GetIssue(ctx context.Context, number int) (*github.Issue, error)
	UpdateLabelsWithCheck(ctx context.Context, number int, from, to string) (bool, error)
	SearchPRsWithLabel(ctx context.Context, label string) ([]*github.PullRequest, error)
	GetPullRequest(ctx context.Context, number int) (*github.PullRequest, error)
	MergePullRequest(ctx context.Context, number int, method string) (*github.MergeResult, error)
	CloseIssueWithLabel(ctx context.Context, number int, label string) error
}

// Notifier delivers best-effort operator notifications. Failures are logged
// and never interrupt a tick.
type Notifier interface {
	PhaseStarted(ctx context.Context, issueNumber int, phase string) error
	MergeCompleted(ctx context.Context, prNumber, issueNumber int) error
	Anomaly(ctx context.Context, message string) error
}

// TransitionRecorder appends phase transitions to the local history store.
type TransitionRecorder interface {
	RecordTransition(ctx context.Context, issueNumber int, phase, from, to, executionID string) error
}

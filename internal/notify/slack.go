// Package notify delivers best-effort operator notifications to Slack via
// an incoming webhook. Delivery failures never affect the workflow.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"github.com/douhashi/soba/internal/logging"
)

// Slack posts workflow events to an incoming webhook.
type Slack struct {
	webhookURL string
	log        *slog.Logger
}

// NewSlack creates a Slack notifier for the given webhook URL.
func NewSlack(webhookURL string) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		log:        logging.WithComponent("notify"),
	}
}

func (s *Slack) post(ctx context.Context, text string) error {
	err := slack.PostWebhookContext(ctx, s.webhookURL, &slack.WebhookMessage{Text: text})
	if err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}

// PhaseStarted announces that a phase command was launched for an issue.
func (s *Slack) PhaseStarted(ctx context.Context, issueNumber int, phase string) error {
	return s.post(ctx, fmt.Sprintf(":rocket: Started *%s* phase for issue #%d", phase, issueNumber))
}

// MergeCompleted announces a merged PR; issueNumber is 0 when the PR body
// linked no issue.
func (s *Slack) MergeCompleted(ctx context.Context, prNumber, issueNumber int) error {
	text := fmt.Sprintf(":tada: Merged PR #%d", prNumber)
	if issueNumber > 0 {
		text += fmt.Sprintf(", closed issue #%d", issueNumber)
	}
	return s.post(ctx, text)
}

// Anomaly surfaces a workflow-invariant violation to operators.
func (s *Slack) Anomaly(ctx context.Context, message string) error {
	return s.post(ctx, ":warning: "+message)
}

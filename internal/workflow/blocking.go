package workflow

import "github.com/douhashi/soba/internal/github"

// IsBlocked reports whether any issue occupies the single workflow slot.
// Outbox labels count: an issue awaiting review pickup still blocks queueing.
func IsBlocked(issues []*github.Issue) bool {
	for _, issue := range issues {
		for _, label := range blockingLabels {
			if issue.HasLabel(label) {
				return true
			}
		}
	}
	return false
}

// CountActive counts issues carrying an active label. The control loop
// treats a count above one as an anomaly and skips processing for the tick.
func CountActive(issues []*github.Issue) int {
	count := 0
	for _, issue := range issues {
		for _, label := range activeLabels {
			if issue.HasLabel(label) {
				count++
				break
			}
		}
	}
	return count
}

// CountWithLabel counts issues carrying one specific label.
func CountWithLabel(issues []*github.Issue, label string) int {
	count := 0
	for _, issue := range issues {
		if issue.HasLabel(label) {
			count++
		}
	}
	return count
}

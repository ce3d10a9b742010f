package github

import (
	"context"
	"fmt"
	"net/http"
	"slices"
)

// UpdateLabelsWithCheck is the compare-and-swap primitive for label
// transitions. It reads the issue's current labels; if `from` is absent or
// `to` already present it returns false without writing. Otherwise it writes
// (current − {from}) ∪ {to} and returns true.
//
// The forge has no server-side compare-and-swap, so two racing daemons can
// both pass the check and both write. That is tolerated: the writes are
// idempotent to the same target set, and the control loop's multi-active
// anomaly detector catches anything that slips through.
func (c *Client) UpdateLabelsWithCheck(ctx context.Context, number int, from, to string) (bool, error) {
	issue, err := WithRetry(ctx, func() (*Issue, error) {
		return c.GetIssue(ctx, number)
	}, DefaultRetryOptions())
	if err != nil {
		return false, fmt.Errorf("failed to read labels for issue #%d: %w", number, err)
	}

	current := issue.LabelNames()
	if !slices.Contains(current, from) || slices.Contains(current, to) {
		return false, nil
	}

	next := make([]string, 0, len(current))
	for _, name := range current {
		if name != from {
			next = append(next, name)
		}
	}
	next = append(next, to)

	err = WithRetryVoid(ctx, func() error {
		path := fmt.Sprintf("/repos/%s/%s/issues/%d/labels", c.owner, c.repo, number)
		body := map[string][]string{"labels": next}
		return c.doRequest(ctx, http.MethodPut, path, body, nil)
	}, DefaultRetryOptions())
	if err != nil {
		return false, fmt.Errorf("failed to write labels for issue #%d: %w", number, err)
	}
	return true, nil
}

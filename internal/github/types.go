package github

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Issue represents a GitHub issue.
type Issue struct {
	ID        int64     `json:"id"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	State     string    `json:"state"`
	Labels    []Label   `json:"labels"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// PullRequest is non-nil when the item is actually a PR. The issues
	// list and search endpoints return PRs inline; callers that want
	// issues only must filter on this.
	PullRequest *struct {
		URL string `json:"url"`
	} `json:"pull_request,omitempty"`
}

// Label represents a GitHub label. The API is inconsistent about label
// shape: most endpoints return objects, but some legacy payloads carry bare
// strings. UnmarshalJSON normalizes both so downstream code only ever sees
// the record form.
type Label struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// UnmarshalJSON accepts either a bare string or a label object.
func (l *Label) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*l = Label{Name: name}
		return nil
	}

	type labelObject Label // avoid recursing into this method
	var obj labelObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*l = Label(obj)
	return nil
}

// LabelNames returns the issue's label names in insertion order.
func (i *Issue) LabelNames() []string {
	names := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		names = append(names, l.Name)
	}
	return names
}

// HasLabel checks if an issue has a specific label (case-insensitive).
func (i *Issue) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if strings.EqualFold(l.Name, name) {
			return true
		}
	}
	return false
}

// User represents a GitHub user.
type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// PullRequest represents a GitHub pull request.
type PullRequest struct {
	ID             int64   `json:"id"`
	Number         int     `json:"number"`
	Title          string  `json:"title"`
	Body           string  `json:"body"`
	State          string  `json:"state"`
	Merged         bool    `json:"merged"`
	Mergeable      *bool   `json:"mergeable"`
	MergeableState string  `json:"mergeable_state"`
	Labels         []Label `json:"labels"`
	HTMLURL        string  `json:"html_url"`
	User           User    `json:"user"`
	MergedAt       string  `json:"merged_at"`
}

// HasLabel checks if a PR has a specific label (case-insensitive).
func (pr *PullRequest) HasLabel(name string) bool {
	for _, l := range pr.Labels {
		if strings.EqualFold(l.Name, name) {
			return true
		}
	}
	return false
}

// MergeResult is the forge's response to a merge request.
type MergeResult struct {
	SHA     string `json:"sha"`
	Merged  bool   `json:"merged"`
	Message string `json:"message"`
}

// APIError is a non-2xx response from the GitHub API. The rate-limit
// fields are populated from response headers when present.
type APIError struct {
	StatusCode         int
	Message            string
	RetryAfter         time.Duration
	RateLimitRemaining int
	RateLimitReset     time.Time
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// RateLimited reports whether this response indicates quota exhaustion.
func (e *APIError) RateLimited() bool {
	if e.StatusCode == 429 {
		return true
	}
	return e.StatusCode == 403 && e.RateLimitRemaining == 0 && !e.RateLimitReset.IsZero()
}

// RateLimitError is surfaced after retries when the API quota is exhausted.
// The caller is expected to sleep until Reset before resuming.
type RateLimitError struct {
	Reset time.Time
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub rate limit exhausted, resets at %s", e.Reset.Format(time.RFC3339))
}

// MergeConflictError is returned when the forge refuses a merge because the
// PR is not in a mergeable state.
type MergeConflictError struct {
	Number  int
	Message string
}

// Error implements the error interface.
func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("PR #%d is not mergeable: %s", e.Number, e.Message)
}

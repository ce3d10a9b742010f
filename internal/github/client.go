// Package github is the forge client: issue, label, and pull-request
// operations against the GitHub REST API, with retry middleware and the
// label compare-and-swap primitive the workflow loop depends on.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const githubAPIURL = "https://api.github.com"

// MergeMethodSquash is the only merge method the orchestrator uses.
const MergeMethodSquash = "squash"

// Client is a GitHub API client scoped to a single repository.
type Client struct {
	token      string
	owner      string
	repo       string
	httpClient *http.Client
	baseURL    string // for testing; defaults to githubAPIURL
}

// NewClient creates a new GitHub client for owner/repo.
func NewClient(token, owner, repo string) *Client {
	return &Client{
		token:   token,
		owner:   owner,
		repo:    repo,
		baseURL: githubAPIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithBaseURL creates a client against a custom base URL (for testing).
func NewClientWithBaseURL(token, owner, repo, baseURL string) *Client {
	c := NewClient(token, owner, repo)
	c.baseURL = baseURL
	return c
}

// Repository returns the owner/name slug this client is bound to.
func (c *Client) Repository() string {
	return c.owner + "/" + c.repo
}

// doRequest performs an HTTP request against the GitHub API. Non-2xx
// responses come back as *APIError with rate-limit headers captured.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiErrorFromResponse(resp, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// apiErrorFromResponse builds an APIError, capturing rate-limit headers.
func apiErrorFromResponse(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode:         resp.StatusCode,
		Message:            string(body),
		RateLimitRemaining: -1,
	}
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	if v := resp.Header.Get("X-RateLimit-Remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			apiErr.RateLimitRemaining = n
		}
	}
	if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			apiErr.RateLimitReset = time.Unix(epoch, 0)
		}
	}
	return apiErr
}

// listIssues pages through the issues endpoint for the given state,
// filtering out pull requests (the API returns them inline).
func (c *Client) listIssues(ctx context.Context, state string) ([]*Issue, error) {
	var all []*Issue
	for page := 1; ; page++ {
		path := fmt.Sprintf("/repos/%s/%s/issues?state=%s&per_page=100&page=%d",
			c.owner, c.repo, state, page)

		issues, err := WithRetry(ctx, func() ([]*Issue, error) {
			var batch []*Issue
			if err := c.doRequest(ctx, http.MethodGet, path, nil, &batch); err != nil {
				return nil, err
			}
			return batch, nil
		}, DefaultRetryOptions())
		if err != nil {
			return nil, err
		}

		for _, issue := range issues {
			if issue.PullRequest != nil {
				continue
			}
			all = append(all, issue)
		}
		if len(issues) < 100 {
			return all, nil
		}
	}
}

// ListOpenIssues returns all open issues with their full label lists.
func (c *Client) ListOpenIssues(ctx context.Context) ([]*Issue, error) {
	return c.listIssues(ctx, "open")
}

// ListClosedIssues returns all closed issues. Used by the window cleaner.
func (c *Client) ListClosedIssues(ctx context.Context) ([]*Issue, error) {
	return c.listIssues(ctx, "closed")
}

// GetIssue fetches a single issue by number.
func (c *Client) GetIssue(ctx context.Context, number int) (*Issue, error) {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d", c.owner, c.repo, number)
	var issue Issue
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// ListLabels returns the repository's label definitions.
func (c *Client) ListLabels(ctx context.Context) ([]*Label, error) {
	path := fmt.Sprintf("/repos/%s/%s/labels?per_page=100", c.owner, c.repo)
	var labels []*Label
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}

// CreateLabel creates a repository label. "Already exists" (422) is treated
// as success and never retried; everything else surfaces.
func (c *Client) CreateLabel(ctx context.Context, name, color, description string) error {
	path := fmt.Sprintf("/repos/%s/%s/labels", c.owner, c.repo)
	body := map[string]string{
		"name":        name,
		"color":       color,
		"description": description,
	}
	err := c.doRequest(ctx, http.MethodPost, path, body, nil)
	if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == 422 {
		return nil
	}
	return err
}

// UpdateLabels unconditionally replaces the full label set of an issue.
// Only bootstrap and one-shot developer paths use this; the control loop
// goes through UpdateLabelsWithCheck.
func (c *Client) UpdateLabels(ctx context.Context, number int, labels []string) error {
	return WithRetryVoid(ctx, func() error {
		path := fmt.Sprintf("/repos/%s/%s/issues/%d/labels", c.owner, c.repo, number)
		body := map[string][]string{"labels": labels}
		return c.doRequest(ctx, http.MethodPut, path, body, nil)
	}, DefaultRetryOptions())
}

// AddLabels adds labels to an issue, preserving existing ones.
func (c *Client) AddLabels(ctx context.Context, number int, labels []string) error {
	return WithRetryVoid(ctx, func() error {
		path := fmt.Sprintf("/repos/%s/%s/issues/%d/labels", c.owner, c.repo, number)
		body := map[string][]string{"labels": labels}
		return c.doRequest(ctx, http.MethodPost, path, body, nil)
	}, DefaultRetryOptions())
}

// SearchPRsWithLabel returns open PRs carrying the given label, using the
// search API for a server-side filter.
func (c *Client) SearchPRsWithLabel(ctx context.Context, label string) ([]*PullRequest, error) {
	// Labels with colons must be quoted in the search syntax.
	q := fmt.Sprintf("repo:%s/%s is:pr is:open label:%q", c.owner, c.repo, label)
	path := "/search/issues?per_page=100&q=" + url.QueryEscape(q)

	return WithRetry(ctx, func() ([]*PullRequest, error) {
		var result struct {
			Items []*PullRequest `json:"items"`
		}
		if err := c.doRequest(ctx, http.MethodGet, path, nil, &result); err != nil {
			return nil, err
		}
		return result.Items, nil
	}, DefaultRetryOptions())
}

// GetPullRequest fetches a pull request by number, including the
// asynchronously computed mergeable fields.
func (c *Client) GetPullRequest(ctx context.Context, number int) (*PullRequest, error) {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", c.owner, c.repo, number)
	var pr PullRequest
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// MergePullRequest merges a PR. A 405/409 from the forge means the PR is not
// mergeable and comes back as *MergeConflictError.
func (c *Client) MergePullRequest(ctx context.Context, number int, method string) (*MergeResult, error) {
	if method == "" {
		method = MergeMethodSquash
	}
	result, err := WithRetry(ctx, func() (*MergeResult, error) {
		path := fmt.Sprintf("/repos/%s/%s/pulls/%d/merge", c.owner, c.repo, number)
		body := map[string]string{"merge_method": method}
		var res MergeResult
		if err := c.doRequest(ctx, http.MethodPut, path, body, &res); err != nil {
			return nil, err
		}
		return &res, nil
	}, DefaultRetryOptions())
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && (apiErr.StatusCode == 405 || apiErr.StatusCode == 409) {
			return nil, &MergeConflictError{Number: number, Message: apiErr.Message}
		}
		return nil, err
	}
	return result, nil
}

// CloseIssueWithLabel closes an issue and then tags it. The two calls are
// not atomic; if the daemon dies between them the operator resolves by hand.
func (c *Client) CloseIssueWithLabel(ctx context.Context, number int, label string) error {
	err := WithRetryVoid(ctx, func() error {
		path := fmt.Sprintf("/repos/%s/%s/issues/%d", c.owner, c.repo, number)
		body := map[string]string{"state": "closed"}
		return c.doRequest(ctx, http.MethodPatch, path, body, nil)
	}, DefaultRetryOptions())
	if err != nil {
		return fmt.Errorf("failed to close issue #%d: %w", number, err)
	}

	if err := c.AddLabels(ctx, number, []string{label}); err != nil {
		return fmt.Errorf("closed issue #%d but failed to add label %q: %w", number, label, err)
	}
	return nil
}

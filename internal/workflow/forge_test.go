package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/douhashi/soba/internal/github"
)

// fakeForge is an in-memory forge for workflow tests. Labels live in a map
// keyed by issue number; the CAS serializes through a mutex, which is the
// atomicity level the real forge cannot offer but the tests assume.
type fakeForge struct {
	mu     sync.Mutex
	repo   string
	labels map[int][]string
	titles map[int]string
	closed map[int]bool

	prs        []*github.PullRequest
	merged     []int
	closedWith map[int]string

	casCalls int
}

func newFakeForge(labels map[int][]string) *fakeForge {
	return &fakeForge{
		repo:       "douhashi/soba-test",
		labels:     labels,
		titles:     map[int]string{},
		closed:     map[int]bool{},
		closedWith: map[int]string{},
	}
}

func (f *fakeForge) Repository() string { return f.repo }

func (f *fakeForge) issue(number int) *github.Issue {
	names := f.labels[number]
	labels := make([]github.Label, len(names))
	for i, n := range names {
		labels[i] = github.Label{Name: n}
	}
	return &github.Issue{Number: number, Title: f.titles[number], Labels: labels}
}

func (f *fakeForge) ListOpenIssues(ctx context.Context) ([]*github.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var numbers []int
	for n := range f.labels {
		if !f.closed[n] {
			numbers = append(numbers, n)
		}
	}
	sort.Ints(numbers)
	issues := make([]*github.Issue, len(numbers))
	for i, n := range numbers {
		issues[i] = f.issue(n)
	}
	return issues, nil
}

func (f *fakeForge) ListClosedIssues(ctx context.Context) ([]*github.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var issues []*github.Issue
	for n := range f.closed {
		issues = append(issues, f.issue(n))
	}
	return issues, nil
}

func (f *fakeForge) GetIssue(ctx context.Context, number int) (*github.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.labels[number]; !ok {
		return nil, &github.APIError{StatusCode: 404, Message: "not found"}
	}
	return f.issue(number), nil
}

func (f *fakeForge) UpdateLabelsWithCheck(ctx context.Context, number int, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.casCalls++

	current := f.labels[number]
	hasFrom, hasTo := false, false
	for _, l := range current {
		if l == from {
			hasFrom = true
		}
		if l == to {
			hasTo = true
		}
	}
	if !hasFrom || hasTo {
		return false, nil
	}

	next := make([]string, 0, len(current))
	for _, l := range current {
		if l != from {
			next = append(next, l)
		}
	}
	f.labels[number] = append(next, to)
	return true, nil
}

func (f *fakeForge) SearchPRsWithLabel(ctx context.Context, label string) ([]*github.PullRequest, error) {
	var out []*github.PullRequest
	for _, pr := range f.prs {
		for _, l := range pr.Labels {
			if l.Name == label {
				out = append(out, pr)
			}
		}
	}
	return out, nil
}

func (f *fakeForge) GetPullRequest(ctx context.Context, number int) (*github.PullRequest, error) {
	for _, pr := range f.prs {
		if pr.Number == number {
			return pr, nil
		}
	}
	return nil, &github.APIError{StatusCode: 404, Message: "not found"}
}

func (f *fakeForge) MergePullRequest(ctx context.Context, number int, method string) (*github.MergeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merged = append(f.merged, number)
	return &github.MergeResult{Merged: true, SHA: fmt.Sprintf("sha-%d", number)}, nil
}

func (f *fakeForge) CloseIssueWithLabel(ctx context.Context, number int, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed[number] = true
	f.closedWith[number] = label
	f.labels[number] = append(f.labels[number], label)
	return nil
}

func (f *fakeForge) labelsOf(number int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.labels[number]))
	copy(out, f.labels[number])
	return out
}

func hasLabel(labels []string, name string) bool {
	for _, l := range labels {
		if l == name {
			return true
		}
	}
	return false
}

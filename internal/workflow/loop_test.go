package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/douhashi/soba/internal/github"
)

type virtualClock struct {
	now time.Time
}

func (c *virtualClock) Now() time.Time { return c.now }

func (c *virtualClock) Sleep(ctx context.Context, d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestLoop(t *testing.T, forge *fakeForge) *Loop {
	t.Helper()
	cfg := testConfig()
	queueing := NewQueueing(forge)
	processor := newTestProcessor(t, cfg, forge)
	loop := NewLoop(cfg, forge, queueing, processor, nil, nil, nil, t.TempDir(), ModeDirect)
	loop.SetClock(&virtualClock{now: time.Unix(1_700_000_000, 0)})
	return loop
}

func TestTickQueuesAndStartsPlanning(t *testing.T) {
	forge := newFakeForge(map[int][]string{
		7: {LabelTodo},
		5: {LabelTodo},
		9: {LabelReady},
	})
	loop := newTestLoop(t, forge)

	// First tick promotes the lowest todo and immediately drives it into
	// planning; 9 stays untouched because 5 < 9 among processable issues.
	if err := loop.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if !hasLabel(forge.labelsOf(5), LabelPlanning) {
		t.Errorf("issue 5 labels = %v, want planning", forge.labelsOf(5))
	}
	if !hasLabel(forge.labelsOf(7), LabelTodo) {
		t.Errorf("issue 7 labels = %v, want still todo", forge.labelsOf(7))
	}
	if !hasLabel(forge.labelsOf(9), LabelReady) {
		t.Errorf("issue 9 labels = %v, want still ready", forge.labelsOf(9))
	}
}

func TestTickDoesNothingWhileBlocked(t *testing.T) {
	forge := newFakeForge(map[int][]string{
		4: {LabelPlanning},
		8: {LabelTodo},
	})
	loop := newTestLoop(t, forge)

	if err := loop.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if forge.casCalls != 0 {
		t.Errorf("tick issued %d label writes, want 0", forge.casCalls)
	}
	if !hasLabel(forge.labelsOf(4), LabelPlanning) || !hasLabel(forge.labelsOf(8), LabelTodo) {
		t.Errorf("labels changed: 4=%v 8=%v", forge.labelsOf(4), forge.labelsOf(8))
	}
}

func TestTickSkipsOnMultipleActiveIssues(t *testing.T) {
	// Two active issues mean a cross-daemon race slipped past the CAS.
	forge := newFakeForge(map[int][]string{
		1: {LabelQueued},
		2: {LabelQueued},
	})
	loop := newTestLoop(t, forge)

	if err := loop.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if forge.casCalls != 0 {
		t.Errorf("tick processed despite anomaly, %d writes", forge.casCalls)
	}
	if !hasLabel(forge.labelsOf(1), LabelQueued) || !hasLabel(forge.labelsOf(2), LabelQueued) {
		t.Errorf("labels changed during anomaly tick")
	}
}

func TestTickAdvancesReviewRequested(t *testing.T) {
	forge := newFakeForge(map[int][]string{
		12: {LabelReviewRequested},
	})
	loop := newTestLoop(t, forge)

	if err := loop.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !hasLabel(forge.labelsOf(12), LabelReviewing) {
		t.Errorf("labels = %v, want reviewing", forge.labelsOf(12))
	}
}

func TestTickAdvancesRequiresChanges(t *testing.T) {
	forge := newFakeForge(map[int][]string{
		12: {LabelRequiresChanges},
	})
	loop := newTestLoop(t, forge)

	if err := loop.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !hasLabel(forge.labelsOf(12), LabelRevising) {
		t.Errorf("labels = %v, want revising", forge.labelsOf(12))
	}
}

func TestProcessableIssuesExcludesPlanAndInProgress(t *testing.T) {
	got := processableIssues([]*github.Issue{
		issueWith(9, LabelReady),
		issueWith(5, LabelQueued),
		issueWith(3, LabelTodo),     // plan phase, queueing only
		issueWith(2, LabelPlanning), // in progress
	})
	if len(got) != 2 || got[0].Number != 5 || got[1].Number != 9 {
		nums := make([]int, len(got))
		for i, issue := range got {
			nums[i] = issue.Number
		}
		t.Errorf("processable = %v, want [5 9]", nums)
	}
}

package history

import (
	"context"
	"path/filepath"
	"testing"
)

func TestRecordAndQuery(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	transitions := []struct {
		issue    int
		phase    string
		from, to string
	}{
		{5, "queued_to_planning", "soba:queued", "soba:planning"},
		{5, "implement", "soba:ready", "soba:doing"},
		{9, "review", "soba:review-requested", "soba:reviewing"},
	}
	for _, tr := range transitions {
		if err := store.RecordTransition(ctx, tr.issue, tr.phase, tr.from, tr.to, "exec-1"); err != nil {
			t.Fatalf("RecordTransition: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d entries, want 2", len(recent))
	}
	// Newest first.
	if recent[0].IssueNumber != 9 || recent[0].Phase != "review" {
		t.Errorf("recent[0] = %+v", recent[0])
	}

	forFive, err := store.ForIssue(ctx, 5)
	if err != nil {
		t.Fatalf("ForIssue: %v", err)
	}
	if len(forFive) != 2 {
		t.Fatalf("got %d entries for issue 5, want 2", len(forFive))
	}
	// Oldest first.
	if forFive[0].Phase != "queued_to_planning" || forFive[1].Phase != "implement" {
		t.Errorf("forFive = %+v", forFive)
	}
	if forFive[0].ExecutionID != "exec-1" {
		t.Errorf("execution id = %q", forFive[0].ExecutionID)
	}
}

func TestRecentOnEmptyStore(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %v, want none", entries)
	}
}

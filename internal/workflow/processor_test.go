package workflow

import (
	"context"
	"testing"

	"github.com/douhashi/soba/internal/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.GitHub.Repository = "douhashi/soba-test"
	cfg.Workflow.UseTmux = false
	cfg.Workflow.CommandDelay = 0
	// Cheap commands so direct mode runs instantly in tests.
	echo := &config.PhaseCommand{Command: "echo", Parameter: "issue {{issue-number}}"}
	cfg.Phase = &config.PhaseConfig{Plan: echo, Implement: echo, Review: echo, Revise: echo}
	return cfg
}

func newTestProcessor(t *testing.T, cfg *config.Config, forge *fakeForge) *Processor {
	t.Helper()
	executor := NewExecutor(cfg, nil) // direct mode never touches sessions
	return NewProcessor(cfg, forge, executor, nil, nil, t.TempDir())
}

func TestProcessLaunchesPhase(t *testing.T) {
	forge := newFakeForge(map[int][]string{12: {LabelReviewRequested}})
	cfg := testConfig()
	p := newTestProcessor(t, cfg, forge)

	issue, _ := forge.GetIssue(context.Background(), 12)
	result, err := p.Process(context.Background(), issue)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Skipped {
		t.Fatalf("skipped: %s", result.Reason)
	}
	if result.Phase != "review" {
		t.Errorf("phase = %s, want review", result.Phase)
	}
	if !hasLabel(forge.labelsOf(12), LabelReviewing) {
		t.Errorf("labels = %v, want reviewing", forge.labelsOf(12))
	}
	if result.Exec == nil || result.Exec.Mode != ModeDirect {
		t.Fatalf("exec = %+v, want direct mode result", result.Exec)
	}
	if result.Exec.ExecutionID == "" {
		t.Error("execution id not assigned")
	}
}

func TestProcessSkipsInProgress(t *testing.T) {
	forge := newFakeForge(map[int][]string{4: {LabelPlanning}})
	p := newTestProcessor(t, testConfig(), forge)

	issue, _ := forge.GetIssue(context.Background(), 4)
	result, err := p.Process(context.Background(), issue)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !result.Skipped || result.Reason != "in-progress or unknown" {
		t.Errorf("result = %+v, want in-progress skip", result)
	}
	if forge.casCalls != 0 {
		t.Errorf("processor wrote labels for an in-progress issue")
	}
}

func TestProcessReportsLostLabelRace(t *testing.T) {
	// The snapshot says ready but another daemon already moved the issue on.
	forge := newFakeForge(map[int][]string{3: {LabelDoing}})
	p := newTestProcessor(t, testConfig(), forge)

	stale := issueWith(3, LabelReady)
	result, err := p.Process(context.Background(), stale)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !result.Skipped || result.Reason != "label state changed" {
		t.Errorf("result = %+v, want label-race skip", result)
	}
	got := forge.labelsOf(3)
	if len(got) != 1 || got[0] != LabelDoing {
		t.Errorf("labels = %v, want unchanged [doing]", got)
	}
}

func TestProcessTransitionOnlyWhenCommandUnconfigured(t *testing.T) {
	forge := newFakeForge(map[int][]string{6: {LabelReady}})
	cfg := testConfig()
	cfg.Phase = &config.PhaseConfig{} // no commands configured
	p := newTestProcessor(t, cfg, forge)

	issue, _ := forge.GetIssue(context.Background(), 6)
	result, err := p.Process(context.Background(), issue)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !result.WorkflowSkipped {
		t.Fatalf("result = %+v, want workflow skipped", result)
	}
	if !hasLabel(forge.labelsOf(6), LabelDoing) {
		t.Errorf("labels = %v, want doing after transition-only processing", forge.labelsOf(6))
	}
}

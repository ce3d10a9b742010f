package workflow

import "testing"

func TestDeterminePhase(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   string // phase name, "" for nil
	}{
		{"todo", []string{LabelTodo}, "plan"},
		{"queued", []string{LabelQueued}, "queued_to_planning"},
		{"ready", []string{LabelReady}, "implement"},
		{"review requested", []string{LabelReviewRequested}, "review"},
		{"requires changes", []string{LabelRequiresChanges}, "revise"},
		{"planning in progress", []string{LabelPlanning}, ""},
		{"doing in progress", []string{LabelDoing}, ""},
		{"reviewing in progress", []string{LabelReviewing}, ""},
		{"revising in progress", []string{LabelRevising}, ""},
		{"in-progress wins over trigger", []string{LabelReady, LabelDoing}, ""},
		{"no workflow labels", []string{"bug", "enhancement"}, ""},
		{"done has no phase", []string{LabelDone}, ""},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phase := DeterminePhase(tt.labels)
			if tt.want == "" {
				if phase != nil {
					t.Fatalf("DeterminePhase(%v) = %s, want nil", tt.labels, phase.Name)
				}
				return
			}
			if phase == nil {
				t.Fatalf("DeterminePhase(%v) = nil, want %s", tt.labels, tt.want)
			}
			if phase.Name != tt.want {
				t.Errorf("DeterminePhase(%v) = %s, want %s", tt.labels, phase.Name, tt.want)
			}
		})
	}
}

func TestDeterminePhaseNullIffInProgress(t *testing.T) {
	// DeterminePhase over a single workflow label is nil exactly for the
	// in-progress set (plus terminal labels that trigger nothing).
	inProgress := map[string]bool{
		LabelPlanning: true, LabelDoing: true, LabelReviewing: true, LabelRevising: true,
	}
	triggers := []string{LabelTodo, LabelQueued, LabelReady, LabelReviewRequested, LabelRequiresChanges}

	for label := range inProgress {
		if DeterminePhase([]string{label}) != nil {
			t.Errorf("DeterminePhase([%s]) should be nil", label)
		}
	}
	for _, label := range triggers {
		if DeterminePhase([]string{label}) == nil {
			t.Errorf("DeterminePhase([%s]) should not be nil", label)
		}
		// Adding any in-progress label masks the trigger.
		for in := range inProgress {
			if DeterminePhase([]string{label, in}) != nil {
				t.Errorf("DeterminePhase([%s %s]) should be nil", label, in)
			}
		}
	}
}

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{LabelTodo, LabelQueued, true},
		{LabelQueued, LabelPlanning, true},
		{LabelPlanning, LabelReady, true},
		{LabelReady, LabelDoing, true},
		{LabelDoing, LabelReviewRequested, true},
		{LabelReviewRequested, LabelReviewing, true},
		{LabelReviewing, LabelRequiresChanges, true},
		{LabelReviewing, LabelDone, true},
		{LabelRequiresChanges, LabelRevising, true},
		{LabelRevising, LabelReviewRequested, true},
		{LabelDone, LabelMerged, true},
		{LabelTodo, LabelPlanning, true}, // legacy one-shot edge
		{LabelTodo, LabelDoing, false},
		{LabelQueued, LabelReady, false},
		{LabelDone, LabelTodo, false},
		{LabelMerged, LabelTodo, false},
		{"", "", false},
	}

	for _, tt := range tests {
		if got := ValidateTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ValidateTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestPhaseEdgesAreValidTransitions(t *testing.T) {
	// Every edge the orchestrator drives must pass its own validator.
	for _, phase := range phaseOrder {
		if !ValidateTransition(phase.From, phase.To) {
			t.Errorf("phase %s edge %s -> %s is not a valid transition", phase.Name, phase.From, phase.To)
		}
	}
}

package workflow

import "github.com/douhashi/soba/internal/github"

// Phase is one orchestrator-driven step of the workflow. The zero value is
// not a phase; DeterminePhase returns nil when no step applies.
type Phase struct {
	// Name identifies the phase: plan, queued_to_planning, implement,
	// review, revise.
	Name string
	// From and To are the label edge the orchestrator CASes before
	// launching the phase command.
	From string
	To   string
	// CommandKey selects the configured external command, empty for
	// transition-only phases.
	CommandKey string
}

// The strategy table. plan has no command: it is the queueing edge and only
// QueueingService drives it. queued_to_planning exists as a separate step so
// a crash between selection and phase start leaves a resumable marker.
var (
	PhasePlan             = Phase{Name: "plan", From: LabelTodo, To: LabelQueued}
	PhaseQueuedToPlanning = Phase{Name: "queued_to_planning", From: LabelQueued, To: LabelPlanning, CommandKey: "plan"}
	PhaseImplement        = Phase{Name: "implement", From: LabelReady, To: LabelDoing, CommandKey: "implement"}
	PhaseReview           = Phase{Name: "review", From: LabelReviewRequested, To: LabelReviewing, CommandKey: "review"}
	PhaseRevise           = Phase{Name: "revise", From: LabelRequiresChanges, To: LabelRevising, CommandKey: "revise"}
)

// phaseOrder is the match order DeterminePhase applies.
var phaseOrder = []Phase{
	PhasePlan, PhaseQueuedToPlanning, PhaseImplement, PhaseReview, PhaseRevise,
}

// validEdges are the transitions the orchestrator, the external agent, and
// the auto-merger may issue. The todo→planning edge is legacy, used only by
// the one-shot developer path.
var validEdges = map[[2]string]bool{
	{LabelTodo, LabelQueued}:                     true,
	{LabelQueued, LabelPlanning}:                 true,
	{LabelPlanning, LabelReady}:                  true,
	{LabelReady, LabelDoing}:                     true,
	{LabelDoing, LabelReviewRequested}:           true,
	{LabelReviewRequested, LabelReviewing}:       true,
	{LabelReviewing, LabelRequiresChanges}:       true,
	{LabelReviewing, LabelDone}:                  true,
	{LabelRequiresChanges, LabelRevising}:        true,
	{LabelRevising, LabelReviewRequested}:        true,
	{LabelDone, LabelMerged}:                     true,
	{LabelTodo, LabelPlanning}:                   true, // legacy one-shot edge
}

// DeterminePhase maps an issue's label set to the next orchestrator step.
// It returns nil when an in-progress label is present (the agent owns the
// issue) or when no workflow label matches.
func DeterminePhase(labels []string) *Phase {
	for _, in := range inProgressLabels {
		if containsLabel(labels, in) {
			return nil
		}
	}
	for i := range phaseOrder {
		if containsLabel(labels, phaseOrder[i].From) {
			p := phaseOrder[i]
			return &p
		}
	}
	return nil
}

// DeterminePhaseFor is DeterminePhase over a forge issue.
func DeterminePhaseFor(issue *github.Issue) *Phase {
	return DeterminePhase(issue.LabelNames())
}

// ValidateTransition reports whether a label edge is part of the workflow.
func ValidateTransition(from, to string) bool {
	return validEdges[[2]string{from, to}]
}

func containsLabel(labels []string, name string) bool {
	for _, l := range labels {
		if l == name {
			return true
		}
	}
	return false
}

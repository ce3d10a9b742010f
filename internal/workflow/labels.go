package workflow

// Workflow labels. The forge's labels are the orchestrator's only state
// vocabulary; the daemon holds nothing that can drift from them.
const (
	LabelTodo            = "soba:todo"
	LabelQueued          = "soba:queued"
	LabelPlanning        = "soba:planning"
	LabelReady           = "soba:ready"
	LabelDoing           = "soba:doing"
	LabelReviewRequested = "soba:review-requested"
	LabelReviewing       = "soba:reviewing"
	LabelDone            = "soba:done"
	LabelRequiresChanges = "soba:requires-changes"
	LabelRevising        = "soba:revising"
	LabelMerged          = "soba:merged"
	LabelLGTM            = "soba:lgtm"
)

// LabelDefinition describes a workflow label for bootstrap creation.
type LabelDefinition struct {
	Name        string
	Color       string
	Description string
}

// LabelDefinitions is the full set created idempotently by init.
var LabelDefinitions = []LabelDefinition{
	{LabelTodo, "e4e669", "Issue waiting to enter the workflow"},
	{LabelQueued, "fbca04", "Issue selected for planning"},
	{LabelPlanning, "1d76db", "Planning in progress"},
	{LabelReady, "0e8a16", "Plan approved, ready to implement"},
	{LabelDoing, "1d76db", "Implementation in progress"},
	{LabelReviewRequested, "fbca04", "Implementation done, awaiting review"},
	{LabelReviewing, "1d76db", "Review in progress"},
	{LabelDone, "0e8a16", "Review approved"},
	{LabelRequiresChanges, "d93f0b", "Review requested changes"},
	{LabelRevising, "1d76db", "Revision in progress"},
	{LabelMerged, "6f42c1", "Pull request merged, issue closed"},
	{LabelLGTM, "0e8a16", "Pull request approved for auto-merge"},
}

// inProgressLabels signal an external agent is working; the orchestrator
// must not start a new phase while one is present.
var inProgressLabels = []string{
	LabelPlanning, LabelDoing, LabelReviewing, LabelRevising,
}

// activeLabels define an "active issue" for the single-active invariant.
var activeLabels = []string{
	LabelQueued, LabelPlanning, LabelDoing, LabelReviewing, LabelRevising,
}

// blockingLabels gate queueing: active labels plus the outbox labels, since
// an issue awaiting pickup still owns the single slot.
var blockingLabels = []string{
	LabelQueued, LabelPlanning, LabelDoing, LabelReviewing, LabelRevising,
	LabelReviewRequested, LabelRequiresChanges,
}

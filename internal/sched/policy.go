package sched

// PolicyDecision is the outcome of consulting a FailurePolicy after a batch
// has fully settled.
type PolicyDecision struct {
	// ContinueRun is false when the remainder of the run must be abandoned.
	ContinueRun bool

	// IDsToSkip lists not-yet-started tasks that must be marked Skipped
	// before the next batch is considered.
	IDsToSkip []string
}

// FailurePolicy decides how a batch failure affects subsequent scheduling.
//
// OnBatchSettled is called by the coordinator after every task in the batch
// has reached a terminal state. The interface is intentionally narrow so
// additional policies (for example bounded retry-on-failure) can be added
// without touching the coordinator.
type FailurePolicy interface {
	OnBatchSettled(batchIndex int, results []TaskResult) PolicyDecision
}

// Policy names accepted by configuration.
const (
	PolicyFailFast    = "fail-fast"
	PolicyCompleteAll = "complete-all"
)

// failFastPolicy abandons all not-yet-started work on the first failure.
// Tasks already running in the settled batch have finished by the time the
// policy is consulted, so their real outcomes are always recorded.
type failFastPolicy struct {
	plan *Plan
}

// NewFailFastPolicy returns the fail-fast policy for the given plan: if any
// task in the settled batch failed, the run stops and every task in a later
// batch is skipped.
func NewFailFastPolicy(plan *Plan) FailurePolicy {
	return &failFastPolicy{plan: plan}
}

func (p *failFastPolicy) OnBatchSettled(batchIndex int, results []TaskResult) PolicyDecision {
	for _, r := range results {
		if r.Status == TaskStatusFailed {
			return PolicyDecision{
				ContinueRun: false,
				IDsToSkip:   p.plan.TasksAfter(batchIndex),
			}
		}
	}
	return PolicyDecision{ContinueRun: true}
}

// completeAllPolicy runs everything not blocked by a failed ancestor: only
// the direct and transitive dependents of a failed task are skipped, and the
// run continues through all batches.
type completeAllPolicy struct {
	graph *Graph
}

// NewCompleteAllPolicy returns the complete-all policy for the given graph.
func NewCompleteAllPolicy(graph *Graph) FailurePolicy {
	return &completeAllPolicy{graph: graph}
}

func (p *completeAllPolicy) OnBatchSettled(batchIndex int, results []TaskResult) PolicyDecision {
	var skip []string
	seen := make(map[string]bool)

	for _, r := range results {
		if r.Status != TaskStatusFailed {
			continue
		}
		for _, id := range p.graph.TransitiveDependents(r.ID) {
			if !seen[id] {
				seen[id] = true
				skip = append(skip, id)
			}
		}
	}

	return PolicyDecision{ContinueRun: true, IDsToSkip: skip}
}

// NewPolicy constructs the built-in policy selected by name. Unknown names
// fall back to complete-all, the default.
func NewPolicy(name string, graph *Graph, plan *Plan) FailurePolicy {
	switch name {
	case PolicyFailFast:
		return NewFailFastPolicy(plan)
	default:
		return NewCompleteAllPolicy(graph)
	}
}

package sched

// Batch is an ordered set of task ids with no dependency relation between
// any two members, so all of them can run concurrently.
type Batch []string

// Plan is the ordered list of batches for a run. Batches are produced once,
// before execution begins, and are immutable; they are consumed strictly in
// order. Every task appears in exactly one batch, and its batch index is
// strictly greater than the batch index of each of its dependencies.
type Plan struct {
	Batches []Batch

	batchIndex map[string]int
}

// PlanBatches partitions the graph into ordered topological layers using a
// layered variant of Kahn's algorithm: batch 0 holds every task whose
// indegree is 0; removing batch i decrements the indegree of each dependent,
// and batch i+1 holds the tasks whose indegree just reached 0.
//
// Ties within a batch are broken by original input order, so the planner is
// fully deterministic for a given input. It is a pure function: it never
// executes anything and does not mutate the graph.
func PlanBatches(g *Graph) *Plan {
	plan := &Plan{batchIndex: make(map[string]int, g.Len())}

	indegree := g.Indegrees()
	remaining := g.Len()

	current := make([]int, 0, g.Len())
	for i := 0; i < g.Len(); i++ {
		if indegree[i] == 0 {
			current = append(current, i)
		}
	}

	for remaining > 0 {
		batch := make(Batch, 0, len(current))
		next := make([]int, 0)

		for _, i := range current {
			id := g.Task(i).ID
			plan.batchIndex[id] = len(plan.Batches)
			batch = append(batch, id)
			remaining--
		}
		for _, i := range current {
			for _, dep := range g.Dependents(i) {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}

		// Dependents are discovered in completion order of the previous
		// layer; restore input order before emitting the next batch.
		sortByInputOrder(next)

		plan.Batches = append(plan.Batches, batch)
		current = next
	}

	return plan
}

// BatchIndexOf returns the batch index for a task id, or -1 if the id is not
// part of the plan.
func (p *Plan) BatchIndexOf(id string) int {
	idx, ok := p.batchIndex[id]
	if !ok {
		return -1
	}
	return idx
}

// TaskCount returns the total number of tasks across all batches.
func (p *Plan) TaskCount() int { return len(p.batchIndex) }

// TasksAfter returns the ids of every task in batches strictly after the
// given batch index, in plan order.
func (p *Plan) TasksAfter(batchIndex int) []string {
	var out []string
	for i := batchIndex + 1; i < len(p.Batches); i++ {
		out = append(out, p.Batches[i]...)
	}
	return out
}

// sortByInputOrder sorts node indices ascending. Node indices equal input
// positions, so this is exactly "original input order".
func sortByInputOrder(idx []int) {
	// Insertion sort: layers are small and mostly ordered already.
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && idx[j] < idx[j-1]; j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}
}

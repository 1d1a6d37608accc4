package sched

// Graph is the validated dependency graph for one run. Nodes are indexed by
// small integers in original input order; adjacency and indegree are computed
// once at build time and never mutated afterwards.
type Graph struct {
	tasks []TaskDescriptor
	index map[string]int

	// dependents[i] lists the indices of tasks that directly depend on task i.
	dependents [][]int

	// dependencies[i] lists the indices of task i's direct dependencies.
	dependencies [][]int

	// indegree[i] is the number of direct dependencies of task i.
	indegree []int
}

// BuildGraph validates the task list and builds the dependency graph.
//
// Validation order: ids must be unique and non-empty, every referenced
// dependency must exist in the input, and the graph restricted to the input
// ids must be acyclic. The first violation found is returned and no graph is
// produced. This step has no side effects beyond validation.
func BuildGraph(tasks []TaskDescriptor) (*Graph, error) {
	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		if t.ID == "" {
			return nil, invalidTaskSetf("task at position %d has an empty id", i)
		}
		if _, exists := index[t.ID]; exists {
			return nil, invalidTaskSetf("duplicate task id %q", t.ID)
		}
		index[t.ID] = i
	}

	g := &Graph{
		tasks:        tasks,
		index:        index,
		dependents:   make([][]int, len(tasks)),
		dependencies: make([][]int, len(tasks)),
		indegree:     make([]int, len(tasks)),
	}

	for i, t := range tasks {
		for _, dep := range t.Dependencies {
			j, ok := index[dep]
			if !ok {
				return nil, &UnknownDependencyError{TaskID: t.ID, DependencyID: dep}
			}
			g.dependencies[i] = append(g.dependencies[i], j)
			g.dependents[j] = append(g.dependents[j], i)
			g.indegree[i]++
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, &CircularDependencyError{Path: cycle}
	}

	return g, nil
}

// Three-color marks for cycle detection.
const (
	colorWhite = iota // unvisited
	colorGray         // in progress
	colorBlack        // done
)

// findCycle performs a depth-first traversal with three-color marking and
// returns one cycle path (ids in dependency order, closed by repeating the
// first id) or nil if the graph is acyclic. Traversal follows input order,
// so the witness cycle is deterministic for a given input.
func (g *Graph) findCycle() []string {
	color := make([]int, len(g.tasks))
	parent := make([]int, len(g.tasks))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int

	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = colorGray
		for _, v := range g.dependents[u] {
			switch color[v] {
			case colorWhite:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case colorGray:
				// Back edge u -> v closes a cycle. Walk parents back to v.
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = colorBlack
		return false
	}

	for i := range g.tasks {
		if color[i] == colorWhite && dfs(i) {
			break
		}
	}

	if cycle == nil {
		return nil
	}

	// The parent walk collected the path in reverse; normalize to ids in
	// forward dependency order.
	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, g.tasks[cycle[i]].ID)
	}
	return out
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int { return len(g.tasks) }

// Task returns the descriptor at node index i, in original input order.
func (g *Graph) Task(i int) TaskDescriptor { return g.tasks[i] }

// IDs returns all task ids in original input order.
func (g *Graph) IDs() []string {
	ids := make([]string, len(g.tasks))
	for i, t := range g.tasks {
		ids[i] = t.ID
	}
	return ids
}

// Indegrees returns a copy of the indegree map: unresolved direct
// dependency counts per task index.
func (g *Graph) Indegrees() []int {
	out := make([]int, len(g.indegree))
	copy(out, g.indegree)
	return out
}

// Dependents returns the indices of the tasks that directly depend on
// task index i. The returned slice must not be mutated.
func (g *Graph) Dependents(i int) []int { return g.dependents[i] }

// Descriptor returns the descriptor for a task id.
func (g *Graph) Descriptor(id string) (TaskDescriptor, bool) {
	i, ok := g.index[id]
	if !ok {
		return TaskDescriptor{}, false
	}
	return g.tasks[i], true
}

// TransitiveDependents returns the ids of every task that directly or
// transitively depends on the given task, in input order. The id itself is
// not included. Unknown ids yield an empty result.
func (g *Graph) TransitiveDependents(id string) []string {
	start, ok := g.index[id]
	if !ok {
		return nil
	}

	visited := make([]bool, len(g.tasks))
	stack := []int{start}
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, v := range g.dependents[u] {
			if !visited[v] {
				visited[v] = true
				stack = append(stack, v)
			}
		}
	}

	var out []string
	for i, seen := range visited {
		if seen && i != start {
			out = append(out, g.tasks[i].ID)
		}
	}
	return out
}

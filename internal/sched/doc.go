// Package sched implements a dependency-aware, batched, concurrent task
// scheduler: it validates a task list with declared dependencies, partitions
// it into ordered topological batches, and executes each batch with bounded
// parallelism while aggregating failures under a selectable policy.
package sched

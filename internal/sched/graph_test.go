package sched

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func descriptors(specs ...[2]any) []TaskDescriptor {
	tasks := make([]TaskDescriptor, 0, len(specs))
	for _, s := range specs {
		tasks = append(tasks, TaskDescriptor{
			ID:           s[0].(string),
			Dependencies: s[1].([]string),
		})
	}
	return tasks
}

func TestBuildGraph_Valid(t *testing.T) {
	t.Parallel()

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		g, err := BuildGraph(nil)
		require.NoError(t, err)
		assert.Equal(t, 0, g.Len())
		assert.Empty(t, g.IDs())
	})

	t.Run("diamond adjacency and indegree", func(t *testing.T) {
		t.Parallel()

		g, err := BuildGraph(descriptors(
			[2]any{"A", []string{}},
			[2]any{"B", []string{}},
			[2]any{"C", []string{"A", "B"}},
		))
		require.NoError(t, err)

		assert.Equal(t, []string{"A", "B", "C"}, g.IDs())
		assert.Equal(t, []int{0, 0, 2}, g.Indegrees())
		assert.Equal(t, []int{2}, g.Dependents(0))
		assert.Equal(t, []int{2}, g.Dependents(1))
		assert.Empty(t, g.Dependents(2))
	})

	t.Run("transitive dependents of a chain", func(t *testing.T) {
		t.Parallel()

		g, err := BuildGraph(descriptors(
			[2]any{"A", []string{}},
			[2]any{"B", []string{"A"}},
			[2]any{"C", []string{"B"}},
			[2]any{"D", []string{}},
		))
		require.NoError(t, err)

		assert.Equal(t, []string{"B", "C"}, g.TransitiveDependents("A"))
		assert.Equal(t, []string{"C"}, g.TransitiveDependents("B"))
		assert.Empty(t, g.TransitiveDependents("C"))
		assert.Empty(t, g.TransitiveDependents("unknown"))
	})

	t.Run("descriptor lookup", func(t *testing.T) {
		t.Parallel()

		g, err := BuildGraph([]TaskDescriptor{{ID: "A", Payload: 42}})
		require.NoError(t, err)

		desc, ok := g.Descriptor("A")
		require.True(t, ok)
		assert.Equal(t, 42, desc.Payload)

		_, ok = g.Descriptor("missing")
		assert.False(t, ok)
	})
}

func TestBuildGraph_UnknownDependency(t *testing.T) {
	t.Parallel()

	_, err := BuildGraph(descriptors(
		[2]any{"A", []string{}},
		[2]any{"B", []string{"A", "ghost"}},
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownDependency)

	var unknownErr *UnknownDependencyError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "B", unknownErr.TaskID)
	assert.Equal(t, "ghost", unknownErr.DependencyID)
}

func TestBuildGraph_InvalidTaskSet(t *testing.T) {
	t.Parallel()

	t.Run("duplicate id", func(t *testing.T) {
		t.Parallel()

		_, err := BuildGraph(descriptors(
			[2]any{"A", []string{}},
			[2]any{"A", []string{}},
		))
		assert.ErrorIs(t, err, ErrInvalidTaskSet)
		assert.Contains(t, err.Error(), `"A"`)
	})

	t.Run("empty id", func(t *testing.T) {
		t.Parallel()

		_, err := BuildGraph(descriptors([2]any{"", []string{}}))
		assert.ErrorIs(t, err, ErrInvalidTaskSet)
	})
}

func TestBuildGraph_CycleDetection(t *testing.T) {
	t.Parallel()

	t.Run("three task cycle", func(t *testing.T) {
		t.Parallel()

		_, err := BuildGraph(descriptors(
			[2]any{"A", []string{"C"}},
			[2]any{"B", []string{"A"}},
			[2]any{"C", []string{"B"}},
		))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCircularDependency)

		var cycleErr *CircularDependencyError
		require.ErrorAs(t, err, &cycleErr)

		// The path is closed: first and last entries name the same task,
		// and every cycle member appears.
		require.GreaterOrEqual(t, len(cycleErr.Path), 4)
		assert.Equal(t, cycleErr.Path[0], cycleErr.Path[len(cycleErr.Path)-1])
		for _, id := range []string{"A", "B", "C"} {
			assert.Contains(t, cycleErr.Path, id)
		}
	})

	t.Run("self dependency", func(t *testing.T) {
		t.Parallel()

		_, err := BuildGraph(descriptors([2]any{"A", []string{"A"}}))
		require.Error(t, err)

		var cycleErr *CircularDependencyError
		require.ErrorAs(t, err, &cycleErr)
		assert.Equal(t, []string{"A", "A"}, cycleErr.Path)
	})

	t.Run("cycle behind a valid prefix", func(t *testing.T) {
		t.Parallel()

		_, err := BuildGraph(descriptors(
			[2]any{"ok", []string{}},
			[2]any{"X", []string{"Y"}},
			[2]any{"Y", []string{"X"}},
		))
		assert.True(t, errors.Is(err, ErrCircularDependency))
	})
}

package taskfile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/dagrun/internal/taskfile"
)

const sampleYAML = `
tasks:
  - id: fetch
    command: echo fetch
  - id: build
    command: echo build
    depends_on: [fetch]
  - id: test
    command: echo test
    depends_on: [build]
`

func TestParse(t *testing.T) {
	t.Parallel()

	f, err := taskfile.Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, f.Tasks, 3)

	assert.Equal(t, "fetch", f.Tasks[0].ID)
	assert.Equal(t, "echo fetch", f.Tasks[0].Command)
	assert.Empty(t, f.Tasks[0].DependsOn)
	assert.Equal(t, []string{"fetch"}, f.Tasks[1].DependsOn)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	t.Run("not yaml", func(t *testing.T) {
		t.Parallel()

		_, err := taskfile.Parse([]byte("{not yaml"))
		assert.Error(t, err)
	})

	t.Run("no tasks", func(t *testing.T) {
		t.Parallel()

		_, err := taskfile.Parse([]byte("tasks: []"))
		assert.ErrorIs(t, err, taskfile.ErrInvalidTaskfile)
	})

	t.Run("missing id", func(t *testing.T) {
		t.Parallel()

		_, err := taskfile.Parse([]byte("tasks:\n  - command: echo hi\n"))
		assert.ErrorIs(t, err, taskfile.ErrInvalidTaskfile)
	})

	t.Run("missing command", func(t *testing.T) {
		t.Parallel()

		_, err := taskfile.Parse([]byte("tasks:\n  - id: ghost\n"))
		assert.ErrorIs(t, err, taskfile.ErrInvalidTaskfile)
		assert.ErrorContains(t, err, "ghost")
	})
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dagrun.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	f, err := taskfile.Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Tasks, 3)

	_, err = taskfile.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDescriptors_PreserveOrder(t *testing.T) {
	t.Parallel()

	f, err := taskfile.Parse([]byte(sampleYAML))
	require.NoError(t, err)

	descs := f.Descriptors()
	require.Len(t, descs, 3)
	assert.Equal(t, "fetch", descs[0].ID)
	assert.Equal(t, "build", descs[1].ID)
	assert.Equal(t, []string{"build"}, descs[2].Dependencies)
	assert.Equal(t, "echo build", descs[1].Payload)
}

func TestShellExecutor(t *testing.T) {
	t.Parallel()

	execute := taskfile.ShellExecutor("")

	t.Run("successful command", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, execute(context.Background(), "true"))
	})

	t.Run("failing command", func(t *testing.T) {
		t.Parallel()

		err := execute(context.Background(), "exit 3")
		assert.ErrorContains(t, err, "exit 3")
	})

	t.Run("non-string payload", func(t *testing.T) {
		t.Parallel()

		err := execute(context.Background(), 42)
		assert.ErrorContains(t, err, "expected a shell command")
	})
}

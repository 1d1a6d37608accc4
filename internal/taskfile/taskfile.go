// Package taskfile loads task definitions from YAML files and turns them
// into schedulable descriptors backed by shell commands.
package taskfile

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phrazzld/dagrun/internal/sched"
)

// ErrInvalidTaskfile is returned when a taskfile parses but fails
// structural validation.
var ErrInvalidTaskfile = errors.New("invalid taskfile")

// Task is one task entry in a taskfile.
type Task struct {
	ID        string   `yaml:"id"`
	Command   string   `yaml:"command"`
	DependsOn []string `yaml:"depends_on"`
}

// File is a parsed taskfile.
type File struct {
	Tasks []Task `yaml:"tasks"`
}

// Load reads and parses the taskfile at path. Dependency references are not
// resolved here; graph construction reports unknown IDs and cycles with the
// full context it has.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taskfile: %w", err)
	}
	return Parse(data)
}

// Parse decodes taskfile YAML and validates each entry has an ID and a
// command.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse taskfile: %w", err)
	}

	if len(f.Tasks) == 0 {
		return nil, fmt.Errorf("%w: no tasks defined", ErrInvalidTaskfile)
	}
	for i, task := range f.Tasks {
		if strings.TrimSpace(task.ID) == "" {
			return nil, fmt.Errorf("%w: task %d has no id", ErrInvalidTaskfile, i)
		}
		if strings.TrimSpace(task.Command) == "" {
			return nil, fmt.Errorf("%w: task %q has no command", ErrInvalidTaskfile, task.ID)
		}
	}
	return &f, nil
}

// Descriptors converts the taskfile entries into descriptors for graph
// construction, preserving file order. Each descriptor's payload is the
// task's shell command.
func (f *File) Descriptors() []sched.TaskDescriptor {
	descs := make([]sched.TaskDescriptor, len(f.Tasks))
	for i, task := range f.Tasks {
		descs[i] = sched.TaskDescriptor{
			ID:           task.ID,
			Dependencies: task.DependsOn,
			Payload:      task.Command,
		}
	}
	return descs
}

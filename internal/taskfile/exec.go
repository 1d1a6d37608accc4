package taskfile

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/phrazzld/dagrun/internal/platform/logger"
	"github.com/phrazzld/dagrun/internal/sched"
)

// ShellExecutor returns an execution callback that runs each task's payload
// as a shell command. Command output is captured and logged rather than
// streamed, so concurrent tasks do not interleave on the terminal.
func ShellExecutor(shell string) sched.ExecuteFunc {
	if shell == "" {
		shell = "/bin/sh"
	}
	return func(ctx context.Context, payload any) error {
		command, ok := payload.(string)
		if !ok {
			return fmt.Errorf("payload is %T, expected a shell command string", payload)
		}

		log := logger.FromContext(ctx)

		cmd := exec.CommandContext(ctx, shell, "-c", command)
		output, err := cmd.CombinedOutput()
		if len(output) > 0 {
			log.Debug("command output", "command", command, "output", string(output))
		}
		if err != nil {
			return fmt.Errorf("command %q: %w", command, err)
		}
		return nil
	}
}

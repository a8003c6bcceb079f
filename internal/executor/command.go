package executor

import (
	"context"
	"os/exec"
	"strings"
)

// CommandExecutor runs payloads as shell commands through "sh -c". It is the
// default executor wired by the CLI; the combined stdout/stderr output becomes
// the item's outcome output.
type CommandExecutor struct {
	// WorkDir is the working directory for launched commands. Empty means
	// the current directory.
	WorkDir string
}

// NewCommandExecutor creates a CommandExecutor rooted at workDir.
func NewCommandExecutor(workDir string) *CommandExecutor {
	return &CommandExecutor{WorkDir: workDir}
}

// Execute runs the payload via the shell and returns combined output.
// Cancellation kills the process group best-effort through exec.CommandContext.
func (e *CommandExecutor) Execute(ctx context.Context, payload string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", payload)
	if e.WorkDir != "" {
		cmd.Dir = e.WorkDir
	}

	out, err := cmd.CombinedOutput()
	output := strings.TrimRight(string(out), "\n")
	if err != nil {
		// Surface the deadline rather than the kill signal when the
		// context expired.
		if ctx.Err() != nil {
			return output, ctx.Err()
		}
		return output, err
	}
	return output, nil
}

// Verify CommandExecutor implements ItemExecutor at compile time.
var _ ItemExecutor = (*CommandExecutor)(nil)

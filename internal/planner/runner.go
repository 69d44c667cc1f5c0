package planner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner abstracts command execution for testing.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, exitCode int, err error)
}

// osCommandRunner is the real implementation using os/exec.
type osCommandRunner struct{}

func (r *osCommandRunner) Run(ctx context.Context, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()

	switch e := runErr.(type) {
	case nil:
		return stdoutBuf.String(), stderrBuf.String(), 0, nil
	case *exec.ExitError:
		return stdoutBuf.String(), stderrBuf.String(), e.ExitCode(), nil
	default:
		return stdoutBuf.String(), stderrBuf.String(), -1, runErr
	}
}

// ToolError reports a planner tool that exited with a nonzero status.
type ToolError struct {
	Tool     string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *ToolError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = strings.TrimSpace(e.Stdout)
	}
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Tool, e.ExitCode, msg)
}

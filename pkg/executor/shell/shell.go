// Package shell runs commands through a local bash, used for CLI driven adapters such as govc.
package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
)

// Executor runs every command with bash -c and the configured extra environment
type Executor struct {
	Env []string
	Dir string
}

// New returns a shell executor, env entries are KEY=VALUE and extend the process environment
func New(env ...string) *Executor {
	return &Executor{Env: env}
}

// Execute implements executor.CommandExecutor
func (e *Executor) Execute(ctx context.Context, command string) (executor.Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Dir = e.Dir
	cmd.Env = append(os.Environ(), e.Env...)

	err := cmd.Run()
	result := executor.Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return result, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	return result, cerrors.Transport{Target: "localhost", Reason: err.Error()}
}

// Package executor defines the port every transport implements to run a command string on a target.
package executor

import (
	"context"
	"io"

	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// Result is what the target returned for one command
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// CommandExecutor runs one command string on a target.
// A non-nil error is a transport failure; a command that ran and failed is reported through Result.
type CommandExecutor interface {
	Execute(ctx context.Context, command string) (Result, error)
}

// Resolver builds the executor for the endpoint attached to a spec
type Resolver interface {
	ExecutorFor(ctx context.Context, spec types.FaultSpecification) (CommandExecutor, error)
}

// ResolverFunc adapts a function to the Resolver interface
type ResolverFunc func(ctx context.Context, spec types.FaultSpecification) (CommandExecutor, error)

// ExecutorFor calls f
func (f ResolverFunc) ExecutorFor(ctx context.Context, spec types.FaultSpecification) (CommandExecutor, error) {
	return f(ctx, spec)
}

// Close releases the executor when it holds a connection
func Close(exec CommandExecutor) error {
	if closer, ok := exec.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

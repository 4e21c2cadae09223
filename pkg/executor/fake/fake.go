// Package fake provides a scripted CommandExecutor for tests.
package fake

import (
	"context"
	"strings"
	"sync"

	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
)

// Response is one scripted reply
type Response struct {
	Result executor.Result
	Err    error
}

// Executor replies to commands from per-prefix queues and records every call
type Executor struct {
	mu       sync.Mutex
	scripts  map[string][]Response
	prefixes []string
	fallback Response
	calls    []string
	closed   bool
}

// New returns an executor that answers exit code 0 with empty output unless scripted
func New() *Executor {
	return &Executor{scripts: map[string][]Response{}}
}

// On queues responses for commands starting with prefix, the last one repeats once the queue drains
func (e *Executor) On(prefix string, responses ...Response) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.scripts[prefix]; !ok {
		e.prefixes = append(e.prefixes, prefix)
	}
	e.scripts[prefix] = append(e.scripts[prefix], responses...)
	return e
}

// Default sets the reply used when no prefix matches
func (e *Executor) Default(response Response) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fallback = response
	return e
}

// Execute implements executor.CommandExecutor
func (e *Executor) Execute(ctx context.Context, command string) (executor.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, command)
	if err := ctx.Err(); err != nil {
		return executor.Result{}, err
	}
	// longest matching prefix wins
	best := ""
	for _, prefix := range e.prefixes {
		if strings.HasPrefix(command, prefix) && len(prefix) >= len(best) {
			best = prefix
		}
	}
	queue, ok := e.scripts[best]
	if !ok || len(queue) == 0 {
		return e.fallback.Result, e.fallback.Err
	}
	response := queue[0]
	if len(queue) > 1 {
		e.scripts[best] = queue[1:]
	}
	return response.Result, response.Err
}

// Calls returns the commands executed so far
func (e *Executor) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// Close implements io.Closer
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Closed reports whether Close was called
func (e *Executor) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// OK is a successful reply with the given stdout
func OK(stdout string) Response {
	return Response{Result: executor.Result{Stdout: stdout}}
}

// Fail is a reply with a non zero exit code
func Fail(exitCode int, stderr string) Response {
	return Response{Result: executor.Result{ExitCode: exitCode, Stderr: stderr}}
}

// Package ssh executes commands on a remote host over an ssh session.
package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
)

// OpCopy copies a local file to the host: SSH_COPY:--src <local> --dest <remote>
const OpCopy = "SSH_COPY"

// Executor runs commands in fresh sessions of one ssh connection
type Executor struct {
	client *ssh.Client
	host   string
	open   func(path string) (io.ReadCloser, error)
}

// New wraps an established ssh client
func New(client *ssh.Client, host string) *Executor {
	return &Executor{
		client: client,
		host:   host,
		open:   func(path string) (io.ReadCloser, error) { return os.Open(path) },
	}
}

// Execute implements executor.CommandExecutor
func (e *Executor) Execute(ctx context.Context, cmd string) (executor.Result, error) {
	var stdin io.Reader
	if op, ok := command.ParseOperation(cmd); ok && op.Name == OpCopy {
		src, dest := op.Get("src"), op.Get("dest")
		if src == "" || dest == "" {
			return executor.Result{ExitCode: 1, Stderr: "SSH_COPY requires --src and --dest"}, nil
		}
		file, err := e.open(src)
		if err != nil {
			return executor.Result{ExitCode: 1, Stderr: err.Error()}, nil
		}
		defer file.Close()
		stdin = file
		cmd = fmt.Sprintf("cat > %s", quote(dest))
	}
	return e.run(ctx, cmd, stdin)
}

func (e *Executor) run(ctx context.Context, cmd string, stdin io.Reader) (executor.Result, error) {
	session, err := e.client.NewSession()
	if err != nil {
		return executor.Result{}, cerrors.Transport{Target: e.host, Reason: fmt.Sprintf("could not open ssh session: %v", err)}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	session.Stdin = stdin

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		<-done
		return executor.Result{Stdout: stdout.String(), Stderr: stderr.String()}, cerrors.Transport{Target: e.host, Reason: ctx.Err().Error()}
	case err = <-done:
	}

	result := executor.Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return result, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitStatus()
		return result, nil
	}
	return result, cerrors.Transport{Target: e.host, Reason: err.Error()}
}

// Close closes the underlying connection
func (e *Executor) Close() error {
	return e.client.Close()
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

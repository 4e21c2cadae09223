// Package docker interprets DOCKER_* operations against a docker daemon.
package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	"github.com/litmuschaos/fault-orchestrator/pkg/log"
)

// Operation names understood by the executor
const (
	OpPause   = "DOCKER_PAUSE"
	OpUnpause = "DOCKER_UNPAUSE"
	OpStop    = "DOCKER_STOP"
	OpStart   = "DOCKER_START"
	OpKill    = "DOCKER_KILL"
	OpRestart = "DOCKER_RESTART"
	OpCopy    = "DOCKER_COPY"
	OpExec    = "DOCKER_EXEC"
)

// ContainerAPI is the part of the docker client the executor drives
type ContainerAPI interface {
	ContainerPause(ctx context.Context, containerID string) error
	ContainerUnpause(ctx context.Context, containerID string) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerKill(ctx context.Context, containerID, signal string) error
	ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error
	CopyToContainer(ctx context.Context, containerID, dstPath string, content io.Reader, options types.CopyToContainerOptions) error
	ContainerExecCreate(ctx context.Context, container string, config types.ExecConfig) (types.IDResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config types.ExecStartCheck) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (types.ContainerExecInspect, error)
	Close() error
}

var _ ContainerAPI = (*client.Client)(nil)

// Executor runs DOCKER_* operations
type Executor struct {
	api      ContainerAPI
	host     string
	readFile func(name string) ([]byte, error)
}

// New wraps a docker client
func New(api ContainerAPI, host string) *Executor {
	return &Executor{api: api, host: host, readFile: os.ReadFile}
}

// Execute implements executor.CommandExecutor
func (e *Executor) Execute(ctx context.Context, cmd string) (executor.Result, error) {
	op, ok := command.ParseOperation(cmd)
	if !ok {
		return executor.Result{ExitCode: 1, Stderr: fmt.Sprintf("unsupported docker command: %s", cmd)}, nil
	}
	name := op.Get("containerName")
	if name == "" {
		return executor.Result{ExitCode: 1, Stderr: fmt.Sprintf("%s requires --containerName", op.Name)}, nil
	}

	log.Debugf("[Docker]: %s on container %s", op.Name, name)
	var err error
	switch op.Name {
	case OpPause:
		err = e.api.ContainerPause(ctx, name)
	case OpUnpause:
		err = e.api.ContainerUnpause(ctx, name)
	case OpStop:
		err = e.api.ContainerStop(ctx, name, container.StopOptions{})
	case OpStart:
		err = e.api.ContainerStart(ctx, name, container.StartOptions{})
	case OpKill:
		signal := op.Get("signal")
		if signal == "" {
			signal = "SIGKILL"
		}
		err = e.api.ContainerKill(ctx, name, signal)
	case OpRestart:
		err = e.api.ContainerRestart(ctx, name, container.StopOptions{})
	case OpCopy:
		err = e.copy(ctx, name, op.Get("src"), op.Get("dest"))
	case OpExec:
		return e.exec(ctx, name, op.Trailer)
	default:
		return executor.Result{ExitCode: 1, Stderr: fmt.Sprintf("unsupported docker operation: %s", op.Name)}, nil
	}
	return e.result(op.Name, name, err)
}

func (e *Executor) result(opName, name string, err error) (executor.Result, error) {
	if err == nil {
		return executor.Result{Stdout: fmt.Sprintf("%s %s succeeded", opName, name)}, nil
	}
	if client.IsErrConnectionFailed(err) {
		return executor.Result{}, cerrors.Transport{Target: e.host, Reason: err.Error()}
	}
	return executor.Result{ExitCode: 1, Stderr: err.Error()}, nil
}

// copy sends src as a single entry tar stream, the daemon unpacks it into the directory of dest
func (e *Executor) copy(ctx context.Context, name, src, dest string) error {
	if src == "" || dest == "" {
		return fmt.Errorf("%s requires --src and --dest", OpCopy)
	}
	content, err := e.readFile(src)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{Name: path.Base(dest), Mode: 0644, Size: int64(len(content))}); err != nil {
		return err
	}
	if _, err := tw.Write(content); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return e.api.CopyToContainer(ctx, name, path.Dir(dest), &buf, types.CopyToContainerOptions{AllowOverwriteDirWithFile: false})
}

func (e *Executor) exec(ctx context.Context, name, shell string) (executor.Result, error) {
	if shell == "" {
		return executor.Result{ExitCode: 1, Stderr: fmt.Sprintf("%s requires a trailing command", OpExec)}, nil
	}
	created, err := e.api.ContainerExecCreate(ctx, name, types.ExecConfig{
		Cmd:          []string{"/bin/sh", "-c", shell},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return e.result(OpExec, name, err)
	}
	attached, err := e.api.ContainerExecAttach(ctx, created.ID, types.ExecStartCheck{})
	if err != nil {
		return e.result(OpExec, name, err)
	}
	defer attached.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attached.Reader); err != nil {
		return executor.Result{Stdout: stdout.String(), Stderr: stderr.String()}, cerrors.Transport{Target: e.host, Reason: err.Error()}
	}
	inspect, err := e.api.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return e.result(OpExec, name, err)
	}
	return executor.Result{ExitCode: inspect.ExitCode, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// Close releases the docker client
func (e *Executor) Close() error {
	return e.api.Close()
}

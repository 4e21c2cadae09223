package agent

import (
	"fmt"

	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	dockerexec "github.com/litmuschaos/fault-orchestrator/pkg/executor/docker"
	k8sexec "github.com/litmuschaos/fault-orchestrator/pkg/executor/kubernetes"
	sshexec "github.com/litmuschaos/fault-orchestrator/pkg/executor/ssh"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// Shell renders a shell script or a file copy as a command string the target's executor understands
type Shell interface {
	Run(spec types.FaultSpecification, script string) string
	Copy(spec types.FaultSpecification, src, dest string) string
}

// MachineShell runs scripts directly in the ssh session of the host
type MachineShell struct{}

// Run returns the script unchanged
func (MachineShell) Run(_ types.FaultSpecification, script string) string {
	return script
}

// Copy returns an SSH_COPY operation
func (MachineShell) Copy(_ types.FaultSpecification, src, dest string) string {
	return command.Op(sshexec.OpCopy).Arg("src", src).Arg("dest", dest).String()
}

// ContainerShell runs scripts inside the target container through docker exec
type ContainerShell struct{}

func (ContainerShell) Run(spec types.FaultSpecification, script string) string {
	return command.Op(dockerexec.OpExec).Arg("containerName", spec.PinnedTarget()).Shell(script).String()
}

func (ContainerShell) Copy(spec types.FaultSpecification, src, dest string) string {
	return command.Op(dockerexec.OpCopy).Arg("containerName", spec.PinnedTarget()).Arg("src", src).Arg("dest", dest).String()
}

// PodShell runs scripts inside the target container of the target pod
type PodShell struct{}

func (PodShell) Run(spec types.FaultSpecification, script string) string {
	return podOp(k8sexec.OpExec, spec).Shell(script).String()
}

func (PodShell) Copy(spec types.FaultSpecification, src, dest string) string {
	return podOp(k8sexec.OpCopy, spec).Arg("src", src).Arg("dest", dest).String()
}

func podOp(name string, spec types.FaultSpecification) *command.Operation {
	op := command.Op(name).Arg("pod", spec.PinnedTarget()).Arg("namespace", spec.Namespace())
	if spec.Kubernetes != nil {
		op.Arg("container", spec.Kubernetes.ContainerName)
	}
	return op
}

// ShellFor returns the shell of the endpoint kind
func ShellFor(kind types.EndpointKind) (Shell, error) {
	switch kind {
	case types.EndpointMachine:
		return MachineShell{}, nil
	case types.EndpointDocker:
		return ContainerShell{}, nil
	case types.EndpointKubernetes:
		return PodShell{}, nil
	}
	return nil, fmt.Errorf("no shell available on '%s' endpoints", kind)
}

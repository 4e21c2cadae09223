// Package docker builds container lifecycle faults interpreted by the docker executor.
package docker

import (
	"context"
	"fmt"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	dockerexec "github.com/litmuschaos/fault-orchestrator/pkg/executor/docker"
	"github.com/litmuschaos/fault-orchestrator/pkg/faults"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// transition is the operation pair of one fault, an empty undo means no remediation
type transition struct {
	do   string
	undo string
}

// Transitions maps the fault name onto its docker operations
var Transitions = map[string]transition{
	dockerexec.OpPause:   {do: dockerexec.OpPause, undo: dockerexec.OpUnpause},
	dockerexec.OpStop:    {do: dockerexec.OpStop, undo: dockerexec.OpStart},
	dockerexec.OpKill:    {do: dockerexec.OpKill, undo: dockerexec.OpStart},
	dockerexec.OpRestart: {do: dockerexec.OpRestart},
}

var daemonFailures = []command.KnownFailure{
	{Pattern: "(?i)no such container", Explanation: "the container does not exist on the docker endpoint", Fatal: true},
	{Pattern: "(?i)is not running", Explanation: "the container is not running"},
	{Pattern: "(?i)is already paused", Explanation: "the container is already paused", Fatal: true},
	{Pattern: "(?i)is not paused", Explanation: "the container is not paused", Fatal: true},
}

// Builder emits one docker operation per injection and remediation
type Builder struct {
	faults.Base
}

func NewBuilder(resolver executor.Resolver) *Builder {
	return &Builder{Base: faults.Base{Resolver: resolver}}
}

func (b *Builder) Validate(spec types.FaultSpecification) error {
	if spec.Kind() != types.EndpointDocker {
		return cerrors.Specification{Target: spec.FaultName, Reason: fmt.Sprintf("'%s' endpoints are not served by the container builder", spec.Kind())}
	}
	if _, ok := Transitions[spec.FaultName]; !ok {
		return cerrors.Specification{Target: spec.FaultName, Reason: "fault is not supported by this builder"}
	}
	if spec.PinnedTarget() == "" {
		return cerrors.Specification{Target: spec.FaultName, Reason: "containerName is required"}
	}
	return nil
}

func (b *Builder) InjectionCommands(_ context.Context, _ executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error) {
	t, ok := Transitions[spec.FaultName]
	if !ok {
		return nil, cerrors.Specification{Target: spec.FaultName, Reason: "fault is not supported by this builder"}
	}
	op := command.Op(t.do).Arg("containerName", spec.PinnedTarget())
	if t.do == dockerexec.OpKill {
		op.Arg("signal", spec.Args["signal"])
	}
	return []command.Command{op.Command().WithKnownFailures(daemonFailures...)}, nil
}

func (b *Builder) RemediationCommands(_ context.Context, _ executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error) {
	t := Transitions[spec.FaultName]
	if t.undo == "" {
		return nil, nil
	}
	return []command.Command{
		command.Op(t.undo).Arg("containerName", spec.PinnedTarget()).Command().
			WithRetries(2, 2).
			WithKnownFailures(daemonFailures...),
	}, nil
}

// Package kubernetes builds faults acting on cluster resources, pods are selected by name or label.
package kubernetes

import (
	"context"
	"fmt"

	"github.com/litmuschaos/fault-orchestrator/chaoslib/agent"
	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	k8sexec "github.com/litmuschaos/fault-orchestrator/pkg/executor/kubernetes"
	"github.com/litmuschaos/fault-orchestrator/pkg/faults"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// Fault names of the cluster resource family
const (
	DeleteResource = "DELETE_RESOURCE"
	NotReady       = "NOT_READY"
)

var Faults = map[string]map[string]agent.ArgCheck{
	DeleteResource: {},
	NotReady:       {"port": agent.Positive},
}

var (
	podFailures = []command.KnownFailure{
		{Pattern: "(?i)not found", Explanation: "the pod no longer exists", Fatal: true},
		{Pattern: "(?i)is not running|not in running state", Explanation: "the pod is not running"},
	}
	iptablesFailures = []command.KnownFailure{
		{Pattern: "(?i)iptables: not found|command not found", Explanation: "iptables is not available in the target container", Fatal: true},
		{Pattern: "(?i)permission denied|Operation not permitted", Explanation: "the target container lacks NET_ADMIN", Fatal: true},
		{Pattern: "(?i)bad rule|does a matching rule exist", Explanation: "the probe port rule is not present"},
	}
)

// Builder deletes pods or makes them fail their readiness probe
type Builder struct {
	faults.Base
	Discovery faults.Discovery
}

func NewBuilder(resolver executor.Resolver, discovery faults.Discovery) *Builder {
	return &Builder{Base: faults.Base{Resolver: resolver}, Discovery: discovery}
}

func (b *Builder) Validate(spec types.FaultSpecification) error {
	if spec.Kind() != types.EndpointKubernetes {
		return cerrors.Specification{Target: spec.FaultName, Reason: fmt.Sprintf("'%s' endpoints are not served by the cluster resource builder", spec.Kind())}
	}
	if spec.Kubernetes == nil || (spec.Kubernetes.PodName == "" && spec.Kubernetes.PodLabels == "") {
		return cerrors.Specification{Target: spec.FaultName, Reason: "either podName or podLabels is required"}
	}
	return agent.ValidateArgs(Faults, spec)
}

// SelectTargets lists the running pods matching the label selector
func (b *Builder) SelectTargets(ctx context.Context, spec types.FaultSpecification) ([]string, error) {
	if spec.PinnedTarget() != "" {
		return nil, nil
	}
	return b.Discovery.Pods(ctx, spec)
}

func (b *Builder) InjectionCommands(_ context.Context, _ executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error) {
	switch spec.FaultName {
	case DeleteResource:
		return []command.Command{
			command.Op(k8sexec.OpDeletePod).Arg("pod", spec.PinnedTarget()).Arg("namespace", spec.Namespace()).Command().
				WithRetries(2, 2).
				WithKnownFailures(podFailures...),
		}, nil
	case NotReady:
		return []command.Command{probeRule(spec, "-I")}, nil
	}
	return nil, cerrors.Specification{Target: spec.FaultName, Reason: "fault is not supported by this builder"}
}

// RemediationCommands unblocks the probe port, a deleted pod is recreated by its controller
func (b *Builder) RemediationCommands(_ context.Context, _ executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error) {
	if spec.FaultName != NotReady {
		return nil, nil
	}
	return []command.Command{probeRule(spec, "-D")}, nil
}

func probeRule(spec types.FaultSpecification, action string) command.Command {
	script := fmt.Sprintf("iptables %s INPUT -p tcp --dport %s -j DROP", action, spec.Args["port"])
	return command.New(agent.PodShell{}.Run(spec, script)).
		WithRetries(2, 2).
		WithKnownFailures(append(podFailures, iptablesFailures...)...)
}

package cloud

import (
	"context"
	"fmt"

	"github.com/litmuschaos/fault-orchestrator/chaoslib/agent"
	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	awscloud "github.com/litmuschaos/fault-orchestrator/pkg/cloud/aws"
	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	"github.com/litmuschaos/fault-orchestrator/pkg/faults"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// ResourceFaults are the stress faults run through SSM on ec2 instances
var ResourceFaults = map[string]map[string]agent.ArgCheck{
	"cpuFault":    {"load": agent.Percentage},
	"memoryFault": {"load": agent.Percentage},
}

const defaultStressSeconds = 60

var ssmFailures = []command.KnownFailure{
	{Pattern: "InvalidInstanceId", Explanation: "the instance is not managed by SSM or the agent is offline", Fatal: true},
	{Pattern: "stress-ng: command not found|stress-ng: not found", Explanation: "stress-ng is not installed on the instance", Fatal: true},
	{Pattern: "AccessDenied", Explanation: "the credentials lack ssm:SendCommand", Fatal: true},
}

// SSMResourceBuilder runs stress-ng detached on the instances through AWS-RunShellScript
type SSMResourceBuilder struct {
	faults.Base
	Discovery faults.Discovery
}

func NewSSMResourceBuilder(resolver executor.Resolver, discovery faults.Discovery) *SSMResourceBuilder {
	return &SSMResourceBuilder{Base: faults.Base{Resolver: resolver}, Discovery: discovery}
}

func (b *SSMResourceBuilder) Validate(spec types.FaultSpecification) error {
	if spec.Kind() != types.EndpointAWS {
		return cerrors.Specification{Target: spec.FaultName, Reason: fmt.Sprintf("'%s' endpoints are not served by the ssm builder", spec.Kind())}
	}
	if err := validateSelection(spec); err != nil {
		return err
	}
	return agent.ValidateArgs(ResourceFaults, spec)
}

func (b *SSMResourceBuilder) SelectTargets(ctx context.Context, spec types.FaultSpecification) ([]string, error) {
	if spec.PinnedTarget() != "" {
		return nil, nil
	}
	return b.Discovery.Instances(ctx, spec)
}

func (b *SSMResourceBuilder) InjectionCommands(_ context.Context, _ executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error) {
	seconds := defaultStressSeconds
	if spec.TimeoutInMilliseconds > 0 {
		seconds = int((spec.TimeoutInMilliseconds + 999) / 1000)
	}
	var stress string
	switch spec.FaultName {
	case "cpuFault":
		stress = fmt.Sprintf("stress-ng --cpu 0 --cpu-load %s --timeout %ds", spec.Args["load"], seconds)
	case "memoryFault":
		stress = fmt.Sprintf("stress-ng --vm 1 --vm-bytes %s%% --timeout %ds", spec.Args["load"], seconds)
	default:
		return nil, cerrors.Specification{Target: spec.FaultName, Reason: "fault is not supported by this builder"}
	}
	script := fmt.Sprintf("command -v stress-ng > /dev/null || { echo 'stress-ng: command not found' >&2; exit 127; }; nohup %s > /tmp/%s.log 2>&1 &", stress, spec.ID())
	return []command.Command{ssmRun(spec, script).WithRetries(1, 10)}, nil
}

func (b *SSMResourceBuilder) RemediationCommands(_ context.Context, _ executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error) {
	return []command.Command{ssmRun(spec, "pkill -f stress-ng || true").WithRetries(2, 10)}, nil
}

func ssmRun(spec types.FaultSpecification, script string) command.Command {
	return command.Op(awscloud.OpSSMRun).Arg("instanceIds", spec.PinnedTarget()).Shell(script).Command().
		WithKnownFailures(ssmFailures...)
}

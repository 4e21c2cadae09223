// Package cloud builds instance lifecycle faults on AWS, Azure and GCP, and SSM delivered resource faults on AWS.
package cloud

import (
	"context"
	"fmt"
	"strings"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	awscloud "github.com/litmuschaos/fault-orchestrator/pkg/cloud/aws"
	"github.com/litmuschaos/fault-orchestrator/pkg/cloud/azure"
	"github.com/litmuschaos/fault-orchestrator/pkg/cloud/gcp"
	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	"github.com/litmuschaos/fault-orchestrator/pkg/faults"
	"github.com/litmuschaos/fault-orchestrator/pkg/log"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// Fault names of the instance STATE family
const (
	StopInstances      = "STOP_INSTANCES"
	TerminateInstances = "TERMINATE_INSTANCES"
	RebootInstances    = "REBOOT_INSTANCES"
)

// provider holds the operation names and the instance argument key of one cloud
type provider struct {
	instanceKey string
	stop        string
	start       string
	terminate   string
	reboot      string
	failures    []command.KnownFailure
}

var providers = map[types.EndpointKind]provider{
	types.EndpointAWS: {
		instanceKey: "instanceIds",
		stop:        awscloud.OpStop,
		start:       awscloud.OpStart,
		terminate:   awscloud.OpTerminate,
		reboot:      awscloud.OpReboot,
		failures: []command.KnownFailure{
			{Pattern: "InvalidInstanceID", Explanation: "the instance id does not exist in the region", Fatal: true},
			{Pattern: "IncorrectInstanceState", Explanation: "the instance is not in a state that allows the transition"},
			{Pattern: "UnauthorizedOperation", Explanation: "the credentials lack the ec2 permission for this fault", Fatal: true},
		},
	},
	types.EndpointAzure: {
		instanceKey: "instanceNames",
		stop:        azure.OpStop,
		start:       azure.OpStart,
		terminate:   azure.OpDelete,
		reboot:      azure.OpRestart,
		failures: []command.KnownFailure{
			{Pattern: "ResourceNotFound", Explanation: "the virtual machine does not exist in the resource group", Fatal: true},
			{Pattern: "AuthorizationFailed", Explanation: "the service principal lacks the compute permission for this fault", Fatal: true},
			{Pattern: "OperationNotAllowed|Conflict", Explanation: "another operation is in progress on the virtual machine"},
		},
	},
	types.EndpointGCP: {
		instanceKey: "instanceNames",
		stop:        gcp.OpStop,
		start:       gcp.OpStart,
		terminate:   gcp.OpDelete,
		reboot:      gcp.OpReset,
		failures: []command.KnownFailure{
			{Pattern: "notFound|was not found", Explanation: "the instance does not exist in the zone", Fatal: true},
			{Pattern: "forbidden|Required 'compute", Explanation: "the service account lacks the compute permission for this fault", Fatal: true},
			{Pattern: "resourceNotReady", Explanation: "the instance is not ready for the transition"},
		},
	},
}

// StateBuilder stops, terminates or reboots instances through the cloud executors
type StateBuilder struct {
	faults.Base
	Discovery faults.Discovery
}

func NewStateBuilder(resolver executor.Resolver, discovery faults.Discovery) *StateBuilder {
	return &StateBuilder{Base: faults.Base{Resolver: resolver}, Discovery: discovery}
}

func (b *StateBuilder) Validate(spec types.FaultSpecification) error {
	if _, ok := providers[spec.Kind()]; !ok {
		return cerrors.Specification{Target: spec.FaultName, Reason: fmt.Sprintf("'%s' endpoints are not served by the cloud builder", spec.Kind())}
	}
	switch spec.FaultName {
	case StopInstances, TerminateInstances, RebootInstances:
	default:
		return cerrors.Specification{Target: spec.FaultName, Reason: "fault is not supported by this builder"}
	}
	return validateSelection(spec)
}

// validateSelection requires instance ids, or tags on the clouds that support tag discovery
func validateSelection(spec types.FaultSpecification) error {
	if spec.Cloud == nil || (len(spec.Cloud.InstanceIDs) == 0 && len(spec.Cloud.Tags) == 0) {
		return cerrors.Specification{Target: spec.FaultName, Reason: "either instanceIds or tags is required"}
	}
	if len(spec.Cloud.InstanceIDs) == 0 && spec.Kind() == types.EndpointAzure {
		return cerrors.Specification{Target: spec.FaultName, Reason: "tag discovery is not supported on azure endpoints, instanceIds is required"}
	}
	return nil
}

// SelectTargets discovers running instances by tag (aws) or label (gcp)
func (b *StateBuilder) SelectTargets(ctx context.Context, spec types.FaultSpecification) ([]string, error) {
	if spec.PinnedTarget() != "" {
		return nil, nil
	}
	return b.Discovery.Instances(ctx, spec)
}

func (b *StateBuilder) InjectionCommands(_ context.Context, _ executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error) {
	p, ok := providers[spec.Kind()]
	if !ok {
		return nil, cerrors.Specification{Target: spec.FaultName, Reason: fmt.Sprintf("'%s' endpoints are not served by the cloud builder", spec.Kind())}
	}
	var name string
	switch spec.FaultName {
	case StopInstances:
		name = p.stop
	case TerminateInstances:
		name = p.terminate
	case RebootInstances:
		name = p.reboot
	default:
		return nil, cerrors.Specification{Target: spec.FaultName, Reason: "fault is not supported by this builder"}
	}
	log.Infof("[Cloud]: %s on %s instances [%s]", name, spec.Kind(), spec.PinnedTarget())
	return []command.Command{p.command(name, spec).WithRetries(1, 10)}, nil
}

// RemediationCommands starts stopped instances, terminated and rebooted ones need no undo
func (b *StateBuilder) RemediationCommands(_ context.Context, _ executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error) {
	p, ok := providers[spec.Kind()]
	if !ok || spec.FaultName != StopInstances {
		return nil, nil
	}
	return []command.Command{p.command(p.start, spec).WithRetries(3, 10)}, nil
}

func (p provider) command(name string, spec types.FaultSpecification) command.Command {
	return command.Op(name).Arg(p.instanceKey, strings.ReplaceAll(spec.PinnedTarget(), " ", "")).Command().
		WithKnownFailures(p.failures...)
}

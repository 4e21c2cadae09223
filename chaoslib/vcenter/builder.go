// Package vcenter builds virtual machine power faults run through the govc CLI.
package vcenter

import (
	"context"
	"fmt"
	"strings"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	"github.com/litmuschaos/fault-orchestrator/pkg/faults"
	"github.com/litmuschaos/fault-orchestrator/pkg/log"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// Fault names of the vCenter STATE family
const (
	PowerOff = "POWER_OFF"
	Suspend  = "SUSPEND"
	Reset    = "RESET"
)

var powerFlags = map[string]string{
	PowerOff: "-off -force",
	Suspend:  "-suspend",
	Reset:    "-reset -force",
}

var govcFailures = []command.KnownFailure{
	{Pattern: "(?i)govc: .*not found|command not found", Explanation: "the govc binary is not installed on the engine host", Fatal: true},
	{Pattern: "(?i)vm '.*' not found", Explanation: "the virtual machine does not exist in the datacenter", Fatal: true},
	{Pattern: "(?i)incorrect user name or password|Cannot complete login", Explanation: "vCenter rejected the credentials", Fatal: true},
	{Pattern: "(?i)current state \\(.*\\)|InvalidPowerState", Explanation: "the virtual machine is not in a state that allows the transition"},
}

// Builder drives govc through the local shell executor, the endpoint supplies the GOVC_* environment
type Builder struct {
	faults.Base
	Govc string
}

func NewBuilder(resolver executor.Resolver, config types.EngineConfig) *Builder {
	govc := config.GovcPath
	if govc == "" {
		govc = "govc"
	}
	return &Builder{Base: faults.Base{Resolver: resolver}, Govc: govc}
}

func (b *Builder) Validate(spec types.FaultSpecification) error {
	if spec.Kind() != types.EndpointVCenter {
		return cerrors.Specification{Target: spec.FaultName, Reason: fmt.Sprintf("'%s' endpoints are not served by the vCenter builder", spec.Kind())}
	}
	if _, ok := powerFlags[spec.FaultName]; !ok {
		return cerrors.Specification{Target: spec.FaultName, Reason: "fault is not supported by this builder"}
	}
	if spec.PinnedTarget() == "" {
		return cerrors.Specification{Target: spec.FaultName, Reason: "instanceIds must name the virtual machines"}
	}
	return nil
}

func (b *Builder) InjectionCommands(_ context.Context, _ executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error) {
	flags, ok := powerFlags[spec.FaultName]
	if !ok {
		return nil, cerrors.Specification{Target: spec.FaultName, Reason: "fault is not supported by this builder"}
	}
	log.Infof("[vCenter]: vm.power %s on [%s]", flags, spec.PinnedTarget())
	return []command.Command{b.power(flags, spec).WithRetries(1, 10)}, nil
}

// RemediationCommands powers the machines on again, a reset needs no undo
func (b *Builder) RemediationCommands(_ context.Context, _ executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error) {
	if spec.FaultName == Reset {
		return nil, nil
	}
	return []command.Command{b.power("-on", spec).WithRetries(3, 10)}, nil
}

func (b *Builder) power(flags string, spec types.FaultSpecification) command.Command {
	var vms []string
	for _, vm := range strings.Split(spec.PinnedTarget(), ",") {
		if vm = strings.TrimSpace(vm); vm != "" {
			vms = append(vms, fmt.Sprintf("'%s'", vm))
		}
	}
	return command.New(fmt.Sprintf("%s vm.power %s %s", b.Govc, flags, strings.Join(vms, " "))).
		WithTimeout(300).
		WithKnownFailures(govcFailures...)
}

// Package machine builds lifecycle faults run over ssh on a host.
package machine

import (
	"context"
	"fmt"

	"github.com/litmuschaos/fault-orchestrator/chaoslib/agent"
	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	"github.com/litmuschaos/fault-orchestrator/pkg/faults"
	"github.com/litmuschaos/fault-orchestrator/pkg/log"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// Fault names of the machine STATE family
const (
	Reboot      = "REBOOT"
	StopService = "STOP_SERVICE"
	KillProcess = "KILL_PROCESS"
)

var Faults = map[string]map[string]agent.ArgCheck{
	Reboot:      {},
	StopService: {"service": agent.NonEmpty},
	KillProcess: {"process": agent.NonEmpty},
}

var (
	privilegeFailures = []command.KnownFailure{
		{Pattern: "(?i)interactive authentication required|access denied|must be root|not permitted", Explanation: "the ssh user lacks the privileges for this fault", Fatal: true},
		{Pattern: "(?i)a password is required", Explanation: "sudo requires a password for the ssh user", Fatal: true},
	}
	serviceFailures = []command.KnownFailure{
		{Pattern: "(?i)not loaded|could not be found|not-found", Explanation: "the service unit does not exist on the host", Fatal: true},
	}
	processFailures = []command.KnownFailure{
		{Pattern: "no process matches", Explanation: "the target process is not running", Fatal: true},
	}
)

// Builder runs REBOOT, STOP_SERVICE and KILL_PROCESS through the host's shell
type Builder struct {
	faults.Base
}

func NewBuilder(resolver executor.Resolver) *Builder {
	return &Builder{Base: faults.Base{Resolver: resolver}}
}

func (b *Builder) Validate(spec types.FaultSpecification) error {
	if spec.Kind() != types.EndpointMachine {
		return cerrors.Specification{Target: spec.FaultName, Reason: fmt.Sprintf("'%s' endpoints are not served by the machine state builder", spec.Kind())}
	}
	return agent.ValidateArgs(Faults, spec)
}

func (b *Builder) InjectionCommands(_ context.Context, _ executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error) {
	sudo := sudoPrefix(spec)
	switch spec.FaultName {
	case Reboot:
		// detached, the reboot tears the session down
		log.Infof("[Machine]: Rebooting %s", spec.EndpointName)
		return []command.Command{
			command.New(fmt.Sprintf("nohup sh -c 'sleep 2 && %sreboot' > /dev/null 2>&1 &", sudo)).
				IgnoringExitValue().
				WithKnownFailures(privilegeFailures...),
		}, nil
	case StopService:
		return []command.Command{
			command.New(fmt.Sprintf("%ssystemctl stop %s", sudo, spec.Args["service"])).
				WithRetries(1, 5).
				WithKnownFailures(append(serviceFailures, privilegeFailures...)...),
		}, nil
	case KillProcess:
		process := spec.Args["process"]
		signal := spec.Args["signal"]
		if signal == "" {
			signal = "9"
		}
		return []command.Command{
			command.New(fmt.Sprintf("pgrep -f -o '%s' || { echo 'no process matches %s' >&2; exit 1; }", process, process)).
				WithKnownFailures(processFailures...).
				Extracting("processId", `(\d+)`),
			command.New(fmt.Sprintf("%skill -%s ${processId}", sudo, signal)).
				WithKnownFailures(privilegeFailures...),
		}, nil
	}
	return nil, cerrors.Specification{Target: spec.FaultName, Reason: "fault is not supported by this builder"}
}

// RemediationCommands starts a stopped service again, KILL_PROCESS runs the optional remediationCommand
func (b *Builder) RemediationCommands(_ context.Context, _ executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error) {
	switch spec.FaultName {
	case StopService:
		return []command.Command{
			command.New(fmt.Sprintf("%ssystemctl start %s", sudoPrefix(spec), spec.Args["service"])).
				WithRetries(2, 5).
				WithKnownFailures(append(serviceFailures, privilegeFailures...)...),
		}, nil
	case KillProcess:
		if remediation := spec.Args["remediationCommand"]; remediation != "" {
			return []command.Command{command.New(remediation).WithRetries(1, 5)}, nil
		}
	}
	return nil, nil
}

func sudoPrefix(spec types.FaultSpecification) string {
	if spec.Args["sudo"] == "true" {
		return "sudo -n "
	}
	return ""
}

// Package agent builds resource exhaustion faults delivered by a resident fault agent staged on the target.
package agent

import (
	"context"
	"fmt"
	"path"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	"github.com/litmuschaos/fault-orchestrator/pkg/faults"
	"github.com/litmuschaos/fault-orchestrator/pkg/log"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// ArgCheck validates one fault argument value
type ArgCheck func(value string) error

// Percentage accepts integers within [1,100]
func Percentage(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 || n > 100 {
		return fmt.Errorf("'%s' is not a percentage within [1,100]", value)
	}
	return nil
}

// Positive accepts integers greater than zero
func Positive(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fmt.Errorf("'%s' is not a positive integer", value)
	}
	return nil
}

// NonEmpty accepts any non blank value
func NonEmpty(value string) error {
	if value == "" {
		return fmt.Errorf("value is empty")
	}
	return nil
}

// ResourceFaults lists the faults the resident agent serves and their required arguments
var ResourceFaults = map[string]map[string]ArgCheck{
	"cpuFault":         {"load": Percentage},
	"memoryFault":      {"load": Percentage},
	"diskIOFault":      {"workers": Positive, "path": NonEmpty},
	"diskSpaceFault":   {"fillPercentage": Percentage, "path": NonEmpty},
	"fileHandlerFault": {"fileHandlerCount": Positive},
}

// ValidateArgs checks the spec's arguments against the required set of its fault
func ValidateArgs(catalog map[string]map[string]ArgCheck, spec types.FaultSpecification) error {
	required, ok := catalog[spec.FaultName]
	if !ok {
		return cerrors.Specification{Target: spec.FaultName, Reason: "fault is not supported by this builder"}
	}
	if len(spec.Args) == 0 && len(required) > 0 {
		return cerrors.Specification{Target: spec.FaultName, Reason: "fault arguments are empty"}
	}
	for key, check := range required {
		value, ok := spec.Args[key]
		if !ok {
			return cerrors.Specification{Target: spec.FaultName, Reason: fmt.Sprintf("argument '%s' is required", key)}
		}
		if err := check(value); err != nil {
			return cerrors.Specification{Target: spec.FaultName, Reason: fmt.Sprintf("argument '%s': %v", key, err)}
		}
	}
	if timeout, ok := spec.Args["timeout"]; ok {
		if err := Positive(timeout); err != nil {
			return cerrors.Specification{Target: spec.FaultName, Reason: fmt.Sprintf("argument 'timeout': %v", err)}
		}
	}
	return nil
}

// Builder stages the fault agent on a host, a container or a pod and drives it by fault id
type Builder struct {
	faults.Base
	Discovery faults.Discovery
	Stager    Stager
}

// NewBuilder returns the RESOURCE family builder configured from the engine config
func NewBuilder(resolver executor.Resolver, discovery faults.Discovery, config types.EngineConfig) *Builder {
	return &Builder{
		Base:      faults.Base{Resolver: resolver},
		Discovery: discovery,
		Stager: Stager{
			Script: faults.ScriptDescriptor{
				Name:       "fault-agent",
				LocalPath:  config.AgentArchivePath,
				RemotePath: path.Join(path.Dir(config.AgentRemoteDir), "fault-agent.tar.gz"),
				Entry:      "fault-agent",
			},
			Dir:  config.AgentRemoteDir,
			Port: config.AgentPort,
		},
	}
}

// Validate implements faults.Builder
func (b *Builder) Validate(spec types.FaultSpecification) error {
	if _, err := ShellFor(spec.Kind()); err != nil {
		return cerrors.Specification{Target: spec.FaultName, Reason: err.Error()}
	}
	return ValidateArgs(ResourceFaults, spec)
}

// SupportScripts implements faults.Builder
func (b *Builder) SupportScripts(types.FaultSpecification) []faults.ScriptDescriptor {
	return []faults.ScriptDescriptor{b.Stager.Script}
}

// SelectTargets discovers pods by label when no pod is pinned
func (b *Builder) SelectTargets(ctx context.Context, spec types.FaultSpecification) ([]string, error) {
	if spec.Kind() != types.EndpointKubernetes || spec.PinnedTarget() != "" {
		return nil, nil
	}
	return b.Discovery.Pods(ctx, spec)
}

// InjectionCommands implements faults.Builder
func (b *Builder) InjectionCommands(_ context.Context, _ executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error) {
	shell, err := ShellFor(spec.Kind())
	if err != nil {
		return nil, cerrors.Specification{Target: spec.FaultName, Reason: err.Error()}
	}
	log.InfoWithValues("[Agent]: The staged agent details are as follows", logrus.Fields{
		"Fault":   spec.FaultName,
		"FaultId": spec.ID(),
		"Target":  spec.PinnedTarget(),
		"Archive": b.Stager.Script.LocalPath,
	})
	commands := b.Stager.Install(shell, spec)
	commands = append(commands, b.Stager.Launch(shell, spec), b.Stager.Submit(shell, spec))
	return commands, nil
}

// RemediationCommands implements faults.Builder
func (b *Builder) RemediationCommands(_ context.Context, _ executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error) {
	shell, err := ShellFor(spec.Kind())
	if err != nil {
		return nil, cerrors.Specification{Target: spec.FaultName, Reason: err.Error()}
	}
	return []command.Command{b.Stager.Remediate(shell, spec)}, nil
}

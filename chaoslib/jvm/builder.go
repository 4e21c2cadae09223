// Package jvm builds faults delivered by an agent attached to a running jvm on a host, a container or a pod.
package jvm

import (
	"context"
	"fmt"
	"path"

	"github.com/litmuschaos/fault-orchestrator/chaoslib/agent"
	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	"github.com/litmuschaos/fault-orchestrator/pkg/faults"
	"github.com/litmuschaos/fault-orchestrator/pkg/log"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// Fault names of the JVM family
const (
	JavaException = "JAVA_EXCEPTION"
	JavaLatency   = "JAVA_LATENCY"
	KillJVM       = "KILL_JVM"
)

// Faults lists the required arguments per fault
var Faults = map[string]map[string]agent.ArgCheck{
	JavaException: {"process": agent.NonEmpty, "className": agent.NonEmpty, "methodName": agent.NonEmpty},
	JavaLatency:   {"process": agent.NonEmpty, "className": agent.NonEmpty, "methodName": agent.NonEmpty, "latency": agent.Positive},
	KillJVM:       {"process": agent.NonEmpty},
}

// ProcessIDVariable carries the pid of the target jvm between commands
const ProcessIDVariable = "processId"

var lookupFailures = []command.KnownFailure{
	{Pattern: "no jvm process matches", Explanation: "the target jvm is not running", Fatal: true},
}

var attachFailures = []command.KnownFailure{
	{Pattern: "(?i)AttachNotSupportedException|Unable to open socket file", Explanation: "the jvm refused the dynamic attach, check -XX:+DisableAttachMechanism and the process owner"},
}

// Builder attaches the jvm agent to the process named by the 'process' argument
type Builder struct {
	faults.Base
	Discovery faults.Discovery
	Stager    agent.Stager
}

// NewBuilder returns the JVM family builder configured from the engine config
func NewBuilder(resolver executor.Resolver, discovery faults.Discovery, config types.EngineConfig) *Builder {
	dir := path.Join(path.Dir(config.AgentRemoteDir), "jvm-agent")
	return &Builder{
		Base:      faults.Base{Resolver: resolver},
		Discovery: discovery,
		Stager: agent.Stager{
			Script: faults.ScriptDescriptor{
				Name:       "jvm-agent",
				LocalPath:  config.JVMAgentArchivePath,
				RemotePath: dir + ".tar.gz",
				Entry:      "jvm-agent",
			},
			Dir:  dir,
			Port: config.JVMAgentPort,
		},
	}
}

func (b *Builder) Validate(spec types.FaultSpecification) error {
	if _, err := agent.ShellFor(spec.Kind()); err != nil {
		return cerrors.Specification{Target: spec.FaultName, Reason: err.Error()}
	}
	return agent.ValidateArgs(Faults, spec)
}

func (b *Builder) SupportScripts(spec types.FaultSpecification) []faults.ScriptDescriptor {
	if spec.FaultName == KillJVM {
		return nil
	}
	return []faults.ScriptDescriptor{b.Stager.Script}
}

func (b *Builder) SelectTargets(ctx context.Context, spec types.FaultSpecification) ([]string, error) {
	if spec.Kind() != types.EndpointKubernetes || spec.PinnedTarget() != "" {
		return nil, nil
	}
	return b.Discovery.Pods(ctx, spec)
}

// InjectionCommands looks the jvm up first, later commands reference its pid as ${processId}
func (b *Builder) InjectionCommands(_ context.Context, _ executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error) {
	shell, err := agent.ShellFor(spec.Kind())
	if err != nil {
		return nil, cerrors.Specification{Target: spec.FaultName, Reason: err.Error()}
	}
	process := spec.Args["process"]
	lookup := command.New(shell.Run(spec, fmt.Sprintf("pgrep -f -o '%s' || { echo 'no jvm process matches %s' >&2; exit 1; }", process, process))).
		WithRetries(2, 3).
		WithKnownFailures(lookupFailures...).
		Extracting(ProcessIDVariable, `(\d+)`)

	if spec.FaultName == KillJVM {
		log.Infof("[JVM]: %s will kill the jvm matching '%s'", spec.ID(), process)
		return []command.Command{
			lookup,
			command.New(shell.Run(spec, fmt.Sprintf("kill -9 ${%s}", ProcessIDVariable))),
		}, nil
	}

	commands := []command.Command{lookup}
	commands = append(commands, b.Stager.Install(shell, spec)...)
	launch := b.Stager.Launch(shell, spec, fmt.Sprintf("--attach ${%s}", ProcessIDVariable))
	launch.KnownFailures = append(launch.KnownFailures, attachFailures...)
	return append(commands, launch, b.Stager.Submit(shell, spec)), nil
}

// RemediationCommands is empty for KILL_JVM, a killed jvm is restarted by its supervisor if at all
func (b *Builder) RemediationCommands(_ context.Context, _ executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error) {
	if spec.FaultName == KillJVM {
		return nil, nil
	}
	shell, err := agent.ShellFor(spec.Kind())
	if err != nil {
		return nil, cerrors.Specification{Target: spec.FaultName, Reason: err.Error()}
	}
	return []command.Command{b.Stager.Remediate(shell, spec)}, nil
}

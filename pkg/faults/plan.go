package faults

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/palantir/stacktrace"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// Plan is the command list of one concrete target
type Plan struct {
	Target   string
	Spec     types.FaultSpecification
	Commands []command.Command
}

var defaultRandomIndex = rand.Intn

// randomIndex is swapped in tests
var randomIndex = defaultRandomIndex

// Targets resolves the concrete targets of the spec: the pinned one, one random pick when random
// injection is enabled, or every discovered target
func Targets(ctx context.Context, builder Builder, spec types.FaultSpecification) ([]string, error) {
	if pinned := spec.PinnedTarget(); pinned != "" {
		return []string{pinned}, nil
	}
	targets, err := builder.SelectTargets(ctx, spec)
	if err != nil {
		return nil, stacktrace.Propagate(err, "could not select targets")
	}
	if len(targets) == 0 {
		return nil, cerrors.NoTargetsIdentified{Target: spec.EndpointName, Reason: fmt.Sprintf("target selection for fault '%s' matched nothing", spec.FaultName)}
	}
	if spec.RandomInjection() {
		return []string{targets[randomIndex(len(targets))]}, nil
	}
	return targets, nil
}

// Plans expands the spec into one command list per concrete target
func Plans(ctx context.Context, builder Builder, exec executor.CommandExecutor, spec types.FaultSpecification, remediation bool) ([]Plan, error) {
	if spec.PinnedTarget() != "" {
		commands, err := build(ctx, builder, exec, spec, remediation)
		if err != nil {
			return nil, err
		}
		return []Plan{{Target: spec.PinnedTarget(), Spec: spec, Commands: commands}}, nil
	}

	targets, err := Targets(ctx, builder, spec)
	if err != nil {
		return nil, err
	}
	return PlansFor(ctx, builder, exec, spec, targets, remediation)
}

// PlansFor builds one command list per given target without resolving targets again
func PlansFor(ctx context.Context, builder Builder, exec executor.CommandExecutor, spec types.FaultSpecification, targets []string, remediation bool) ([]Plan, error) {
	plans := make([]Plan, 0, len(targets))
	for _, target := range targets {
		pinned := spec
		if target != spec.PinnedTarget() {
			pinned = spec.WithTarget(target)
		}
		commands, err := build(ctx, builder, exec, pinned, remediation)
		if err != nil {
			return nil, stacktrace.Propagate(err, "could not build commands for target %s", target)
		}
		plans = append(plans, Plan{Target: target, Spec: pinned, Commands: commands})
	}
	return plans, nil
}

func build(ctx context.Context, builder Builder, exec executor.CommandExecutor, spec types.FaultSpecification, remediation bool) ([]command.Command, error) {
	if remediation {
		return builder.RemediationCommands(ctx, exec, spec)
	}
	return builder.InjectionCommands(ctx, exec, spec)
}

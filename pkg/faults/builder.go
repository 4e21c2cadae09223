// Package faults defines the command builder contract, the registry that selects a builder per
// endpoint kind and fault family, and the expansion of a spec into per target command plans.
package faults

import (
	"context"

	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// Builder produces the injection and remediation command lists of one fault family on one endpoint kind
type Builder interface {
	// Validate fails fast on missing or invalid fault arguments
	Validate(spec types.FaultSpecification) error
	// ResolveExecutor obtains the transport executor for the spec's endpoint
	ResolveExecutor(ctx context.Context, spec types.FaultSpecification) (executor.CommandExecutor, error)
	InjectionCommands(ctx context.Context, exec executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error)
	// RemediationCommands is empty for faults without a symmetric undo
	RemediationCommands(ctx context.Context, exec executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error)
	// SupportScripts lists what must be staged on the target before injection
	SupportScripts(spec types.FaultSpecification) []ScriptDescriptor
	// SelectTargets discovers concrete targets, empty when the spec pins one
	SelectTargets(ctx context.Context, spec types.FaultSpecification) ([]string, error)
}

// ScriptDescriptor is an archive staged on the target: its bytes come from LocalPath
type ScriptDescriptor struct {
	Name       string
	LocalPath  string
	RemotePath string
	// Entry is the executable inside the extracted archive
	Entry string
}

// Discovery answers label and tag queries for builders that select targets
type Discovery interface {
	Pods(ctx context.Context, spec types.FaultSpecification) ([]string, error)
	Instances(ctx context.Context, spec types.FaultSpecification) ([]string, error)
}

// Base carries the executor resolution and no-op defaults shared by builders
type Base struct {
	Resolver executor.Resolver
}

// ResolveExecutor delegates to the endpoint client factory
func (b Base) ResolveExecutor(ctx context.Context, spec types.FaultSpecification) (executor.CommandExecutor, error) {
	return b.Resolver.ExecutorFor(ctx, spec)
}

// SupportScripts returns nothing
func (b Base) SupportScripts(types.FaultSpecification) []ScriptDescriptor {
	return nil
}

// SelectTargets returns nothing, every spec is treated as pinned
func (b Base) SelectTargets(context.Context, types.FaultSpecification) ([]string, error) {
	return nil, nil
}

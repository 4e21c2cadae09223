package faults

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor/fake"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

type stubBuilder struct {
	Base
	targets   []string
	selectErr error
}

func (s stubBuilder) Validate(types.FaultSpecification) error { return nil }

func (s stubBuilder) InjectionCommands(_ context.Context, _ executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error) {
	return []command.Command{command.New("inject " + spec.Kubernetes.PodName)}, nil
}

func (s stubBuilder) RemediationCommands(_ context.Context, _ executor.CommandExecutor, spec types.FaultSpecification) ([]command.Command, error) {
	return []command.Command{command.New("remediate " + spec.Kubernetes.PodName)}, nil
}

func (s stubBuilder) SelectTargets(context.Context, types.FaultSpecification) ([]string, error) {
	return s.targets, s.selectErr
}

func clusterSpec(pod string, random bool) types.FaultSpecification {
	return types.FaultSpecification{
		FaultName:    "cpuFault",
		Family:       types.FamilyResource,
		EndpointName: "cluster",
		Endpoint:     &types.Endpoint{Name: "cluster", Kind: types.EndpointKubernetes},
		Kubernetes:   &types.KubernetesArgs{PodName: pod, PodLabels: "app=web", EnableRandomInjection: random},
	}
}

func TestFactory(t *testing.T) {
	builder := stubBuilder{}
	factory := NewFactory().Register(types.FamilyResource, builder, types.EndpointMachine, types.EndpointKubernetes)

	got, err := factory.Builder(types.EndpointKubernetes, types.FamilyResource)
	require.NoError(t, err)
	assert.Equal(t, builder, got)

	_, err = factory.Builder(types.EndpointAWS, types.FamilyJVM)
	require.Error(t, err)
	_, code := cerrors.GetRootCauseAndErrorCode(err)
	assert.Equal(t, cerrors.ErrorTypeConfiguration, code)

	_, err = factory.BuilderFor(clusterSpec("", false))
	assert.NoError(t, err)
	assert.Len(t, factory.Keys(), 2)
	assert.Equal(t, "K8S_CLUSTER/RESOURCE", factory.Keys()[0].String())
}

func TestPlans(t *testing.T) {
	tests := []struct {
		name        string
		spec        types.FaultSpecification
		targets     []string
		remediation bool
		want        []string
	}{
		{name: "pinned target yields one plan", spec: clusterSpec("web-0", false), targets: []string{"web-1", "web-2"}, want: []string{"inject web-0"}},
		{name: "one plan per discovered target", spec: clusterSpec("", false), targets: []string{"web-0", "web-1", "web-2"}, want: []string{"inject web-0", "inject web-1", "inject web-2"}},
		{name: "random injection picks one target", spec: clusterSpec("", true), targets: []string{"web-0", "web-1", "web-2"}, want: []string{"inject web-2"}},
		{name: "remediation plans", spec: clusterSpec("", false), targets: []string{"web-0"}, remediation: true, want: []string{"remediate web-0"}},
	}

	randomIndex = func(n int) int { return n - 1 }
	defer func() { randomIndex = defaultRandomIndex }()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plans, err := Plans(context.Background(), stubBuilder{targets: tt.targets}, fake.New(), tt.spec, tt.remediation)
			require.NoError(t, err)
			var got []string
			for _, plan := range plans {
				require.Len(t, plan.Commands, 1)
				assert.Equal(t, plan.Target, plan.Spec.PinnedTarget())
				got = append(got, plan.Commands[0].Command)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlansWithoutTargets(t *testing.T) {
	_, err := Plans(context.Background(), stubBuilder{}, fake.New(), clusterSpec("", false), false)
	require.Error(t, err)
	assert.True(t, cerrors.IsNoTargets(err))

	_, err = Plans(context.Background(), stubBuilder{selectErr: errors.New("api down")}, fake.New(), clusterSpec("", false), false)
	require.Error(t, err)
	assert.False(t, cerrors.IsNoTargets(err))
	assert.Contains(t, err.Error(), "api down")
}

func TestPlansForReplaysTargets(t *testing.T) {
	builder := stubBuilder{selectErr: errors.New("targets are not resolved again")}
	plans, err := PlansFor(context.Background(), builder, fake.New(), clusterSpec("", true), []string{"web-4", "web-1"}, true)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "remediate web-4", plans[0].Commands[0].Command)
	assert.Equal(t, "remediate web-1", plans[1].Commands[0].Command)
	assert.False(t, plans[0].Spec.RandomInjection())
}

package kubernetes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/faults"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

type labelDiscovery map[string][]string

func (d labelDiscovery) Pods(_ context.Context, spec types.FaultSpecification) ([]string, error) {
	return d[spec.Kubernetes.PodLabels], nil
}

func (d labelDiscovery) Instances(context.Context, types.FaultSpecification) ([]string, error) {
	return nil, nil
}

func clusterSpec(fault string, args map[string]string) types.FaultSpecification {
	return types.FaultSpecification{
		FaultName:    fault,
		Family:       types.FamilyClusterResource,
		EndpointName: "prod",
		Endpoint:     &types.Endpoint{Name: "prod", Kind: types.EndpointKubernetes},
		Args:         args,
		Kubernetes:   &types.KubernetesArgs{Namespace: "shop", PodLabels: "app=cart", ContainerName: "cart"},
	}
}

func TestNotReadyPerDiscoveredPod(t *testing.T) {
	b := NewBuilder(nil, labelDiscovery{"app=cart": {"cart-0", "cart-1"}})
	spec := clusterSpec(NotReady, map[string]string{"port": "8080"})
	require.NoError(t, b.Validate(spec))

	plans, err := faults.Plans(context.Background(), b, nil, spec, false)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "K8S_EXEC:--pod cart-1 --namespace shop --container cart -- iptables -I INPUT -p tcp --dport 8080 -j DROP", plans[1].Commands[0].Command)

	remediation, err := faults.Plans(context.Background(), b, nil, spec, true)
	require.NoError(t, err)
	require.Len(t, remediation, 2)
	assert.Contains(t, remediation[0].Commands[0].Command, "iptables -D INPUT -p tcp --dport 8080 -j DROP")

	op, ok := command.ParseOperation(remediation[0].Commands[0].Command)
	require.True(t, ok)
	assert.Equal(t, "cart-0", op.Get("pod"))
}

func TestDeleteResource(t *testing.T) {
	b := NewBuilder(nil, nil)
	spec := clusterSpec(DeleteResource, nil)
	spec.Kubernetes.PodName = "cart-0"
	require.NoError(t, b.Validate(spec))

	injection, err := b.InjectionCommands(context.Background(), nil, spec)
	require.NoError(t, err)
	assert.Equal(t, "K8S_DELETE_POD:--pod cart-0 --namespace shop", injection[0].Command)

	remediation, err := b.RemediationCommands(context.Background(), nil, spec)
	require.NoError(t, err)
	assert.Empty(t, remediation)
}

func TestValidate(t *testing.T) {
	b := NewBuilder(nil, nil)
	assert.Error(t, b.Validate(clusterSpec(NotReady, nil)))
	assert.Error(t, b.Validate(clusterSpec(NotReady, map[string]string{"port": "http"})))

	spec := clusterSpec(DeleteResource, nil)
	spec.Kubernetes.PodLabels = ""
	assert.Error(t, b.Validate(spec))
}

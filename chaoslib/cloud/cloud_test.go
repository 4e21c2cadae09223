package cloud

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litmuschaos/fault-orchestrator/pkg/faults"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

type tagDiscovery []string

func (d tagDiscovery) Pods(context.Context, types.FaultSpecification) ([]string, error) {
	return nil, nil
}

func (d tagDiscovery) Instances(context.Context, types.FaultSpecification) ([]string, error) {
	return d, nil
}

func cloudSpec(kind types.EndpointKind, fault string, ids ...string) types.FaultSpecification {
	return types.FaultSpecification{
		FaultName:    fault,
		Family:       types.FamilyState,
		EndpointName: "cloud",
		Endpoint:     &types.Endpoint{Name: "cloud", Kind: kind},
		Cloud:        &types.CloudArgs{InstanceIDs: ids},
	}
}

func TestStateBuilder(t *testing.T) {
	tests := []struct {
		name            string
		spec            types.FaultSpecification
		wantInjection   string
		wantRemediation []string
	}{
		{"aws stop", cloudSpec(types.EndpointAWS, StopInstances, "i-1", "i-2"), "AWS_EC2_STOP:--instanceIds i-1,i-2", []string{"AWS_EC2_START:--instanceIds i-1,i-2"}},
		{"aws terminate", cloudSpec(types.EndpointAWS, TerminateInstances, "i-1"), "AWS_EC2_TERMINATE:--instanceIds i-1", nil},
		{"azure reboot", cloudSpec(types.EndpointAzure, RebootInstances, "vm-a"), "AZURE_VM_RESTART:--instanceNames vm-a", nil},
		{"azure stop", cloudSpec(types.EndpointAzure, StopInstances, "vm-a"), "AZURE_VM_STOP:--instanceNames vm-a", []string{"AZURE_VM_START:--instanceNames vm-a"}},
		{"gcp reboot", cloudSpec(types.EndpointGCP, RebootInstances, "web-1"), "GCP_VM_RESET:--instanceNames web-1", nil},
		{"gcp terminate", cloudSpec(types.EndpointGCP, TerminateInstances, "web-1"), "GCP_VM_DELETE:--instanceNames web-1", nil},
	}
	b := NewStateBuilder(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, b.Validate(tt.spec))
			injection, err := b.InjectionCommands(context.Background(), nil, tt.spec)
			require.NoError(t, err)
			require.Len(t, injection, 1)
			assert.Equal(t, tt.wantInjection, injection[0].Command)

			remediation, err := b.RemediationCommands(context.Background(), nil, tt.spec)
			require.NoError(t, err)
			var got []string
			for _, c := range remediation {
				got = append(got, c.Command)
			}
			assert.Equal(t, tt.wantRemediation, got)
		})
	}
}

func TestTagDiscovery(t *testing.T) {
	spec := cloudSpec(types.EndpointAWS, StopInstances)
	spec.Cloud.Tags = map[string]string{"team": "payments"}
	b := NewStateBuilder(nil, tagDiscovery{"i-1", "i-2", "i-3"})
	require.NoError(t, b.Validate(spec))

	plans, err := faults.Plans(context.Background(), b, nil, spec, false)
	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.Equal(t, "AWS_EC2_STOP:--instanceIds i-3", plans[2].Commands[0].Command)

	azureSpec := cloudSpec(types.EndpointAzure, StopInstances)
	azureSpec.Cloud.Tags = map[string]string{"team": "payments"}
	assert.Error(t, b.Validate(azureSpec))
}

func TestStateValidate(t *testing.T) {
	b := NewStateBuilder(nil, nil)
	assert.Error(t, b.Validate(cloudSpec(types.EndpointAWS, StopInstances)))
	assert.Error(t, b.Validate(cloudSpec(types.EndpointAWS, "DETACH_VOLUME", "i-1")))
	assert.Error(t, b.Validate(cloudSpec(types.EndpointVCenter, StopInstances, "vm-1")))
}

func TestSSMResource(t *testing.T) {
	spec := cloudSpec(types.EndpointAWS, "cpuFault", "i-9")
	spec.Family = types.FamilyResource
	spec.Args = map[string]string{"load": "75"}
	spec.TimeoutInMilliseconds = 30000

	b := NewSSMResourceBuilder(nil, nil)
	require.NoError(t, b.Validate(spec))

	injection, err := b.InjectionCommands(context.Background(), nil, spec)
	require.NoError(t, err)
	require.Len(t, injection, 1)
	assert.Contains(t, injection[0].Command, "AWS_SSM_RUN:--instanceIds i-9 -- ")
	assert.Contains(t, injection[0].Command, "stress-ng --cpu 0 --cpu-load 75 --timeout 30s")

	remediation, err := b.RemediationCommands(context.Background(), nil, spec)
	require.NoError(t, err)
	assert.Equal(t, "AWS_SSM_RUN:--instanceIds i-9 -- pkill -f stress-ng || true", remediation[0].Command)

	spec.Args = nil
	assert.Error(t, b.Validate(spec))
}

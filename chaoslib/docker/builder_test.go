package docker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

func containerSpec(fault, container string) types.FaultSpecification {
	return types.FaultSpecification{
		FaultName:    fault,
		Family:       types.FamilyState,
		EndpointName: "dockerd",
		Endpoint:     &types.Endpoint{Name: "dockerd", Kind: types.EndpointDocker},
		Docker:       &types.DockerArgs{ContainerName: container},
	}
}

func TestContainerPause(t *testing.T) {
	b := NewBuilder(nil)
	spec := containerSpec("DOCKER_PAUSE", "testContainer")
	require.NoError(t, b.Validate(spec))

	injection, err := b.InjectionCommands(context.Background(), nil, spec)
	require.NoError(t, err)
	require.Len(t, injection, 1)
	assert.Equal(t, "DOCKER_PAUSE:--containerName testContainer", injection[0].Command)

	remediation, err := b.RemediationCommands(context.Background(), nil, spec)
	require.NoError(t, err)
	require.Len(t, remediation, 1)
	assert.Contains(t, remediation[0].Command, "DOCKER_UNPAUSE")
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		fault           string
		args            map[string]string
		wantInjection   string
		wantRemediation []string
	}{
		{"DOCKER_STOP", nil, "DOCKER_STOP:--containerName web", []string{"DOCKER_START:--containerName web"}},
		{"DOCKER_KILL", map[string]string{"signal": "SIGTERM"}, "DOCKER_KILL:--containerName web --signal SIGTERM", []string{"DOCKER_START:--containerName web"}},
		{"DOCKER_RESTART", nil, "DOCKER_RESTART:--containerName web", nil},
	}
	b := NewBuilder(nil)
	for _, tt := range tests {
		t.Run(tt.fault, func(t *testing.T) {
			spec := containerSpec(tt.fault, "web")
			spec.Args = tt.args
			injection, err := b.InjectionCommands(context.Background(), nil, spec)
			require.NoError(t, err)
			assert.Equal(t, tt.wantInjection, injection[0].Command)

			remediation, err := b.RemediationCommands(context.Background(), nil, spec)
			require.NoError(t, err)
			var got []string
			for _, c := range remediation {
				got = append(got, c.Command)
			}
			assert.Equal(t, tt.wantRemediation, got)
		})
	}
}

func TestValidate(t *testing.T) {
	b := NewBuilder(nil)
	assert.Error(t, b.Validate(containerSpec("DOCKER_PAUSE", "")))
	assert.Error(t, b.Validate(containerSpec("DOCKER_FREEZE", "web")))
}

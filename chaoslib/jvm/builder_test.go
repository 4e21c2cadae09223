package jvm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/engine"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor/fake"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

var config = types.EngineConfig{
	AgentRemoteDir:      "/tmp/fault-agent",
	JVMAgentArchivePath: "/opt/staging/jvm-agent.tar.gz",
	JVMAgentPort:        9100,
}

func machineSpec(fault string, args map[string]string) types.FaultSpecification {
	return types.FaultSpecification{
		FaultName:    fault,
		Family:       types.FamilyJVM,
		EndpointName: "app-1",
		Endpoint:     &types.Endpoint{Name: "app-1", Kind: types.EndpointMachine, Machine: &types.MachineConnection{Host: "10.0.0.5"}},
		Args:         args,
	}
}

func TestJavaException(t *testing.T) {
	b := NewBuilder(nil, nil, config)
	spec := machineSpec(JavaException, map[string]string{"process": "OrderService", "className": "com.shop.Orders", "methodName": "place"})
	require.NoError(t, b.Validate(spec))

	cmds, err := b.InjectionCommands(context.Background(), nil, spec)
	require.NoError(t, err)
	require.Len(t, cmds, 6)
	assert.Contains(t, cmds[0].Command, "pgrep -f -o 'OrderService'")
	assert.Equal(t, "SSH_COPY:--src /opt/staging/jvm-agent.tar.gz --dest /tmp/jvm-agent.tar.gz", cmds[1].Command)
	assert.Contains(t, cmds[4].Command, "--attach ${processId}")
	assert.Contains(t, cmds[5].Command, "--operation inject --faultname JAVA_EXCEPTION --className com.shop.Orders --methodName place --process OrderService --faultId JAVA_EXCEPTION")

	remediation, err := b.RemediationCommands(context.Background(), nil, spec)
	require.NoError(t, err)
	require.Len(t, remediation, 1)
	assert.Equal(t, "/tmp/jvm-agent/jvm-agent --port 9100 --operation remediate --faultId JAVA_EXCEPTION", remediation[0].Command)
}

func TestKillJVMHasNoRemediation(t *testing.T) {
	b := NewBuilder(nil, nil, config)
	spec := machineSpec(KillJVM, map[string]string{"process": "OrderService"})
	require.NoError(t, b.Validate(spec))
	assert.Empty(t, b.SupportScripts(spec))

	cmds, err := b.InjectionCommands(context.Background(), nil, spec)
	require.NoError(t, err)

	exec := fake.New().On("pgrep", fake.OK("31337\n"))
	_, err = engine.New().Run(context.Background(), exec, cmds, nil, engine.Variables{})
	require.NoError(t, err)
	assert.Equal(t, "kill -9 31337", exec.Calls()[1])

	remediation, err := b.RemediationCommands(context.Background(), nil, spec)
	require.NoError(t, err)
	assert.Empty(t, remediation)
}

func TestValidateRequiresArguments(t *testing.T) {
	b := NewBuilder(nil, nil, config)
	assert.Error(t, b.Validate(machineSpec(JavaLatency, map[string]string{"process": "x", "className": "A", "methodName": "m"})))
	assert.Error(t, b.Validate(machineSpec(JavaLatency, nil)))
	assert.NoError(t, b.Validate(machineSpec(JavaLatency, map[string]string{"process": "x", "className": "A", "methodName": "m", "latency": "200"})))

	cmds, err := b.InjectionCommands(context.Background(), nil, machineSpec(JavaLatency, map[string]string{"process": "x", "className": "A", "methodName": "m", "latency": "200"}))
	require.NoError(t, err)
	require.NoError(t, command.Validate(cmds))
}

// Package chaoslib wires every fault command builder into one registry.
package chaoslib

import (
	"github.com/litmuschaos/fault-orchestrator/chaoslib/agent"
	"github.com/litmuschaos/fault-orchestrator/chaoslib/cloud"
	"github.com/litmuschaos/fault-orchestrator/chaoslib/docker"
	"github.com/litmuschaos/fault-orchestrator/chaoslib/jvm"
	"github.com/litmuschaos/fault-orchestrator/chaoslib/kubernetes"
	"github.com/litmuschaos/fault-orchestrator/chaoslib/machine"
	"github.com/litmuschaos/fault-orchestrator/chaoslib/vcenter"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	"github.com/litmuschaos/fault-orchestrator/pkg/faults"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// NewFactory registers the builders keyed by endpoint kind and fault family
func NewFactory(resolver executor.Resolver, discovery faults.Discovery, config types.EngineConfig) *faults.Factory {
	shells := []types.EndpointKind{types.EndpointMachine, types.EndpointDocker, types.EndpointKubernetes}

	return faults.NewFactory().
		Register(types.FamilyResource, agent.NewBuilder(resolver, discovery, config), shells...).
		Register(types.FamilyJVM, jvm.NewBuilder(resolver, discovery, config), shells...).
		Register(types.FamilyState, machine.NewBuilder(resolver), types.EndpointMachine).
		Register(types.FamilyState, docker.NewBuilder(resolver), types.EndpointDocker).
		Register(types.FamilyClusterResource, kubernetes.NewBuilder(resolver, discovery), types.EndpointKubernetes).
		Register(types.FamilyState, cloud.NewStateBuilder(resolver, discovery), types.EndpointAWS, types.EndpointAzure, types.EndpointGCP).
		Register(types.FamilyResource, cloud.NewSSMResourceBuilder(resolver, discovery), types.EndpointAWS).
		Register(types.FamilyState, vcenter.NewBuilder(resolver, config), types.EndpointVCenter)
}

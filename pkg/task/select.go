package task

import (
	"fmt"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/endpoints"
	"github.com/litmuschaos/fault-orchestrator/pkg/faults"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// ForSpec returns the named helper serving the spec's family on its endpoint kind.
// A group is served by the helper of its first member.
func ForSpec(factory *faults.Factory, catalog endpoints.Catalog, spec types.FaultSpecification, opts ...Option) (*Helper, error) {
	spec = spec.Clone()
	if err := endpoints.Resolve(catalog, &spec); err != nil {
		return nil, err
	}
	kind := spec.Kind()
	if kind == types.EndpointGroup {
		members, err := endpoints.Members(catalog, spec.Endpoint)
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			return nil, cerrors.Specification{Target: spec.EndpointName, Reason: "endpoint group has no members"}
		}
		kind = members[0].Kind
	}

	opts = append([]Option{WithCatalog(catalog)}, opts...)
	switch spec.Family {
	case types.FamilyResource:
		return NewSystemResourceHelper(factory, opts...), nil
	case types.FamilyJVM:
		return NewJVMAgentHelper(factory, opts...), nil
	case types.FamilyClusterResource:
		return NewClusterResourceHelper(factory, opts...), nil
	case types.FamilyState:
		switch kind {
		case types.EndpointDocker:
			return NewContainerHelper(factory, opts...), nil
		case types.EndpointMachine:
			return NewMachineStateHelper(factory, opts...), nil
		case types.EndpointAWS, types.EndpointAzure, types.EndpointGCP, types.EndpointVCenter:
			return NewInfrastructureHelper(factory, opts...), nil
		}
	}
	return nil, cerrors.Specification{Target: spec.FaultName, Reason: fmt.Sprintf("no helper serves '%s' faults on '%s' endpoints", spec.Family, kind)}
}

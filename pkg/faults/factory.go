package faults

import (
	"fmt"
	"sort"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// Key identifies a registered builder
type Key struct {
	Kind   types.EndpointKind
	Family types.FaultFamily
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Kind, k.Family)
}

// Factory maps (endpoint kind, fault family) to a builder.
// It is filled once at start up and read only afterwards.
type Factory struct {
	builders map[Key]Builder
}

// NewFactory returns an empty registry
func NewFactory() *Factory {
	return &Factory{builders: map[Key]Builder{}}
}

// Register binds the builder to every given kind for the family
func (f *Factory) Register(family types.FaultFamily, builder Builder, kinds ...types.EndpointKind) *Factory {
	for _, kind := range kinds {
		f.builders[Key{Kind: kind, Family: family}] = builder
	}
	return f
}

// Builder returns the builder registered for the pair, a configuration error otherwise
func (f *Factory) Builder(kind types.EndpointKind, family types.FaultFamily) (Builder, error) {
	builder, ok := f.builders[Key{Kind: kind, Family: family}]
	if !ok {
		return nil, cerrors.Configuration{Reason: fmt.Sprintf("no fault builder registered for endpoint kind '%s' and fault family '%s'", kind, family)}
	}
	return builder, nil
}

// BuilderFor returns the builder of the spec's endpoint kind and family
func (f *Factory) BuilderFor(spec types.FaultSpecification) (Builder, error) {
	return f.Builder(spec.Kind(), spec.Family)
}

// Keys returns the registered pairs in a stable order
func (f *Factory) Keys() []Key {
	keys := make([]Key, 0, len(f.builders))
	for k := range f.builders {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

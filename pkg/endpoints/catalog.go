// Package endpoints resolves endpoint descriptors and credentials by name.
package endpoints

import (
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// Catalog is the store of endpoints and their credentials
type Catalog interface {
	Endpoint(name string) (*types.Endpoint, error)
	Credentials(name string) (*types.Credentials, error)
}

// StaticCatalog is a Catalog read from a YAML document
type StaticCatalog struct {
	endpoints   map[string]*types.Endpoint
	credentials map[string]*types.Credentials
}

type document struct {
	Endpoints   []*types.Endpoint    `yaml:"endpoints"`
	Credentials []*types.Credentials `yaml:"credentials"`
}

// Parse reads a catalog document, every endpoint is validated and names must be unique
func Parse(data []byte) (*StaticCatalog, error) {
	var doc document
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, cerrors.Configuration{Reason: fmt.Sprintf("invalid endpoint catalog: %v", err)}
	}
	c := &StaticCatalog{endpoints: map[string]*types.Endpoint{}, credentials: map[string]*types.Credentials{}}
	for _, e := range doc.Endpoints {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.endpoints[e.Name]; dup {
			return nil, cerrors.Configuration{Reason: fmt.Sprintf("endpoint '%s' is declared twice", e.Name)}
		}
		c.endpoints[e.Name] = e
	}
	for _, cred := range doc.Credentials {
		if _, dup := c.credentials[cred.Name]; dup {
			return nil, cerrors.Configuration{Reason: fmt.Sprintf("credentials '%s' are declared twice", cred.Name)}
		}
		c.credentials[cred.Name] = cred
	}
	for _, e := range c.endpoints {
		for _, member := range e.Members {
			if _, ok := c.endpoints[member]; !ok {
				return nil, cerrors.Configuration{Reason: fmt.Sprintf("endpoint group '%s' references unknown endpoint '%s'", e.Name, member)}
			}
		}
	}
	return c, nil
}

// Load reads the catalog file at path
func Load(path string) (*StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read endpoint catalog %s", path)
	}
	return Parse(data)
}

// Endpoint returns the endpoint named name
func (c *StaticCatalog) Endpoint(name string) (*types.Endpoint, error) {
	e, ok := c.endpoints[name]
	if !ok {
		return nil, cerrors.Specification{Target: name, Reason: "endpoint is not in the catalog"}
	}
	return e, nil
}

// Credentials returns the credentials named name
func (c *StaticCatalog) Credentials(name string) (*types.Credentials, error) {
	cred, ok := c.credentials[name]
	if !ok {
		return nil, cerrors.Specification{Target: name, Reason: "credentials are not in the catalog"}
	}
	return cred, nil
}

// Names returns the endpoint names in order
func (c *StaticCatalog) Names() []string {
	names := make([]string, 0, len(c.endpoints))
	for name := range c.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve attaches the endpoint and credentials named by the spec when they are not attached yet
func Resolve(catalog Catalog, spec *types.FaultSpecification) error {
	if spec.Endpoint == nil {
		if catalog == nil {
			return cerrors.Specification{Target: spec.EndpointName, Reason: "endpoint is not attached and no catalog is configured"}
		}
		e, err := catalog.Endpoint(spec.EndpointName)
		if err != nil {
			return err
		}
		spec.Endpoint = e
	}
	if spec.Credentials == nil && spec.Endpoint.CredentialsName != "" {
		if catalog == nil {
			return cerrors.Specification{Target: spec.Endpoint.CredentialsName, Reason: "credentials are not attached and no catalog is configured"}
		}
		cred, err := catalog.Credentials(spec.Endpoint.CredentialsName)
		if err != nil {
			return err
		}
		spec.Credentials = cred
	}
	return nil
}

// Members returns the member endpoints of a group in declaration order
func Members(catalog Catalog, group *types.Endpoint) ([]*types.Endpoint, error) {
	if group == nil || group.Kind != types.EndpointGroup {
		return nil, cerrors.Specification{Reason: "endpoint is not an endpoint group"}
	}
	members := make([]*types.Endpoint, 0, len(group.Members))
	for _, name := range group.Members {
		e, err := catalog.Endpoint(name)
		if err != nil {
			return nil, err
		}
		members = append(members, e)
	}
	return members, nil
}

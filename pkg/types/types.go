package types

import (
	"fmt"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
)

// EndpointKind identifies the transport family of an endpoint
type EndpointKind string

const (
	// EndpointMachine is a host reachable over ssh
	EndpointMachine EndpointKind = "MACHINE"
	// EndpointDocker is a docker daemon
	EndpointDocker EndpointKind = "DOCKER"
	// EndpointKubernetes is a kubernetes cluster
	EndpointKubernetes EndpointKind = "K8S_CLUSTER"
	// EndpointAWS is an aws account region
	EndpointAWS EndpointKind = "AWS"
	// EndpointAzure is an azure subscription
	EndpointAzure EndpointKind = "AZURE"
	// EndpointGCP is a gcp project zone
	EndpointGCP EndpointKind = "GCP"
	// EndpointVCenter is a vCenter server driven through govc
	EndpointVCenter EndpointKind = "VCENTER"
	// EndpointGroup is a named list of other endpoints
	EndpointGroup EndpointKind = "ENDPOINT_GROUP"
)

// FaultFamily groups faults that share a command building strategy
type FaultFamily string

const (
	// FamilyResource faults are delivered by the staged fault injection agent
	FamilyResource FaultFamily = "RESOURCE"
	// FamilyJVM faults are delivered by an agent attached to a running jvm
	FamilyJVM FaultFamily = "JVM"
	// FamilyState faults change the lifecycle state of the target
	FamilyState FaultFamily = "STATE"
	// FamilyClusterResource faults act on kubernetes resources
	FamilyClusterResource FaultFamily = "K8S_RESOURCE"
)

// Endpoint describes one target system and how to reach it
type Endpoint struct {
	Name            string                `yaml:"name"`
	Kind            EndpointKind          `yaml:"kind"`
	CredentialsName string                `yaml:"credentials,omitempty"`
	Tags            map[string]string     `yaml:"tags,omitempty"`
	Machine         *MachineConnection    `yaml:"machine,omitempty"`
	Docker          *DockerConnection     `yaml:"docker,omitempty"`
	Kubernetes      *KubernetesConnection `yaml:"kubernetes,omitempty"`
	AWS             *AWSConnection        `yaml:"aws,omitempty"`
	Azure           *AzureConnection      `yaml:"azure,omitempty"`
	GCP             *GCPConnection        `yaml:"gcp,omitempty"`
	VCenter         *VCenterConnection    `yaml:"vcenter,omitempty"`
	Members         []string              `yaml:"members,omitempty"`
}

// MachineConnection contains the ssh coordinates of a host
type MachineConnection struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port,omitempty"`
	OSType string `yaml:"osType,omitempty"`
}

// DockerConnection contains the daemon address, empty means the environment defaults
type DockerConnection struct {
	Host     string `yaml:"host,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
}

// KubernetesConnection selects the kubeconfig context and default namespace
type KubernetesConnection struct {
	Namespace string `yaml:"namespace,omitempty"`
	Context   string `yaml:"context,omitempty"`
}

// AWSConnection contains the aws region
type AWSConnection struct {
	Region string `yaml:"region"`
}

// AzureConnection contains the azure subscription and resource group
type AzureConnection struct {
	SubscriptionID string `yaml:"subscriptionId"`
	ResourceGroup  string `yaml:"resourceGroup"`
}

// GCPConnection contains the gcp project and zone
type GCPConnection struct {
	ProjectID string `yaml:"projectId"`
	Zone      string `yaml:"zone"`
}

// VCenterConnection contains the vCenter url used by govc
type VCenterConnection struct {
	URL        string `yaml:"url"`
	Insecure   bool   `yaml:"insecure,omitempty"`
	Datacenter string `yaml:"datacenter,omitempty"`
}

// Credentials holds whatever secret material the endpoint kind needs
type Credentials struct {
	Name               string `yaml:"name"`
	Username           string `yaml:"username,omitempty"`
	Password           string `yaml:"password,omitempty"`
	PrivateKey         string `yaml:"privateKey,omitempty"`
	KubeconfigPath     string `yaml:"kubeconfigPath,omitempty"`
	AccessKeyID        string `yaml:"accessKeyId,omitempty"`
	SecretAccessKey    string `yaml:"secretAccessKey,omitempty"`
	SessionToken       string `yaml:"sessionToken,omitempty"`
	TenantID           string `yaml:"tenantId,omitempty"`
	ClientID           string `yaml:"clientId,omitempty"`
	ClientSecret       string `yaml:"clientSecret,omitempty"`
	ServiceAccountJSON string `yaml:"serviceAccountJson,omitempty"`
}

// Secrets returns the values that must never show up in logs or errors
func (c *Credentials) Secrets() []string {
	if c == nil {
		return nil
	}
	var secrets []string
	for _, s := range []string{c.Password, c.PrivateKey, c.SecretAccessKey, c.SessionToken, c.ClientSecret, c.ServiceAccountJSON} {
		if s != "" {
			secrets = append(secrets, s)
		}
	}
	return secrets
}

// Validate checks that the connection block matching the endpoint kind is present
func (e *Endpoint) Validate() error {
	if e == nil {
		return cerrors.Specification{Reason: "endpoint is not resolved"}
	}
	if e.Name == "" {
		return cerrors.Specification{Reason: "endpoint name is empty"}
	}
	missing := func(block string) error {
		return cerrors.Specification{Target: e.Name, Reason: fmt.Sprintf("%s endpoint requires the %s block", e.Kind, block)}
	}
	switch e.Kind {
	case EndpointMachine:
		if e.Machine == nil || e.Machine.Host == "" {
			return missing("machine.host")
		}
	case EndpointDocker, EndpointKubernetes:
	case EndpointAWS:
		if e.AWS == nil || e.AWS.Region == "" {
			return missing("aws.region")
		}
	case EndpointAzure:
		if e.Azure == nil || e.Azure.SubscriptionID == "" || e.Azure.ResourceGroup == "" {
			return missing("azure.subscriptionId/resourceGroup")
		}
	case EndpointGCP:
		if e.GCP == nil || e.GCP.ProjectID == "" || e.GCP.Zone == "" {
			return missing("gcp.projectId/zone")
		}
	case EndpointVCenter:
		if e.VCenter == nil || e.VCenter.URL == "" {
			return missing("vcenter.url")
		}
	case EndpointGroup:
		if len(e.Members) == 0 {
			return cerrors.Specification{Target: e.Name, Reason: "endpoint group has no members"}
		}
	default:
		return cerrors.Specification{Target: e.Name, Reason: fmt.Sprintf("unsupported endpoint kind '%s'", e.Kind)}
	}
	return nil
}

// Namespace returns the kubernetes namespace of the endpoint, default when unset
func (e *Endpoint) Namespace() string {
	if e != nil && e.Kubernetes != nil && e.Kubernetes.Namespace != "" {
		return e.Kubernetes.Namespace
	}
	return "default"
}

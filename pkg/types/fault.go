package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
)

// FaultSpecification is the declarative description of one fault against one endpoint
type FaultSpecification struct {
	FaultName             string            `yaml:"faultName"`
	FaultID               string            `yaml:"faultId,omitempty"`
	Family                FaultFamily       `yaml:"family"`
	EndpointName          string            `yaml:"endpointName"`
	Endpoint              *Endpoint         `yaml:"endpoint,omitempty"`
	Credentials           *Credentials      `yaml:"-"`
	Args                  map[string]string `yaml:"args,omitempty"`
	TimeoutInMilliseconds int64             `yaml:"timeoutInMilliseconds,omitempty"`
	Docker                *DockerArgs       `yaml:"dockerArgs,omitempty"`
	Kubernetes            *KubernetesArgs   `yaml:"k8sArgs,omitempty"`
	Cloud                 *CloudArgs        `yaml:"cloudArgs,omitempty"`
	RandomEndpoint        bool              `yaml:"randomEndpoint,omitempty"`
	TargetPercentage      int               `yaml:"targetPercentage,omitempty"`
	Schedule              *Schedule         `yaml:"schedule,omitempty"`
}

// DockerArgs selects the container on a docker endpoint
type DockerArgs struct {
	ContainerName string `yaml:"containerName"`
}

// KubernetesArgs selects pods on a cluster endpoint
type KubernetesArgs struct {
	Namespace             string `yaml:"namespace,omitempty"`
	PodLabels             string `yaml:"podLabels,omitempty"`
	PodName               string `yaml:"podName,omitempty"`
	ContainerName         string `yaml:"containerName,omitempty"`
	EnableRandomInjection bool   `yaml:"enableRandomInjection,omitempty"`
}

// CloudArgs selects instances on a cloud or vCenter endpoint, either by id or by tags
type CloudArgs struct {
	InstanceIDs           []string          `yaml:"instanceIds,omitempty"`
	Tags                  map[string]string `yaml:"tags,omitempty"`
	EnableRandomInjection bool              `yaml:"enableRandomInjection,omitempty"`
}

// Schedule is the optional recurrence of a fault, cron or a fixed time
type Schedule struct {
	CronExpression string `yaml:"cronExpression,omitempty"`
	TimeInMillis   int64  `yaml:"timeInMillis,omitempty"`
	Description    string `yaml:"description,omitempty"`
}

// ID returns the deterministic fault id used to address the injected fault on remediation
func (s *FaultSpecification) ID() string {
	if s.FaultID != "" {
		return s.FaultID
	}
	return s.FaultName
}

// Kind returns the kind of the attached endpoint
func (s *FaultSpecification) Kind() EndpointKind {
	if s.Endpoint == nil {
		return ""
	}
	return s.Endpoint.Kind
}

// Namespace returns the pod namespace, falling back to the endpoint default
func (s *FaultSpecification) Namespace() string {
	if s.Kubernetes != nil && s.Kubernetes.Namespace != "" {
		return s.Kubernetes.Namespace
	}
	return s.Endpoint.Namespace()
}

// RandomInjection reports whether a single random target must be picked among the resolved ones
func (s *FaultSpecification) RandomInjection() bool {
	switch s.Kind() {
	case EndpointKubernetes:
		return s.Kubernetes != nil && s.Kubernetes.EnableRandomInjection
	case EndpointAWS, EndpointAzure, EndpointGCP, EndpointVCenter:
		return s.Cloud != nil && s.Cloud.EnableRandomInjection
	case EndpointGroup:
		return s.RandomEndpoint
	}
	return false
}

// PinnedTarget returns the concrete target named by the spec, empty when targets must be discovered
func (s *FaultSpecification) PinnedTarget() string {
	switch s.Kind() {
	case EndpointKubernetes:
		if s.Kubernetes != nil {
			return s.Kubernetes.PodName
		}
		return ""
	case EndpointAWS, EndpointAzure, EndpointGCP, EndpointVCenter:
		if s.Cloud != nil {
			return strings.Join(s.Cloud.InstanceIDs, ",")
		}
		return ""
	case EndpointDocker:
		if s.Docker != nil {
			return s.Docker.ContainerName
		}
		return ""
	case EndpointGroup:
		return ""
	}
	return s.EndpointName
}

// Clone returns a deep copy, safe to hand to a child task
func (s FaultSpecification) Clone() FaultSpecification {
	out := s
	if s.Args != nil {
		out.Args = make(map[string]string, len(s.Args))
		for k, v := range s.Args {
			out.Args[k] = v
		}
	}
	if s.Docker != nil {
		d := *s.Docker
		out.Docker = &d
	}
	if s.Kubernetes != nil {
		k := *s.Kubernetes
		out.Kubernetes = &k
	}
	if s.Cloud != nil {
		c := *s.Cloud
		c.InstanceIDs = append([]string(nil), s.Cloud.InstanceIDs...)
		if s.Cloud.Tags != nil {
			c.Tags = make(map[string]string, len(s.Cloud.Tags))
			for k, v := range s.Cloud.Tags {
				c.Tags[k] = v
			}
		}
		out.Cloud = &c
	}
	if s.Schedule != nil {
		sc := *s.Schedule
		out.Schedule = &sc
	}
	return out
}

// WithTarget returns a copy of the spec pinned to one discovered target
func (s FaultSpecification) WithTarget(target string) FaultSpecification {
	out := s.Clone()
	switch out.Kind() {
	case EndpointKubernetes:
		if out.Kubernetes == nil {
			out.Kubernetes = &KubernetesArgs{}
		}
		out.Kubernetes.PodName = target
		out.Kubernetes.EnableRandomInjection = false
	case EndpointAWS, EndpointAzure, EndpointGCP, EndpointVCenter:
		if out.Cloud == nil {
			out.Cloud = &CloudArgs{}
		}
		out.Cloud.InstanceIDs = []string{target}
		out.Cloud.EnableRandomInjection = false
	case EndpointDocker:
		out.Docker = &DockerArgs{ContainerName: target}
	}
	return out
}

// SortedArgs renders the argument map as "--key value" pairs in key order
func (s *FaultSpecification) SortedArgs() []string {
	keys := make([]string, 0, len(s.Args))
	for k := range s.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("--%s %s", k, s.Args[k]))
	}
	return out
}

// Describe returns the human readable summary stored on the task
func (s *FaultSpecification) Describe() string {
	return fmt.Sprintf("Executing Fault: %s on endpoint: %s. More Details: [ %s ]", s.FaultName, s.EndpointName, strings.Join(s.SortedArgs(), " "))
}

// Validate checks the parts of the spec every builder relies on
func (s *FaultSpecification) Validate() error {
	if s.FaultName == "" {
		return cerrors.Specification{Reason: "fault name is empty"}
	}
	if s.EndpointName == "" && s.Endpoint == nil {
		return cerrors.Specification{Target: s.FaultName, Reason: "endpoint name is empty"}
	}
	if s.Family == "" {
		return cerrors.Specification{Target: s.FaultName, Reason: "fault family is empty"}
	}
	if err := s.Endpoint.Validate(); err != nil {
		return err
	}
	if s.EndpointName == "" {
		s.EndpointName = s.Endpoint.Name
	}
	if s.TimeoutInMilliseconds < 0 {
		return cerrors.Specification{Target: s.FaultName, Reason: "timeout must not be negative"}
	}
	if s.TargetPercentage < 0 || s.TargetPercentage > 100 {
		return cerrors.Specification{Target: s.FaultName, Reason: "targetPercentage must be within [0,100]"}
	}
	if s.Schedule != nil && s.Schedule.CronExpression != "" && s.Schedule.TimeInMillis > 0 {
		return cerrors.Specification{Target: s.FaultName, Reason: "schedule takes either a cron expression or a fixed time, not both"}
	}
	switch s.Kind() {
	case EndpointDocker:
		if s.Docker == nil || s.Docker.ContainerName == "" {
			return cerrors.Specification{Target: s.FaultName, Reason: "containerName is required for docker faults"}
		}
	case EndpointKubernetes:
		if s.Kubernetes == nil || (s.Kubernetes.PodName == "" && s.Kubernetes.PodLabels == "") {
			return cerrors.Specification{Target: s.FaultName, Reason: "either podName or podLabels is required for cluster faults"}
		}
	}
	return nil
}

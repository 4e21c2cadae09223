package transport

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	awscloud "github.com/litmuschaos/fault-orchestrator/pkg/cloud/aws"
	"github.com/litmuschaos/fault-orchestrator/pkg/cloud/gcp"
	"github.com/litmuschaos/fault-orchestrator/pkg/log"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// Pods returns the running pods matching the spec's label selector
func (f *Factory) Pods(ctx context.Context, spec types.FaultSpecification) ([]string, error) {
	if spec.Kind() != types.EndpointKubernetes {
		return nil, cerrors.Configuration{Reason: fmt.Sprintf("pod discovery is not supported on '%s' endpoints", spec.Kind())}
	}
	labels := ""
	if spec.Kubernetes != nil {
		labels = spec.Kubernetes.PodLabels
	}
	clientSets, err := f.cluster(spec.Endpoint, spec.Credentials)
	if err != nil {
		return nil, err
	}
	names, err := clientSets.ListRunningPodNames(ctx, spec.Namespace(), labels)
	if err != nil {
		return nil, cerrors.Transport{Target: fmt.Sprintf("{podLabels: %s, namespace: %s}", labels, spec.Namespace()), Reason: err.Error()}
	}
	log.InfoWithValues("[Discovery]: Pods matching the selector", logrus.Fields{
		"Namespace": spec.Namespace(),
		"Labels":    labels,
		"Pods":      names,
	})
	return names, nil
}

// Instances returns the running cloud instances carrying the spec's tags (aws) or labels (gcp)
func (f *Factory) Instances(ctx context.Context, spec types.FaultSpecification) ([]string, error) {
	var tags map[string]string
	if spec.Cloud != nil {
		tags = spec.Cloud.Tags
	}
	if err := spec.Endpoint.Validate(); err != nil {
		return nil, err
	}

	switch spec.Kind() {
	case types.EndpointAWS:
		sess, err := awscloud.GetAWSSession(spec.Endpoint.AWS.Region, spec.Credentials)
		if err != nil {
			return nil, cerrors.Transport{Target: spec.Endpoint.Name, Reason: err.Error()}
		}
		return awscloud.New(sess, spec.Endpoint.AWS.Region).ListInstances(ctx, tags)
	case types.EndpointGCP:
		exec, err := gcp.New(ctx, spec.Endpoint.GCP, spec.Credentials)
		if err != nil {
			return nil, err
		}
		return exec.ListInstances(ctx, tags)
	}
	return nil, cerrors.Configuration{Reason: fmt.Sprintf("instance discovery is not supported on '%s' endpoints", spec.Kind())}
}

package gcp

import (
	"golang.org/x/net/context"
	"google.golang.org/api/compute/v1"
)

// sdkInstances drives the compute service, waiting on each zonal operation
type sdkInstances struct {
	service *compute.Service
}

func (s *sdkInstances) Stop(ctx context.Context, project, zone, name string) error {
	op, err := s.service.Instances.Stop(project, zone, name).Context(ctx).Do()
	return s.wait(ctx, project, zone, op, err)
}

func (s *sdkInstances) Start(ctx context.Context, project, zone, name string) error {
	op, err := s.service.Instances.Start(project, zone, name).Context(ctx).Do()
	return s.wait(ctx, project, zone, op, err)
}

func (s *sdkInstances) Reset(ctx context.Context, project, zone, name string) error {
	op, err := s.service.Instances.Reset(project, zone, name).Context(ctx).Do()
	return s.wait(ctx, project, zone, op, err)
}

func (s *sdkInstances) Delete(ctx context.Context, project, zone, name string) error {
	op, err := s.service.Instances.Delete(project, zone, name).Context(ctx).Do()
	return s.wait(ctx, project, zone, op, err)
}

func (s *sdkInstances) List(ctx context.Context, project, zone, filter string) ([]string, error) {
	var names []string
	err := s.service.Instances.List(project, zone).Filter(filter).Pages(ctx, func(page *compute.InstanceList) error {
		for _, instance := range page.Items {
			names = append(names, instance.Name)
		}
		return nil
	})
	return names, err
}

// wait blocks until the zonal operation is DONE, surfacing its first error
func (s *sdkInstances) wait(ctx context.Context, project, zone string, op *compute.Operation, err error) error {
	for err == nil && op.Status != "DONE" {
		op, err = s.service.ZoneOperations.Wait(project, zone, op.Name).Context(ctx).Do()
	}
	if err != nil {
		return err
	}
	if op.Error != nil && len(op.Error.Errors) > 0 {
		return &operationError{message: op.Error.Errors[0].Code + ": " + op.Error.Errors[0].Message}
	}
	return nil
}

type operationError struct {
	message string
}

func (e *operationError) Error() string { return e.message }

package gcp

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
)

type fakeInstances struct {
	calls  []string
	err    error
	filter string
	listed []string
}

func (f *fakeInstances) record(op, zone, name string) error {
	f.calls = append(f.calls, op+" "+zone+"/"+name)
	return f.err
}

func (f *fakeInstances) Stop(_ context.Context, _, zone, name string) error {
	return f.record("stop", zone, name)
}
func (f *fakeInstances) Start(_ context.Context, _, zone, name string) error {
	return f.record("start", zone, name)
}
func (f *fakeInstances) Reset(_ context.Context, _, zone, name string) error {
	return f.record("reset", zone, name)
}
func (f *fakeInstances) Delete(_ context.Context, _, zone, name string) error {
	return f.record("delete", zone, name)
}
func (f *fakeInstances) List(_ context.Context, _, _, filter string) ([]string, error) {
	f.filter = filter
	return f.listed, f.err
}

func TestExecuteOperations(t *testing.T) {
	tests := []struct {
		command   string
		wantCalls []string
	}{
		{"GCP_VM_STOP:--instanceNames vm-a,vm-b", []string{"stop us-central1-a/vm-a", "stop us-central1-a/vm-b"}},
		{"GCP_VM_START:--instanceNames vm-a", []string{"start us-central1-a/vm-a"}},
		{"GCP_VM_RESET:--instanceNames vm-a --zone europe-west1-b", []string{"reset europe-west1-b/vm-a"}},
		{"GCP_VM_DELETE:--instanceNames vm-a", []string{"delete us-central1-a/vm-a"}},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			instances := &fakeInstances{}
			result, err := NewWithClient(instances, "proj", "us-central1-a").Execute(context.Background(), tt.command)
			require.NoError(t, err)
			assert.Equal(t, 0, result.ExitCode)
			assert.Equal(t, tt.wantCalls, instances.calls)
		})
	}
}

func TestErrorsClassification(t *testing.T) {
	instances := &fakeInstances{err: &googleapi.Error{Code: http.StatusNotFound, Message: "The resource 'vm-x' was not found"}}
	result, err := NewWithClient(instances, "proj", "zone").Execute(context.Background(), "GCP_VM_STOP:--instanceNames vm-x")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, result.Stderr, "was not found")

	instances.err = &operationError{message: "ZONE_RESOURCE_POOL_EXHAUSTED: no capacity"}
	result, err = NewWithClient(instances, "proj", "zone").Execute(context.Background(), "GCP_VM_START:--instanceNames vm-x")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitCode)

	instances.err = errors.New("oauth2: cannot fetch token")
	_, err = NewWithClient(instances, "proj", "zone").Execute(context.Background(), "GCP_VM_STOP:--instanceNames vm-x")
	var transport cerrors.Transport
	assert.ErrorAs(t, err, &transport)
}

func TestListInstancesByLabels(t *testing.T) {
	instances := &fakeInstances{listed: []string{"web-2", "web-1"}}
	names, err := NewWithClient(instances, "proj", "zone").ListInstances(context.Background(), map[string]string{"tier": "web", "env": "prod"})
	require.NoError(t, err)
	assert.Equal(t, []string{"web-1", "web-2"}, names)
	assert.Equal(t, `(status = "RUNNING") AND (labels.env = "prod") AND (labels.tier = "web")`, instances.filter)

	_, err = NewWithClient(instances, "proj", "zone").ListInstances(context.Background(), nil)
	assert.True(t, cerrors.IsNoTargets(err))
}

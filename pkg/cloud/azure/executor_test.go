package azure

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Azure/go-autorest/autorest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
)

type fakeVMs struct {
	calls []string
	err   error
}

func (f *fakeVMs) record(op, rg, name string) error {
	f.calls = append(f.calls, op+" "+rg+"/"+name)
	return f.err
}

func (f *fakeVMs) PowerOff(_ context.Context, rg, name string) error { return f.record("poweroff", rg, name) }
func (f *fakeVMs) Start(_ context.Context, rg, name string) error    { return f.record("start", rg, name) }
func (f *fakeVMs) Restart(_ context.Context, rg, name string) error  { return f.record("restart", rg, name) }
func (f *fakeVMs) Delete(_ context.Context, rg, name string) error   { return f.record("delete", rg, name) }

func TestExecuteOperations(t *testing.T) {
	tests := []struct {
		name      string
		command   string
		wantCalls []string
	}{
		{"stop", "AZURE_VM_STOP:--instanceNames vm-1,vm-2", []string{"poweroff rg/vm-1", "poweroff rg/vm-2"}},
		{"start", "AZURE_VM_START:--instanceNames vm-1", []string{"start rg/vm-1"}},
		{"restart", "AZURE_VM_RESTART:--instanceNames vm-1", []string{"restart rg/vm-1"}},
		{"delete with explicit group", "AZURE_VM_DELETE:--instanceNames vm-1 --resourceGroup other", []string{"delete other/vm-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vms := &fakeVMs{}
			result, err := NewWithClient(vms, "rg").Execute(context.Background(), tt.command)
			require.NoError(t, err)
			assert.Equal(t, 0, result.ExitCode)
			assert.Equal(t, tt.wantCalls, vms.calls)
		})
	}
}

func TestRefusalIsCommandFailure(t *testing.T) {
	vms := &fakeVMs{err: autorest.DetailedError{
		PackageType: "compute.VirtualMachinesClient",
		Method:      "PowerOff",
		StatusCode:  http.StatusNotFound,
		Message:     "ResourceNotFound",
	}}

	result, err := NewWithClient(vms, "rg").Execute(context.Background(), "AZURE_VM_STOP:--instanceNames ghost")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, result.Stderr, "ResourceNotFound")
}

func TestUnreachableApiIsTransportError(t *testing.T) {
	vms := &fakeVMs{err: errors.New("dial tcp: lookup management.azure.com: no such host")}

	_, err := NewWithClient(vms, "rg").Execute(context.Background(), "AZURE_VM_STOP:--instanceNames vm-1")
	var transport cerrors.Transport
	assert.ErrorAs(t, err, &transport)
}

func TestMalformedCommands(t *testing.T) {
	e := NewWithClient(&fakeVMs{}, "")
	for _, cmd := range []string{"az vm stop", "AZURE_VM_STOP:--instanceNames vm-1", "AZURE_VM_HIBERNATE:--instanceNames vm-1 --resourceGroup rg"} {
		result, err := e.Execute(context.Background(), cmd)
		require.NoError(t, err)
		assert.Equal(t, 1, result.ExitCode, cmd)
	}
}

func TestNewRequiresSubscription(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

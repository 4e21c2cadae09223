// Package azure interprets AZURE_VM_* operations with the compute management api.
package azure

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/profiles/latest/compute/mgmt/compute"
	"github.com/Azure/go-autorest/autorest"
	"github.com/Azure/go-autorest/autorest/azure"
	"github.com/Azure/go-autorest/autorest/azure/auth"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	"github.com/litmuschaos/fault-orchestrator/pkg/log"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// Operation names understood by the executor
const (
	OpStop    = "AZURE_VM_STOP"
	OpStart   = "AZURE_VM_START"
	OpRestart = "AZURE_VM_RESTART"
	OpDelete  = "AZURE_VM_DELETE"
)

// VirtualMachines is the subset of the compute api the executor drives.
// Every call blocks until the long running operation settles.
type VirtualMachines interface {
	PowerOff(ctx context.Context, resourceGroup, name string) error
	Start(ctx context.Context, resourceGroup, name string) error
	Restart(ctx context.Context, resourceGroup, name string) error
	Delete(ctx context.Context, resourceGroup, name string) error
}

// Executor runs AZURE_VM_* operations
type Executor struct {
	vms           VirtualMachines
	resourceGroup string
}

// New builds the executor on top of an authorized virtual machines client
func New(conn *types.AzureConnection, creds *types.Credentials) (*Executor, error) {
	if conn == nil || conn.SubscriptionID == "" {
		return nil, cerrors.Configuration{Reason: "azure endpoint requires a subscriptionId"}
	}
	authorizer, err := newAuthorizer(creds)
	if err != nil {
		return nil, cerrors.Transport{Target: conn.SubscriptionID, Reason: fmt.Sprintf("authorization set up failed: %v", err)}
	}
	vmClient := compute.NewVirtualMachinesClient(conn.SubscriptionID)
	vmClient.Authorizer = authorizer
	return NewWithClient(&sdkVirtualMachines{client: vmClient}, conn.ResourceGroup), nil
}

// NewWithClient wraps an existing VirtualMachines implementation
func NewWithClient(vms VirtualMachines, resourceGroup string) *Executor {
	return &Executor{vms: vms, resourceGroup: resourceGroup}
}

func newAuthorizer(creds *types.Credentials) (autorest.Authorizer, error) {
	if creds != nil && creds.ClientID != "" {
		return auth.NewClientCredentialsConfig(creds.ClientID, creds.ClientSecret, creds.TenantID).Authorizer()
	}
	authorizer, err := auth.NewAuthorizerFromEnvironment()
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "no client credentials and no azure environment")
	}
	return authorizer, nil
}

// Execute implements executor.CommandExecutor
func (e *Executor) Execute(ctx context.Context, cmd string) (executor.Result, error) {
	op, ok := command.ParseOperation(cmd)
	if !ok {
		return executor.Result{ExitCode: 1, Stderr: fmt.Sprintf("unsupported azure command: %s", cmd)}, nil
	}
	resourceGroup := op.Get("resourceGroup")
	if resourceGroup == "" {
		resourceGroup = e.resourceGroup
	}
	names := splitNames(op.Get("instanceNames"))
	if len(names) == 0 || resourceGroup == "" {
		return executor.Result{ExitCode: 1, Stderr: fmt.Sprintf("%s requires --instanceNames and a resource group", op.Name)}, nil
	}

	var call func(ctx context.Context, resourceGroup, name string) error
	var verb string
	switch op.Name {
	case OpStop:
		call, verb = e.vms.PowerOff, "stopped"
	case OpStart:
		call, verb = e.vms.Start, "started"
	case OpRestart:
		call, verb = e.vms.Restart, "restarted"
	case OpDelete:
		call, verb = e.vms.Delete, "deleted"
	default:
		return executor.Result{ExitCode: 1, Stderr: fmt.Sprintf("unsupported azure operation: %s", op.Name)}, nil
	}

	var stdout []string
	for _, name := range names {
		log.InfoWithValues("[Azure]: Invoking operation", logrus.Fields{
			"Operation":      op.Name,
			"Azure Instance": name,
			"Resource Group": resourceGroup,
		})
		if err := call(ctx, resourceGroup, name); err != nil {
			if isRefusal(err) {
				return executor.Result{ExitCode: 1, Stdout: strings.Join(stdout, "\n"), Stderr: err.Error()}, nil
			}
			return executor.Result{Stdout: strings.Join(stdout, "\n")}, cerrors.Transport{
				Target: fmt.Sprintf("{Azure Instance Name: %v, Resource Group: %v}", name, resourceGroup),
				Reason: err.Error(),
			}
		}
		stdout = append(stdout, fmt.Sprintf("%s/%s %s", resourceGroup, name, verb))
	}
	return executor.Result{Stdout: strings.Join(stdout, "\n")}, nil
}

// isRefusal reports whether the api answered with an http status, as opposed to never being reached
func isRefusal(err error) bool {
	var requestErr *azure.RequestError
	if errors.As(err, &requestErr) {
		return hasStatus(requestErr.DetailedError)
	}
	var detailed autorest.DetailedError
	if errors.As(err, &detailed) {
		return hasStatus(detailed)
	}
	return false
}

func hasStatus(detailed autorest.DetailedError) bool {
	code, ok := detailed.StatusCode.(int)
	return ok && code != 0
}

func splitNames(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// sdkVirtualMachines drives a compute.VirtualMachinesClient and waits on every future
type sdkVirtualMachines struct {
	client compute.VirtualMachinesClient
}

func (s *sdkVirtualMachines) PowerOff(ctx context.Context, resourceGroup, name string) error {
	future, err := s.client.PowerOff(ctx, resourceGroup, name, &s.client.SkipResourceProviderRegistration)
	if err != nil {
		return err
	}
	return future.WaitForCompletionRef(ctx, s.client.Client)
}

func (s *sdkVirtualMachines) Start(ctx context.Context, resourceGroup, name string) error {
	future, err := s.client.Start(ctx, resourceGroup, name)
	if err != nil {
		return err
	}
	return future.WaitForCompletionRef(ctx, s.client.Client)
}

func (s *sdkVirtualMachines) Restart(ctx context.Context, resourceGroup, name string) error {
	future, err := s.client.Restart(ctx, resourceGroup, name)
	if err != nil {
		return err
	}
	return future.WaitForCompletionRef(ctx, s.client.Client)
}

func (s *sdkVirtualMachines) Delete(ctx context.Context, resourceGroup, name string) error {
	future, err := s.client.Delete(ctx, resourceGroup, name, nil)
	if err != nil {
		return err
	}
	return future.WaitForCompletionRef(ctx, s.client.Client)
}

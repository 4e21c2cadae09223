// Package gcp interprets GCP_VM_* operations with the compute engine api.
package gcp

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	"github.com/litmuschaos/fault-orchestrator/pkg/log"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// Operation names understood by the executor
const (
	OpStop   = "GCP_VM_STOP"
	OpStart  = "GCP_VM_START"
	OpReset  = "GCP_VM_RESET"
	OpDelete = "GCP_VM_DELETE"
)

// Instances is the subset of the compute api the executor drives
type Instances interface {
	Stop(ctx context.Context, project, zone, name string) error
	Start(ctx context.Context, project, zone, name string) error
	Reset(ctx context.Context, project, zone, name string) error
	Delete(ctx context.Context, project, zone, name string) error
	List(ctx context.Context, project, zone, filter string) ([]string, error)
}

// Executor runs GCP_VM_* operations
type Executor struct {
	instances Instances
	project   string
	zone      string
}

// New creates a compute service from the service account json in creds,
// falling back to application default credentials
func New(ctx context.Context, conn *types.GCPConnection, creds *types.Credentials) (*Executor, error) {
	if conn == nil || conn.ProjectID == "" {
		return nil, cerrors.Configuration{Reason: "gcp endpoint requires a projectId"}
	}
	var opts []option.ClientOption
	if creds != nil && creds.ServiceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds.ServiceAccountJSON)))
	}
	computeService, err := compute.NewService(ctx, opts...)
	if err != nil {
		return nil, cerrors.Transport{Target: conn.ProjectID, Reason: fmt.Sprintf("failed to create compute service: %v", err)}
	}
	return NewWithClient(&sdkInstances{service: computeService}, conn.ProjectID, conn.Zone), nil
}

// NewWithClient wraps an existing Instances implementation
func NewWithClient(instances Instances, project, zone string) *Executor {
	return &Executor{instances: instances, project: project, zone: zone}
}

// Execute implements executor.CommandExecutor
func (e *Executor) Execute(ctx context.Context, cmd string) (executor.Result, error) {
	op, ok := command.ParseOperation(cmd)
	if !ok {
		return executor.Result{ExitCode: 1, Stderr: fmt.Sprintf("unsupported gcp command: %s", cmd)}, nil
	}
	zone := op.Get("zone")
	if zone == "" {
		zone = e.zone
	}
	names := splitNames(op.Get("instanceNames"))
	if len(names) == 0 || zone == "" {
		return executor.Result{ExitCode: 1, Stderr: fmt.Sprintf("%s requires --instanceNames and a zone", op.Name)}, nil
	}

	var call func(ctx context.Context, project, zone, name string) error
	var verb string
	switch op.Name {
	case OpStop:
		call, verb = e.instances.Stop, "stopped"
	case OpStart:
		call, verb = e.instances.Start, "started"
	case OpReset:
		call, verb = e.instances.Reset, "reset"
	case OpDelete:
		call, verb = e.instances.Delete, "deleted"
	default:
		return executor.Result{ExitCode: 1, Stderr: fmt.Sprintf("unsupported gcp operation: %s", op.Name)}, nil
	}

	var stdout []string
	for _, name := range names {
		log.InfoWithValues("[GCP]: Invoking operation", logrus.Fields{
			"Operation":    op.Name,
			"InstanceName": name,
			"InstanceZone": zone,
		})
		if err := call(ctx, e.project, zone, name); err != nil {
			if isRefusal(err) {
				return executor.Result{ExitCode: 1, Stdout: strings.Join(stdout, "\n"), Stderr: err.Error()}, nil
			}
			return executor.Result{Stdout: strings.Join(stdout, "\n")}, cerrors.Transport{
				Target: fmt.Sprintf("{VM Instance Name: %v, Zone: %v}", name, zone),
				Reason: err.Error(),
			}
		}
		stdout = append(stdout, fmt.Sprintf("%s/%s %s", zone, name, verb))
	}
	return executor.Result{Stdout: strings.Join(stdout, "\n")}, nil
}

// ListInstances returns the sorted names of running instances in the zone carrying every given label
func (e *Executor) ListInstances(ctx context.Context, labels map[string]string) ([]string, error) {
	if len(labels) == 0 {
		return nil, cerrors.NoTargetsIdentified{Target: fmt.Sprintf("{Zone: %v}", e.zone), Reason: "no instance labels provided"}
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	filters := []string{`(status = "RUNNING")`}
	for _, k := range keys {
		filters = append(filters, fmt.Sprintf(`(labels.%s = "%s")`, k, labels[k]))
	}

	names, err := e.instances.List(ctx, e.project, e.zone, strings.Join(filters, " AND "))
	if err != nil {
		return nil, cerrors.Transport{
			Target: fmt.Sprintf("{Labels: %v, Zone: %v}", labels, e.zone),
			Reason: fmt.Sprintf("failed to list instances: %v", err),
		}
	}
	sort.Strings(names)
	return names, nil
}

// isRefusal reports whether the api answered, either rejecting the call or failing the operation
func isRefusal(err error) bool {
	var apiErr *googleapi.Error
	var opErr *operationError
	return errors.As(err, &apiErr) || errors.As(err, &opErr)
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

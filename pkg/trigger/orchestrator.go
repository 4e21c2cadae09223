// Package trigger fans one fault out to a child task per resolved target and runs the children.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/palantir/stacktrace"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/endpoints"
	"github.com/litmuschaos/fault-orchestrator/pkg/faults"
	"github.com/litmuschaos/fault-orchestrator/pkg/log"
	"github.com/litmuschaos/fault-orchestrator/pkg/math"
	"github.com/litmuschaos/fault-orchestrator/pkg/task"
	"github.com/litmuschaos/fault-orchestrator/pkg/telemetry"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

const defaultParallelism = 4

var randomIndex = rand.Intn

// Orchestrator expands a fault into child tasks of the single helper it wraps
type Orchestrator struct {
	helper      *task.Helper
	parallelism int
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithParallelism bounds how many children RunChildren executes at once
func WithParallelism(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// New returns an orchestrator whose children are created and executed by helper
func New(helper *task.Helper, opts ...Option) *Orchestrator {
	o := &Orchestrator{helper: helper, parallelism: defaultParallelism}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Helper returns the wrapped child helper
func (o *Orchestrator) Helper() *task.Helper {
	return o.helper
}

// Init validates the spec against the wrapped helper and returns an INITIALISED trigger task
func (o *Orchestrator) Init(ctx context.Context, spec types.FaultSpecification, injectionTaskID string) (*types.FaultTriggeringTask, error) {
	spec, _, err := o.helper.Prepare(spec)
	if err != nil {
		return nil, err
	}
	parent := types.NewTask(task.Name(spec), types.TaskTypeTrigger, o.helper.Name(), spec)
	parent.InjectionTaskID = injectionTaskID

	log.InfoWithValues("[Trigger]: The trigger details are as follows", logrus.Fields{
		"Task ID":   parent.ID,
		"Task Name": parent.Name,
		"Helper":    o.helper.Name(),
		"Endpoint":  spec.EndpointName,
	})
	return &types.FaultTriggeringTask{Task: *parent, Children: map[string]*types.Task{}}, nil
}

// InitRemediation returns an INITIALISED trigger undoing injection. Execute creates one remediation
// per injected child, keyed like the child it undoes, without resolving targets again.
func (o *Orchestrator) InitRemediation(ctx context.Context, injection *types.FaultTriggeringTask) (*types.FaultTriggeringTask, error) {
	if injection == nil || injection.InjectionTaskID != "" {
		return nil, cerrors.Specification{Reason: "a remediation trigger needs the injection trigger it undoes"}
	}
	parent, err := o.InitRemediationOf(ctx, injection.Spec, injection.ID, injection.Targets)
	if err != nil {
		return nil, err
	}
	parent.Injection = injection
	return parent, nil
}

// InitRemediationOf returns an INITIALISED remediation trigger pinned to the target ids an
// injection trigger reported. Without targets, the targets are resolved from spec again.
func (o *Orchestrator) InitRemediationOf(ctx context.Context, spec types.FaultSpecification, injectionTaskID string, targets []string) (*types.FaultTriggeringTask, error) {
	if injectionTaskID == "" {
		return nil, cerrors.Specification{Target: spec.FaultName, Reason: "a remediation needs the id of its injection task"}
	}
	parent, err := o.Init(ctx, spec, injectionTaskID)
	if err != nil {
		return nil, err
	}
	parent.Targets = append([]string(nil), targets...)
	return parent, nil
}

// Execute resolves the targets of the trigger and creates one child task per target.
// The children are not executed, see RunChildren.
func (o *Orchestrator) Execute(ctx context.Context, parent *types.FaultTriggeringTask) error {
	if parent.ReadyForChildExecution {
		log.Infof("[Trigger]: %s already has %d child tasks", parent.Name, len(parent.Children))
		return nil
	}
	ctx, span := telemetry.StartSpan(ctx, "ExecuteTrigger")
	defer span.End()
	span.SetAttributes(attribute.String("task.id", parent.ID))

	trigger := parent.CurrentTrigger()
	if trigger == nil {
		trigger = parent.Retrigger()
	}
	trigger.Start()
	o.helper.Transition(ctx, &parent.Task, types.SubstageInProgress)

	children, err := o.children(ctx, parent)
	if err != nil {
		span.SetStatus(codes.Error, "trigger failed")
		span.RecordError(err)
		if cerrors.IsNoTargets(err) {
			// nothing was attempted, the trigger can be executed again as is
			parent.SetSubstage(types.SubstageInitialised)
		} else {
			o.helper.Transition(ctx, &parent.Task, types.SubstageFailed)
		}
		trigger.Fail(err.Error())
		log.ErrorWithValues("[Trigger]: Trigger failed", logrus.Fields{
			"Task Name": parent.Name,
			"Reason":    err.Error(),
		})
		return err
	}

	parent.Children = children
	parent.Targets = targetIDs(children)
	parent.ReadyForChildExecution = true
	o.helper.Transition(ctx, &parent.Task, types.SubstageTriggerChildTasks)
	log.Infof("[Trigger]: %s created %d child tasks", parent.Name, len(children))
	return nil
}

func (o *Orchestrator) children(ctx context.Context, parent *types.FaultTriggeringTask) (map[string]*types.Task, error) {
	if parent.Injection != nil {
		return o.remediations(ctx, parent)
	}
	specs, err := o.childSpecs(ctx, parent)
	if err != nil {
		return nil, err
	}
	children := make(map[string]*types.Task, len(specs))
	for _, spec := range specs {
		child, err := o.helper.Init(ctx, spec, parent.InjectionTaskID)
		if err != nil {
			return nil, stacktrace.Propagate(err, "could not initialise the child task of %s", spec.EndpointName)
		}
		base, name := targetID(parent.Spec, spec), child.Name
		id := base
		for i := 1; children[id] != nil; i++ {
			id = fmt.Sprintf("%s-%d", base, i)
			child.Name = fmt.Sprintf("%s-%d", name, i)
		}
		children[id] = child
	}
	return children, nil
}

// remediations undoes every injected child on the targets it recorded
func (o *Orchestrator) remediations(ctx context.Context, parent *types.FaultTriggeringTask) (map[string]*types.Task, error) {
	children := make(map[string]*types.Task, len(parent.Injection.Children))
	for id, injected := range parent.Injection.Children {
		if len(injected.Targets) == 0 {
			log.Warnf("[Trigger]: %s never resolved its targets, nothing to remediate", injected.Name)
			continue
		}
		child, err := o.helper.InitRemediation(ctx, injected)
		if err != nil {
			return nil, stacktrace.Propagate(err, "could not initialise the remediation of %s", injected.Name)
		}
		children[id] = child
	}
	if len(children) == 0 {
		return nil, cerrors.NoTargetsIdentified{Target: parent.Spec.EndpointName, Reason: fmt.Sprintf("injection task %s injected no targets", parent.Injection.ID)}
	}
	return children, nil
}

// targetID keys a child under its parent: the member endpoint of a group, the pinned target otherwise
func targetID(parent, child types.FaultSpecification) string {
	if parent.Kind() == types.EndpointGroup {
		return child.EndpointName
	}
	if target := child.PinnedTarget(); target != "" {
		return target
	}
	return child.EndpointName
}

func targetIDs(children map[string]*types.Task) []string {
	ids := make([]string, 0, len(children))
	for id := range children {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// childSpecs returns one pinned spec per selected target
func (o *Orchestrator) childSpecs(ctx context.Context, parent *types.FaultTriggeringTask) ([]types.FaultSpecification, error) {
	spec := parent.Spec
	remediation := parent.InjectionTaskID != ""
	if remediation && len(parent.Targets) == 0 && spec.PinnedTarget() == "" && spec.RandomInjection() {
		return nil, cerrors.Specification{Target: spec.FaultName, Reason: "a random injection is remediated from its injection trigger or its reported targets"}
	}
	var pinned []string
	if remediation {
		pinned = parent.Targets
	}
	if spec.Kind() == types.EndpointGroup {
		return o.memberSpecs(spec, pinned)
	}
	if len(pinned) != 0 {
		specs := make([]types.FaultSpecification, 0, len(pinned))
		for _, target := range pinned {
			specs = append(specs, spec.WithTarget(target))
		}
		return specs, nil
	}
	if spec.PinnedTarget() != "" {
		return []types.FaultSpecification{spec}, nil
	}

	builder, err := o.helper.Factory().BuilderFor(spec)
	if err != nil {
		return nil, err
	}
	targets, err := faults.Targets(ctx, builder, spec)
	if err != nil {
		return nil, err
	}
	targets = targets[:math.TargetCount(len(targets), spec.TargetPercentage)]
	specs := make([]types.FaultSpecification, 0, len(targets))
	for _, target := range targets {
		specs = append(specs, spec.WithTarget(target))
	}
	return specs, nil
}

// memberSpecs returns one spec per group member, only the named members when pinned is set
func (o *Orchestrator) memberSpecs(spec types.FaultSpecification, pinned []string) ([]types.FaultSpecification, error) {
	catalog := o.helper.Catalog()
	if catalog == nil {
		return nil, cerrors.Configuration{Reason: fmt.Sprintf("endpoint group '%s' needs a catalog", spec.EndpointName)}
	}
	members, err := endpoints.Members(catalog, spec.Endpoint)
	if err != nil {
		return nil, err
	}
	if len(pinned) != 0 {
		named := map[string]bool{}
		for _, name := range pinned {
			named[name] = true
		}
		kept := members[:0:0]
		for _, member := range members {
			if named[member.Name] {
				kept = append(kept, member)
			}
		}
		members = kept
	}
	if len(members) == 0 {
		return nil, cerrors.NoTargetsIdentified{Target: spec.EndpointName, Reason: "endpoint group has no members"}
	}
	if len(pinned) == 0 {
		if spec.RandomInjection() {
			members = members[randomIndex(len(members)):][:1]
		}
		members = members[:math.TargetCount(len(members), spec.TargetPercentage)]
	}

	specs := make([]types.FaultSpecification, 0, len(members))
	for _, member := range members {
		child := spec.Clone()
		child.EndpointName = member.Name
		child.Endpoint = member
		child.Credentials = nil
		child.RandomEndpoint = false
		specs = append(specs, child)
	}
	return specs, nil
}

// ChildTasks returns the children created by Execute keyed by target id
func ChildTasks(parent *types.FaultTriggeringTask) map[string]*types.Task {
	return parent.Children
}

// SortedChildTasks returns the children ordered by target id
func SortedChildTasks(parent *types.FaultTriggeringTask) []*types.Task {
	ids := targetIDs(parent.Children)
	out := make([]*types.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, parent.Children[id])
	}
	return out
}

// RunChildren executes every child with bounded parallelism. A failing child does not stop its
// siblings. The parent trigger is COMPLETED when every child completed, FAILED otherwise.
func (o *Orchestrator) RunChildren(ctx context.Context, parent *types.FaultTriggeringTask) error {
	if !parent.ReadyForChildExecution {
		return cerrors.Specification{Target: parent.Name, Reason: "trigger has not created its child tasks yet"}
	}
	trigger := parent.CurrentTrigger()

	var (
		mu     sync.Mutex
		failed []error
	)
	var g errgroup.Group
	g.SetLimit(o.parallelism)
	for _, child := range SortedChildTasks(parent) {
		child := child
		g.Go(func() error {
			if err := o.helper.Execute(ctx, child); err != nil {
				mu.Lock()
				failed = append(failed, fmt.Errorf("%s: %w", child.Name, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) != 0 {
		sort.Slice(failed, func(i, j int) bool { return failed[i].Error() < failed[j].Error() })
		err := errors.Join(failed...)
		trigger.Fail(err.Error())
		log.Errorf("[Trigger]: %d of %d child tasks of %s failed", len(failed), len(parent.Children), parent.Name)
		return err
	}
	trigger.Complete()
	log.Infof("[Trigger]: every child task of %s completed", parent.Name)
	return nil
}

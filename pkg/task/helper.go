// Package task drives one fault task through INITIALISED, IN_PROGRESS and a terminal substage.
package task

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/palantir/stacktrace"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/endpoints"
	"github.com/litmuschaos/fault-orchestrator/pkg/engine"
	"github.com/litmuschaos/fault-orchestrator/pkg/events"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	"github.com/litmuschaos/fault-orchestrator/pkg/faults"
	"github.com/litmuschaos/fault-orchestrator/pkg/log"
	"github.com/litmuschaos/fault-orchestrator/pkg/telemetry"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// Helper owns the lifecycle of the tasks of the fault families it serves.
// It holds no per task state and may drive several tasks concurrently.
type Helper struct {
	name      string
	families  map[types.FaultFamily]bool
	factory   *faults.Factory
	catalog   endpoints.Catalog
	publisher events.Publisher
	metrics   *telemetry.Metrics
	engine    []engine.Option
}

// Option configures a Helper
type Option func(*Helper)

// WithCatalog resolves endpoints and credentials that are not attached to the spec
func WithCatalog(catalog endpoints.Catalog) Option {
	return func(h *Helper) { h.catalog = catalog }
}

// WithPublisher receives every substage transition
func WithPublisher(publisher events.Publisher) Option {
	return func(h *Helper) { h.publisher = publisher }
}

// WithMetrics counts substage transitions and is handed to the engine
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(h *Helper) { h.metrics = metrics }
}

// WithEngineOptions appends options to the engine built for every execution
func WithEngineOptions(opts ...engine.Option) Option {
	return func(h *Helper) { h.engine = append(h.engine, opts...) }
}

// New returns a helper named name serving the given families
func New(name string, factory *faults.Factory, families []types.FaultFamily, opts ...Option) *Helper {
	h := &Helper{
		name:      name,
		families:  map[types.FaultFamily]bool{},
		factory:   factory,
		publisher: events.Discard,
	}
	for _, f := range families {
		h.families[f] = true
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewSystemResourceHelper serves resource exhaustion faults delivered by the staged agent
func NewSystemResourceHelper(factory *faults.Factory, opts ...Option) *Helper {
	return New("SystemResourceTaskHelper", factory, []types.FaultFamily{types.FamilyResource}, opts...)
}

// NewJVMAgentHelper serves faults delivered by the jvm agent
func NewJVMAgentHelper(factory *faults.Factory, opts ...Option) *Helper {
	return New("JVMAgentTaskHelper", factory, []types.FaultFamily{types.FamilyJVM}, opts...)
}

// NewContainerHelper serves container lifecycle faults
func NewContainerHelper(factory *faults.Factory, opts ...Option) *Helper {
	return New("ContainerTaskHelper", factory, []types.FaultFamily{types.FamilyState}, opts...)
}

// NewClusterResourceHelper serves faults on cluster resources
func NewClusterResourceHelper(factory *faults.Factory, opts ...Option) *Helper {
	return New("ClusterResourceTaskHelper", factory, []types.FaultFamily{types.FamilyClusterResource}, opts...)
}

// NewMachineStateHelper serves host lifecycle faults
func NewMachineStateHelper(factory *faults.Factory, opts ...Option) *Helper {
	return New("MachineStateTaskHelper", factory, []types.FaultFamily{types.FamilyState}, opts...)
}

// NewInfrastructureHelper serves cloud and vCenter instance faults
func NewInfrastructureHelper(factory *faults.Factory, opts ...Option) *Helper {
	return New("InfrastructureTaskHelper", factory, []types.FaultFamily{types.FamilyState}, opts...)
}

// Name is recorded as the extension name of the tasks this helper creates
func (h *Helper) Name() string {
	return h.name
}

// Serves reports whether the helper handles the family
func (h *Helper) Serves(family types.FaultFamily) bool {
	return h.families[family]
}

// Families returns the served families in order
func (h *Helper) Families() []types.FaultFamily {
	out := make([]types.FaultFamily, 0, len(h.families))
	for f := range h.families {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Publisher returns the publisher transitions are sent to
func (h *Helper) Publisher() events.Publisher {
	return h.publisher
}

// Factory returns the builder registry of the helper
func (h *Helper) Factory() *faults.Factory {
	return h.factory
}

// Catalog returns the endpoint catalog, nil when none is configured
func (h *Helper) Catalog() endpoints.Catalog {
	return h.catalog
}

// Prepare resolves and validates the spec without creating a task
func (h *Helper) Prepare(spec types.FaultSpecification) (types.FaultSpecification, faults.Builder, error) {
	spec = spec.Clone()
	if err := endpoints.Resolve(h.catalog, &spec); err != nil {
		return spec, nil, stacktrace.Propagate(err, "could not resolve the endpoint of fault %s", spec.FaultName)
	}
	if err := spec.Validate(); err != nil {
		return spec, nil, stacktrace.Propagate(err, "invalid fault specification")
	}
	if !h.Serves(spec.Family) {
		return spec, nil, cerrors.Specification{Target: spec.FaultName, Reason: fmt.Sprintf("fault family '%s' is not served by %s", spec.Family, h.name)}
	}
	if spec.Kind() == types.EndpointGroup {
		return spec, nil, nil
	}
	builder, err := h.factory.BuilderFor(spec)
	if err != nil {
		return spec, nil, err
	}
	if err := builder.Validate(spec); err != nil {
		return spec, nil, stacktrace.Propagate(err, "fault %s failed validation", spec.FaultName)
	}
	return spec, builder, nil
}

// Init validates the spec and returns an INITIALISED task.
// The task is a REMEDIATION of injectionTaskID when it is set, an INJECTION otherwise.
func (h *Helper) Init(ctx context.Context, spec types.FaultSpecification, injectionTaskID string) (*types.Task, error) {
	spec, _, err := h.Prepare(spec)
	if err != nil {
		return nil, err
	}
	if spec.Kind() == types.EndpointGroup {
		return nil, cerrors.Specification{Target: spec.FaultName, Reason: "endpoint groups are executed through a trigger"}
	}

	taskType := types.TaskTypeInjection
	if injectionTaskID != "" {
		taskType = types.TaskTypeRemediation
	}
	task := types.NewTask(Name(spec), taskType, h.name, spec)
	task.InjectionTaskID = injectionTaskID

	log.InfoWithValues("[Task]: The task details are as follows", logrus.Fields{
		"Task ID":   task.ID,
		"Task Name": task.Name,
		"Type":      task.TaskType,
		"Helper":    h.name,
	})
	return task, nil
}

// InitRemediation returns an INITIALISED remediation of injection. The remediation runs on the
// targets the injection recorded, so a random pick or a changed selector is never resolved again.
func (h *Helper) InitRemediation(ctx context.Context, injection *types.Task) (*types.Task, error) {
	if injection == nil || injection.TaskType != types.TaskTypeInjection {
		return nil, cerrors.Specification{Reason: "a remediation needs the injection task it undoes"}
	}
	if len(injection.Targets) == 0 {
		return nil, cerrors.Specification{Target: injection.Name, Reason: fmt.Sprintf("injection task %s recorded no targets to remediate", injection.ID)}
	}
	task, err := h.Init(ctx, injection.Spec, injection.ID)
	if err != nil {
		return nil, err
	}
	task.Targets = append([]string(nil), injection.Targets...)
	return task, nil
}

// Name is the deterministic task name of a spec, unique per concrete target
func Name(spec types.FaultSpecification) string {
	parts := []string{spec.FaultName, spec.EndpointName}
	if target := spec.PinnedTarget(); target != "" && target != spec.EndpointName {
		parts = append(parts, target)
	}
	return strings.Join(parts, "-")
}

// Execute runs the injection or remediation commands of the task on its current trigger.
// On error the task is left FAILED with the reason on the trigger, and the error is returned.
func (h *Helper) Execute(ctx context.Context, task *types.Task) error {
	ctx, span := telemetry.StartSpan(ctx, "ExecuteTask")
	defer span.End()
	span.SetAttributes(attribute.String("task.id", task.ID), attribute.String("task.type", string(task.TaskType)))

	trigger := task.CurrentTrigger()
	if trigger == nil {
		trigger = task.Retrigger()
	}
	trigger.Start()
	h.Transition(ctx, task, types.SubstageInProgress)

	if err := h.run(ctx, task); err != nil {
		span.SetStatus(codes.Error, "task failed")
		span.RecordError(err)
		h.Transition(ctx, task, types.SubstageFailed)
		trigger.Fail(err.Error())
		log.ErrorWithValues("[Task]: Task failed", logrus.Fields{
			"Task Name": task.Name,
			"Reason":    err.Error(),
		})
		return err
	}

	h.Transition(ctx, task, types.SubstageCompleted)
	trigger.Complete()
	log.Infof("[Task]: %s %s task completed", task.Name, strings.ToLower(string(task.TaskType)))
	return nil
}

func (h *Helper) run(ctx context.Context, task *types.Task) error {
	spec := task.Spec
	builder, err := h.factory.BuilderFor(spec)
	if err != nil {
		return err
	}
	exec, err := builder.ResolveExecutor(ctx, spec)
	if err != nil {
		return stacktrace.Propagate(err, "could not resolve the executor of endpoint %s", spec.EndpointName)
	}
	defer func() {
		if err := executor.Close(exec); err != nil {
			log.Warnf("[Task]: unable to close the executor of %s, err: %v", spec.EndpointName, err)
		}
	}()

	remediation := task.TaskType == types.TaskTypeRemediation
	if remediation {
		task.RemediationCommands = nil
	} else {
		task.InjectionCommands = nil
	}
	plans, err := h.plans(ctx, builder, exec, task)
	if err != nil {
		return err
	}
	if !remediation {
		task.Targets = nil
		for _, plan := range plans {
			task.Targets = append(task.Targets, plan.Target)
		}
		// the remediation is recorded before anything runs
		task.RemediationCommands = nil
		for _, plan := range plans {
			undo, err := builder.RemediationCommands(ctx, exec, plan.Spec)
			if err != nil {
				return stacktrace.Propagate(err, "could not build the remediation of target %s", plan.Target)
			}
			task.RemediationCommands = append(task.RemediationCommands, undo...)
		}
	}

	opts := append([]engine.Option{engine.WithSecrets(spec.Credentials.Secrets()...), engine.WithMetrics(h.metrics)}, h.engine...)
	eng := engine.New(opts...)
	sink := &engine.Troubleshooting{}
	defer func() { task.Outcomes = append(task.Outcomes, sink.Outcomes()...) }()

	var (
		summaries []string
		failed    []error
	)
	for _, plan := range plans {
		if remediation {
			task.RemediationCommands = append(task.RemediationCommands, plan.Commands...)
		} else {
			task.InjectionCommands = append(task.InjectionCommands, plan.Commands...)
		}
		if len(plan.Commands) == 0 {
			log.Infof("[Task]: %s has no commands to run on %s", spec.FaultName, plan.Target)
			continue
		}
		output, err := eng.Run(ctx, exec, plan.Commands, sink, engine.Variables{})
		if err != nil {
			err = stacktrace.Propagate(err, "fault %s failed on target %s", spec.FaultName, plan.Target)
			if !remediation {
				return err
			}
			// every target still gets its remediation attempt
			failed = append(failed, err)
			continue
		}
		summaries = append(summaries, strings.TrimSpace(output))
	}
	task.Output = strings.Join(summaries, "\n")
	switch len(failed) {
	case 0:
		return nil
	case 1:
		return failed[0]
	}
	return errors.Join(failed...)
}

// plans resolves the targets of an injection. A remediation replays the targets of its injection,
// and without them only a spec that does not pick a random target may be resolved again.
func (h *Helper) plans(ctx context.Context, builder faults.Builder, exec executor.CommandExecutor, task *types.Task) ([]faults.Plan, error) {
	spec := task.Spec
	if task.TaskType != types.TaskTypeRemediation {
		return faults.Plans(ctx, builder, exec, spec, false)
	}
	if len(task.Targets) != 0 {
		return faults.PlansFor(ctx, builder, exec, spec, task.Targets, true)
	}
	if spec.PinnedTarget() == "" && spec.RandomInjection() {
		return nil, cerrors.Specification{Target: spec.FaultName, Reason: "a random injection is remediated from its injection task or its recorded targets"}
	}
	return faults.Plans(ctx, builder, exec, spec, true)
}

// Transition moves the task to next, publishes the change and counts it
func (h *Helper) Transition(ctx context.Context, task *types.Task, next types.Substage) {
	old := task.SetSubstage(next)
	if err := h.publisher.Publish(ctx, events.Changed(task, old, next)); err != nil {
		log.Warnf("[Task]: unable to publish the %s transition of %s, err: %v", next, task.Name, err)
	}
	h.metrics.Transition(ctx, string(next))
}

// Commands returns the command strings recorded on the task, for summaries
func Commands(task *types.Task) (injection, remediation []string) {
	return command.Strings(task.InjectionCommands), command.Strings(task.RemediationCommands)
}

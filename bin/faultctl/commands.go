package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/litmuschaos/fault-orchestrator/pkg/endpoints"
	"github.com/litmuschaos/fault-orchestrator/pkg/faults"
	"github.com/litmuschaos/fault-orchestrator/pkg/log"
	"github.com/litmuschaos/fault-orchestrator/pkg/scheduler"
	"github.com/litmuschaos/fault-orchestrator/pkg/task"
	"github.com/litmuschaos/fault-orchestrator/pkg/trigger"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
	"github.com/litmuschaos/fault-orchestrator/pkg/utils/stringutils"
)

// loadSpec reads a fault specification document
func loadSpec(path string) (types.FaultSpecification, error) {
	var spec types.FaultSpecification
	data, err := os.ReadFile(path)
	if err != nil {
		return spec, errors.Wrapf(err, "unable to read fault specification %s", path)
	}
	if err := yaml.UnmarshalStrict(data, &spec); err != nil {
		return spec, errors.Wrapf(err, "invalid fault specification %s", path)
	}
	return spec, nil
}

func (a *app) orchestrator(spec types.FaultSpecification) (*trigger.Orchestrator, error) {
	helper, err := task.ForSpec(a.factory, a.catalog, spec, task.WithPublisher(a.publisher), task.WithMetrics(a.metrics))
	if err != nil {
		return nil, err
	}
	return trigger.New(helper, trigger.WithParallelism(a.config.ChildParallelism)), nil
}

// runFault fans the spec out to its child tasks and, when run is set, executes them
func (a *app) runFault(ctx context.Context, spec types.FaultSpecification, run bool) (*types.FaultTriggeringTask, error) {
	o, err := a.orchestrator(spec)
	if err != nil {
		return nil, err
	}
	parent, err := o.Init(ctx, spec, "")
	if err != nil {
		return nil, err
	}
	return parent, execute(ctx, o, parent, run)
}

// remediateFault undoes injectionTaskID on the targets it reported, or on the targets resolved again
// from spec when none are given
func (a *app) remediateFault(ctx context.Context, spec types.FaultSpecification, injectionTaskID string, targets []string) (*types.FaultTriggeringTask, error) {
	o, err := a.orchestrator(spec)
	if err != nil {
		return nil, err
	}
	parent, err := o.InitRemediationOf(ctx, spec, injectionTaskID, targets)
	if err != nil {
		return nil, err
	}
	return parent, execute(ctx, o, parent, true)
}

func execute(ctx context.Context, o *trigger.Orchestrator, parent *types.FaultTriggeringTask, run bool) error {
	if err := o.Execute(ctx, parent); err != nil {
		return err
	}
	if !run {
		return nil
	}
	return o.RunChildren(ctx, parent)
}

func newInjectCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "inject -f <spec.yaml>",
		Short: "Inject a fault on every target it selects",
		Args:  cobra.NoArgs,
		RunE: a.wrap(func(cmd *cobra.Command, _ []string) error {
			spec, err := loadSpec(file)
			if err != nil {
				return err
			}
			parent, err := a.runFault(cmd.Context(), spec, true)
			printSummary(cmd.OutOrStdout(), parent, err)
			return err
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "fault specification")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newRemediateCmd(a *app) *cobra.Command {
	var (
		file, injectionTaskID string
		targets               []string
	)
	cmd := &cobra.Command{
		Use:   "remediate -f <spec.yaml> --injection-task-id <id> [--target <id>]...",
		Short: "Undo a previously injected fault",
		Args:  cobra.NoArgs,
		RunE: a.wrap(func(cmd *cobra.Command, _ []string) error {
			spec, err := loadSpec(file)
			if err != nil {
				return err
			}
			parent, err := a.remediateFault(cmd.Context(), spec, injectionTaskID, targets)
			printSummary(cmd.OutOrStdout(), parent, err)
			return err
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "fault specification")
	cmd.Flags().StringVar(&injectionTaskID, "injection-task-id", "", "id of the injection task being remediated")
	cmd.Flags().StringSliceVar(&targets, "target", nil, "target id reported by the injection, repeatable")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("injection-task-id")
	return cmd
}

func newTriggerCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "trigger -f <spec.yaml>",
		Short: "Resolve the targets of a fault and list the child tasks without running them",
		Args:  cobra.NoArgs,
		RunE: a.wrap(func(cmd *cobra.Command, _ []string) error {
			spec, err := loadSpec(file)
			if err != nil {
				return err
			}
			parent, err := a.runFault(cmd.Context(), spec, false)
			printSummary(cmd.OutOrStdout(), parent, err)
			return err
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "fault specification")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newScheduleCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "schedule -f <spec.yaml>",
		Short: "Inject a fault on its cron expression or at its fixed time",
		Args:  cobra.NoArgs,
		RunE: a.wrap(func(cmd *cobra.Command, _ []string) error {
			spec, err := loadSpec(file)
			if err != nil {
				return err
			}
			if spec.Schedule == nil {
				return errors.Errorf("fault specification %s has no schedule", file)
			}
			ctx := cmd.Context()
			once := spec.Schedule.TimeInMillis > 0
			done := make(chan struct{})

			jobID := stringutils.Sanitize(task.Name(spec)) + "-" + stringutils.GetRunID()
			s := scheduler.New()
			err = s.Schedule(jobID, spec.Schedule, func() {
				parent, err := a.runFault(ctx, spec, true)
				printSummary(cmd.OutOrStdout(), parent, err)
				if err != nil {
					log.Errorf("[Scheduler]: scheduled run of %s failed, err: %v", spec.FaultName, err)
				}
				if once {
					close(done)
				}
			})
			if err != nil {
				return err
			}
			s.Start()
			defer s.Stop()

			select {
			case <-ctx.Done():
			case <-done:
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "fault specification with a schedule")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newDescribeCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "describe -f <spec.yaml>",
		Short: "Print the targets and the commands of a fault without running anything",
		Args:  cobra.NoArgs,
		RunE: a.wrap(func(cmd *cobra.Command, _ []string) error {
			spec, err := loadSpec(file)
			if err != nil {
				return err
			}
			helper, err := task.ForSpec(a.factory, a.catalog, spec)
			if err != nil {
				return err
			}
			prepared, builder, err := helper.Prepare(spec)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, prepared.Describe())
			fmt.Fprintf(w, "Helper: %s\n", helper.Name())

			if builder == nil {
				members, err := endpoints.Members(a.catalog, prepared.Endpoint)
				if err != nil {
					return err
				}
				for _, m := range members {
					fmt.Fprintf(w, "  member: %s (%s)\n", m.Name, m.Kind)
				}
				return nil
			}

			injection, err := faults.Plans(cmd.Context(), builder, nil, prepared, false)
			if err != nil {
				return err
			}
			for _, plan := range injection {
				remediation, err := builder.RemediationCommands(cmd.Context(), nil, plan.Spec)
				if err != nil {
					return err
				}
				describePlan(w, plan, remediation)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "fault specification")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

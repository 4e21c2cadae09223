package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/kyokomi/emoji"

	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/faults"
	"github.com/litmuschaos/fault-orchestrator/pkg/task"
	"github.com/litmuschaos/fault-orchestrator/pkg/trigger"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

func verdict(status types.TaskStatus) string {
	switch status {
	case types.TaskStatusCompleted:
		return emoji.Sprint(":white_check_mark:")
	case types.TaskStatusFailed:
		return emoji.Sprint(":x:")
	}
	return emoji.Sprint(":hourglass:")
}

// printSummary writes the parent verdict followed by one block per child task
func printSummary(w io.Writer, parent *types.FaultTriggeringTask, err error) {
	if parent == nil {
		fmt.Fprintf(w, "%s %v\n", verdict(types.TaskStatusFailed), err)
		return
	}
	status := parent.CurrentTrigger().Status
	fmt.Fprintf(w, "%s %s [%s] %s\n", verdict(status), parent.Name, parent.Substage(), parent.ID)
	if reason := parent.CurrentTrigger().FailureReason; reason != "" {
		fmt.Fprintf(w, "  reason: %s\n", reason)
	}

	children := trigger.ChildTasks(parent)
	ids := make([]string, 0, len(children))
	for id := range children {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		child := children[id]
		fmt.Fprintf(w, "  %s %s [%s] %s\n", verdict(child.CurrentTrigger().Status), child.Name, child.TaskType, child.ID)
		fmt.Fprintf(w, "      target:    %s\n", id)
		injection, remediation := task.Commands(child)
		for _, c := range injection {
			fmt.Fprintf(w, "      inject:    %s\n", c)
		}
		for _, c := range remediation {
			fmt.Fprintf(w, "      remediate: %s\n", c)
		}
		if reason := child.CurrentTrigger().FailureReason; reason != "" {
			fmt.Fprintf(w, "      reason:    %s\n", reason)
		}
	}
}

func describePlan(w io.Writer, plan faults.Plan, remediation []command.Command) {
	fmt.Fprintf(w, "  target: %s\n", plan.Target)
	for _, c := range command.Strings(plan.Commands) {
		fmt.Fprintf(w, "      inject:    %s\n", c)
	}
	for _, c := range command.Strings(remediation) {
		fmt.Fprintf(w, "      remediate: %s\n", c)
	}
}

package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/litmuschaos/fault-orchestrator/pkg/command"
)

// TaskType is the declared purpose of a task
type TaskType string

const (
	TaskTypeInjection   TaskType = "INJECTION"
	TaskTypeRemediation TaskType = "REMEDIATION"
	TaskTypeTrigger     TaskType = "TRIGGER"
)

// Substage is the position of a task inside its state machine
type Substage string

const (
	SubstageInitialised       Substage = "INITIALISED"
	SubstageInProgress        Substage = "IN_PROGRESS"
	SubstageCompleted         Substage = "COMPLETED"
	SubstageFailed            Substage = "FAILED"
	SubstageTriggerChildTasks Substage = "TRIGGER_CHILD_TASKS"
)

// Terminal reports whether no further transition is expected from s
func (s Substage) Terminal() bool {
	return s == SubstageCompleted || s == SubstageFailed
}

// TaskStatus is the status of one execution attempt
type TaskStatus string

const (
	TaskStatusNotStarted TaskStatus = "NOT_STARTED"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusFailed     TaskStatus = "FAILED"
)

// TaskTrigger is one timestamped attempt of a task
type TaskTrigger struct {
	StartTime     time.Time
	EndTime       time.Time
	Status        TaskStatus
	Substage      Substage
	FailureReason string
}

// Start marks the attempt as running
func (t *TaskTrigger) Start() {
	t.StartTime = time.Now()
	t.Status = TaskStatusInProgress
}

// Complete closes the attempt successfully
func (t *TaskTrigger) Complete() {
	t.EndTime = time.Now()
	t.Status = TaskStatusCompleted
}

// Fail closes the attempt with the given reason
func (t *TaskTrigger) Fail(reason string) {
	t.EndTime = time.Now()
	t.Status = TaskStatusFailed
	t.FailureReason = reason
}

// Task is one tracked execution of a fault
type Task struct {
	ID                  string
	Name                string
	Description         string
	TaskType            TaskType
	ExtensionName       string
	Spec                FaultSpecification
	InjectionTaskID     string
	// Targets are the concrete targets the task runs on. An injection records them once its
	// targets are resolved, a remediation built from it replays them instead of resolving again.
	Targets             []string
	Triggers            []*TaskTrigger
	InjectionCommands   []command.Command
	RemediationCommands []command.Command
	Outcomes            []command.Outcome
	Output              string
}

// NewTask creates an INITIALISED task with a single trigger on its stack
func NewTask(name string, taskType TaskType, extensionName string, spec FaultSpecification) *Task {
	t := &Task{
		ID:            uuid.NewString(),
		Name:          name,
		Description:   spec.Describe(),
		TaskType:      taskType,
		ExtensionName: extensionName,
		Spec:          spec,
	}
	t.Retrigger()
	return t
}

// CurrentTrigger returns the top of the trigger stack
func (t *Task) CurrentTrigger() *TaskTrigger {
	if len(t.Triggers) == 0 {
		return nil
	}
	return t.Triggers[len(t.Triggers)-1]
}

// Retrigger pushes a fresh attempt, used when a scheduler re-fires the task
func (t *Task) Retrigger() *TaskTrigger {
	trigger := &TaskTrigger{Status: TaskStatusNotStarted, Substage: SubstageInitialised}
	t.Triggers = append(t.Triggers, trigger)
	return trigger
}

// Substage returns the substage of the current attempt
func (t *Task) Substage() Substage {
	if trigger := t.CurrentTrigger(); trigger != nil {
		return trigger.Substage
	}
	return ""
}

// SetSubstage moves the current attempt to s and returns the previous substage
func (t *Task) SetSubstage(s Substage) Substage {
	trigger := t.CurrentTrigger()
	if trigger == nil {
		trigger = t.Retrigger()
	}
	old := trigger.Substage
	trigger.Substage = s
	return old
}

// FaultTriggeringTask is a task that fans one fault out to child tasks
type FaultTriggeringTask struct {
	Task
	// Children are keyed by target id
	Children               map[string]*Task
	ReadyForChildExecution bool
	// Injection is the trigger a remediation trigger undoes, nil otherwise
	Injection              *FaultTriggeringTask
}

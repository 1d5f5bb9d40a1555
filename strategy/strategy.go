// Package strategy implements the schedulers that decide which tasks
// become runnable on each store state change: sequential/hierarchical
// (DeterministicStrategy) and supervisor-driven (ManagerLLMStrategy).
//
// A strategy never touches the store directly — it only sees the narrow
// State interface below, which is exactly the store's atomic mutators and
// read accessors. This keeps strategy free of an import cycle back to the
// store package while still letting the store own the concrete type.
package strategy

import (
	"context"

	"github.com/flowteam/core/status"
)

// TaskView is a read-only snapshot of a task's scheduling-relevant fields.
type TaskView struct {
	ID                     string
	Name                   string
	Description            string
	Status                 status.TaskStatus
	AgentID                string
	DependsOn              []string
	AllowParallelExecution bool
	Result                 any
	HasUnmetFeedback       bool
}

// State is everything a strategy may read or mutate on the store.
type State interface {
	// Tasks returns every task in original declaration order.
	Tasks() []TaskView
	TaskByID(id string) (TaskView, bool)

	MaxConcurrency() int
	// InFlightCount reports how many tasks currently have status DOING.
	InFlightCount() int
	// AgentBusy reports whether some task bound to agentID is DOING.
	AgentBusy(agentID string) bool

	// Dispatch transitions a task to DOING and submits it to the execution
	// queue with the given prior-task context string.
	Dispatch(taskID string, context string) error

	UpdateTaskStatus(taskID string, s status.TaskStatus) error
	UpdateStatusOfMultipleTasks(ids []string, s status.TaskStatus) error

	// SupervisorInvoke sends prompt to the manager strategy's designated
	// supervisor agent and returns its raw text response.
	SupervisorInvoke(ctx context.Context, prompt string) (string, error)

	// Fail transitions the workflow to ERRORED with the given error code.
	Fail(code, reason string)
}

// ExecutionStrategy is the scheduler contract every strategy implements.
type ExecutionStrategy interface {
	GetConcurrencyForTaskQueue(s State) int
	StartExecution(ctx context.Context, s State) error
	ExecuteFromChangedTasks(ctx context.Context, s State, changedIDs []string)
	GetContextForTask(s State, taskID string) string
	StopExecution(s State)
	ResumeExecution(ctx context.Context, s State)
}

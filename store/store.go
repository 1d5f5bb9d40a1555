// Package store implements the reactive team store: the single source of
// truth for a workflow's agents, tasks, logs, and status, with selector-based
// subscriptions so external observers (persistence, metrics) can react to
// state transitions without owning scheduling themselves.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowteam/core/agent"
	"github.com/flowteam/core/queue"
	"github.com/flowteam/core/signal"
	"github.com/flowteam/core/status"
	"github.com/flowteam/core/strategy"
	"github.com/flowteam/core/task"
	"github.com/flowteam/core/worklog"
)

// DefaultMaxConcurrency is the concurrency ceiling applied when a Config
// doesn't specify one.
const DefaultMaxConcurrency = 5

var _ strategy.State = (*Store)(nil)

// OpError is returned by mutators that fail a precondition check. The Code
// is one of the stable error codes in the status package.
type OpError struct {
	Code    string
	Message string
}

func (e *OpError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func opErr(code, msg string) *OpError { return &OpError{Code: code, Message: msg} }

// Config describes a team up front: its name, the concurrency ceiling, and
// which execution strategy to run tasks under. Supervisor is required when
// Strategy is a *strategy.ManagerLLMStrategy.
type Config struct {
	Name           string
	MaxConcurrency int
	Strategy       strategy.ExecutionStrategy
	Supervisor     *agent.Agent
}

// runningTask tracks the agent instance (possibly a clone) currently
// executing a task, keyed by task id so completeTask can find it again
// when the iteration loop returns.
type runningTask struct {
	taskID string
	agent  *agent.Agent
}

// Store is the team's reactive state container. All exported methods are
// safe for concurrent use; mutations are serialized behind mu and
// subscribers are notified synchronously, on the goroutine that committed
// the mutation, once the new state is visible.
type Store struct {
	mu sync.Mutex

	name           string
	maxConcurrency int
	strategy       strategy.ExecutionStrategy
	supervisor     *agent.Agent

	agents     map[string]*agent.Agent
	agentOrder []string
	tasks      map[string]*task.Task
	taskOrder  []string

	inputs map[string]string
	env    map[string]string
	memory map[string]any

	workflowStatus status.WorkflowStatus
	workflowResult any

	log   *worklog.Log
	ctrl  *signal.Control
	queue *queue.Queue

	running     map[string]*runningTask // taskID -> in-flight execution
	checkpoints map[string]*agent.Agent // taskID -> paused agent, preserved for resume

	subs   []*subscription
	subSeq int

	started bool
	ctx     context.Context
}

// New creates a team store around the given execution strategy. Agents and
// tasks are added afterward via AddAgents/AddTasks, before Start.
func New(cfg Config) *Store {
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Store{
		name:           cfg.Name,
		maxConcurrency: maxConcurrency,
		strategy:       cfg.Strategy,
		supervisor:     cfg.Supervisor,
		agents:         make(map[string]*agent.Agent),
		tasks:          make(map[string]*task.Task),
		env:            make(map[string]string),
		memory:         make(map[string]any),
		workflowStatus: status.WorkflowInitial,
		log:            worklog.New(),
		ctrl:           signal.New(),
		running:        make(map[string]*runningTask),
		checkpoints:    make(map[string]*agent.Agent),
	}
}

// AddAgents registers agents with the team. Valid only before Start.
func (s *Store) AddAgents(agents ...*agent.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return opErr(status.ErrInvalidState, "cannot add agents after start")
	}
	for _, a := range agents {
		if _, exists := s.agents[a.ID]; exists {
			continue
		}
		s.agents[a.ID] = a
		s.agentOrder = append(s.agentOrder, a.ID)
	}
	return nil
}

// AddTasks registers tasks with the team in declaration order. Valid only
// before Start.
func (s *Store) AddTasks(tasks ...*task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return opErr(status.ErrInvalidState, "cannot add tasks after start")
	}
	for _, t := range tasks {
		if _, exists := s.tasks[t.ID]; exists {
			continue
		}
		s.tasks[t.ID] = t
		s.taskOrder = append(s.taskOrder, t.ID)
	}
	return nil
}

// SetEnv registers a secret available to agents but always redacted from
// GetCleanedState.
func (s *Store) SetEnv(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env[key] = value
}

// Env returns a secret registered with SetEnv.
func (s *Store) Env(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.env[key]
	return v, ok
}

// SetMemory writes to the cross-task scratchpad, surfaced to agents and
// reported (unredacted) as workflowContext in GetCleanedState.
func (s *Store) SetMemory(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory[key] = value
}

// Memory reads a cross-task scratchpad value.
func (s *Store) Memory(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.memory[key]
	return v, ok
}

// Start resets execution state, records inputs, marks the workflow RUNNING,
// and invokes the strategy's initial dispatch. Calling Start while already
// RUNNING fails with ALREADY_RUNNING.
func (s *Store) Start(ctx context.Context, inputs map[string]string) error {
	s.mu.Lock()
	if s.workflowStatus == status.WorkflowRunning {
		s.mu.Unlock()
		return opErr(status.ErrAlreadyRunning, "workflow is already running")
	}
	s.started = true
	s.ctrl.Reset()
	s.inputs = copyStrings(inputs)
	s.workflowStatus = status.WorkflowRunning
	s.ctx = ctx
	s.mu.Unlock()

	s.appendWorkflowLog("workflow started")
	s.notify()

	if err := s.strategy.StartExecution(ctx, s); err != nil {
		return err
	}
	s.evaluateCompletion()
	return nil
}

// Pause transitions the workflow to PAUSED. In-flight iteration loops
// observe this at their next iteration boundary and checkpoint their task
// to PAUSED rather than being cancelled mid-call.
func (s *Store) Pause() {
	s.ctrl.Pause()
	s.mu.Lock()
	s.workflowStatus = status.WorkflowPaused
	s.mu.Unlock()
	s.appendWorkflowLog("workflow paused")
	s.notify()
}

// Resume transitions the workflow back to RUNNING and re-enters every
// PAUSED task from its checkpointed history.
func (s *Store) Resume(ctx context.Context) {
	s.ctrl.Resume()
	s.mu.Lock()
	s.workflowStatus = status.WorkflowRunning
	var paused []string
	for _, id := range s.taskOrder {
		if s.tasks[id].Status() == status.TaskPaused {
			paused = append(paused, id)
		}
	}
	s.mu.Unlock()

	s.appendWorkflowLog("workflow resumed")
	s.notify()

	for _, id := range paused {
		s.resumeTask(ctx, id)
	}
	s.strategy.ResumeExecution(ctx, s)
}

// Stop transitions the workflow to STOPPING, lets in-flight loops reach
// their next iteration boundary and abort cooperatively, then drains the
// queue and settles on STOPPED.
func (s *Store) Stop() {
	s.mu.Lock()
	s.workflowStatus = status.WorkflowStopping
	s.mu.Unlock()
	s.appendWorkflowLog("workflow stopping")
	s.notify()

	s.ctrl.Stop()
	s.strategy.StopExecution(s)
	s.mu.Lock()
	q := s.queue
	s.mu.Unlock()
	if q != nil {
		q.Drain()
	}

	s.mu.Lock()
	s.workflowStatus = status.WorkflowStopped
	s.mu.Unlock()
	s.appendWorkflowLog("workflow stopped")
	s.notify()
}

// Fail implements strategy.State: a fatal, non-recoverable condition (a
// dependency cycle, a supervisor that can't converge) transitions the
// workflow straight to ERRORED.
func (s *Store) Fail(code, reason string) {
	s.mu.Lock()
	s.workflowStatus = status.WorkflowErrored
	s.mu.Unlock()
	s.log.Append(worklog.Entry{
		Timestamp:   time.Now(),
		Kind:        status.LogWorkflowStatusUpdate,
		Metadata:    map[string]any{"status": status.WorkflowErrored, "code": code},
		Description: reason,
	})
	s.notify()
}

func copyStrings(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Store) appendWorkflowLog(description string) {
	s.mu.Lock()
	ws := s.workflowStatus
	s.mu.Unlock()
	s.log.Append(worklog.Entry{
		Timestamp:   time.Now(),
		Kind:        status.LogWorkflowStatusUpdate,
		Metadata:    map[string]any{"status": ws},
		Description: description,
	})
}

// queueFor lazily creates the execution queue at the strategy-requested
// concurrency, resizing it in place if the strategy's desired concurrency
// has since changed (e.g. the hierarchical strategy narrowing to the root
// count).
func (s *Store) queueFor(desired int) *queue.Queue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue == nil {
		s.queue = queue.New(int64(desired))
		return s.queue
	}
	s.queue.Resize(int64(desired))
	return s.queue
}

// baseContext returns the context Start was invoked with, used by
// completion callbacks and resume to keep calling into the strategy after
// the originating request's stack frame has returned.
func (s *Store) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}

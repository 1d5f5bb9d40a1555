package store

import (
	"context"
	"time"

	"github.com/flowteam/core/agent"
	"github.com/flowteam/core/loop"
	"github.com/flowteam/core/status"
	"github.com/flowteam/core/task"
	"github.com/flowteam/core/worklog"
)

// Dispatch implements strategy.State: resolves the task's owning agent
// (cloning it if it's already busy on another task and parallel execution
// is allowed), transitions the task to DOING, and submits the iteration
// loop to the execution queue. It never blocks: the queue's Submit spawns
// its own goroutine.
func (s *Store) Dispatch(taskID string, priorContext string) error {
	s.mu.Lock()
	t, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return opErr(status.ErrInvalidState, "unknown task "+taskID)
	}
	if t.Status() == status.TaskDoing {
		s.mu.Unlock()
		return opErr(status.ErrInvalidState, "task already running: "+taskID)
	}
	owner, ok := s.agents[t.AgentID]
	if !ok {
		s.mu.Unlock()
		return opErr(status.ErrInvalidState, "unknown agent "+t.AgentID)
	}
	runner := owner
	if s.agentBusyLocked(t.AgentID) {
		if !t.AllowParallelExecution {
			s.mu.Unlock()
			return opErr(status.ErrInvalidState, "agent busy: "+t.AgentID)
		}
		runner = owner.Clone()
	}
	s.mu.Unlock()

	return s.launch(taskID, t, runner, priorContext)
}

// launch performs the shared bookkeeping for both a fresh Dispatch and a
// resumeTask re-entry: validate the workflow will accept new work, mark the
// task DOING, register the running agent instance, and submit the
// iteration loop.
func (s *Store) launch(taskID string, t *task.Task, runner *agent.Agent, priorContext string) error {
	s.mu.Lock()
	if s.ctrl.IsPaused() || s.ctrl.IsStopped() {
		s.mu.Unlock()
		return opErr(status.ErrInvalidState, "workflow is not accepting dispatch")
	}
	concurrency := s.strategyConcurrencyUnlocked()
	inputs := s.inputs
	s.running[taskID] = &runningTask{taskID: taskID, agent: runner}
	s.mu.Unlock()

	t.SetStatus(status.TaskDoing)
	s.logTaskStatus(t, "dispatched")
	s.notify()

	q := s.queueFor(concurrency)
	ctx := s.baseContext()
	q.Submit(ctx, func(ctx context.Context) {
		outcome := loop.Run(ctx, runner, t, priorContext, inputs, s.log, s.ctrl)
		s.completeTask(taskID, runner, outcome)
	})
	return nil
}

// strategyConcurrencyUnlocked calls into the strategy, which itself needs
// to read store state — it must never be called while mu is held.
func (s *Store) strategyConcurrencyUnlocked() int {
	return s.strategy.GetConcurrencyForTaskQueue(s)
}

// completeTask runs when a submitted iteration loop returns, whether by
// finishing, being blocked, or checkpointing on pause/stop. It folds the
// outcome back into shared state and, unless the task merely checkpointed,
// re-enters the strategy so the next wave of runnable tasks gets picked up.
func (s *Store) completeTask(taskID string, runner *agent.Agent, outcome loop.Outcome) {
	s.mu.Lock()
	delete(s.running, taskID)
	if outcome.Status == status.TaskPaused {
		s.checkpoints[taskID] = runner
	}
	t := s.tasks[taskID]
	s.mu.Unlock()

	if t == nil {
		return
	}

	s.logTaskStatus(t, "iteration loop returned")
	s.notify()

	if outcome.Status == status.TaskPaused {
		return
	}

	ctx := s.baseContext()
	s.strategy.ExecuteFromChangedTasks(ctx, s, []string{taskID})
	s.evaluateCompletion()
}

// resumeTask re-enters the iteration loop for a task that checkpointed on
// pause, reusing the exact agent instance (and thus its preserved history
// and iteration counter) that was running it.
func (s *Store) resumeTask(ctx context.Context, taskID string) {
	s.mu.Lock()
	runner, ok := s.checkpoints[taskID]
	if ok {
		delete(s.checkpoints, taskID)
	}
	t := s.tasks[taskID]
	s.mu.Unlock()

	if !ok || t == nil {
		return
	}

	priorContext := s.strategy.GetContextForTask(s, taskID)
	_ = s.launch(taskID, t, runner, priorContext)
}

func (s *Store) logTaskStatus(t *task.Task, description string) {
	s.log.Append(worklog.Entry{
		Timestamp:   time.Now(),
		Kind:        status.LogTaskStatusUpdate,
		Task:        &worklog.TaskSnapshot{ID: t.ID, Name: t.Name, Status: t.Status(), Result: t.Result()},
		Description: description,
	})
}

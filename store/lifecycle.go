package store

import (
	"context"
	"fmt"
	"time"

	"github.com/flowteam/core/llms"
	"github.com/flowteam/core/status"
	"github.com/flowteam/core/worklog"
)

// ProvideFeedback appends a PENDING feedback entry to a task and forces it
// into REVISE, then re-enters the strategy so it can block descendants
// (hierarchical) or reset later tasks (sequential). Before Start, the task
// is only marked REVISE and the strategy is not re-entered. Valid in any
// non-terminal workflow state.
func (s *Store) ProvideFeedback(taskID, content string) error {
	s.mu.Lock()
	if isTerminalWorkflow(s.workflowStatus) {
		s.mu.Unlock()
		return opErr(status.ErrInvalidState, "workflow has already finished")
	}
	t, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return opErr(status.ErrInvalidState, "unknown task "+taskID)
	}
	started := s.started
	s.mu.Unlock()

	t.AddFeedback(content, time.Now())
	t.SetStatus(status.TaskRevise)
	s.logTaskStatus(t, "feedback received: "+content)
	s.notify()

	if !started {
		return nil
	}

	ctx := s.baseContext()
	s.strategy.ExecuteFromChangedTasks(ctx, s, []string{taskID})
	s.evaluateCompletion()
	return nil
}

// ValidateTask transitions an AWAITING_VALIDATION task to VALIDATED and
// triggers the same completion ripple a DONE transition would.
func (s *Store) ValidateTask(taskID string) error {
	s.mu.Lock()
	t, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return opErr(status.ErrInvalidState, "unknown task "+taskID)
	}
	if t.Status() != status.TaskAwaitingValidation {
		s.mu.Unlock()
		return opErr(status.ErrInvalidState, "task is not awaiting validation: "+taskID)
	}
	s.mu.Unlock()

	t.SetStatus(status.TaskValidated)
	s.logTaskStatus(t, "validated")
	s.notify()

	ctx := s.baseContext()
	s.strategy.ExecuteFromChangedTasks(ctx, s, []string{taskID})
	s.evaluateCompletion()
	return nil
}

// SupervisorInvoke implements strategy.State for ManagerLLMStrategy: a
// single, historyless LLM call asking the supervisor agent to pick the
// next task.
func (s *Store) SupervisorInvoke(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	sup := s.supervisor
	s.mu.Unlock()
	if sup == nil {
		return "", opErr(status.ErrInvalidState, "no supervisor agent configured")
	}

	resp, err := sup.LLM.Invoke(ctx, []llms.Message{
		{Role: llms.RoleSystem, Content: fmt.Sprintf("You are %s, the supervisor for this workflow.", sup.Name)},
		{Role: llms.RoleUser, Content: prompt},
	}, llms.Options{})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func isTerminalWorkflow(ws status.WorkflowStatus) bool {
	switch ws {
	case status.WorkflowFinished, status.WorkflowStopped, status.WorkflowErrored:
		return true
	default:
		return false
	}
}

// evaluateCompletion checks whether the workflow has reached FINISHED or
// BLOCKED: FINISHED when every task is terminal and at least one
// deliverable has completed; BLOCKED when nothing is in flight or
// runnable, and some task is stuck BLOCKED or AWAITING_VALIDATION.
func (s *Store) evaluateCompletion() {
	s.mu.Lock()
	if s.workflowStatus != status.WorkflowRunning {
		s.mu.Unlock()
		return
	}

	allTerminal := true
	anyDeliverableDone := false
	anyTodo := false
	anyBlockedOrAwaiting := false
	var deliverableResult any

	for _, id := range s.taskOrder {
		t := s.tasks[id]
		st := t.Status()
		switch st {
		case status.TaskDone, status.TaskValidated:
			if t.IsDeliverable {
				anyDeliverableDone = true
				deliverableResult = t.Result()
			}
		case status.TaskAborted:
			// terminal, no deliverable contribution
		default:
			allTerminal = false
		}
		if st == status.TaskTodo {
			anyTodo = true
		}
		if st == status.TaskBlocked || st == status.TaskAwaitingValidation {
			anyBlockedOrAwaiting = true
		}
	}

	var next status.WorkflowStatus
	switch {
	case allTerminal && anyDeliverableDone:
		next = status.WorkflowFinished
		s.workflowResult = deliverableResult
	case s.inFlightCountLocked() == 0 && !anyTodo && anyBlockedOrAwaiting:
		next = status.WorkflowBlocked
	default:
		s.mu.Unlock()
		return
	}
	s.workflowStatus = next
	s.mu.Unlock()

	s.log.Append(worklog.Entry{
		Timestamp:   time.Now(),
		Kind:        status.LogWorkflowStatusUpdate,
		Metadata:    map[string]any{"status": next},
		Description: fmt.Sprintf("workflow %s", next),
	})
	s.notify()
}

package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowteam/core/status"
)

// maxManagerRetries is how many times in total the supervisor is prompted
// for one decision; if none of its answers is usable, the workflow fails.
const maxManagerRetries = 3

// ManagerLLMStrategy delegates next-task selection to a supervisor agent
// rather than a fixed topology. At each decision point it lists every
// task's id, description, status and result so far, and asks the
// supervisor to name the next task to run (or DONE).
type ManagerLLMStrategy struct{}

func NewManagerLLMStrategy() *ManagerLLMStrategy {
	return &ManagerLLMStrategy{}
}

func (m *ManagerLLMStrategy) GetConcurrencyForTaskQueue(s State) int {
	return 1
}

func (m *ManagerLLMStrategy) StartExecution(ctx context.Context, s State) error {
	return m.decideNext(ctx, s)
}

func (m *ManagerLLMStrategy) ExecuteFromChangedTasks(ctx context.Context, s State, changedIDs []string) {
	if s.InFlightCount() > 0 {
		return
	}
	_ = m.decideNext(ctx, s)
}

func (m *ManagerLLMStrategy) decideNext(ctx context.Context, s State) error {
	for attempt := 0; attempt < maxManagerRetries; attempt++ {
		tasks := s.Tasks()
		if allTerminal(tasks) {
			return nil
		}

		prompt := buildManagerPrompt(tasks)
		reply, err := s.SupervisorInvoke(ctx, prompt)
		if err != nil {
			continue
		}

		taskID := strings.TrimSpace(reply)
		if strings.EqualFold(taskID, "DONE") {
			return nil
		}

		tv, ok := s.TaskByID(taskID)
		if !ok || tv.Status.IsTerminal() || tv.HasUnmetFeedback {
			continue
		}

		return s.Dispatch(taskID, m.GetContextForTask(s, taskID))
	}

	s.Fail(status.ErrManagerLoop, "supervisor failed to pick a runnable task after retries")
	return fmt.Errorf("%s: supervisor exhausted retries", status.ErrManagerLoop)
}

func buildManagerPrompt(tasks []TaskView) string {
	var b strings.Builder
	b.WriteString("Choose the next task to run. Respond with only its id, or DONE if the workflow is complete.\n\n")
	for _, t := range tasks {
		fmt.Fprintf(&b, "id=%s status=%s description=%q result=%s\n", t.ID, t.Status, t.Description, canonicalJSON(t.Result))
	}
	return b.String()
}

func allTerminal(tasks []TaskView) bool {
	for _, t := range tasks {
		if !t.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// GetContextForTask mirrors DeterministicStrategy's declaration-order
// concatenation of completed results — the manager strategy has no
// topology of its own to restrict by, so every completed task is relevant.
func (m *ManagerLLMStrategy) GetContextForTask(s State, taskID string) string {
	tasks := s.Tasks()
	out := ""
	for _, t := range tasks {
		if t.ID == taskID {
			continue
		}
		if t.Status != status.TaskDone && t.Status != status.TaskValidated {
			continue
		}
		out += fmt.Sprintf("Task: %s\nResult: %s\n", t.Description, canonicalJSON(t.Result))
	}
	return out
}

func (m *ManagerLLMStrategy) StopExecution(s State) {}

func (m *ManagerLLMStrategy) ResumeExecution(ctx context.Context, s State) {
	_ = m.decideNext(ctx, s)
}

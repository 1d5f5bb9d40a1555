package strategy

import (
	"context"
	"sync"

	"github.com/flowteam/core/status"
)

// fakeState is an in-memory State used to drive strategy tests without a
// real store.Store. Dispatch and UpdateTaskStatus mutate the task map
// directly; Dispatch also records each dispatched id and its context string
// for assertions.
type fakeState struct {
	mu sync.Mutex

	tasks          map[string]*TaskView
	order          []string
	maxConcurrency int

	dispatched  []string
	contextArgs map[string]string
	failedCode  string
	failedMsg   string

	supervisorReplies []string
	supervisorErr     error
	supervisorCalls   int
}

func newFakeState(maxConcurrency int, tasks ...TaskView) *fakeState {
	fs := &fakeState{
		tasks:          make(map[string]*TaskView, len(tasks)),
		maxConcurrency: maxConcurrency,
		contextArgs:    make(map[string]string),
	}
	for _, t := range tasks {
		t := t
		fs.tasks[t.ID] = &t
		fs.order = append(fs.order, t.ID)
	}
	return fs
}

func (fs *fakeState) Tasks() []TaskView {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]TaskView, 0, len(fs.order))
	for _, id := range fs.order {
		out = append(out, *fs.tasks[id])
	}
	return out
}

func (fs *fakeState) TaskByID(id string) (TaskView, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	t, ok := fs.tasks[id]
	if !ok {
		return TaskView{}, false
	}
	return *t, true
}

func (fs *fakeState) MaxConcurrency() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.maxConcurrency
}

func (fs *fakeState) InFlightCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n := 0
	for _, t := range fs.tasks {
		if t.Status == status.TaskDoing {
			n++
		}
	}
	return n
}

func (fs *fakeState) AgentBusy(agentID string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, t := range fs.tasks {
		if t.AgentID == agentID && t.Status == status.TaskDoing {
			return true
		}
	}
	return false
}

func (fs *fakeState) Dispatch(taskID string, ctxStr string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	t, ok := fs.tasks[taskID]
	if !ok {
		return nil
	}
	t.Status = status.TaskDoing
	fs.dispatched = append(fs.dispatched, taskID)
	fs.contextArgs[taskID] = ctxStr
	return nil
}

func (fs *fakeState) UpdateTaskStatus(taskID string, s status.TaskStatus) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if t, ok := fs.tasks[taskID]; ok {
		t.Status = s
	}
	return nil
}

func (fs *fakeState) UpdateStatusOfMultipleTasks(ids []string, s status.TaskStatus) error {
	for _, id := range ids {
		_ = fs.UpdateTaskStatus(id, s)
	}
	return nil
}

func (fs *fakeState) SupervisorInvoke(ctx context.Context, prompt string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.supervisorErr != nil {
		return "", fs.supervisorErr
	}
	if fs.supervisorCalls >= len(fs.supervisorReplies) {
		return "DONE", nil
	}
	reply := fs.supervisorReplies[fs.supervisorCalls]
	fs.supervisorCalls++
	return reply, nil
}

func (fs *fakeState) Fail(code, reason string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failedCode = code
	fs.failedMsg = reason
}

func (fs *fakeState) complete(id string, result any) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	t := fs.tasks[id]
	t.Status = status.TaskDone
	t.Result = result
}

var _ State = (*fakeState)(nil)

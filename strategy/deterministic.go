package strategy

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowteam/core/status"
)

// DeterministicStrategy handles both topologies the core recognizes without
// a supervisor agent: a plain sequence (no task declares DependsOn) and an
// explicit DAG (any task does). Topology is detected once, at
// StartExecution, from whichever shape the task list has.
type DeterministicStrategy struct {
	mu           sync.Mutex
	hierarchical bool
	// revisedBy maps a blocked task id to the id of the ancestor whose
	// revision blocked it, so completion of that ancestor can unblock it.
	revisedBy map[string]string
}

func NewDeterministicStrategy() *DeterministicStrategy {
	return &DeterministicStrategy{revisedBy: make(map[string]string)}
}

func (d *DeterministicStrategy) GetConcurrencyForTaskQueue(s State) int {
	tasks := s.Tasks()
	if !anyHasDependsOn(tasks) {
		return 1
	}
	roots := 0
	for _, t := range tasks {
		if len(t.DependsOn) == 0 {
			roots++
		}
	}
	max := s.MaxConcurrency()
	if roots < max {
		return roots
	}
	return max
}

func (d *DeterministicStrategy) StartExecution(ctx context.Context, s State) error {
	tasks := s.Tasks()
	d.mu.Lock()
	d.hierarchical = anyHasDependsOn(tasks)
	d.mu.Unlock()

	if d.hierarchical {
		if cyclic := detectCycle(tasks); cyclic {
			s.Fail(status.ErrCycleInDependencies, "dependency graph contains a cycle")
			return fmt.Errorf("%s: dependency graph contains a cycle", status.ErrCycleInDependencies)
		}
		d.dispatchRunnable(s)
		return nil
	}

	// Sequential: only the first declared task starts.
	if len(tasks) == 0 {
		return nil
	}
	return s.Dispatch(tasks[0].ID, "")
}

func (d *DeterministicStrategy) ExecuteFromChangedTasks(ctx context.Context, s State, changedIDs []string) {
	d.mu.Lock()
	hierarchical := d.hierarchical
	d.mu.Unlock()

	if hierarchical {
		d.reactHierarchical(s, changedIDs)
	} else {
		d.reactSequential(s, changedIDs)
	}
	d.dispatchRunnable(s)
}

func (d *DeterministicStrategy) reactSequential(s State, changedIDs []string) {
	tasks := s.Tasks()
	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		index[t.ID] = i
	}

	for _, id := range changedIDs {
		tv, ok := s.TaskByID(id)
		if !ok {
			continue
		}
		if tv.Status == status.TaskRevise {
			i := index[id]
			var toReset []string
			for j := i + 1; j < len(tasks); j++ {
				toReset = append(toReset, tasks[j].ID)
			}
			if len(toReset) > 0 {
				_ = s.UpdateStatusOfMultipleTasks(toReset, status.TaskTodo)
			}
			_ = s.Dispatch(id, d.GetContextForTask(s, id))
		}
	}
}

// dispatchRunnable promotes the next eligible task(s) to DOING, honoring
// the concurrency ceiling, agent single-use rule, and declaration-order
// tie-break.
func (d *DeterministicStrategy) dispatchRunnable(s State) {
	d.mu.Lock()
	hierarchical := d.hierarchical
	d.mu.Unlock()

	tasks := s.Tasks()

	if !hierarchical {
		// Exactly one task may be DOING at a time; promote the first TODO
		// in declaration order if nothing is currently in flight.
		if s.InFlightCount() > 0 {
			return
		}
		for _, t := range tasks {
			if t.Status == status.TaskTodo {
				_ = s.Dispatch(t.ID, d.GetContextForTask(s, t.ID))
				return
			}
		}
		return
	}

	byID := make(map[string]TaskView, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	capacity := s.MaxConcurrency() - s.InFlightCount()
	if capacity <= 0 {
		return
	}

	for _, t := range tasks {
		if capacity <= 0 {
			return
		}
		if t.Status != status.TaskTodo {
			continue
		}
		if t.HasUnmetFeedback {
			continue
		}
		if !allDependenciesDone(t, byID) {
			continue
		}
		if s.AgentBusy(t.AgentID) && !t.AllowParallelExecution {
			continue
		}
		if err := s.Dispatch(t.ID, d.GetContextForTask(s, t.ID)); err == nil {
			capacity--
		}
	}
}

func (d *DeterministicStrategy) reactHierarchical(s State, changedIDs []string) {
	tasks := s.Tasks()
	byID := make(map[string]TaskView, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	dependents := reverseAdjacency(tasks)

	for _, id := range changedIDs {
		tv, ok := byID[id]
		if !ok {
			continue
		}
		if tv.Status == status.TaskRevise {
			d.blockDescendants(s, id, dependents)
			_ = s.Dispatch(id, d.GetContextForTask(s, id))
		}
	}

	// Unblock descendants of any revised ancestor that has returned to DONE.
	d.mu.Lock()
	blocked := make(map[string]string, len(d.revisedBy))
	for k, v := range d.revisedBy {
		blocked[k] = v
	}
	d.mu.Unlock()

	var toUnblock []string
	for blockedID, ancestorID := range blocked {
		ancestor, ok := byID[ancestorID]
		if !ok || ancestor.Status != status.TaskDone {
			continue
		}
		bt, ok := byID[blockedID]
		if !ok || bt.Status != status.TaskBlocked {
			continue
		}
		if !allDependenciesDone(bt, byID) {
			continue
		}
		toUnblock = append(toUnblock, blockedID)
	}
	if len(toUnblock) > 0 {
		_ = s.UpdateStatusOfMultipleTasks(toUnblock, status.TaskTodo)
		d.mu.Lock()
		for _, id := range toUnblock {
			delete(d.revisedBy, id)
		}
		d.mu.Unlock()
	}
}

func (d *DeterministicStrategy) blockDescendants(s State, taskID string, dependents map[string][]string) {
	descendants := transitiveDependents(taskID, dependents)
	if len(descendants) == 0 {
		return
	}
	ids := make([]string, 0, len(descendants))
	d.mu.Lock()
	for id := range descendants {
		ids = append(ids, id)
		d.revisedBy[id] = taskID
	}
	d.mu.Unlock()
	_ = s.UpdateStatusOfMultipleTasks(ids, status.TaskBlocked)
}

// GetContextForTask concatenates "Task: ...\nResult: ...\n" for every task
// that completed before this one and is either a transitive dependency
// (hierarchical) or a predecessor in the list (sequential).
func (d *DeterministicStrategy) GetContextForTask(s State, taskID string) string {
	tasks := s.Tasks()
	byID := make(map[string]TaskView, len(tasks))
	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		byID[t.ID] = t
		index[t.ID] = i
	}

	target, ok := byID[taskID]
	if !ok {
		return ""
	}

	d.mu.Lock()
	hierarchical := d.hierarchical
	d.mu.Unlock()

	var relevant map[string]bool
	if hierarchical {
		relevant = transitiveDependencies(target, byID)
	} else {
		relevant = make(map[string]bool)
		for _, t := range tasks {
			if index[t.ID] < index[taskID] {
				relevant[t.ID] = true
			}
		}
	}

	out := ""
	for _, t := range tasks {
		if !relevant[t.ID] {
			continue
		}
		if t.Status != status.TaskDone && t.Status != status.TaskValidated {
			continue
		}
		out += fmt.Sprintf("Task: %s\nResult: %s\n", t.Description, canonicalJSON(t.Result))
	}
	return out
}

func (d *DeterministicStrategy) StopExecution(s State) {}

func (d *DeterministicStrategy) ResumeExecution(ctx context.Context, s State) {
	d.dispatchRunnable(s)
}

func anyHasDependsOn(tasks []TaskView) bool {
	for _, t := range tasks {
		if len(t.DependsOn) > 0 {
			return true
		}
	}
	return false
}

func allDependenciesDone(t TaskView, byID map[string]TaskView) bool {
	for _, dep := range t.DependsOn {
		d, ok := byID[dep]
		if !ok {
			return false
		}
		if d.Status != status.TaskDone && d.Status != status.TaskValidated {
			return false
		}
	}
	return true
}

func reverseAdjacency(tasks []TaskView) map[string][]string {
	dependents := make(map[string][]string)
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}
	return dependents
}

func transitiveDependents(taskID string, dependents map[string][]string) map[string]bool {
	seen := make(map[string]bool)
	var walk func(string)
	walk = func(id string) {
		for _, child := range dependents[id] {
			if seen[child] {
				continue
			}
			seen[child] = true
			walk(child)
		}
	}
	walk(taskID)
	return seen
}

func transitiveDependencies(t TaskView, byID map[string]TaskView) map[string]bool {
	seen := make(map[string]bool)
	var walk func(TaskView)
	walk = func(cur TaskView) {
		for _, depID := range cur.DependsOn {
			if seen[depID] {
				continue
			}
			seen[depID] = true
			if dep, ok := byID[depID]; ok {
				walk(dep)
			}
		}
	}
	walk(t)
	return seen
}

// detectCycle runs a DFS over the dependency graph (by task id, not pointer)
// looking for a back edge.
func detectCycle(tasks []TaskView) bool {
	byID := make(map[string]TaskView, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(tasks))

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		for _, dep := range byID[id].DependsOn {
			switch color[dep] {
			case gray:
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for _, t := range tasks {
		if color[t.ID] == white {
			if visit(t.ID) {
				return true
			}
		}
	}
	return false
}

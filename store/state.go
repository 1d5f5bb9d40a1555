package store

import (
	"github.com/flowteam/core/status"
	"github.com/flowteam/core/strategy"
	"github.com/flowteam/core/task"
)

// Tasks implements strategy.State: every task in original declaration
// order, projected into the read-only view a strategy is allowed to see.
func (s *Store) Tasks() []strategy.TaskView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasksLocked()
}

func (s *Store) tasksLocked() []strategy.TaskView {
	views := make([]strategy.TaskView, 0, len(s.taskOrder))
	for _, id := range s.taskOrder {
		views = append(views, s.viewLocked(s.tasks[id]))
	}
	return views
}

// TaskByID implements strategy.State.
func (s *Store) TaskByID(id string) (strategy.TaskView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return strategy.TaskView{}, false
	}
	return s.viewLocked(t), true
}

func (s *Store) viewLocked(t *task.Task) strategy.TaskView {
	return strategy.TaskView{
		ID:                     t.ID,
		Name:                   t.Name,
		Description:            t.InterpolatedDescription(s.inputs),
		Status:                 t.Status(),
		AgentID:                t.AgentID,
		DependsOn:              t.DependsOn,
		AllowParallelExecution: t.AllowParallelExecution,
		Result:                 t.Result(),
		HasUnmetFeedback:       len(t.PendingFeedback()) > 0,
	}
}

// MaxConcurrency implements strategy.State.
func (s *Store) MaxConcurrency() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxConcurrency
}

// InFlightCount implements strategy.State: the number of tasks currently
// DOING.
func (s *Store) InFlightCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlightCountLocked()
}

func (s *Store) inFlightCountLocked() int {
	n := 0
	for _, id := range s.taskOrder {
		if s.tasks[id].Status() == status.TaskDoing {
			n++
		}
	}
	return n
}

// AgentBusy implements strategy.State: whether some task bound to agentID
// is currently DOING.
func (s *Store) AgentBusy(agentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agentBusyLocked(agentID)
}

func (s *Store) agentBusyLocked(agentID string) bool {
	for _, id := range s.taskOrder {
		t := s.tasks[id]
		if t.AgentID == agentID && t.Status() == status.TaskDoing {
			return true
		}
	}
	return false
}

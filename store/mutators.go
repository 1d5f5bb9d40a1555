package store

import (
	"github.com/flowteam/core/status"
)

// UpdateTaskStatus implements strategy.State: a single atomic status write,
// logged and notified, but without re-entering the strategy itself — that
// only happens from the handful of call sites that originate a reactive
// tick (completeTask, ProvideFeedback, ValidateTask), keeping the
// strategy's internal bookkeeping mutations (resets, blocks) from
// recursing back into itself.
func (s *Store) UpdateTaskStatus(taskID string, st status.TaskStatus) error {
	s.mu.Lock()
	t, ok := s.tasks[taskID]
	s.mu.Unlock()
	if !ok {
		return opErr(status.ErrInvalidState, "unknown task "+taskID)
	}

	t.SetStatus(st)
	s.logTaskStatus(t, "status updated")
	s.notify()
	return nil
}

// UpdateStatusOfMultipleTasks implements strategy.State.
func (s *Store) UpdateStatusOfMultipleTasks(ids []string, st status.TaskStatus) error {
	for _, id := range ids {
		if err := s.UpdateTaskStatus(id, st); err != nil {
			return err
		}
	}
	return nil
}

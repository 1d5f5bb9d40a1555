package persistence

import (
	"context"
	"log/slog"

	"github.com/flowteam/core/store"
)

// Watch subscribes s to a team store's workflow-status transitions and
// records a cleaned snapshot on every change. It's the opt-in wiring point:
// nothing in store imports persistence, so a team that never calls Watch
// pays nothing for it. The returned func unsubscribes.
func Watch(s *SnapshotStore, teamName string, team *store.Store) func() {
	selector := func(snap store.Snapshot) any { return snap.WorkflowStatus }
	reaction := func(store.Snapshot) {
		cleaned := team.GetCleanedState()
		if err := s.Record(context.Background(), teamName, string(cleaned.TeamWorkflowStatus), cleaned); err != nil {
			slog.Warn("persistence: failed to record snapshot", "team", teamName, "error", err)
		}
	}
	return team.Subscribe(selector, reaction)
}

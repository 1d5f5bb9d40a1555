package observability

import (
	"github.com/flowteam/core/store"
)

// Watch subscribes m to a team store's workflow-status transitions,
// recording a transition counter and refreshing the in-flight task gauge on
// every change. Like persistence.Watch, this is opt-in wiring: store never
// imports observability.
func Watch(m *Metrics, teamName string, team *store.Store) func() {
	selector := func(snap store.Snapshot) any { return snap.WorkflowStatus }
	reaction := func(snap store.Snapshot) {
		m.RecordWorkflowTransition(teamName, string(snap.WorkflowStatus))
		m.SetTasksInFlight(teamName, team.InFlightCount())
	}
	return team.Subscribe(selector, reaction)
}

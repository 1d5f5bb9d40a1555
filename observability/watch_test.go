package observability

import (
	"testing"

	"github.com/flowteam/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_RecordsTransitionOnStatusChange(t *testing.T) {
	m, err := NewMetrics(&MetricsConfig{Enabled: true, Namespace: "watchtest"})
	require.NoError(t, err)

	team := store.New(store.Config{Name: "watched-team"})
	unsubscribe := Watch(m, "watched-team", team)
	defer unsubscribe()

	team.Fail("TEST_FAILURE", "forced failure for test")

	assert.Equal(t, float64(1), counterValue(t, m.workflowTransitions, "watched-team", "ERRORED"))
}

func TestWatch_NilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	team := store.New(store.Config{Name: "nil-metrics-team"})

	assert.NotPanics(t, func() {
		unsubscribe := Watch(m, "nil-metrics-team", team)
		defer unsubscribe()
		team.Fail("TEST_FAILURE", "forced failure for test")
	})
}

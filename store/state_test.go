package store

import (
	"testing"
	"time"

	"github.com/flowteam/core/status"
	"github.com/flowteam/core/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTasks_ProjectsInterpolatedDescriptionAndFeedbackFlag(t *testing.T) {
	tk := task.New(task.Config{Name: "t1", Description: "build {topic}"})
	tk.AddFeedback("fix it", time.Now())

	s := New(Config{})
	require.NoError(t, s.AddTasks(tk))
	s.mu.Lock()
	s.inputs = map[string]string{"topic": "rockets"}
	s.mu.Unlock()

	views := s.Tasks()
	require.Len(t, views, 1)
	assert.Equal(t, "build rockets", views[0].Description)
	assert.True(t, views[0].HasUnmetFeedback)
}

func TestTaskByID_UnknownReturnsFalse(t *testing.T) {
	s := New(Config{})
	_, ok := s.TaskByID("missing")
	assert.False(t, ok)
}

func TestMaxConcurrency_ReturnsConfigured(t *testing.T) {
	s := New(Config{MaxConcurrency: 3})
	assert.Equal(t, 3, s.MaxConcurrency())
}

func TestInFlightCount_ZeroWhenIdle(t *testing.T) {
	s := New(Config{})
	assert.Equal(t, 0, s.InFlightCount())
}

func TestAgentBusy_FalseForUnknownAgent(t *testing.T) {
	s := New(Config{})
	assert.False(t, s.AgentBusy("nobody"))
}

func TestAgentBusy_TrueWhileTaskIsDoing(t *testing.T) {
	a := newScriptedAgent("writer", 1, "x")
	tk := task.New(task.Config{Name: "t1", AgentID: a.ID})
	tk.SetStatus(status.TaskDoing)

	s := New(Config{})
	require.NoError(t, s.AddAgents(a))
	require.NoError(t, s.AddTasks(tk))

	assert.True(t, s.AgentBusy(a.ID))
}


package agent

import (
	"testing"

	"github.com/flowteam/core/llms"
	"github.com/flowteam/core/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	a := New(Config{Name: "writer"})
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, DefaultMaxIterations, a.MaxIterations())
	assert.Equal(t, status.AgentInitial, a.Status())
	assert.Equal(t, 0, a.CurrentIteration())
}

func TestNew_CustomMaxIterations(t *testing.T) {
	a := New(Config{Name: "writer", MaxIterations: 3})
	assert.Equal(t, 3, a.MaxIterations())
}

func TestAgent_StatusTransitions(t *testing.T) {
	a := New(Config{Name: "writer"})
	a.SetStatus(status.AgentThinking)
	assert.Equal(t, status.AgentThinking, a.Status())
}

func TestAgent_History(t *testing.T) {
	a := New(Config{Name: "writer"})
	a.AppendHistory(llms.Message{Role: llms.RoleUser, Content: "hello"})
	a.AppendHistory(llms.Message{Role: llms.RoleAssistant, Content: "hi"})

	history := a.History()
	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[0].Content)

	// mutating the returned slice must not affect the agent's own history
	history[0].Content = "mutated"
	assert.Equal(t, "hello", a.History()[0].Content)
}

func TestAgent_ReplaceHistory(t *testing.T) {
	a := New(Config{Name: "writer"})
	a.AppendHistory(llms.Message{Role: llms.RoleUser, Content: "old"})

	a.ReplaceHistory([]llms.Message{{Role: llms.RoleUser, Content: "new"}})

	history := a.History()
	require.Len(t, history, 1)
	assert.Equal(t, "new", history[0].Content)
}

func TestAgent_IterationCounting(t *testing.T) {
	a := New(Config{Name: "writer", MaxIterations: 3})
	assert.False(t, a.ShouldForceFinalAnswer())

	a.IncrementIteration()
	assert.Equal(t, 1, a.CurrentIteration())
	assert.False(t, a.ShouldForceFinalAnswer())

	a.IncrementIteration()
	assert.True(t, a.ShouldForceFinalAnswer(), "last iteration should force a final answer")

	a.ResetIterationCounter()
	assert.Equal(t, 0, a.CurrentIteration())
}

func TestAgent_Clone(t *testing.T) {
	original := New(Config{Name: "writer", Role: "Writer", MaxIterations: 5})
	original.AppendHistory(llms.Message{Role: llms.RoleUser, Content: "hello"})
	original.IncrementIteration()
	original.SetStatus(status.AgentThinking)

	clone := original.Clone()

	assert.NotEqual(t, original.ID, clone.ID)
	assert.Equal(t, original.Name, clone.Name)
	assert.Equal(t, original.Role, clone.Role)
	assert.Equal(t, status.AgentInitial, clone.Status(), "a clone starts with fresh status")
	assert.Empty(t, clone.History(), "a clone starts with fresh history")
	assert.Equal(t, 0, clone.CurrentIteration(), "a clone starts with a fresh iteration counter")
	assert.Equal(t, original.MaxIterations(), clone.MaxIterations())
}

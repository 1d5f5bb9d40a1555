// Package agent defines the LLM-backed worker type driven by the loop
// package's ReAct iteration, collapsed into the shape the store needs to
// own directly.
package agent

import (
	"sync"

	"github.com/google/uuid"

	"github.com/flowteam/core/llms"
	"github.com/flowteam/core/status"
	"github.com/flowteam/core/tools"
)

// DefaultMaxIterations bounds an agent's ReAct loop absent an explicit
// override.
const DefaultMaxIterations = 10

// Agent is an LLM-backed worker: identity and prompt scaffolding, an LLM
// handle, an ordered tool set, and the mutable state a single ReAct loop
// iteration updates (status, interaction history, iteration counters).
//
// Agents are owned by a team's store. An agent busy on one task can be
// Clone()d to run a second task concurrently — the clone shares the LLM
// handle and tool set (both stateless) but starts with fresh history.
type Agent struct {
	mu sync.RWMutex

	ID         string
	Name       string
	Role       string
	Goal       string
	Background string

	LLM   llms.Client
	Tools *tools.Registry

	status             status.AgentStatus
	history            []llms.Message
	currentIterations  int
	maxIterations      int
	forceFinalAnswerAt int
}

// Config describes the fields a caller sets up front; everything else is
// runtime state initialized to zero values.
type Config struct {
	Name          string
	Role          string
	Goal          string
	Background    string
	LLM           llms.Client
	Tools         *tools.Registry
	MaxIterations int
}

func New(cfg Config) *Agent {
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	return &Agent{
		ID:                 uuid.NewString(),
		Name:               cfg.Name,
		Role:               cfg.Role,
		Goal:               cfg.Goal,
		Background:         cfg.Background,
		LLM:                cfg.LLM,
		Tools:              cfg.Tools,
		status:             status.AgentInitial,
		maxIterations:      maxIter,
		forceFinalAnswerAt: maxIter - 1,
	}
}

func (a *Agent) Status() status.AgentStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

func (a *Agent) SetStatus(s status.AgentStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = s
}

// History returns a copy of the agent's interaction history so far.
func (a *Agent) History() []llms.Message {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]llms.Message, len(a.history))
	copy(out, a.history)
	return out
}

// AppendHistory adds a turn to the running chat history.
func (a *Agent) AppendHistory(m llms.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, m)
}

// ReplaceHistory overwrites history wholesale, used when resuming a paused
// task with its checkpointed history.
func (a *Agent) ReplaceHistory(history []llms.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append([]llms.Message(nil), history...)
}

func (a *Agent) CurrentIteration() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currentIterations
}

func (a *Agent) MaxIterations() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.maxIterations
}

// ShouldForceFinalAnswer reports whether the loop is on its last permitted
// iteration before exhaustion, at which point the prompt must nudge the
// model toward emitting a final answer instead of another tool call.
func (a *Agent) ShouldForceFinalAnswer() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currentIterations == a.forceFinalAnswerAt
}

func (a *Agent) IncrementIteration() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentIterations++
}

// ResetIterationCounter sets the iteration counter back to zero and leaves
// the interaction history as it is, giving a fresh iteration budget.
func (a *Agent) ResetIterationCounter() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentIterations = 0
}

// Clone produces a value-copy of the agent with a fresh history and
// iteration counter, sharing the (stateless) LLM handle and tool set. Used
// when the same logical agent must serve two tasks concurrently.
func (a *Agent) Clone() *Agent {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return &Agent{
		ID:                 uuid.NewString(),
		Name:               a.Name,
		Role:               a.Role,
		Goal:               a.Goal,
		Background:         a.Background,
		LLM:                a.LLM,
		Tools:              a.Tools,
		status:             status.AgentInitial,
		maxIterations:      a.maxIterations,
		forceFinalAnswerAt: a.forceFinalAnswerAt,
	}
}

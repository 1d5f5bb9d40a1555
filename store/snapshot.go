package store

import (
	"github.com/flowteam/core/status"
)

// redacted is the sentinel substituted for every id and time-dependent
// field in a CleanedState, so two runs with identical mocked LLM responses
// produce byte-identical snapshots.
const redacted = "[REDACTED]"

// CleanedAgent is an agent's externally-relevant fields, redacted.
type CleanedAgent struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Role   string             `json:"role"`
	Status status.AgentStatus `json:"status"`
}

// CleanedTask is a task's externally-relevant fields, redacted.
type CleanedTask struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Status    status.TaskStatus `json:"status"`
	Result    any               `json:"result,omitempty"`
	DependsOn []string          `json:"dependsOn,omitempty"`
}

// CleanedLogEntry is a workflow log entry with its timestamp redacted.
type CleanedLogEntry struct {
	Timestamp   string             `json:"timestamp"`
	Kind        status.LogKind     `json:"kind"`
	Description string             `json:"description"`
	TaskStatus  status.TaskStatus  `json:"taskStatus,omitempty"`
	AgentStatus status.AgentStatus `json:"agentStatus,omitempty"`
}

// CleanedState is the JSON-serializable, deterministic snapshot returned by
// GetCleanedState. Every id and time-dependent field is replaced with the
// redacted sentinel; env values are not included at all.
type CleanedState struct {
	TeamWorkflowStatus status.WorkflowStatus `json:"teamWorkflowStatus"`
	WorkflowResult     any                   `json:"workflowResult"`
	Name               string                `json:"name"`
	Agents             []CleanedAgent        `json:"agents"`
	Tasks              []CleanedTask         `json:"tasks"`
	WorkflowLogs       []CleanedLogEntry     `json:"workflowLogs"`
	Inputs             map[string]string     `json:"inputs"`
	WorkflowContext    map[string]any        `json:"workflowContext"`
	LogLevel           string                `json:"logLevel"`
}

// GetCleanedState returns a redacted, time-independent snapshot suitable
// for deterministic comparison across runs.
func (s *Store) GetCleanedState() CleanedState {
	s.mu.Lock()
	defer s.mu.Unlock()

	agents := make([]CleanedAgent, 0, len(s.agentOrder))
	for _, id := range s.agentOrder {
		a := s.agents[id]
		agents = append(agents, CleanedAgent{ID: redacted, Name: a.Name, Role: a.Role, Status: a.Status()})
	}

	tasks := make([]CleanedTask, 0, len(s.taskOrder))
	for _, id := range s.taskOrder {
		t := s.tasks[id]
		dependsOn := make([]string, len(t.DependsOn))
		for i := range t.DependsOn {
			dependsOn[i] = redacted
		}
		tasks = append(tasks, CleanedTask{
			ID:        redacted,
			Name:      t.Name,
			Status:    t.Status(),
			Result:    t.Result(),
			DependsOn: dependsOn,
		})
	}

	entries := s.log.All()
	logs := make([]CleanedLogEntry, 0, len(entries))
	for _, e := range entries {
		ce := CleanedLogEntry{Timestamp: redacted, Kind: e.Kind, Description: e.Description}
		if e.Task != nil {
			ce.TaskStatus = e.Task.Status
		}
		if e.Agent != nil {
			ce.AgentStatus = e.Agent.Status
		}
		logs = append(logs, ce)
	}

	// Inputs are workflow parameters, not secrets — redaction applies to
	// ids, env, and time-dependent fields only, so these are copied as-is.
	inputs := make(map[string]string, len(s.inputs))
	for k, v := range s.inputs {
		inputs[k] = v
	}

	context := make(map[string]any, len(s.memory))
	for k, v := range s.memory {
		context[k] = v
	}

	return CleanedState{
		TeamWorkflowStatus: s.workflowStatus,
		WorkflowResult:     s.workflowResult,
		Name:               s.name,
		Agents:             agents,
		Tasks:              tasks,
		WorkflowLogs:       logs,
		Inputs:             inputs,
		WorkflowContext:    context,
		LogLevel:           "info",
	}
}

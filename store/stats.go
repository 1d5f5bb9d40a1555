package store

import (
	"time"

	"github.com/flowteam/core/status"
)

// WorkflowStats is the result of folding the log between the latest
// RUNNING transition and now.
type WorkflowStats struct {
	Duration       time.Duration
	PerModelUsage  map[string]TokenUsage
	TotalTokens    int
	CallCount      int
	ErrorCount     int
	ParsingErrors  int
	IterationCount int
}

// TokenUsage is the input/output token split attributed to one model.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// GetWorkflowStats folds the workflow log between the most recent RUNNING
// transition and now into aggregate counters. Nothing here is cached: stats
// are a pure fold so they stay consistent across revision ripples that
// reopen completed tasks.
func (s *Store) GetWorkflowStats() WorkflowStats {
	since := s.log.LastRunningSince()
	entries := s.log.Since(since)

	stats := WorkflowStats{PerModelUsage: make(map[string]TokenUsage)}
	if len(entries) == 0 {
		return stats
	}

	stats.Duration = entries[len(entries)-1].Timestamp.Sub(since)

	for _, e := range entries {
		if e.Kind != status.LogAgentStatusUpdate || e.Agent == nil {
			continue
		}
		switch e.Agent.Status {
		case status.AgentThinkingEnd:
			stats.CallCount++
			model, _ := e.Metadata["model"].(string)
			in, _ := e.Metadata["inputTokens"].(int)
			out, _ := e.Metadata["outputTokens"].(int)
			stats.TotalTokens += in + out
			usage := stats.PerModelUsage[model]
			usage.InputTokens += in
			usage.OutputTokens += out
			stats.PerModelUsage[model] = usage
		case status.AgentThinkingError, status.AgentUsingToolError, status.AgentMaxIterationsError:
			stats.ErrorCount++
		case status.AgentIssuesParsingLLMOuput:
			stats.ParsingErrors++
		case status.AgentIterationEnd:
			stats.IterationCount++
		}
	}

	return stats
}

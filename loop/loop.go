// Package loop implements the bounded ReAct-style agent iteration loop: for
// a single (agent, task) pair it runs think → act → observe ticks until a
// final answer, a blocking parse/tool failure budget, pause, or stop ends
// the run.
package loop

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flowteam/core/agent"
	"github.com/flowteam/core/llms"
	"github.com/flowteam/core/signal"
	"github.com/flowteam/core/status"
	"github.com/flowteam/core/task"
	"github.com/flowteam/core/worklog"
)

const forceFinalAnswerNudge = "You are on your last iteration. Respond with only your final answer now; do not call a tool or ask a question."

const corrective = "Your previous response couldn't be parsed. Reply with plain text for a final answer, or a JSON object like {\"tool\": \"name\", \"input\": {...}} to call a tool."

// Outcome is what a Run call leaves behind for the caller (the store) to
// fold back into the task's terminal or suspended status.
type Outcome struct {
	Status status.TaskStatus
	Result any
}

// Run drives agent a through task t to completion or suspension. priorContext
// is the strategy-computed context string from prior tasks; inputs is the
// workflow's placeholder → value map. log receives every status transition
// so the caller can reconstruct stats by folding over it later.
func Run(ctx context.Context, a *agent.Agent, t *task.Task, priorContext string, inputs map[string]string, log *worklog.Log, ctrl *signal.Control) Outcome {
	if a.CurrentIteration() == 0 {
		seedHistory(a, t, priorContext, inputs, log)
	}

	systemPrompt := buildSystemPrompt(a)

	for a.CurrentIteration() < a.MaxIterations() {
		if ctrl.IsStopped() {
			emit(log, a, t, status.AgentTaskAborted, "workflow stopped")
			t.SetStatus(status.TaskAborted)
			return Outcome{Status: status.TaskAborted}
		}
		if ctrl.IsPaused() {
			emit(log, a, t, status.AgentPaused, "workflow paused, checkpointing history")
			t.SetStatus(status.TaskPaused)
			return Outcome{Status: status.TaskPaused}
		}

		emit(log, a, t, status.AgentIterationStart, fmt.Sprintf("iteration %d", a.CurrentIteration()))

		if a.ShouldForceFinalAnswer() {
			a.AppendHistory(llms.Message{Role: llms.RoleUser, Content: forceFinalAnswerNudge})
		}

		messages := append([]llms.Message{{Role: llms.RoleSystem, Content: systemPrompt}}, a.History()...)

		a.SetStatus(status.AgentThinking)
		emit(log, a, t, status.AgentThinking, "invoking llm")

		resp, err := a.LLM.Invoke(ctx, messages, llms.Options{})
		if err != nil {
			a.SetStatus(status.AgentThinkingError)
			emit(log, a, t, status.AgentThinkingError, err.Error())
			a.AppendHistory(llms.Message{Role: llms.RoleUser, Content: "The previous request failed: " + err.Error() + ". Please try again."})
			a.IncrementIteration()
			emit(log, a, t, status.AgentIterationEnd, "iteration end after transport error")
			continue
		}

		a.SetStatus(status.AgentThinkingEnd)
		emitMeta(log, a, t, status.AgentThinkingEnd, fmt.Sprintf("tokens in=%d out=%d", resp.Usage.InputTokens, resp.Usage.OutputTokens), map[string]any{
			"model":        resp.Model,
			"inputTokens":  resp.Usage.InputTokens,
			"outputTokens": resp.Usage.OutputTokens,
		})
		a.AppendHistory(llms.Message{Role: llms.RoleAssistant, Content: resp.Content})

		if outcome, done := dispatch(ctx, a, t, log, parse(resp.Content)); done {
			a.IncrementIteration()
			emit(log, a, t, status.AgentIterationEnd, "final answer reached")
			return outcome
		}

		a.IncrementIteration()
		emit(log, a, t, status.AgentIterationEnd, fmt.Sprintf("iteration %d complete", a.CurrentIteration()-1))
	}

	a.SetStatus(status.AgentMaxIterationsError)
	emit(log, a, t, status.AgentMaxIterationsError, fmt.Sprintf("%s: exhausted %d iterations", status.ErrMaxIterations, a.MaxIterations()))
	t.SetStatus(status.TaskBlocked)
	return Outcome{Status: status.TaskBlocked}
}

// dispatch reacts to one parsed LLM response. It returns (outcome, true)
// when the loop should terminate (final answer), or (zero, false) to keep
// iterating after mutating agent/task state for the other four shapes.
func dispatch(ctx context.Context, a *agent.Agent, t *task.Task, log *worklog.Log, sh shape) (Outcome, bool) {
	switch sh.kind {
	case shapeFinalAnswer:
		a.SetStatus(status.AgentFinalAnswer)
		emit(log, a, t, status.AgentFinalAnswer, "final answer")
		t.SetResult(sh.content)
		final := status.TaskDone
		if t.ExternalValidationReq {
			final = status.TaskAwaitingValidation
		}
		t.SetStatus(final)
		return Outcome{Status: final, Result: sh.content}, true

	case shapeToolAction:
		a.SetStatus(status.AgentExecutingAction)
		emit(log, a, t, status.AgentExecutingAction, sh.tool)
		a.SetStatus(status.AgentUsingTool)
		emit(log, a, t, status.AgentUsingTool, sh.tool)

		observation := runTool(ctx, a, sh)
		a.AppendHistory(llms.Message{Role: llms.RoleUser, Content: "Observation: " + observation})
		return Outcome{}, false

	case shapeSelfQuestion:
		a.SetStatus(status.AgentSelfQuestion)
		emit(log, a, t, status.AgentSelfQuestion, sh.content)
		a.AppendHistory(llms.Message{Role: llms.RoleUser, Content: sh.content})
		return Outcome{}, false

	case shapeObservation:
		a.SetStatus(status.AgentObservation)
		emit(log, a, t, status.AgentObservation, sh.content)
		return Outcome{}, false

	default:
		a.SetStatus(status.AgentIssuesParsingLLMOuput)
		emit(log, a, t, status.AgentIssuesParsingLLMOuput, status.ErrLLMParse)
		a.AppendHistory(llms.Message{Role: llms.RoleUser, Content: corrective})
		return Outcome{}, false
	}
}

func runTool(ctx context.Context, a *agent.Agent, sh shape) string {
	if a.Tools == nil {
		a.SetStatus(status.AgentUsingToolError)
		return fmt.Sprintf("%s: no tools configured", status.ErrToolInvocation)
	}

	tool, ok := a.Tools.Get(sh.tool)
	if !ok {
		a.SetStatus(status.AgentUsingToolError)
		return fmt.Sprintf("%s: tool %q not found", status.ErrToolInvocation, sh.tool)
	}

	result, err := tool.Execute(ctx, sh.input)
	if err != nil || !result.Success {
		a.SetStatus(status.AgentUsingToolError)
		if result.Error != "" {
			return result.Error
		}
		if err != nil {
			return err.Error()
		}
		return fmt.Sprintf("%s: tool %q reported failure", status.ErrToolInvocation, sh.tool)
	}

	a.SetStatus(status.AgentUsingToolEnd)
	if result.Content != "" {
		return result.Content
	}
	return fmt.Sprintf("%v", result.Output)
}

// seedHistory builds the task's initial user turn: interpolated
// description, expected output, prior-task context, and any pending
// human feedback (which it then marks PROCESSED).
func seedHistory(a *agent.Agent, t *task.Task, priorContext string, inputs map[string]string, log *worklog.Log) {
	for _, name := range t.UnresolvedPlaceholders(inputs) {
		slog.Warn("task description references an input with no value", "task", t.ID, "placeholder", name)
	}

	var b strings.Builder
	b.WriteString(t.InterpolatedDescription(inputs))
	if t.ExpectedOutput != "" {
		fmt.Fprintf(&b, "\n\nExpected output: %s", t.ExpectedOutput)
	}
	if priorContext != "" {
		fmt.Fprintf(&b, "\n\nContext from prior tasks:\n%s", priorContext)
	}

	if pending := t.PendingFeedback(); len(pending) > 0 {
		b.WriteString("\n\nThe following feedback was given on a prior attempt; revise your answer accordingly:\n")
		for _, f := range pending {
			fmt.Fprintf(&b, "- %s\n", f.Content)
		}
		t.MarkFeedbackProcessed()
	}

	a.AppendHistory(llms.Message{Role: llms.RoleUser, Content: b.String()})
}

func buildSystemPrompt(a *agent.Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.", a.Name)
	if a.Role != "" {
		fmt.Fprintf(&b, " Role: %s.", a.Role)
	}
	if a.Goal != "" {
		fmt.Fprintf(&b, " Goal: %s.", a.Goal)
	}
	if a.Background != "" {
		fmt.Fprintf(&b, " Background: %s.", a.Background)
	}
	return b.String()
}

func emit(log *worklog.Log, a *agent.Agent, t *task.Task, s status.AgentStatus, description string) {
	emitMeta(log, a, t, s, description, nil)
}

func emitMeta(log *worklog.Log, a *agent.Agent, t *task.Task, s status.AgentStatus, description string, metadata map[string]any) {
	log.Append(worklog.Entry{
		Timestamp:   time.Now(),
		Kind:        status.LogAgentStatusUpdate,
		Agent:       &worklog.AgentSnapshot{ID: a.ID, Name: a.Name, Status: s},
		Task:        &worklog.TaskSnapshot{ID: t.ID, Name: t.Name, Status: t.Status(), Result: t.Result()},
		Metadata:    metadata,
		Description: description,
	})
}

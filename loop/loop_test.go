package loop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowteam/core/agent"
	"github.com/flowteam/core/llms"
	"github.com/flowteam/core/signal"
	"github.com/flowteam/core/status"
	"github.com/flowteam/core/task"
	"github.com/flowteam/core/tools"
	"github.com/flowteam/core/worklog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient replays a fixed sequence of replies, repeating the last one
// once the sequence is exhausted, so a test can script a multi-turn
// conversation without a real LLM.
type scriptedClient struct {
	replies []string
	err     error
	calls   int
}

func (c *scriptedClient) Invoke(ctx context.Context, messages []llms.Message, opts llms.Options) (llms.Response, error) {
	c.calls++
	if c.err != nil {
		return llms.Response{}, c.err
	}
	i := c.calls - 1
	if i >= len(c.replies) {
		i = len(c.replies) - 1
	}
	return llms.Response{Content: c.replies[i], Model: "fake-model"}, nil
}

func (c *scriptedClient) ModelName() string { return "fake-model" }

type fakeTool struct {
	name   string
	result tools.ToolResult
	err    error
}

func (f *fakeTool) GetInfo() tools.ToolInfo            { return tools.ToolInfo{Name: f.name} }
func (f *fakeTool) GetName() string                    { return f.name }
func (f *fakeTool) GetDescription() string             { return "a fake tool" }
func (f *fakeTool) Execute(ctx context.Context, args map[string]interface{}) (tools.ToolResult, error) {
	return f.result, f.err
}

func newTestAgent(client llms.Client, registry *tools.Registry, maxIterations int) *agent.Agent {
	return agent.New(agent.Config{
		Name:          "writer",
		LLM:           client,
		Tools:         registry,
		MaxIterations: maxIterations,
	})
}

func TestRun_FinalAnswer(t *testing.T) {
	client := &scriptedClient{replies: []string{"Paris is the capital of France."}}
	a := newTestAgent(client, nil, 5)
	tk := task.New(task.Config{Name: "q", Description: "what is the capital of France?"})
	log := worklog.New()
	ctrl := signal.New()

	outcome := Run(context.Background(), a, tk, "", nil, log, ctrl)

	assert.Equal(t, status.TaskDone, outcome.Status)
	assert.Equal(t, "Paris is the capital of France.", outcome.Result)
	assert.Equal(t, status.TaskDone, tk.Status())
}

func TestRun_FinalAnswer_ExternalValidationRequired(t *testing.T) {
	client := &scriptedClient{replies: []string{"final answer"}}
	a := newTestAgent(client, nil, 5)
	tk := task.New(task.Config{Name: "q", ExternalValidationRequired: true})
	log := worklog.New()
	ctrl := signal.New()

	outcome := Run(context.Background(), a, tk, "", nil, log, ctrl)

	assert.Equal(t, status.TaskAwaitingValidation, outcome.Status)
	assert.Equal(t, status.TaskAwaitingValidation, tk.Status())
}

func TestRun_ToolActionThenFinalAnswer(t *testing.T) {
	registry := tools.NewRegistry()
	source := tools.NewLocalToolSource("local")
	require.NoError(t, source.Register(&fakeTool{name: "search", result: tools.ToolResult{Success: true, Content: "3 results found"}}))
	require.NoError(t, registry.AddSource(context.Background(), source))

	client := &scriptedClient{replies: []string{
		`{"tool": "search", "input": {"query": "go"}}`,
		"the answer is go",
	}}
	a := newTestAgent(client, registry, 5)
	tk := task.New(task.Config{Name: "q"})
	log := worklog.New()
	ctrl := signal.New()

	outcome := Run(context.Background(), a, tk, "", nil, log, ctrl)

	require.Equal(t, status.TaskDone, outcome.Status)
	assert.Equal(t, "the answer is go", outcome.Result)

	history := a.History()
	found := false
	for _, m := range history {
		if m.Content == "Observation: 3 results found" {
			found = true
		}
	}
	assert.True(t, found, "the tool's observation must be appended to history")
}

func TestRun_UnknownToolProducesObservationError(t *testing.T) {
	registry := tools.NewRegistry()
	source := tools.NewLocalToolSource("local")
	require.NoError(t, registry.AddSource(context.Background(), source))

	client := &scriptedClient{replies: []string{
		`{"tool": "missing", "input": {}}`,
		"done",
	}}
	a := newTestAgent(client, registry, 5)
	tk := task.New(task.Config{Name: "q"})
	log := worklog.New()
	ctrl := signal.New()

	outcome := Run(context.Background(), a, tk, "", nil, log, ctrl)
	require.Equal(t, status.TaskDone, outcome.Status)

	history := a.History()
	last := history[len(history)-2] // the observation right before the final "done" prompt round-trip
	assert.Contains(t, last.Content, "not found")
}

func TestRun_UnparseableReplyGetsCorrectiveNudge(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"nonsense": true}`,
		"final answer now",
	}}
	a := newTestAgent(client, nil, 5)
	tk := task.New(task.Config{Name: "q"})
	log := worklog.New()
	ctrl := signal.New()

	outcome := Run(context.Background(), a, tk, "", nil, log, ctrl)
	require.Equal(t, status.TaskDone, outcome.Status)

	history := a.History()
	assert.Contains(t, history[len(history)-2].Content, corrective)
}

func TestRun_TransportErrorRetriesUntilMaxIterations(t *testing.T) {
	client := &scriptedClient{err: errors.New("connection refused")}
	a := newTestAgent(client, nil, 2)
	tk := task.New(task.Config{Name: "q"})
	log := worklog.New()
	ctrl := signal.New()

	outcome := Run(context.Background(), a, tk, "", nil, log, ctrl)

	assert.Equal(t, status.TaskBlocked, outcome.Status)
	assert.Equal(t, status.TaskBlocked, tk.Status())
	assert.Equal(t, status.AgentMaxIterationsError, a.Status())
}

func TestRun_StoppedControlAbortsImmediately(t *testing.T) {
	client := &scriptedClient{replies: []string{"should never be used"}}
	a := newTestAgent(client, nil, 5)
	tk := task.New(task.Config{Name: "q"})
	log := worklog.New()
	ctrl := signal.New()
	ctrl.Stop()

	outcome := Run(context.Background(), a, tk, "", nil, log, ctrl)

	assert.Equal(t, status.TaskAborted, outcome.Status)
	assert.Equal(t, 0, client.calls, "a stopped control must prevent any LLM call")
}

func TestRun_PausedControlCheckpoints(t *testing.T) {
	client := &scriptedClient{replies: []string{"should never be used"}}
	a := newTestAgent(client, nil, 5)
	tk := task.New(task.Config{Name: "q"})
	log := worklog.New()
	ctrl := signal.New()
	ctrl.Pause()

	outcome := Run(context.Background(), a, tk, "", nil, log, ctrl)

	assert.Equal(t, status.TaskPaused, outcome.Status)
	assert.Equal(t, status.TaskPaused, tk.Status())
}

func TestRun_SeedsHistoryWithExpectedOutputAndContext(t *testing.T) {
	client := &scriptedClient{replies: []string{"ok"}}
	a := newTestAgent(client, nil, 5)
	tk := task.New(task.Config{Name: "q", Description: "write about {topic}", ExpectedOutput: "a paragraph"})
	log := worklog.New()
	ctrl := signal.New()

	outcome := Run(context.Background(), a, tk, "prior work here", map[string]string{"topic": "go"}, log, ctrl)

	require.Equal(t, status.TaskDone, outcome.Status)
	seed := a.History()[0]
	assert.Contains(t, seed.Content, "write about go")
	assert.Contains(t, seed.Content, "a paragraph")
	assert.Contains(t, seed.Content, "prior work here")
}

func TestRun_SeedsHistoryWithPendingFeedbackAndMarksItProcessed(t *testing.T) {
	client := &scriptedClient{replies: []string{"revised answer"}}
	a := newTestAgent(client, nil, 5)
	tk := task.New(task.Config{Name: "q", Description: "write something"})
	tk.AddFeedback("be more concise", time.Now())
	log := worklog.New()
	ctrl := signal.New()

	outcome := Run(context.Background(), a, tk, "", nil, log, ctrl)

	require.Equal(t, status.TaskDone, outcome.Status)
	seed := a.History()[0]
	assert.Contains(t, seed.Content, "be more concise")
	assert.Empty(t, tk.PendingFeedback(), "seeding history must mark consumed feedback as processed")
}

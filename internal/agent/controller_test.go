package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orbit/internal/perception"
	"orbit/internal/tools"
)

func TestRun_SynthesisShortCircuit(t *testing.T) {
	llm := &scriptedLLM{responses: []*perception.ChatResponse{
		synthesisResponse("The answer is 42."),
	}}
	c := NewController(llm, testRegistry(flakyTool("web_search", "", 0)))

	tr, err := c.Run(context.Background(), "find the answer", defaultOptions())
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, tr.Status)
	assert.Equal(t, 0, tr.countSteps(StepAction))
	assert.Equal(t, "The answer is 42.", FinalResponse(tr))
	assert.NotEmpty(t, tr.RequestID)
}

func TestRun_RetryAfterTimeoutThenComplete(t *testing.T) {
	llm := &scriptedLLM{responses: []*perception.ChatResponse{
		toolCallResponse("search for it", "web_search", `{"query": "the answer"}`),
		textResponse("ANALYSIS: The endpoint timed out.\nSUGGESTED_FIX: Retry the search."),
		textResponse("No result yet. <status>IN_PROGRESS</status>"),
		toolCallResponse("try the search again", "web_search", `{"query": "the answer"}`),
		textResponse("Got it. <status>COMPLETED</status>"),
		synthesisResponse("The answer is 42, confirmed by search."),
	}}

	opts := defaultOptions()
	opts.Detector = TagDetector{}
	c := NewController(llm, testRegistry(flakyTool("web_search", "request timeout after 30s", 1)))

	tr, err := c.Run(context.Background(), "find the answer", opts)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, tr.Status)
	assert.Equal(t, 1, tr.countSteps(StepReflection), "exactly one reflection for the single failure")
	assert.Equal(t, 2, tr.countSteps(StepAction))
	assert.Equal(t, "The answer is 42, confirmed by search.", FinalResponse(tr))
}

func TestRun_MaxStepsTerminates(t *testing.T) {
	llm := &scriptedLLM{responses: []*perception.ChatResponse{
		toolCallResponse("keep searching", "web_search", `{"query": "x"}`),
		textResponse("Still going. <status>IN_PROGRESS</status>"),
		toolCallResponse("keep searching", "web_search", `{"query": "y"}`),
		textResponse("Still going. <status>IN_PROGRESS</status>"),
	}}

	opts := defaultOptions()
	opts.MaxSteps = 2
	c := NewController(llm, testRegistry(flakyTool("web_search", "", 0)))

	tr, err := c.Run(context.Background(), "find the answer", opts)
	require.NoError(t, err)

	assert.Equal(t, StatusTerminated, tr.Status)
	assert.Equal(t, 2, tr.countSteps(StepThought), "thought count bounded by maxSteps")
}

func TestRun_StepOrderingInvariants(t *testing.T) {
	llm := &scriptedLLM{responses: []*perception.ChatResponse{
		toolCallResponse("first search", "web_search", `{"query": "a"}`),
		textResponse("<status>IN_PROGRESS</status>"),
		toolCallResponse("second search", "web_search", `{"query": "b"}`),
		textResponse("<status>IN_PROGRESS</status>"),
	}}

	opts := defaultOptions()
	opts.MaxSteps = 2
	c := NewController(llm, testRegistry(flakyTool("web_search", "", 0)))

	tr, err := c.Run(context.Background(), "find the answer", opts)
	require.NoError(t, err)

	lastThought := -1
	lastAction := -1
	for i, s := range tr.Steps {
		switch s.Type {
		case StepThought:
			lastThought = i
		case StepAction:
			// A thought with content precedes every action, with no
			// action in between.
			require.Greater(t, lastThought, lastAction, "step %d", i)
			assert.NotEmpty(t, tr.Steps[lastThought].Content)
			lastAction = i
		}
	}

	for i, s := range tr.Steps {
		if s.Type != StepAction {
			continue
		}
		found := false
		for j := i + 1; j < len(tr.Steps) && !found; j++ {
			if tr.Steps[j].Type == StepAction {
				break
			}
			found = tr.Steps[j].Type == StepObservation
		}
		assert.True(t, found, "action at %d has no observation before next action", i)
	}
}

func TestRun_TokenBudgetTerminates(t *testing.T) {
	usage := &perception.Usage{PromptTokens: 600, CompletionTokens: 200}
	llm := &scriptedLLM{responses: []*perception.ChatResponse{
		{Content: "search\n<tool_call><name>web_search</name><parameters>{\"query\":\"x\"}</parameters></tool_call>", Usage: usage},
		{Content: "<status>IN_PROGRESS</status>", Usage: usage},
	}}

	opts := defaultOptions()
	opts.TokenBudget = 1000
	c := NewController(llm, testRegistry(flakyTool("web_search", "", 0)))

	tr, err := c.Run(context.Background(), "find the answer", opts)
	require.NoError(t, err)

	assert.Equal(t, StatusTerminated, tr.Status)
	assert.Equal(t, 1, tr.countSteps(StepThought), "budget exceeded after one full step")
	assert.Equal(t, 1200, tr.TotalTokens.Input)
	assert.Equal(t, 400, tr.TotalTokens.Output)
}

func TestRun_RepeatedErrorEscalates(t *testing.T) {
	llm := &scriptedLLM{responses: []*perception.ChatResponse{
		toolCallResponse("search", "web_search", `{"query": "x"}`),
		textResponse("ANALYSIS: Timed out.\nSUGGESTED_FIX: Retry."),
		textResponse("<status>IN_PROGRESS</status>"),
		toolCallResponse("search", "web_search", `{"query": "x"}`),
		textResponse("ANALYSIS: Timed out again.\nSUGGESTED_FIX: Retry once more."),
		textResponse("<status>IN_PROGRESS</status>"),
		toolCallResponse("search", "web_search", `{"query": "x"}`),
		textResponse("TOOL: recall_notes\nPARAMETERS: {\"query\": \"x\"}\nREASONING: searching keeps timing out"),
		textResponse("<status>IN_PROGRESS</status>"),
	}}

	opts := defaultOptions()
	opts.MaxSteps = 3
	c := NewController(llm, testRegistry(flakyTool("web_search", "request timeout after 30s", 99)))

	tr, err := c.Run(context.Background(), "find the answer", opts)
	require.NoError(t, err)

	assert.Equal(t, StatusTerminated, tr.Status)
	assert.Equal(t, 3, tr.countSteps(StepReflection))

	var escalations int
	for _, s := range tr.Steps {
		if s.Type == StepReflection && strings.Contains(s.Content, "Escalating") {
			escalations++
			assert.Contains(t, s.Content, "recall_notes")
		}
	}
	assert.Equal(t, 1, escalations, "third identical failure escalates")
}

func TestRun_ValidationFailureDoesNotExecute(t *testing.T) {
	executed := false
	tool := &tools.Tool{
		Name:        "web_search",
		Description: "test tool",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			executed = true
			return "ok", nil
		},
		Schema: tools.ToolSchema{
			Required:   []string{"query"},
			Properties: map[string]tools.Property{"query": {Type: "string"}},
		},
	}

	llm := &scriptedLLM{responses: []*perception.ChatResponse{
		toolCallResponse("search with no args", "web_search", `{}`),
		textResponse("ANALYSIS: Missing argument.\nSUGGESTED_FIX: Pass the query."),
		textResponse("<status>IN_PROGRESS</status>"),
	}}

	opts := defaultOptions()
	opts.MaxSteps = 1
	c := NewController(llm, testRegistry(tool))

	tr, err := c.Run(context.Background(), "find the answer", opts)
	require.NoError(t, err)

	assert.False(t, executed, "invalid call must not execute")
	action := tr.lastStep(StepAction)
	require.NotNil(t, action)
	require.NotNil(t, action.ToolResult)
	assert.False(t, action.ToolResult.Success)
	assert.Equal(t, StatusTerminated, tr.Status, "trajectory survives the validation failure")
}

func TestRun_ThinkTransportFailureFailsTrajectory(t *testing.T) {
	llm := &scriptedLLM{responses: []*perception.ChatResponse{nil}}
	c := NewController(llm, testRegistry(flakyTool("web_search", "", 0)))

	tr, err := c.Run(context.Background(), "find the answer", defaultOptions())
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, tr.Status)
	assert.Equal(t, "[No result - failed]", FinalResponse(tr))
}

func TestRun_CancellationTerminates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	llm := &scriptedLLM{responses: []*perception.ChatResponse{synthesisResponse("never reached")}}
	c := NewController(llm, testRegistry(flakyTool("web_search", "", 0)))

	tr, err := c.Run(ctx, "find the answer", defaultOptions())
	require.NoError(t, err)

	assert.Equal(t, StatusTerminated, tr.Status)
	assert.Empty(t, tr.Steps, "no I/O after cancellation")
}

func TestRun_SynthesisStreaming(t *testing.T) {
	var streamed strings.Builder
	llm := &scriptedLLM{responses: []*perception.ChatResponse{
		synthesisResponse("streamed final answer"),
	}}

	opts := defaultOptions()
	opts.OnSynthesis = func(d string) { streamed.WriteString(d) }
	c := NewController(llm, testRegistry(flakyTool("web_search", "", 0)))

	tr, err := c.Run(context.Background(), "find the answer", opts)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, tr.Status)
	assert.Equal(t, "streamed final answer", streamed.String())
}

func TestRun_EmptyGoal(t *testing.T) {
	c := NewController(&scriptedLLM{}, testRegistry())
	_, err := c.Run(context.Background(), "", defaultOptions())
	assert.Error(t, err)
}

func TestFinalResponse_FallbackChain(t *testing.T) {
	t.Run("observation", func(t *testing.T) {
		tr := Trajectory{Status: StatusTerminated}
		tr.addStep(StepThought, "thinking", 1)
		tr.addStep(StepObservation, "partial data", 1)
		assert.Equal(t, "[Partial Result - terminated] partial data", FinalResponse(tr))
	})

	t.Run("thought", func(t *testing.T) {
		tr := Trajectory{Status: StatusFailed}
		tr.addStep(StepThought, "only a thought", 1)
		assert.Equal(t, "[Incomplete - failed] only a thought", FinalResponse(tr))
	})

	t.Run("nothing", func(t *testing.T) {
		tr := Trajectory{Status: StatusTerminated}
		assert.Equal(t, "[No result - terminated]", FinalResponse(tr))
	})
}

func TestComputeEfficiency(t *testing.T) {
	tr := Trajectory{}
	tr.addStep(StepThought, "t", 1)
	tr.addStep(StepAction, "a", 1)
	tr.addStep(StepObservation, "o", 1)
	tr.addStep(StepThought, "t", 1)
	tr.addStep(StepSynthesis, "s", 1)

	// 1 action: optimal = min(3, ceil(1/2)+1) = 2; 2 thoughts taken.
	assert.Equal(t, 1.0, computeEfficiency(&tr))

	empty := Trajectory{}
	assert.Equal(t, 0.0, computeEfficiency(&empty))
}

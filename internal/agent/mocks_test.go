package agent

import (
	"context"
	"errors"

	"orbit/internal/perception"
	"orbit/internal/tools"
)

// scriptedLLM replays canned responses in order, repeating the last one
// when the script runs out. A nil entry produces a transport error.
type scriptedLLM struct {
	responses []*perception.ChatResponse
	calls     int
}

func (s *scriptedLLM) Chat(ctx context.Context, messages []perception.Message, onToken perception.TokenCallback) (*perception.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.responses) == 0 {
		return nil, errors.New("scripted llm: empty script")
	}
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	resp := s.responses[i]
	if resp == nil {
		return nil, errors.New("scripted llm: transport failure")
	}
	if onToken != nil {
		onToken(resp.Content)
	}
	return resp, nil
}

func textResponse(content string) *perception.ChatResponse {
	return &perception.ChatResponse{Content: content}
}

func toolCallResponse(thought, name, params string) *perception.ChatResponse {
	return textResponse(thought + "\n<tool_call>\n<name>" + name + "</name>\n<parameters>" + params + "</parameters>\n<reasoning>" + thought + "</reasoning>\n</tool_call>")
}

func synthesisResponse(answer string) *perception.ChatResponse {
	return textResponse("<synthesis>" + answer + "</synthesis>")
}

// flakyTool fails the first failures calls, then succeeds.
func flakyTool(name, failWith string, failures int) *tools.Tool {
	remaining := failures
	return &tools.Tool{
		Name:        name,
		Description: "test tool",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			if remaining > 0 {
				remaining--
				return "", errors.New(failWith)
			}
			return "tool output: the answer is 42", nil
		},
		Schema: tools.ToolSchema{
			Required:   []string{"query"},
			Properties: map[string]tools.Property{"query": {Type: "string", Description: "q"}},
		},
	}
}

func testRegistry(t ...*tools.Tool) *tools.Registry {
	r := tools.NewRegistry()
	for _, tool := range t {
		r.MustRegister(tool)
	}
	return r
}

// alwaysAchieved and neverAchieved are deterministic oracles for tests
// that should not depend on phrase heuristics.
type alwaysAchieved struct{}

func (alwaysAchieved) Achieved(goal, observation string) bool { return true }

type neverAchieved struct{}

func (neverAchieved) Achieved(goal, observation string) bool { return false }

func defaultOptions() Options {
	return Options{
		MaxSteps:    10,
		TokenBudget: 100000,
		MaxRetries:  2,
		MaxTokens:   16000,
		Detector:    neverAchieved{},
	}
}

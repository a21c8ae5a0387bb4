package context

import (
	stdctx "context"
	"errors"

	"orbit/internal/perception"
)

// stubLLM returns a fixed summary, or errors when failing is set.
type stubLLM struct {
	summary string
	failing bool
	calls   int
}

func (s *stubLLM) Chat(ctx stdctx.Context, messages []perception.Message, onToken perception.TokenCallback) (*perception.ChatResponse, error) {
	s.calls++
	if s.failing {
		return nil, errors.New("stub llm: down")
	}
	if onToken != nil {
		onToken(s.summary)
	}
	return &perception.ChatResponse{Content: s.summary}, nil
}

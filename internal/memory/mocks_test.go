package memory

import (
	"context"
	"errors"

	"orbit/internal/perception"
)

// scriptedLLM replays canned responses in order. A nil entry produces a
// transport error for that call.
type scriptedLLM struct {
	responses []*perception.ChatResponse
	calls     int
	prompts   [][]perception.Message
}

func (s *scriptedLLM) Chat(ctx context.Context, messages []perception.Message, onToken perception.TokenCallback) (*perception.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.prompts = append(s.prompts, messages)
	if s.calls >= len(s.responses) {
		return nil, errors.New("scripted llm: no response left")
	}
	resp := s.responses[s.calls]
	s.calls++
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

package rag

import (
	"context"
	"errors"

	"orbit/internal/perception"
	"orbit/internal/search"
)

// scriptedSearch replays result sets in order. A nil entry errors.
type scriptedSearch struct {
	pages   [][]search.Result
	queries []string
}

func (s *scriptedSearch) Search(ctx context.Context, query string) ([]search.Result, error) {
	s.queries = append(s.queries, query)
	if len(s.pages) == 0 {
		return nil, errors.New("scripted search: no page left")
	}
	page := s.pages[0]
	s.pages = s.pages[1:]
	if page == nil {
		return nil, errors.New("scripted search: transport failure")
	}
	return page, nil
}

// scriptedLLM replays canned responses in order. A nil entry errors.
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
	return resp, nil
}

func textResponse(content string) *perception.ChatResponse {
	return &perception.ChatResponse{Content: content}
}

func twoResults() []search.Result {
	return []search.Result{
		{Title: "Go generics guide", URL: "https://example.com/a", Snippet: "type parameters"},
		{Title: "Unrelated recipes", URL: "https://example.com/b", Snippet: "cooking"},
	}
}

func gradeBothRelevant() *perception.ChatResponse {
	return textResponse(`<result index="0"><relevance>relevant</relevance><confidence>0.9</confidence><reasoning>on topic</reasoning></result>
<result index="1"><relevance>relevant</relevance><confidence>0.7</confidence><reasoning>close enough</reasoning></result>`)
}

func gradeNoneRelevant() *perception.ChatResponse {
	return textResponse(`<result index="0"><relevance>not_relevant</relevance><confidence>0.8</confidence><reasoning>off topic</reasoning></result>
<result index="1"><relevance>not_relevant</relevance><confidence>0.9</confidence><reasoning>off topic</reasoning></result>`)
}

func rewriteTo(q string) *perception.ChatResponse {
	return textResponse("<rewritten_query>" + q + "</rewritten_query>")
}

package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orbit/internal/perception"
	"orbit/internal/search"
)

func TestRun_SuccessFirstAttempt(t *testing.T) {
	sc := &scriptedSearch{pages: [][]search.Result{twoResults()}}
	llm := &scriptedLLM{responses: []*perception.ChatResponse{gradeBothRelevant()}}
	p := NewPipeline(sc, llm, 2, 0.5)

	res, err := p.Run(context.Background(), "go generics")
	require.NoError(t, err)

	assert.False(t, res.FallbackUsed)
	assert.Empty(t, res.Disclaimer)
	assert.Len(t, res.RelevantResults, 2)
	assert.Equal(t, []string{"go generics"}, res.QueryHistory)
}

func TestRun_SuccessReturnsOnlyRelevant(t *testing.T) {
	grading := textResponse(`<result index="0"><relevance>relevant</relevance><confidence>0.9</confidence><reasoning>good</reasoning></result>
<result index="1"><relevance>not_relevant</relevance><confidence>0.9</confidence><reasoning>bad</reasoning></result>`)

	sc := &scriptedSearch{pages: [][]search.Result{twoResults()}}
	llm := &scriptedLLM{responses: []*perception.ChatResponse{grading}}
	p := NewPipeline(sc, llm, 2, 0.5)

	res, err := p.Run(context.Background(), "go generics")
	require.NoError(t, err)

	// 1 of 2 relevant meets the 0.5 threshold, and only the relevant one
	// comes back.
	assert.False(t, res.FallbackUsed)
	require.Len(t, res.RelevantResults, 1)
	assert.Equal(t, "Go generics guide", res.RelevantResults[0].Result.Title)
}

func TestRun_RewriteThenSuccess(t *testing.T) {
	sc := &scriptedSearch{pages: [][]search.Result{twoResults(), twoResults()}}
	llm := &scriptedLLM{responses: []*perception.ChatResponse{
		gradeNoneRelevant(),
		rewriteTo("golang type parameters tutorial"),
		gradeBothRelevant(),
	}}
	p := NewPipeline(sc, llm, 2, 0.5)

	res, err := p.Run(context.Background(), "go generics")
	require.NoError(t, err)

	assert.False(t, res.FallbackUsed)
	assert.Equal(t, []string{"go generics", "golang type parameters tutorial"}, res.QueryHistory)
	assert.Equal(t, []string{"go generics", "golang type parameters tutorial"}, sc.queries)

	// The rewrite call (second LLM call) carries the rejected results as
	// negative signal.
	require.GreaterOrEqual(t, len(llm.prompts), 2)
	var rewriteUser string
	for _, msg := range llm.prompts[1] {
		if msg.Role == perception.RoleUser {
			rewriteUser = msg.Content
		}
	}
	assert.Contains(t, rewriteUser, "Go generics guide")
	assert.Contains(t, rewriteUser, "Unrelated recipes")
	assert.Contains(t, rewriteUser, "off topic")
}

func TestRun_BoundedByMaxRetries(t *testing.T) {
	// Every attempt grades as irrelevant, every rewrite produces a new
	// query. With maxRetries=2 the pipeline must stop after 3 searches.
	sc := &scriptedSearch{pages: [][]search.Result{twoResults(), twoResults(), twoResults(), twoResults()}}
	llm := &scriptedLLM{responses: []*perception.ChatResponse{
		gradeNoneRelevant(),
		rewriteTo("second query"),
		gradeNoneRelevant(),
		rewriteTo("third query"),
		gradeNoneRelevant(),
	}}
	p := NewPipeline(sc, llm, 2, 0.5)

	res, err := p.Run(context.Background(), "first query")
	require.NoError(t, err)

	assert.True(t, res.FallbackUsed)
	assert.Equal(t, FallbackDisclaimer, res.Disclaimer)
	assert.Len(t, sc.queries, 3, "maxRetries=2 allows exactly 3 searches")
	assert.Len(t, res.QueryHistory, 3)
}

func TestRun_DuplicateRewriteTerminates(t *testing.T) {
	sc := &scriptedSearch{pages: [][]search.Result{twoResults(), twoResults(), twoResults()}}
	llm := &scriptedLLM{responses: []*perception.ChatResponse{
		gradeNoneRelevant(),
		// Same query modulo case and whitespace.
		rewriteTo("  GO   Generics  "),
	}}
	p := NewPipeline(sc, llm, 5, 0.5)

	res, err := p.Run(context.Background(), "go generics")
	require.NoError(t, err)

	assert.True(t, res.FallbackUsed)
	assert.Len(t, sc.queries, 1, "duplicate rewrite must not be searched")
}

func TestRun_ZeroResultsTriggersRewrite(t *testing.T) {
	sc := &scriptedSearch{pages: [][]search.Result{{}, twoResults()}}
	llm := &scriptedLLM{responses: []*perception.ChatResponse{
		rewriteTo("broader query"),
		gradeBothRelevant(),
	}}
	p := NewPipeline(sc, llm, 2, 0.5)

	res, err := p.Run(context.Background(), "hyperspecific query")
	require.NoError(t, err)

	assert.False(t, res.FallbackUsed)
	assert.Equal(t, []string{"hyperspecific query", "broader query"}, res.QueryHistory)
}

func TestRun_SearchFailureFallsBack(t *testing.T) {
	sc := &scriptedSearch{pages: [][]search.Result{nil}}
	llm := &scriptedLLM{}
	p := NewPipeline(sc, llm, 2, 0.5)

	res, err := p.Run(context.Background(), "query")
	require.NoError(t, err, "transport trouble degrades, it does not propagate")

	assert.True(t, res.FallbackUsed)
	assert.Equal(t, FallbackDisclaimer, res.Disclaimer)
	assert.Empty(t, res.RelevantResults)
}

func TestRun_FallbackKeepsBestSubset(t *testing.T) {
	// First attempt finds one relevant result (below the 0.6 threshold),
	// second finds none. The fallback must carry the best subset seen.
	oneRelevant := textResponse(`<result index="0"><relevance>relevant</relevance><confidence>0.9</confidence><reasoning>good</reasoning></result>
<result index="1"><relevance>not_relevant</relevance><confidence>0.9</confidence><reasoning>bad</reasoning></result>`)

	sc := &scriptedSearch{pages: [][]search.Result{twoResults(), twoResults()}}
	llm := &scriptedLLM{responses: []*perception.ChatResponse{
		oneRelevant,
		rewriteTo("second query"),
		gradeNoneRelevant(),
	}}
	p := NewPipeline(sc, llm, 1, 0.6)

	res, err := p.Run(context.Background(), "first query")
	require.NoError(t, err)

	assert.True(t, res.FallbackUsed)
	require.Len(t, res.RelevantResults, 1)
	assert.Equal(t, "Go generics guide", res.RelevantResults[0].Result.Title)
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(&scriptedSearch{}, &scriptedLLM{}, 2, 0.5)
	_, err := p.Run(ctx, "query")
	assert.ErrorIs(t, err, context.Canceled)
}

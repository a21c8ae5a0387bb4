// Package rag implements the agentic retrieval pipeline: bounded
// search, grade, rewrite cycles with graceful degradation to ungrounded
// generation behind an explicit disclaimer.
package rag

import (
	"context"
	"strings"

	"orbit/internal/logging"
	"orbit/internal/perception"
	"orbit/internal/search"
)

// Relevance labels for graded results.
const (
	Relevant    = "relevant"
	NotRelevant = "not_relevant"
)

// FallbackDisclaimer is attached to fallback results so downstream
// consumers can tell the answer is not grounded in fresh retrieval.
const FallbackDisclaimer = "Note: retrieval could not find sufficiently relevant sources. " +
	"The following may be incomplete or based on stale information."

// GradedResult is one search result with its relevance judgment.
type GradedResult struct {
	Result     search.Result
	Relevance  string
	Confidence float64
	Reasoning  string
}

// RAGResult is the outcome of one pipeline invocation.
type RAGResult struct {
	RelevantResults []GradedResult
	QueryHistory    []string
	FallbackUsed    bool
	Disclaimer      string
}

// Pipeline runs search, grade, rewrite cycles.
type Pipeline struct {
	search search.Client
	llm    perception.LLMClient

	// MaxRetries bounds query rewrites, so at most MaxRetries+1 searches.
	MaxRetries         int
	RelevanceThreshold float64
}

func NewPipeline(searchClient search.Client, llm perception.LLMClient, maxRetries int, threshold float64) *Pipeline {
	if threshold <= 0 {
		threshold = 0.5
	}
	return &Pipeline{
		search:             searchClient,
		llm:                llm,
		MaxRetries:         maxRetries,
		RelevanceThreshold: threshold,
	}
}

// Run executes the pipeline for a query. It never returns an error for
// retrieval trouble; exhaustion, duplicate-rewrite loops, and transport
// failures all degrade to a fallback result. The only error returned is
// cancellation.
func (p *Pipeline) Run(ctx context.Context, query string) (RAGResult, error) {
	res := RAGResult{}
	var best []GradedResult
	var lastRejected []GradedResult

	current := query
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return RAGResult{}, err
		}
		res.QueryHistory = append(res.QueryHistory, current)
		logging.RAG("attempt %d: searching %q", attempt+1, current)

		results, err := p.search.Search(ctx, current)
		if err != nil {
			if ctx.Err() != nil {
				return RAGResult{}, ctx.Err()
			}
			logging.RAGWarn("search failed, falling back: %v", err)
			return p.fallback(res, best), nil
		}

		if len(results) > 0 {
			graded, err := p.grade(ctx, current, results)
			if err != nil {
				if ctx.Err() != nil {
					return RAGResult{}, ctx.Err()
				}
				logging.RAGWarn("grading failed, falling back: %v", err)
				return p.fallback(res, best), nil
			}

			relevant := filterRelevant(graded)
			lastRejected = filterNotRelevant(graded)
			if len(relevant) > len(best) {
				best = relevant
			}

			ratio := float64(len(relevant)) / float64(len(graded))
			logging.RAGDebug("graded %d results, %d relevant (ratio %.2f)", len(graded), len(relevant), ratio)
			if ratio >= p.RelevanceThreshold {
				res.RelevantResults = relevant
				return res, nil
			}
		}

		if attempt >= p.MaxRetries {
			logging.RAG("retries exhausted after %d attempts", attempt+1)
			return p.fallback(res, best), nil
		}

		rewritten, err := p.rewrite(ctx, current, res.QueryHistory, lastRejected)
		if err != nil {
			if ctx.Err() != nil {
				return RAGResult{}, ctx.Err()
			}
			logging.RAGWarn("rewrite failed, falling back: %v", err)
			return p.fallback(res, best), nil
		}
		if seenQuery(rewritten, res.QueryHistory) {
			logging.RAG("rewrite repeated an earlier query, terminating")
			return p.fallback(res, best), nil
		}
		current = rewritten
	}
}

func (p *Pipeline) fallback(res RAGResult, best []GradedResult) RAGResult {
	res.RelevantResults = best
	res.FallbackUsed = true
	res.Disclaimer = FallbackDisclaimer
	return res
}

func filterRelevant(graded []GradedResult) []GradedResult {
	var out []GradedResult
	for _, g := range graded {
		if g.Relevance == Relevant {
			out = append(out, g)
		}
	}
	return out
}

func filterNotRelevant(graded []GradedResult) []GradedResult {
	var out []GradedResult
	for _, g := range graded {
		if g.Relevance == NotRelevant {
			out = append(out, g)
		}
	}
	return out
}

// seenQuery checks query history ignoring case and all whitespace.
func seenQuery(query string, history []string) bool {
	norm := normalizeQuery(query)
	for _, h := range history {
		if normalizeQuery(h) == norm {
			return true
		}
	}
	return false
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

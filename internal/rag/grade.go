package rag

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"orbit/internal/perception"
	"orbit/internal/search"
)

const gradeSystemPrompt = `You grade search results for relevance to a query. Judge each result on its own,
never by comparing results to each other. For every result emit exactly one block:

<result index="N">
<relevance>relevant | not_relevant</relevance>
<confidence>0.0 to 1.0</confidence>
<reasoning>one sentence</reasoning>
</result>`

// grade asks the LLM to judge each result independently. Malformed or empty
// grading output degrades to all-relevant at confidence 0.5; only transport
// failures surface as errors.
func (p *Pipeline) grade(ctx context.Context, query string, results []search.Result) ([]GradedResult, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n\n", query)
	for i, r := range results {
		fmt.Fprintf(&sb, "Result %d:\nTitle: %s\nURL: %s\nSnippet: %s\n\n", i, r.Title, r.URL, r.Snippet)
	}

	resp, err := p.llm.Chat(ctx, perception.SystemUser(gradeSystemPrompt, sb.String()), nil)
	if err != nil {
		return nil, err
	}
	return parseGrades(resp.Content, results), nil
}

var (
	resultBlockRe = regexp.MustCompile(`(?is)<result\s+index\s*=\s*"?(\d+)"?\s*>(.*?)</result\s*>`)
	relevanceRe   = regexp.MustCompile(`(?is)<relevance\s*>(.*?)</relevance\s*>`)
	confidenceRe  = regexp.MustCompile(`(?is)<confidence\s*>(.*?)</confidence\s*>`)
	reasoningRe   = regexp.MustCompile(`(?is)<reasoning\s*>(.*?)</reasoning\s*>`)
)

// parseGrades maps grading output onto the input results. Every input result
// gets exactly one grade: ungraded results default to relevant at 0.5, block
// indexes outside the input range are discarded, and if no block parses at
// all the whole set degrades to relevant at 0.5.
func parseGrades(content string, results []search.Result) []GradedResult {
	graded := make([]GradedResult, len(results))
	for i, r := range results {
		graded[i] = GradedResult{
			Result:     r,
			Relevance:  Relevant,
			Confidence: 0.5,
			Reasoning:  "Grading unavailable, assumed relevant.",
		}
	}

	for _, m := range resultBlockRe.FindAllStringSubmatch(content, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 0 || idx >= len(results) {
			continue
		}
		body := m[2]

		if rm := relevanceRe.FindStringSubmatch(body); rm != nil {
			graded[idx].Relevance = parseRelevance(rm[1])
		}
		if cm := confidenceRe.FindStringSubmatch(body); cm != nil {
			if v, err := strconv.ParseFloat(strings.TrimSpace(cm[1]), 64); err == nil {
				graded[idx].Confidence = clamp01(v)
			}
		}
		if gm := reasoningRe.FindStringSubmatch(body); gm != nil {
			graded[idx].Reasoning = strings.TrimSpace(gm[1])
		}
	}
	return graded
}

// parseRelevance is optimistic: anything that is not clearly negative counts
// as relevant, since a false negative drops a citation the user would see.
func parseRelevance(s string) string {
	v := strings.ToLower(strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"'`)))
	switch v {
	case NotRelevant, "not relevant", "irrelevant":
		return NotRelevant
	default:
		return Relevant
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

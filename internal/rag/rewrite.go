package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"orbit/internal/perception"
)

const rewriteSystemPrompt = `A search query returned poor results. Rewrite it to find better sources.
Change the wording substantially, do not just reorder terms.
Respond with the new query inside a <rewritten_query> tag:

<rewritten_query>your new query here</rewritten_query>`

// rewrite asks the LLM for a better query, feeding the tried queries and
// the results judged not relevant as negative signal.
func (p *Pipeline) rewrite(ctx context.Context, query string, history []string, rejected []GradedResult) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Original query: %s\n", query)
	if len(history) > 1 {
		sb.WriteString("Queries already tried without success:\n")
		for _, h := range history {
			fmt.Fprintf(&sb, "- %s\n", h)
		}
	}
	if len(rejected) > 0 {
		sb.WriteString("\nResults the query attracted that were judged not relevant, steer away from these:\n")
		for _, g := range rejected {
			fmt.Fprintf(&sb, "- %s: %s (%s)\n", g.Result.Title, g.Result.Snippet, g.Reasoning)
		}
	}

	resp, err := p.llm.Chat(ctx, perception.SystemUser(rewriteSystemPrompt, sb.String()), nil)
	if err != nil {
		return "", err
	}

	rewritten := parseRewrittenQuery(resp.Content)
	if rewritten == "" {
		return "", fmt.Errorf("no rewritten query in response")
	}
	return rewritten, nil
}

var rewrittenRe = regexp.MustCompile(`(?is)<rewritten_query\s*>(.*?)</rewritten_query\s*>`)

// parseRewrittenQuery extracts the tagged query, falling back to a bare
// single-line response when the model skips the tag.
func parseRewrittenQuery(content string) string {
	if m := rewrittenRe.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	trimmed := strings.TrimSpace(content)
	if trimmed != "" && !strings.Contains(trimmed, "\n") && !strings.Contains(trimmed, "<") {
		return trimmed
	}
	return ""
}

package context

import (
	stdctx "context"
	"fmt"
	"strings"
	"time"

	"orbit/internal/logging"
	"orbit/internal/perception"
)

const summarySystemPrompt = `You compress agent conversation history. Produce a dense summary that preserves
every fact, tool result, and decision needed to continue the task. Drop
pleasantries and repeated content. Output only the summary text.`

// maxReflectionsAfterCompaction bounds the reflections kept when
// summarization alone does not shrink the context enough.
const maxReflectionsAfterCompaction = 3

// Compact replaces the conversational history with a single rolling summary
// entry. The grounding block is never touched. A prior summary is folded
// into the new one so summaries never stack. Below the threshold, or with
// nothing to summarize, the context is returned unchanged.
//
// Compaction is best effort: it aims for at least a 20% reduction and trims
// reflections to the most recent few when summarization alone falls short.
func (mgr *Manager) Compact(ctx stdctx.Context, c AgentContext) (AgentContext, error) {
	if !mgr.NeedsCompaction(c) {
		return c, nil
	}

	var hasFresh bool
	for _, e := range c.History {
		if !e.Compacted {
			hasFresh = true
			break
		}
	}
	if !hasFresh {
		return c, nil
	}

	before := c.TokenCount
	summary, err := mgr.summarize(ctx, c)
	if err != nil {
		return c, fmt.Errorf("compaction: %w", err)
	}

	out := cloneContext(c)
	n := mgr.counter.Count(summary)
	out.History = []Entry{{
		Type:       EntryAssistant,
		Content:    summary,
		Timestamp:  time.Now(),
		TokenCount: n,
		Compacted:  true,
	}}
	out = mgr.recount(out)

	// Second pass: summarization of short histories may not reach the
	// reduction target, so shed all but the latest reflections.
	if float64(out.TokenCount) > 0.8*float64(before) && len(out.Reflections) > maxReflectionsAfterCompaction {
		out.Reflections = out.Reflections[len(out.Reflections)-maxReflectionsAfterCompaction:]
		out = mgr.recount(out)
	}

	logging.Context("compacted %d -> %d tokens (%d history entries folded)", before, out.TokenCount, len(c.History))
	return out, nil
}

// summarize folds the existing history, prior summary included, into one
// block of text.
func (mgr *Manager) summarize(ctx stdctx.Context, c AgentContext) (string, error) {
	var sb strings.Builder
	for _, e := range c.History {
		if e.Compacted {
			fmt.Fprintf(&sb, "[previous summary] %s\n", e.Content)
			continue
		}
		fmt.Fprintf(&sb, "[%s] %s\n", e.Type, e.Content)
	}

	if mgr.llm == nil {
		return "", fmt.Errorf("no LLM client configured")
	}

	resp, err := mgr.llm.Chat(ctx, perception.SystemUser(summarySystemPrompt, sb.String()), nil)
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return "", fmt.Errorf("empty summary")
	}
	return summary, nil
}

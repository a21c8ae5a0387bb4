package context

import (
	"time"

	"orbit/internal/memory"
	"orbit/internal/perception"
	"orbit/internal/tokens"
)

// Manager applies context operations with consistent token accounting.
type Manager struct {
	counter *tokens.Counter
	llm     perception.LLMClient
}

// NewManager builds a manager. The LLM client is only needed for Compact;
// passing nil disables summarization and Compact degrades to trimming.
func NewManager(counter *tokens.Counter, llm perception.LLMClient) *Manager {
	return &Manager{counter: counter, llm: llm}
}

// New creates a fresh context for a goal.
func (mgr *Manager) New(goal string, maxTokens int) AgentContext {
	c := AgentContext{
		Grounding: Grounding{
			CurrentGoal:     goal,
			UserPreferences: make(map[string]string),
		},
		MaxTokens: maxTokens,
	}
	return mgr.recount(c)
}

// Append adds a history entry and updates the running token count.
func (mgr *Manager) Append(c AgentContext, entryType EntryType, content string) AgentContext {
	out := cloneContext(c)
	n := mgr.counter.Count(content)
	out.History = append(out.History, Entry{
		Type:       entryType,
		Content:    content,
		Timestamp:  time.Now(),
		TokenCount: n,
	})
	out.TokenCount += n
	return out
}

// MarkSubtaskComplete records a finished subtask in the grounding block.
func (mgr *Manager) MarkSubtaskComplete(c AgentContext, subtask string) AgentContext {
	out := cloneContext(c)
	out.Grounding.CompletedSubtasks = append(out.Grounding.CompletedSubtasks, subtask)
	return mgr.recount(out)
}

// RecordKeyDecision records a decision in the grounding block.
func (mgr *Manager) RecordKeyDecision(c AgentContext, decision string) AgentContext {
	out := cloneContext(c)
	out.Grounding.KeyDecisions = append(out.Grounding.KeyDecisions, decision)
	return mgr.recount(out)
}

// SetUserPreference sets a preference, overwriting any prior value for the
// same key.
func (mgr *Manager) SetUserPreference(c AgentContext, key, value string) AgentContext {
	out := cloneContext(c)
	out.Grounding.UserPreferences[key] = value
	return mgr.recount(out)
}

// AddReflection injects a failure reflection into the context.
func (mgr *Manager) AddReflection(c AgentContext, r memory.Reflection) AgentContext {
	out := cloneContext(c)
	out.Reflections = append(out.Reflections, r)
	out.TokenCount += reflectionTokens(mgr.counter, r)
	return out
}

// NeedsCompaction reports whether the context has crossed the compaction
// threshold.
func (mgr *Manager) NeedsCompaction(c AgentContext) bool {
	if c.MaxTokens <= 0 {
		return false
	}
	return float64(c.TokenCount) >= tokens.WarningRatio*float64(c.MaxTokens)
}

// recount recomputes the total from scratch. Used after grounding edits,
// where a delta would have to track the rendered block anyway.
func (mgr *Manager) recount(c AgentContext) AgentContext {
	total := mgr.counter.Count(GroundingBlock(c.Grounding))
	for _, e := range c.History {
		total += e.TokenCount
	}
	for _, r := range c.Reflections {
		total += reflectionTokens(mgr.counter, r)
	}
	c.TokenCount = total
	return c
}

func cloneContext(c AgentContext) AgentContext {
	out := c
	out.History = append([]Entry(nil), c.History...)
	out.Reflections = append([]memory.Reflection(nil), c.Reflections...)
	out.Grounding.CompletedSubtasks = append([]string(nil), c.Grounding.CompletedSubtasks...)
	out.Grounding.KeyDecisions = append([]string(nil), c.Grounding.KeyDecisions...)
	out.Grounding.UserPreferences = make(map[string]string, len(c.Grounding.UserPreferences))
	for k, v := range c.Grounding.UserPreferences {
		out.Grounding.UserPreferences[k] = v
	}
	return out
}

// Package context maintains the agent's working context: a protected
// grounding block, an append-only conversational history, injected
// reflections, and token-budget driven compaction. Context values are
// replaced wholesale on update, never mutated in place.
package context

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"orbit/internal/memory"
	"orbit/internal/tokens"
)

// EntryType tags who or what produced a history entry.
type EntryType string

const (
	EntryUser        EntryType = "user"
	EntryAssistant   EntryType = "assistant"
	EntryTool        EntryType = "tool"
	EntryObservation EntryType = "observation"
)

// Entry is one unit of conversational history.
type Entry struct {
	Type       EntryType
	Content    string
	Timestamp  time.Time
	TokenCount int
	// Compacted marks a rolling summary produced by Compact. At most one
	// such entry exists in a history.
	Compacted bool
}

// Grounding is the protected block that compaction never touches.
type Grounding struct {
	CurrentGoal       string
	CompletedSubtasks []string
	KeyDecisions      []string
	UserPreferences   map[string]string
}

// AgentContext is the full working context for one agent run.
type AgentContext struct {
	Grounding   Grounding
	History     []Entry
	Reflections []memory.Reflection
	TokenCount  int
	MaxTokens   int
}

// GroundingBlock renders the grounding for prompt injection.
func GroundingBlock(g Grounding) string {
	var sb strings.Builder
	sb.WriteString("## Current Goal\n")
	sb.WriteString(g.CurrentGoal)
	sb.WriteString("\n")

	if len(g.CompletedSubtasks) > 0 {
		sb.WriteString("\n## Completed Subtasks\n")
		for _, s := range g.CompletedSubtasks {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
	}
	if len(g.KeyDecisions) > 0 {
		sb.WriteString("\n## Key Decisions\n")
		for _, d := range g.KeyDecisions {
			fmt.Fprintf(&sb, "- %s\n", d)
		}
	}
	if len(g.UserPreferences) > 0 {
		sb.WriteString("\n## User Preferences\n")
		for _, k := range sortedKeys(g.UserPreferences) {
			fmt.Fprintf(&sb, "- %s: %s\n", k, g.UserPreferences[k])
		}
	}
	return sb.String()
}

// Serialize renders the whole context in fixed order: grounding first,
// then history, then reflections.
func Serialize(c AgentContext) string {
	var sb strings.Builder
	sb.WriteString(GroundingBlock(c.Grounding))

	if len(c.History) > 0 {
		sb.WriteString("\n## History\n")
		for _, e := range c.History {
			label := string(e.Type)
			if e.Compacted {
				label = "summary"
			}
			fmt.Fprintf(&sb, "[%s] %s\n", label, e.Content)
		}
	}
	if len(c.Reflections) > 0 {
		sb.WriteString("\n## Lessons From Failures\n")
		for _, r := range c.Reflections {
			fmt.Fprintf(&sb, "- %s (%s): %s Fix: %s\n", r.FailedAction.Name, r.ErrorType, r.Analysis, r.SuggestedFix)
		}
	}
	return sb.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// reflectionTokens prices a reflection as its serialized line.
func reflectionTokens(counter *tokens.Counter, r memory.Reflection) int {
	return counter.Count(fmt.Sprintf("- %s (%s): %s Fix: %s", r.FailedAction.Name, r.ErrorType, r.Analysis, r.SuggestedFix))
}

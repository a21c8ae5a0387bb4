// Package memory implements per-session episodic reflection memory: failure
// analyses keyed by classified error type, repeated-error detection, and
// alternative-action suggestions. Memory values are replaced wholesale on
// update, never mutated in place, and are discarded with the session.
package memory

import (
	"encoding/json"
	"time"

	"orbit/internal/tools"
)

// RepetitionThreshold is the error count at which an error type counts as
// repeated and escalation kicks in.
const RepetitionThreshold = 2

// Reflection is a stored analysis of one tool failure.
type Reflection struct {
	ID           string
	Timestamp    time.Time
	ErrorType    string
	FailedAction tools.ToolCall
	Analysis     string
	SuggestedFix string
	Applied      bool
}

// EpisodicMemory holds the reflections of one session.
type EpisodicMemory struct {
	SessionID   string
	Reflections []Reflection
	ErrorCounts map[string]int
}

// NewEpisodic creates an empty memory for a session.
func NewEpisodic(sessionID string) EpisodicMemory {
	return EpisodicMemory{
		SessionID:   sessionID,
		ErrorCounts: make(map[string]int),
	}
}

// Store appends a reflection and bumps its error count, returning a new
// memory value. The input is not mutated.
func Store(m EpisodicMemory, r Reflection) EpisodicMemory {
	out := EpisodicMemory{
		SessionID:   m.SessionID,
		Reflections: make([]Reflection, 0, len(m.Reflections)+1),
		ErrorCounts: make(map[string]int, len(m.ErrorCounts)+1),
	}
	out.Reflections = append(out.Reflections, m.Reflections...)
	out.Reflections = append(out.Reflections, r)
	for k, v := range m.ErrorCounts {
		out.ErrorCounts[k] = v
	}
	out.ErrorCounts[r.ErrorType]++
	return out
}

// IsRepeated reports whether an error type has occurred at least
// RepetitionThreshold times.
func IsRepeated(errorType string, m EpisodicMemory) bool {
	return m.ErrorCounts[errorType] >= RepetitionThreshold
}

// Relevant returns reflections whose failed action matches the given action
// by tool name or by identical canonical parameters. Used to inject
// prior-failure context before a repeated attempt.
func Relevant(action tools.ToolCall, m EpisodicMemory) []Reflection {
	params := CanonicalParams(action.Parameters)
	var out []Reflection
	for _, r := range m.Reflections {
		if r.FailedAction.Name == action.Name || CanonicalParams(r.FailedAction.Parameters) == params {
			out = append(out, r)
		}
	}
	return out
}

// CanonicalParams serializes parameters deterministically. encoding/json
// sorts map keys, which is exactly the stable ordering retry keying needs.
func CanonicalParams(params map[string]any) string {
	if len(params) == 0 {
		return "{}"
	}
	data, err := json.Marshal(params)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// RetryKey builds the retry-counting key for a tool call.
func RetryKey(call tools.ToolCall) string {
	return call.Name + ":" + CanonicalParams(call.Parameters)
}

package agent

import (
	"encoding/json"
	"regexp"
	"strings"

	"orbit/internal/tools"
)

// ParsedResponse is the structured reading of one think turn. Exactly one
// of Synthesis and ToolCall is meaningful when set; Thought is whatever
// surrounded the structured block.
type ParsedResponse struct {
	Thought   string
	ToolCall  *tools.ToolCall
	Synthesis string
}

var (
	synthesisRe = regexp.MustCompile(`(?is)<synthesis\s*>(.*?)</synthesis\s*>`)
	toolCallRe  = regexp.MustCompile(`(?is)<tool_call\s*>(.*?)</tool_call\s*>`)
	nameRe      = regexp.MustCompile(`(?is)<name\s*>(.*?)</name\s*>`)
	paramsTagRe = regexp.MustCompile(`(?is)<parameters\s*>(.*?)</parameters\s*>`)
	reasonTagRe = regexp.MustCompile(`(?is)<reasoning\s*>(.*?)</reasoning\s*>`)
)

// ParseThinkResponse locates a synthesis or tool call block. A synthesis
// block wins; everything outside it is the thought. Otherwise a tool call
// block is extracted and everything before it is the thought. A response
// with neither is all thought.
func ParseThinkResponse(content string) ParsedResponse {
	if m := synthesisRe.FindStringSubmatchIndex(content); m != nil {
		thought := strings.TrimSpace(content[:m[0]] + content[m[1]:])
		return ParsedResponse{
			Thought:   thought,
			Synthesis: strings.TrimSpace(content[m[2]:m[3]]),
		}
	}

	if m := toolCallRe.FindStringSubmatchIndex(content); m != nil {
		thought := strings.TrimSpace(content[:m[0]])
		body := content[m[2]:m[3]]
		if call := parseToolCallBody(body); call != nil {
			return ParsedResponse{Thought: thought, ToolCall: call}
		}
		return ParsedResponse{Thought: strings.TrimSpace(content)}
	}

	return ParsedResponse{Thought: strings.TrimSpace(content)}
}

// parseToolCallBody pulls name, parameters, and reasoning out of a tool
// call block. Parameters must be a JSON object; a missing or empty tag
// means no parameters. A missing name invalidates the whole block.
func parseToolCallBody(body string) *tools.ToolCall {
	nm := nameRe.FindStringSubmatch(body)
	if nm == nil {
		return nil
	}
	name := strings.TrimSpace(strings.Trim(strings.TrimSpace(nm[1]), `"'`))
	if name == "" {
		return nil
	}

	call := &tools.ToolCall{Name: name, Parameters: map[string]any{}}

	if pm := paramsTagRe.FindStringSubmatch(body); pm != nil {
		raw := strings.TrimSpace(pm[1])
		if raw != "" {
			var params map[string]any
			if err := json.Unmarshal([]byte(raw), &params); err != nil {
				return nil
			}
			call.Parameters = params
		}
	}
	if rm := reasonTagRe.FindStringSubmatch(body); rm != nil {
		call.Reasoning = strings.TrimSpace(rm[1])
	}
	return call
}

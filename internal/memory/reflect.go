package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"orbit/internal/logging"
	"orbit/internal/perception"
	"orbit/internal/tools"
)

const reflectionSystemPrompt = `You are a debugging assistant analyzing a failed tool call inside an autonomous agent.
Respond with exactly two labeled sections:

ANALYSIS: <why the action likely failed, one or two sentences>
SUGGESTED_FIX: <a concrete change to try next, one sentence>`

// GenerateReflection asks the LLM to analyze a failure. It never returns an
// empty reflection: transport or parse failures degrade to a templated
// analysis embedding the raw error. The only error returned is cancellation.
func GenerateReflection(ctx context.Context, llm perception.LLMClient, failedAction tools.ToolCall, errorMessage, serializedContext string) (Reflection, error) {
	if err := ctx.Err(); err != nil {
		return Reflection{}, err
	}

	r := Reflection{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		ErrorType:    ExtractErrorType(errorMessage, failedAction),
		FailedAction: failedAction,
	}

	user := fmt.Sprintf("Tool: %s\nParameters: %s\nReasoning: %s\nError: %s\n\nRecent context:\n%s",
		failedAction.Name, CanonicalParams(failedAction.Parameters), failedAction.Reasoning, errorMessage, serializedContext)

	resp, err := llm.Chat(ctx, perception.SystemUser(reflectionSystemPrompt, user), nil)
	if err != nil {
		if ctx.Err() != nil {
			return Reflection{}, ctx.Err()
		}
		logging.MemoryDebug("reflection LLM call failed, using template: %v", err)
		return templatedReflection(r, failedAction, errorMessage), nil
	}

	analysis, fix, ok := parseReflectionResponse(resp.Content)
	if !ok {
		logging.MemoryDebug("reflection response unparseable, using template")
		return templatedReflection(r, failedAction, errorMessage), nil
	}

	r.Analysis = analysis
	r.SuggestedFix = fix
	return r, nil
}

// templatedReflection fills the fallback analysis so downstream prompt
// injection always has something concrete to show.
func templatedReflection(r Reflection, failedAction tools.ToolCall, errorMessage string) Reflection {
	r.Analysis = fmt.Sprintf("The %s call failed with: %s", failedAction.Name, errorMessage)
	r.SuggestedFix = "Retry with adjusted parameters or choose a different tool."
	return r
}

var (
	analysisRe = regexp.MustCompile(`(?is)ANALYSIS:\s*(.+?)(?:SUGGESTED_FIX:|$)`)
	fixRe      = regexp.MustCompile(`(?is)SUGGESTED_FIX:\s*(.+)$`)
)

// parseReflectionResponse extracts the two labeled sections.
func parseReflectionResponse(content string) (analysis, fix string, ok bool) {
	am := analysisRe.FindStringSubmatch(content)
	fm := fixRe.FindStringSubmatch(content)
	if am == nil || fm == nil {
		return "", "", false
	}
	analysis = strings.TrimSpace(am[1])
	fix = strings.TrimSpace(fm[1])
	if analysis == "" || fix == "" {
		return "", "", false
	}
	return analysis, fix, true
}

const alternativeSystemPrompt = `An autonomous agent keeps failing with the same class of error. Propose a different approach.
Either pick a different tool from the available list or change the parameters substantially.
Respond with exactly three labeled lines:

TOOL: <tool name>
PARAMETERS: <JSON object>
REASONING: <why this should work better>`

// SuggestAlternative asks the LLM for a different action after a repeated
// error. On transport or parse failure it falls back to the same tool and
// parameters with annotated reasoning, so the controller always has a next
// action to try. The only error returned is cancellation.
func SuggestAlternative(ctx context.Context, llm perception.LLMClient, failedAction tools.ToolCall, m EpisodicMemory, availableTools []string) (tools.ToolCall, error) {
	if err := ctx.Err(); err != nil {
		return tools.ToolCall{}, err
	}

	fallback := tools.ToolCall{
		Name:       failedAction.Name,
		Parameters: failedAction.Parameters,
		Reasoning:  "Alternative attempt: " + failedAction.Reasoning,
	}

	var history strings.Builder
	for _, r := range Relevant(failedAction, m) {
		fmt.Fprintf(&history, "- %s: %s (fix: %s)\n", r.ErrorType, r.Analysis, r.SuggestedFix)
	}

	user := fmt.Sprintf("Failed tool: %s\nParameters: %s\nAvailable tools: %s\n\nPrior failures:\n%s",
		failedAction.Name, CanonicalParams(failedAction.Parameters), strings.Join(availableTools, ", "), history.String())

	resp, err := llm.Chat(ctx, perception.SystemUser(alternativeSystemPrompt, user), nil)
	if err != nil {
		if ctx.Err() != nil {
			return tools.ToolCall{}, ctx.Err()
		}
		logging.MemoryDebug("alternative suggestion failed, reusing action: %v", err)
		return fallback, nil
	}

	call, ok := parseAlternativeResponse(resp.Content)
	if !ok {
		logging.MemoryDebug("alternative response unparseable, reusing action")
		return fallback, nil
	}
	return call, nil
}

var (
	toolRe      = regexp.MustCompile(`(?im)^\s*TOOL:\s*(\S+)\s*$`)
	paramsRe    = regexp.MustCompile(`(?is)PARAMETERS:\s*(\{.*?\})\s*(?:REASONING:|$)`)
	reasoningRe = regexp.MustCompile(`(?is)REASONING:\s*(.+)$`)
)

// parseAlternativeResponse extracts the three labeled lines.
func parseAlternativeResponse(content string) (tools.ToolCall, bool) {
	tm := toolRe.FindStringSubmatch(content)
	pm := paramsRe.FindStringSubmatch(content)
	if tm == nil || pm == nil {
		return tools.ToolCall{}, false
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(pm[1]), &params); err != nil {
		return tools.ToolCall{}, false
	}

	reasoning := "Alternative approach after repeated failure"
	if rm := reasoningRe.FindStringSubmatch(content); rm != nil {
		reasoning = strings.TrimSpace(rm[1])
	}

	return tools.ToolCall{
		Name:       strings.TrimSpace(tm[1]),
		Parameters: params,
		Reasoning:  reasoning,
	}, true
}

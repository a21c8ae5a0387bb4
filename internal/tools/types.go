// Package tools provides the tool registry and execution surface for the
// agent loop. Tools are registered once at startup and invoked through
// validated ToolCalls; the registry never lets a malformed call reach an
// Execute function.
package tools

import "context"

// Property describes a single parameter property for JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
}

// ToolSchema defines the JSON schema for tool arguments.
type ToolSchema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for tool execution.
// Returns the result string and any error.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool defines a tool the agent can invoke.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string

	// Description explains what the tool does. Embedded in the agent's
	// system prompt as the tool catalogue.
	Description string

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc

	// Schema defines the expected arguments.
	Schema ToolSchema
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// ToolCall is the agent's request to invoke a tool.
type ToolCall struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
	Reasoning  string         `json:"reasoning"`
}

// CallResult is the outcome of executing (or refusing) a ToolCall.
type CallResult struct {
	// Success is false when the tool errored or the call was rejected.
	Success bool

	// Data holds the tool output on success.
	Data string

	// Error holds the failure message when Success is false.
	Error string

	// TokenCount estimates the tokens the result payload occupies.
	TokenCount int
}

// ValidationResult reports schema validation of a ToolCall.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

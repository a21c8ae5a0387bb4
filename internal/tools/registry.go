package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"orbit/internal/logging"
	"orbit/internal/tokens"
)

// Registry holds all available tools and provides lookup, validation and
// execution. It is thread-safe and supports registration at runtime.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]*Tool
	counter *tokens.Counter
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]*Tool),
		counter: tokens.NewCounter(),
	}
}

// Register adds a tool to the registry.
// Returns an error if a tool with the same name already exists.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}

	r.tools[tool.Name] = tool
	logging.ToolsDebug("Registered tool: %s", tool.Name)
	return nil
}

// MustRegister registers a tool and panics on error.
// Use this for static tool registration at startup.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Has returns true if a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	return r.Get(name) != nil
}

// Schema returns the argument schema for a tool.
func (r *Registry) Schema(name string) (ToolSchema, error) {
	tool := r.Get(name)
	if tool == nil {
		return ToolSchema{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return tool.Schema, nil
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// ValidateCall checks a ToolCall against the registered schema without
// executing it.
func (r *Registry) ValidateCall(call ToolCall) ValidationResult {
	tool := r.Get(call.Name)
	if tool == nil {
		return ValidationResult{Errors: []string{fmt.Sprintf("unknown tool: %s", call.Name)}}
	}

	var errs []string
	for _, required := range tool.Schema.Required {
		if _, ok := call.Parameters[required]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingRequiredArg, required).Error())
		}
	}
	for name, value := range call.Parameters {
		prop, ok := tool.Schema.Properties[name]
		if !ok {
			errs = append(errs, fmt.Sprintf("unknown argument: %s", name))
			continue
		}
		if msg := checkType(name, prop.Type, value); msg != "" {
			errs = append(errs, msg)
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// checkType verifies a parameter value loosely matches its declared type.
// JSON numbers arrive as float64, so integer accepts whole floats.
func checkType(name, declared string, value any) string {
	switch declared {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("argument %s must be a string", name)
		}
	case "integer":
		switch v := value.(type) {
		case int, int64:
		case float64:
			if v != float64(int64(v)) {
				return fmt.Sprintf("argument %s must be an integer", name)
			}
		default:
			return fmt.Sprintf("argument %s must be an integer", name)
		}
	case "number":
		switch value.(type) {
		case int, int64, float64:
		default:
			return fmt.Sprintf("argument %s must be a number", name)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("argument %s must be a boolean", name)
		}
	}
	return ""
}

// ExecuteCall validates and runs a ToolCall, always returning a CallResult.
// Validation failures and execution errors become failed results, never
// errors that escape to the loop.
func (r *Registry) ExecuteCall(ctx context.Context, call ToolCall) CallResult {
	if v := r.ValidateCall(call); !v.Valid {
		msg := fmt.Sprintf("validation failed: %v", v.Errors)
		logging.ToolsDebug("Rejected call to %s: %s", call.Name, msg)
		return CallResult{Error: msg, TokenCount: r.counter.Count(msg)}
	}

	tool := r.Get(call.Name)
	start := time.Now()
	logging.ToolsDebug("Executing tool: %s", call.Name)

	data, err := tool.Execute(ctx, call.Parameters)
	duration := time.Since(start)
	logging.ToolsDebug("Tool %s completed in %v (success=%v)", call.Name, duration, err == nil)

	if err != nil {
		return CallResult{Error: err.Error(), TokenCount: r.counter.Count(err.Error())}
	}
	return CallResult{Success: true, Data: data, TokenCount: r.counter.Count(data)}
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/locas/locas-backend/internal/providers"
)

// Arguments is the decoded argument mapping of one tool call.
type Arguments map[string]interface{}

// Float reads a numeric argument. JSON numbers decode as float64.
func (a Arguments) Float(key string) (float64, bool) {
	v, ok := a[key].(float64)
	return v, ok
}

// String reads a string argument.
func (a Arguments) String(key string) (string, bool) {
	v, ok := a[key].(string)
	return v, ok
}

// Int reads an integer argument, tolerating the float64 JSON decoding.
func (a Arguments) Int(key string) (int, bool) {
	v, ok := a[key].(float64)
	return int(v), ok
}

// Handler executes one tool call and returns its text payload.
type Handler func(ctx context.Context, args Arguments) (string, error)

// Definition declares one callable tool: its schema as exposed to the
// language model plus the handler that serves it.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
	Handler     Handler
}

// Result is the outcome of executing one tool call. Every dispatched
// call yields exactly one Result, success or failure.
type Result struct {
	CallID  string
	Success bool
	Payload string
	Error   string
}

// Content renders the result as text to feed back to the model.
func (r Result) Content() string {
	if !r.Success {
		return "Error: " + r.Error
	}
	return r.Payload
}

// Registry holds the declared tools. Adding a tool is a registry entry
// plus a handler; the dispatch loop never changes.
type Registry struct {
	defs   []Definition
	byName map[string]Definition
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Definition)}
}

// Register adds a tool. Duplicate names are rejected.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %q has no handler", def.Name)
	}
	if _, exists := r.byName[def.Name]; exists {
		return fmt.Errorf("tool %q already registered", def.Name)
	}
	r.byName[def.Name] = def
	r.defs = append(r.defs, def)
	return nil
}

// Definitions returns the tool schema in registration order. The order
// is stable across rounds within one loop.
func (r *Registry) Definitions() []providers.Tool {
	tools := make([]providers.Tool, len(r.defs))
	for i, def := range r.defs {
		tools[i] = providers.Tool{
			Type: "function",
			Function: providers.Function{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		}
	}
	return tools
}

// Dispatch executes one model-requested tool call by name. Unknown
// tools and handler failures come back as failed Results, never panics.
func (r *Registry) Dispatch(ctx context.Context, call providers.ToolCall) Result {
	def, ok := r.byName[call.Function.Name]
	if !ok {
		return Result{
			CallID: call.ID,
			Error:  fmt.Sprintf("unknown tool: %s", call.Function.Name),
		}
	}

	args := Arguments{}
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return Result{
				CallID: call.ID,
				Error:  fmt.Sprintf("invalid arguments for %s: %v", call.Function.Name, err),
			}
		}
	}

	payload, err := def.Handler(ctx, args)
	if err != nil {
		return Result{CallID: call.ID, Error: err.Error()}
	}
	return Result{CallID: call.ID, Success: true, Payload: payload}
}

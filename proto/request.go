package proto

import (
	"fmt"
)

type validatable interface {
	Validate() error
}

// ToolCall is a single function invocation requested by the speech model.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

func (c *ToolCall) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("tool call ID is required")
	}

	if c.Name == "" {
		return fmt.Errorf("tool call name is required")
	}

	return nil
}

// Ok creates a successful result for the call
func (c *ToolCall) Ok(output string) *ToolResult {
	return c.newResult(output, nil)
}

// NotOk creates a failure result for the call. The model still receives a
// result string.
func (c *ToolCall) NotOk(err *ToolDispatchError) *ToolResult {
	return c.newResult(fmt.Sprintf("error: %s", err.cause), err)
}

func (c *ToolCall) newResult(output string, err *ToolDispatchError) *ToolResult {
	return &ToolResult{
		ID:     c.ID,
		Name:   c.Name,
		Output: output,
		Error:  err,
	}
}

func NewToolCall(name string, args map[string]any) *ToolCall {
	return &ToolCall{
		ID:   ID(),
		Name: name,
		Args: args,
	}
}

// ValidateArgs validates v when it knows how to.
func ValidateArgs(v any) error {
	if vv, ok := v.(validatable); ok {
		return vv.Validate()
	}
	return nil
}

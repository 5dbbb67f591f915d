package proto

// ToolResult answers exactly one ToolCall, matched by ID.
type ToolResult struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Output string             `json:"output"`
	Error  *ToolDispatchError `json:"-"`
}

func (r *ToolResult) Ok() bool {
	return r.Error == nil
}

// Payload is the response body forwarded to the model.
func (r *ToolResult) Payload() map[string]any {
	if r.Error != nil {
		return map[string]any{"error": r.Output}
	}
	return map[string]any{"output": r.Output}
}

package contract

type Message struct {
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
	ToolCalls  []*ToolCall `json:"tool_calls,omitempty"`
}

type CompletionRequest struct {
	Model string `json:"model"`
	// System is the instruction sent through each vendor's dedicated
	// system channel rather than as a chat message.
	System   string    `json:"system,omitempty"`
	Messages []Message `json:"messages"`
	Tools    []ToolDef `json:"tools,omitempty"`
}

type ToolDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type CompletionResponse struct {
	Content   string      `json:"content"`
	ToolCalls []*ToolCall `json:"tool_calls,omitempty"`
}

type ToolCall struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Input string `json:"input"`
}

// FirstToolCall returns the first usable tool call and how many the model
// requested in total. Nil entries and calls without a name are skipped.
func (r *CompletionResponse) FirstToolCall() (*ToolCall, int) {
	if r == nil {
		return nil, 0
	}
	var first *ToolCall
	requested := 0
	for _, call := range r.ToolCalls {
		if call == nil || call.Name == "" {
			continue
		}
		requested++
		if first == nil {
			first = call
		}
	}
	return first, requested
}

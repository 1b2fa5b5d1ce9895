// ABOUTME: Completion client interface and message/tool types for the model backend
// ABOUTME: Transport-neutral so the orchestrator can be tested against a fake

package llm

import (
	"context"
	"encoding/json"
)

// Message roles understood by the completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry in the conversation sent to the model.
// ToolCalls is set only on assistant messages that requested calls;
// ToolCallID and Name are set only on tool-result messages (RoleTool),
// tying the result back to the call that requested it. A RoleTool message
// is only valid after an assistant message whose ToolCalls contain its
// ToolCallID.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

// ToolDefinition describes a callable function advertised to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON schema for the arguments object
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON arguments as returned by the model
}

// CompletionRequest is one round trip to the model.
type CompletionRequest struct {
	Messages []Message
	Tools    []ToolDefinition

	// ForceTool, when non-empty, constrains the model to answer by calling
	// the named function (tool_choice).
	ForceTool string

	// JSONObject, when true, constrains the response format to a JSON object.
	JSONObject bool
}

// Completion is the model's answer: either direct text content, one or more
// requested tool calls, or both.
type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

// Client is a request/response completion API.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

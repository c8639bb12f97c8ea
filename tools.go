package copilot

import (
	"context"
	"encoding/json"
)

// ToolDefinition is the declarative tool schema exposed to the model.
// A catalog is rebuilt once per orchestration run and never mutated mid-run.
type ToolDefinition struct {
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Parameters     map[string]any `json:"parameters"`
	SourceServerID string         `json:"source_server_id,omitempty"`
}

// ToolCall is a backend-issued request to invoke one named tool. The CallID
// is opaque and consumed exactly once.
type ToolCall struct {
	CallID   string
	Name     string
	ArgsJSON json.RawMessage
}

// ToolResult is the normalized outcome of one tool invocation.
type ToolResult struct {
	CallID         string
	Name           string
	IsError        bool
	Content        json.RawMessage
	ErrorText      string
	SourceServerID string
}

// RoutingContext carries tenant and connection metadata passed through to the
// tool-execution backend on every invocation.
type RoutingContext struct {
	TenantID           string            `json:"tenant_id"`
	AgentID            string            `json:"agent_id"`
	EnabledToolServers []string          `json:"enabled_tool_servers,omitempty"`
	ConnectionContext  map[string]string `json:"connection_context,omitempty"`
}

// Invoker executes one named tool against the tool-execution backend.
// Implementations report transport errors, non-success responses and
// argument-parse failures as IsError results; they never let one bad tool
// call abort the run.
type Invoker interface {
	Invoke(ctx context.Context, call ToolCall, routing RoutingContext) ToolResult
}

// ToolLister lists the tool definitions exported by one tool server.
type ToolLister interface {
	ListTools(ctx context.Context, serverID string) ([]ToolDefinition, error)
}

// AgentDescriptor identifies the agent an orchestration run acts for.
type AgentDescriptor struct {
	ID                 string
	Name               string
	SystemPrompt       string
	EnabledToolServers []string
}

// toolResultPayload is the JSON body recorded into history for each result.
type toolResultPayload struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (r ToolResult) historyPayload() []byte {
	payload := toolResultPayload{Success: !r.IsError}
	if r.IsError {
		payload.Error = r.ErrorText
	} else {
		payload.Result = r.Content
	}
	data, err := json.Marshal(payload)
	if err != nil {
		// Payload fields are marshal-safe; this path only triggers on invalid
		// raw JSON smuggled into Content.
		data = []byte(`{"success":false,"error":"unencodable tool result"}`)
	}
	return data
}

package copilot

import (
	"context"
	"strings"
)

// Request is the provider-agnostic chat-completion input.
type Request struct {
	History []Message
	Tools   []ToolDefinition
}

// Response is the provider-agnostic chat-completion output.
type Response struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        *Usage
}

// Provider is the unified adapter interface implemented by backends.
// Implementations are stateless over the inputs they are given; they never
// retain history between calls.
type Provider interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// ProviderConfig is the inbound per-run provider selection and credentials.
type ProviderConfig struct {
	Provider    string
	Model       string
	Endpoint    string
	APIKey      string
	Headers     map[string]string
	Temperature *float64
	MaxTokens   *int
}

// Configured reports whether credentials exist for the run. When false the
// caller should route to the FallbackSelector instead of the orchestrator.
func (c ProviderConfig) Configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Usage reports approximate token accounting. Numbers are estimates and must
// never be presented as billing-accurate.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Package anthropic implements the schema-divergent adapter on the Anthropic
// Messages API: the system prompt travels as a top-level request field
// rather than a message, remaining turns are coerced to user/assistant
// roles, tools use input_schema instead of parameters, and the response is a
// list of typed content blocks.
package anthropic

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/grcsuite/copilot"
	"github.com/grcsuite/copilot/providers/base"
)

const (
	// ProviderID identifies this adapter in errors and debug records.
	ProviderID = "anthropic"

	defaultMaxTokens = 4096
)

// Config configures the Anthropic Messages provider.
type Config struct {
	base.Config
}

// Option is a functional option for this provider.
type Option func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithTemperature sets the temperature.
func WithTemperature(t float64) Option {
	return func(c *Config) { c.Temperature = &t }
}

// WithMaxOutputTokens sets the max output tokens.
func WithMaxOutputTokens(n int) Option {
	return func(c *Config) { c.MaxOutputTokens = &n }
}

// WithExtraHeader adds a custom header to requests.
func WithExtraHeader(key, value string) Option {
	return func(c *Config) {
		if c.ExtraHeaders == nil {
			c.ExtraHeaders = make(map[string]string)
		}
		c.ExtraHeaders[key] = value
	}
}

// WithDebug enables JSONL debug logging to the specified file path.
func WithDebug(path string) Option {
	return func(c *Config) { c.DebugPath = path }
}

// New creates a Provider using the Anthropic Messages API.
// It reads ANTHROPIC_API_KEY and ANTHROPIC_BASE_URL from environment if not
// explicitly set. The x-api-key and anthropic-version headers are applied by
// the client.
func New(model string, opts ...Option) copilot.Provider {
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	base.ApplyEnvDefaults(&cfg.Config, "ANTHROPIC_API_KEY", "ANTHROPIC_BASE_URL")

	clientOpts := []option.RequestOption{
		option.WithRequestTimeout(cfg.Timeout()),
	}
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(cfg.HTTPClient))
	}
	for k, v := range cfg.ExtraHeaders {
		clientOpts = append(clientOpts, option.WithHeader(k, v))
	}
	client := anthropic.NewClient(clientOpts...)
	return &provider{model: model, cfg: cfg, client: client}
}

type provider struct {
	model  string
	cfg    Config
	client anthropic.Client
}

func (p *provider) Send(ctx context.Context, req copilot.Request) (*copilot.Response, error) {
	params := buildParams(req, p.model, p.cfg)

	debug, err := base.NewDebugLogger(p.cfg.DebugPath)
	if err != nil {
		return nil, err
	}
	defer debug.Close()
	if debug != nil {
		rec := base.NewDebugRecord("request", params)
		rec.Provider = ProviderID
		rec.Model = p.model
		_ = debug.Log(rec)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &copilot.ProviderError{Provider: ProviderID, Message: "message request failed", Err: err}
	}
	if debug != nil {
		rec := base.NewDebugRecord("response", msg)
		rec.Provider = ProviderID
		rec.Model = p.model
		_ = debug.Log(rec)
	}

	resp := &copilot.Response{FinishReason: string(msg.StopReason)}
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Content += variant.Text
		case anthropic.ToolUseBlock:
			resp.ToolCalls = append(resp.ToolCalls, copilot.ToolCall{
				CallID:   variant.ID,
				Name:     variant.Name,
				ArgsJSON: json.RawMessage(variant.JSON.Input.Raw()),
			})
		}
	}
	if msg.Usage.InputTokens > 0 || msg.Usage.OutputTokens > 0 {
		resp.Usage = &copilot.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		}
	}
	return resp, nil
}

// buildParams converts an adapter request into Messages API params. System
// messages are pulled out of the history into the top-level system field;
// tool results travel as user-role tool_result blocks.
func buildParams(req copilot.Request, model string, cfg Config) anthropic.MessageNewParams {
	maxTokens := defaultMaxTokens
	if cfg.MaxOutputTokens != nil {
		maxTokens = *cfg.MaxOutputTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
	}
	if cfg.Temperature != nil {
		params.Temperature = anthropic.Float(*cfg.Temperature)
	}

	for _, msg := range req.History {
		switch m := msg.(type) {
		case copilot.SystemMessage:
			params.System = append(params.System, anthropic.TextBlockParam{Text: copilot.TextOf(m.Parts)})
		case copilot.UserMessage:
			params.Messages = append(params.Messages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(copilot.TextOf(m.Parts))))
		case copilot.AssistantMessage:
			var blocks []anthropic.ContentBlockParamUnion
			if text := copilot.TextOf(m.Parts); text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(text))
			}
			for _, call := range m.ToolCalls() {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.CallID, decodeArgs(call.ArgsJSON), call.Name))
			}
			if len(blocks) > 0 {
				params.Messages = append(params.Messages, anthropic.NewAssistantMessage(blocks...))
			}
		case copilot.ToolMessage:
			params.Messages = append(params.Messages,
				anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.CallID, copilot.TextOf(m.Parts), m.IsError)))
		}
	}

	for _, def := range req.Tools {
		params.Tools = append(params.Tools, convertToolDefinition(def))
	}
	return params
}

// convertToolDefinition maps the catalog's JSON Schema shape onto the
// input_schema field this API expects.
func convertToolDefinition(def copilot.ToolDefinition) anthropic.ToolUnionParam {
	schema := anthropic.ToolInputSchemaParam{}
	if props, ok := def.Parameters["properties"]; ok {
		schema.Properties = props
	}
	if required, ok := def.Parameters["required"]; ok {
		// SetExtraFields is a documented no-op on structs that declare their
		// own ExtraFields field, as ToolInputSchemaParam does.
		schema.ExtraFields = map[string]any{"required": required}
	}

	tool := anthropic.ToolParam{
		Name:        def.Name,
		InputSchema: schema,
	}
	if def.Description != "" {
		tool.Description = anthropic.String(def.Description)
	}
	return anthropic.ToolUnionParam{OfTool: &tool}
}

func decodeArgs(raw json.RawMessage) any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]any{}
	}
	return v
}

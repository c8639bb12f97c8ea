// Package chatcompletion implements the bearer-token style adapter on the
// OpenAI Chat Completions API: Authorization: Bearer auth against
// <base>/chat/completions, with the `parameters` tool schema and the system
// message passed through inline.
package chatcompletion

import (
	"context"
	"encoding/json"

	"github.com/grcsuite/copilot"
	"github.com/grcsuite/copilot/providers/base"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ProviderID identifies this adapter in errors and debug records.
const ProviderID = "openai"

// Config configures the OpenAI Chat Completions provider.
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

// New creates a Provider using the OpenAI Chat Completions API.
// It reads OPENAI_API_KEY and OPENAI_BASE_URL from environment if not
// explicitly set.
func New(model string, opts ...Option) copilot.Provider {
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	base.ApplyEnvDefaults(&cfg.Config, "OPENAI_API_KEY", "OPENAI_BASE_URL")

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
	client := openai.NewClient(clientOpts...)
	return &provider{model: model, cfg: cfg, client: client}
}

type provider struct {
	model  string
	cfg    Config
	client openai.Client
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

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, &copilot.ProviderError{Provider: ProviderID, Message: "completion request failed", Err: err}
	}
	if debug != nil {
		rec := base.NewDebugRecord("response", completion)
		rec.Provider = ProviderID
		rec.Model = p.model
		_ = debug.Log(rec)
	}

	if len(completion.Choices) == 0 {
		return nil, &copilot.ProviderError{Provider: ProviderID, Message: "response missing choices"}
	}
	choice := completion.Choices[0]

	resp := &copilot.Response{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
	}
	for _, tc := range choice.Message.ToolCalls {
		call := copilot.ToolCall{
			CallID: tc.ID,
			Name:   tc.Function.Name,
		}
		if tc.Function.Arguments != "" {
			call.ArgsJSON = json.RawMessage(tc.Function.Arguments)
		}
		resp.ToolCalls = append(resp.ToolCalls, call)
	}
	if completion.Usage.TotalTokens > 0 {
		resp.Usage = &copilot.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		}
	}
	return resp, nil
}

// Package azurechat implements the deployment-style chat-completion adapter.
// The endpoint is either a pre-built chat/completions URL, respected as-is
// with an api-version query parameter appended when absent, or constructed
// from a base endpoint plus the deployment (model) name. Auth uses the
// static api-key header.
package azurechat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/grcsuite/copilot"
	"github.com/grcsuite/copilot/providers/base"
	"github.com/tidwall/gjson"
)

const (
	// ProviderID identifies this adapter in errors and debug records.
	ProviderID = "azure"

	defaultAPIVersion = "2024-02-15-preview"
)

// Config configures the deployment-style provider.
type Config struct {
	base.Config

	// APIVersion is appended to the request URL when the endpoint does not
	// already carry one.
	APIVersion string
}

// Option is a functional option for this provider.
type Option func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithEndpoint sets the resource endpoint or a pre-built completion URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Config) { c.BaseURL = endpoint }
}

// WithAPIVersion overrides the default api-version query value.
func WithAPIVersion(v string) Option {
	return func(c *Config) { c.APIVersion = v }
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

// WithExtraBody adds a custom field to the request body.
func WithExtraBody(key string, value any) Option {
	return func(c *Config) {
		if c.ExtraBody == nil {
			c.ExtraBody = make(map[string]any)
		}
		c.ExtraBody[key] = value
	}
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithDebug enables JSONL debug logging to the specified file path.
func WithDebug(path string) Option {
	return func(c *Config) { c.DebugPath = path }
}

// New creates a Provider for a deployment-style backend.
// It reads AZURE_OPENAI_API_KEY and AZURE_OPENAI_ENDPOINT from environment
// if not explicitly set.
func New(model string, opts ...Option) copilot.Provider {
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	base.ApplyEnvDefaults(&cfg.Config, "AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT")
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout()}
	}
	return &provider{model: model, cfg: cfg, client: client}
}

type provider struct {
	model  string
	cfg    Config
	client *http.Client
}

func (p *provider) Send(ctx context.Context, req copilot.Request) (*copilot.Response, error) {
	body, err := buildRequestBody(req, p.cfg)
	if err != nil {
		return nil, &copilot.ProviderError{Provider: ProviderID, Message: "building request body", Err: err}
	}

	debug, err := base.NewDebugLogger(p.cfg.DebugPath)
	if err != nil {
		return nil, err
	}
	defer debug.Close()
	if debug != nil {
		rec := base.NewDebugRecord("request", string(body))
		rec.Provider = ProviderID
		rec.Model = p.model
		_ = debug.Log(rec)
	}

	url := BuildEndpoint(p.cfg.BaseURL, p.model, p.cfg.APIVersion)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &copilot.ProviderError{Provider: ProviderID, Message: "building request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", p.cfg.APIKey)
	for k, v := range p.cfg.ExtraHeaders {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &copilot.ProviderError{Provider: ProviderID, Message: "request failed", Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &copilot.ProviderError{Provider: ProviderID, Message: "reading response body", Err: err}
	}
	if debug != nil {
		rec := base.NewDebugRecord("response", string(data))
		rec.Provider = ProviderID
		rec.Model = p.model
		rec.Status = httpResp.StatusCode
		_ = debug.Log(rec)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		msg := gjson.GetBytes(data, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return nil, &copilot.ProviderError{Provider: ProviderID, StatusCode: httpResp.StatusCode, Message: msg}
	}

	return parseResponse(data)
}

// BuildEndpoint resolves the final request URL. A pre-built URL containing
// the chat/completions path is respected as-is, gaining an api-version query
// parameter only when it has none. Anything else is treated as a resource
// endpoint and expanded with the deployment path.
func BuildEndpoint(endpoint, deployment, apiVersion string) string {
	e := strings.TrimSpace(endpoint)
	if e != "" && !strings.HasPrefix(e, "http://") && !strings.HasPrefix(e, "https://") {
		e = "https://" + e
	}
	e = strings.TrimRight(e, "/")

	if strings.Contains(e, "/chat/completions") {
		if strings.Contains(e, "api-version=") {
			return e
		}
		sep := "?"
		if strings.Contains(e, "?") {
			sep = "&"
		}
		return e + sep + "api-version=" + apiVersion
	}

	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s", e, deployment, apiVersion)
}

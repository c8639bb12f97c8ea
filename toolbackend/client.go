// Package toolbackend is the HTTP client for the tool-execution backend.
// It is the engine's failure-isolation point: every transport error,
// non-success status and parse failure comes back as an IsError result, so
// one bad tool call can never abort an orchestration run.
package toolbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/grcsuite/copilot"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	executePath        = "/api/tools/execute"
	listPathTmpl       = "/api/tools/servers/%s"
	defaultExecTimeout = 30 * time.Second
)

// Client talks to the tool-execution backend. It implements both
// copilot.Invoker and copilot.ToolLister.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the structured logger. Defaults to a nop logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient builds a backend client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultExecTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type executeRequest struct {
	ToolName           string            `json:"toolName"`
	Arguments          json.RawMessage   `json:"arguments"`
	TenantID           string            `json:"tenantId"`
	AgentID            string            `json:"agentId"`
	EnabledToolServers []string          `json:"enabledToolServers,omitempty"`
	ConnectionContext  map[string]string `json:"connectionContext,omitempty"`
}

// Invoke executes one named tool. The returned result is never accompanied
// by a Go error; failures are captured in IsError/ErrorText.
func (c *Client) Invoke(ctx context.Context, call copilot.ToolCall, routing copilot.RoutingContext) copilot.ToolResult {
	result := copilot.ToolResult{CallID: call.CallID, Name: call.Name}

	args := call.ArgsJSON
	if len(args) == 0 {
		// Empty arguments are valid; the backend's own validation decides.
		args = json.RawMessage(`{}`)
	} else if !json.Valid(args) {
		result.IsError = true
		result.ErrorText = "tool arguments are not valid JSON"
		return result
	}

	body, err := json.Marshal(executeRequest{
		ToolName:           call.Name,
		Arguments:          args,
		TenantID:           routing.TenantID,
		AgentID:            routing.AgentID,
		EnabledToolServers: routing.EnabledToolServers,
		ConnectionContext:  routing.ConnectionContext,
	})
	if err != nil {
		result.IsError = true
		result.ErrorText = fmt.Sprintf("encoding tool request: %v", err)
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+executePath, bytes.NewReader(body))
	if err != nil {
		result.IsError = true
		result.ErrorText = fmt.Sprintf("building tool request: %v", err)
		return result
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("tool backend request failed",
			zap.String("tool", call.Name),
			zap.Error(err))
		result.IsError = true
		result.ErrorText = fmt.Sprintf("tool backend unreachable: %v", err)
		return result
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		result.IsError = true
		result.ErrorText = fmt.Sprintf("reading tool response: %v", err)
		return result
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(data, "error").String()
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		result.IsError = true
		result.ErrorText = fmt.Sprintf("tool backend returned status %d: %s", resp.StatusCode, msg)
		return result
	}

	parsed := gjson.ParseBytes(data)
	if !parsed.Get("success").Exists() {
		result.IsError = true
		result.ErrorText = "tool backend response missing success field"
		return result
	}

	result.SourceServerID = parsed.Get("sourceServerId").String()
	if !parsed.Get("success").Bool() {
		result.IsError = true
		result.ErrorText = parsed.Get("error").String()
		if result.ErrorText == "" {
			result.ErrorText = "tool execution failed"
		}
		return result
	}

	if raw := parsed.Get("result"); raw.Exists() {
		result.Content = json.RawMessage(raw.Raw)
	}
	return result
}

// ListTools fetches the tool definitions exported by one tool server.
// Listing failures are returned as errors; the catalog resolver decides how
// to degrade.
func (c *Client) ListTools(ctx context.Context, serverID string) ([]copilot.ToolDefinition, error) {
	url := c.baseURL + fmt.Sprintf(listPathTmpl, serverID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("toolbackend: building listing request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("toolbackend: listing tools for %s: %w", serverID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("toolbackend: reading listing response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("toolbackend: listing tools for %s: status %d", serverID, resp.StatusCode)
	}

	var defs []copilot.ToolDefinition
	gjson.GetBytes(data, "tools").ForEach(func(_, tool gjson.Result) bool {
		def := copilot.ToolDefinition{
			Name:           tool.Get("name").String(),
			Description:    tool.Get("description").String(),
			SourceServerID: tool.Get("sourceServerId").String(),
		}
		if params := tool.Get("parameters"); params.IsObject() {
			var schema map[string]any
			if err := json.Unmarshal([]byte(params.Raw), &schema); err == nil {
				def.Parameters = schema
			}
		}
		defs = append(defs, def)
		return true
	})
	return defs, nil
}

package azurechat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/grcsuite/copilot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestBuildEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		want     string
	}{
		{
			"resource endpoint",
			"https://myres.openai.azure.com",
			"https://myres.openai.azure.com/openai/deployments/gpt-4o/chat/completions?api-version=2024-02-15-preview",
		},
		{
			"trailing slash trimmed",
			"https://myres.openai.azure.com/",
			"https://myres.openai.azure.com/openai/deployments/gpt-4o/chat/completions?api-version=2024-02-15-preview",
		},
		{
			"scheme added",
			"myres.openai.azure.com",
			"https://myres.openai.azure.com/openai/deployments/gpt-4o/chat/completions?api-version=2024-02-15-preview",
		},
		{
			"pre-built URL without api-version",
			"https://myres.openai.azure.com/openai/deployments/custom/chat/completions",
			"https://myres.openai.azure.com/openai/deployments/custom/chat/completions?api-version=2024-02-15-preview",
		},
		{
			"pre-built URL with api-version kept as-is",
			"https://myres.openai.azure.com/openai/deployments/custom/chat/completions?api-version=2023-05-15",
			"https://myres.openai.azure.com/openai/deployments/custom/chat/completions?api-version=2023-05-15",
		},
		{
			"pre-built URL with other query params",
			"https://myres.openai.azure.com/openai/deployments/custom/chat/completions?foo=bar",
			"https://myres.openai.azure.com/openai/deployments/custom/chat/completions?foo=bar&api-version=2024-02-15-preview",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildEndpoint(tt.endpoint, "gpt-4o", defaultAPIVersion))
		})
	}
}

const completionFixture = `{
	"choices": [{
		"message": {
			"content": "Two applications found.",
			"tool_calls": [{
				"id": "call-1",
				"type": "function",
				"function": {"name": "list_applications", "arguments": "{}"}
			}]
		},
		"finish_reason": "tool_calls"
	}],
	"usage": {"prompt_tokens": 20, "completion_tokens": 10, "total_tokens": 30}
}`

func TestSendRequestShape(t *testing.T) {
	var gotBody []byte
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionFixture))
	}))
	defer srv.Close()

	p := New("gpt-4o",
		WithAPIKey("secret-key"),
		WithEndpoint(srv.URL+"/openai/deployments/gpt-4o/chat/completions"),
		WithTemperature(0.2),
		WithExtraHeader("X-Tenant", "t1"),
		WithExtraBody("data_sources", []string{"archer"}),
	)

	resp, err := p.Send(context.Background(), copilot.Request{
		History: []copilot.Message{
			copilot.SystemMessage{Parts: []copilot.Part{copilot.TextPart{Text: "You are a GRC analyst."}}},
			copilot.UserMessage{Parts: []copilot.Part{copilot.TextPart{Text: "list the applications"}}},
		},
		Tools: []copilot.ToolDefinition{{
			Name:        "list_applications",
			Description: "List Archer applications",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "secret-key", gotHeader.Get("api-key"))
	assert.Empty(t, gotHeader.Get("Authorization"))
	assert.Equal(t, "t1", gotHeader.Get("X-Tenant"))

	body := gjson.ParseBytes(gotBody)
	assert.Equal(t, "system", body.Get("messages.0.role").String())
	assert.Equal(t, "You are a GRC analyst.", body.Get("messages.0.content").String())
	assert.Equal(t, "user", body.Get("messages.1.role").String())
	assert.Equal(t, "list_applications", body.Get("tools.0.function.name").String())
	assert.Equal(t, "object", body.Get("tools.0.function.parameters.type").String())
	assert.InDelta(t, 0.2, body.Get("temperature").Float(), 1e-9)
	assert.Equal(t, "archer", body.Get("data_sources.0").String())

	assert.Equal(t, "Two applications found.", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call-1", resp.ToolCalls[0].CallID)
	assert.Equal(t, "list_applications", resp.ToolCalls[0].Name)
	assert.Equal(t, "tool_calls", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 30, resp.Usage.TotalTokens)
}

func TestSendRoundTripsToolHistory(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"done"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	p := New("gpt-4o", WithAPIKey("k"), WithEndpoint(srv.URL+"/chat/completions"))

	_, err := p.Send(context.Background(), copilot.Request{History: []copilot.Message{
		copilot.AssistantMessage{Parts: []copilot.Part{
			copilot.TextPart{Text: "Checking."},
			copilot.ToolCallPart{CallID: "t1", Name: "search_records", ArgsJSON: json.RawMessage(`{"query":"risks"}`)},
		}},
		copilot.ToolMessage{
			CallID: "t1",
			Name:   "search_records",
			Parts:  []copilot.Part{copilot.TextPart{Text: `{"success":true,"result":[]}`}},
		},
	}})
	require.NoError(t, err)

	body := gjson.ParseBytes(gotBody)
	assert.Equal(t, "assistant", body.Get("messages.0.role").String())
	assert.Equal(t, "Checking.", body.Get("messages.0.content").String())
	assert.Equal(t, "t1", body.Get("messages.0.tool_calls.0.id").String())
	assert.Equal(t, `{"query":"risks"}`, body.Get("messages.0.tool_calls.0.function.arguments").String())
	assert.Equal(t, "tool", body.Get("messages.1.role").String())
	assert.Equal(t, "t1", body.Get("messages.1.tool_call_id").String())
}

func TestSendReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"deployment not found"}}`))
	}))
	defer srv.Close()

	p := New("gpt-4o", WithAPIKey("k"), WithEndpoint(srv.URL+"/chat/completions"))

	_, err := p.Send(context.Background(), copilot.Request{})
	var perr *copilot.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ProviderID, perr.Provider)
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
	assert.Contains(t, perr.Message, "deployment not found")
}

func TestSendRejectsMissingChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	p := New("gpt-4o", WithAPIKey("k"), WithEndpoint(srv.URL+"/chat/completions"))

	_, err := p.Send(context.Background(), copilot.Request{})
	var perr *copilot.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "missing choices")
}

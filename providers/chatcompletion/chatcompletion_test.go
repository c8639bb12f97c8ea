package chatcompletion

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

const completionFixture = `{
	"id": "chatcmpl-1",
	"choices": [{
		"message": {
			"role": "assistant",
			"content": "Looking that up.",
			"tool_calls": [{
				"id": "call-9",
				"type": "function",
				"function": {"name": "get_statistics", "arguments": "{\"scope\":\"summary\"}"}
			}]
		},
		"finish_reason": "tool_calls"
	}],
	"usage": {"prompt_tokens": 40, "completion_tokens": 12, "total_tokens": 52}
}`

func newTestProvider(t *testing.T, handler http.HandlerFunc) copilot.Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("gpt-4o", WithAPIKey("sk-test"), WithBaseURL(srv.URL+"/v1/"))
}

func TestSendRequestShape(t *testing.T) {
	var gotBody []byte
	var gotAuth string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionFixture))
	})

	resp, err := p.Send(context.Background(), copilot.Request{
		History: []copilot.Message{
			copilot.SystemMessage{Parts: []copilot.Part{copilot.TextPart{Text: "You are a GRC analyst."}}},
			copilot.UserMessage{Parts: []copilot.Part{copilot.TextPart{Text: "how many open risks?"}}},
		},
		Tools: []copilot.ToolDefinition{{
			Name:        "get_statistics",
			Description: "Aggregate record statistics",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"scope": map[string]any{"type": "string"}},
			},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test", gotAuth)

	body := gjson.ParseBytes(gotBody)
	assert.Equal(t, "system", body.Get("messages.0.role").String())
	assert.Equal(t, "You are a GRC analyst.", body.Get("messages.0.content").String())
	assert.Equal(t, "user", body.Get("messages.1.role").String())
	assert.Equal(t, "function", body.Get("tools.0.type").String())
	assert.Equal(t, "get_statistics", body.Get("tools.0.function.name").String())
	assert.Equal(t, "object", body.Get("tools.0.function.parameters.type").String())
	assert.Equal(t, "auto", body.Get("tool_choice").String())
	assert.True(t, body.Get("parallel_tool_calls").Bool())

	assert.Equal(t, "Looking that up.", resp.Content)
	assert.Equal(t, "tool_calls", resp.FinishReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call-9", resp.ToolCalls[0].CallID)
	assert.Equal(t, "get_statistics", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"scope":"summary"}`, string(resp.ToolCalls[0].ArgsJSON))
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 52, resp.Usage.TotalTokens)
}

func TestSendRoundTripsToolHistory(t *testing.T) {
	var gotBody []byte
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"done"},"finish_reason":"stop"}]}`))
	})

	_, err := p.Send(context.Background(), copilot.Request{History: []copilot.Message{
		copilot.AssistantMessage{Parts: []copilot.Part{
			copilot.ToolCallPart{CallID: "t1", Name: "search_records", ArgsJSON: json.RawMessage(`{"query":"overdue"}`)},
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
	assert.Equal(t, "t1", body.Get("messages.0.tool_calls.0.id").String())
	assert.Equal(t, `{"query":"overdue"}`, body.Get("messages.0.tool_calls.0.function.arguments").String())
	assert.Equal(t, "tool", body.Get("messages.1.role").String())
	assert.Equal(t, "t1", body.Get("messages.1.tool_call_id").String())
	assert.Equal(t, `{"success":true,"result":[]}`, body.Get("messages.1.content").String())
}

func TestSendWrapsTransportErrors(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	})

	_, err := p.Send(context.Background(), copilot.Request{})
	var perr *copilot.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ProviderID, perr.Provider)
}

package azurechat

import (
	"encoding/json"

	"github.com/grcsuite/copilot"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Wire shapes for the deployment-style chat-completion request. The message
// list passes through verbatim: system, user, assistant and tool roles all
// appear inline.

type wireMessage struct {
	Role       string         `json:"role"`
	Content    *string        `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string      `json:"type"`
	Function wireToolDef `json:"function"`
}

type wireToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type wireRequest struct {
	Messages    []wireMessage `json:"messages"`
	Tools       []wireTool    `json:"tools,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

func buildRequestBody(req copilot.Request, cfg Config) ([]byte, error) {
	wr := wireRequest{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxOutputTokens,
	}

	for _, msg := range req.History {
		wr.Messages = append(wr.Messages, convertMessage(msg))
	}

	for _, def := range req.Tools {
		wr.Tools = append(wr.Tools, wireTool{
			Type: "function",
			Function: wireToolDef{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}

	body, err := json.Marshal(wr)
	if err != nil {
		return nil, err
	}
	for k, v := range cfg.ExtraBody {
		body, err = sjson.SetBytes(body, k, v)
		if err != nil {
			return nil, err
		}
	}
	return body, nil
}

func convertMessage(msg copilot.Message) wireMessage {
	switch m := msg.(type) {
	case copilot.SystemMessage:
		return wireMessage{Role: "system", Content: stringPtr(copilot.TextOf(m.Parts))}
	case copilot.UserMessage:
		return wireMessage{Role: "user", Content: stringPtr(copilot.TextOf(m.Parts))}
	case copilot.AssistantMessage:
		wm := wireMessage{Role: "assistant"}
		if text := copilot.TextOf(m.Parts); text != "" {
			wm.Content = &text
		}
		for _, call := range m.ToolCalls() {
			args := string(call.ArgsJSON)
			if args == "" {
				args = "{}"
			}
			wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
				ID:   call.CallID,
				Type: "function",
				Function: wireFunction{
					Name:      call.Name,
					Arguments: args,
				},
			})
		}
		return wm
	case copilot.ToolMessage:
		return wireMessage{
			Role:       "tool",
			Content:    stringPtr(copilot.TextOf(m.Parts)),
			ToolCallID: m.CallID,
		}
	default:
		return wireMessage{Role: "user", Content: stringPtr("")}
	}
}

func parseResponse(data []byte) (*copilot.Response, error) {
	choice := gjson.GetBytes(data, "choices.0")
	if !choice.Exists() {
		return nil, &copilot.ProviderError{Provider: ProviderID, Message: "response missing choices"}
	}

	resp := &copilot.Response{
		Content:      choice.Get("message.content").String(),
		FinishReason: choice.Get("finish_reason").String(),
	}

	choice.Get("message.tool_calls").ForEach(func(_, tc gjson.Result) bool {
		call := copilot.ToolCall{
			CallID: tc.Get("id").String(),
			Name:   tc.Get("function.name").String(),
		}
		if args := tc.Get("function.arguments").String(); args != "" {
			call.ArgsJSON = json.RawMessage(args)
		}
		resp.ToolCalls = append(resp.ToolCalls, call)
		return true
	})

	if usage := gjson.GetBytes(data, "usage"); usage.Exists() {
		resp.Usage = &copilot.Usage{
			PromptTokens:     int(usage.Get("prompt_tokens").Int()),
			CompletionTokens: int(usage.Get("completion_tokens").Int()),
			TotalTokens:      int(usage.Get("total_tokens").Int()),
		}
	}
	return resp, nil
}

func stringPtr(s string) *string { return &s }

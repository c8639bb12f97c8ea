package chatcompletion

import (
	"github.com/grcsuite/copilot"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
)

// buildParams converts an adapter request to OpenAI chat completion params.
// System, user, assistant and tool roles all pass through inline.
func buildParams(req copilot.Request, model string, cfg Config) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{Model: model}

	for _, msg := range req.History {
		switch m := msg.(type) {
		case copilot.SystemMessage:
			params.Messages = append(params.Messages, openai.SystemMessage(copilot.TextOf(m.Parts)))
		case copilot.UserMessage:
			params.Messages = append(params.Messages, convertUserMessage(m))
		case copilot.AssistantMessage:
			params.Messages = append(params.Messages, convertAssistantMessage(m))
		case copilot.ToolMessage:
			params.Messages = append(params.Messages, convertToolMessage(m))
		}
	}

	for _, def := range req.Tools {
		params.Tools = append(params.Tools, convertToolDefinition(def))
	}
	if len(params.Tools) > 0 {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String("auto"),
		}
		params.ParallelToolCalls = openai.Bool(true)
	}

	if cfg.Temperature != nil {
		params.Temperature = openai.Float(*cfg.Temperature)
	}
	if cfg.MaxOutputTokens != nil {
		params.MaxTokens = openai.Int(int64(*cfg.MaxOutputTokens))
	}
	return params
}

func convertUserMessage(m copilot.UserMessage) openai.ChatCompletionMessageParamUnion {
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(copilot.TextOf(m.Parts)),
	}
	return openai.UserMessage(parts)
}

func convertAssistantMessage(m copilot.AssistantMessage) openai.ChatCompletionMessageParamUnion {
	msg := openai.ChatCompletionAssistantMessageParam{
		Role: "assistant",
	}

	if text := copilot.TextOf(m.Parts); text != "" {
		msg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(text),
		}
	}

	for _, call := range m.ToolCalls() {
		args := string(call.ArgsJSON)
		if args == "" {
			args = "{}"
		}
		msg.ToolCalls = append(msg.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: call.CallID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      call.Name,
					Arguments: args,
				},
			},
		})
	}

	return openai.ChatCompletionMessageParamUnion{OfAssistant: &msg}
}

func convertToolMessage(m copilot.ToolMessage) openai.ChatCompletionMessageParamUnion {
	content := copilot.TextOf(m.Parts)
	if content == "" {
		content = `{"success":true}`
	}
	return openai.ToolMessage(content, m.CallID)
}

func convertToolDefinition(def copilot.ToolDefinition) openai.ChatCompletionToolUnionParam {
	return openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
		Name:        def.Name,
		Description: openai.String(def.Description),
		Parameters:  shared.FunctionParameters(def.Parameters),
	})
}

package copilot

// Token estimation constants. The engine never sees provider tokenizers, so
// usage is derived from message and result counts alone.
const (
	promptTokensPerMessage    = 50
	completionTokensPerResult = 100
	completionCharsPerToken   = 4
)

// EstimateUsage derives approximate token metrics from the final history
// length and result sizes. The numbers are estimates only and must never be
// presented as billing-accurate.
func EstimateUsage(messageCount, toolResultCount int, finalContent string) Usage {
	prompt := messageCount * promptTokensPerMessage
	completion := toolResultCount*completionTokensPerResult + len(finalContent)/completionCharsPerToken
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

package copilot

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Fallback tool names. These are the general-purpose Archer analytics tools
// the selector can reach without any model in the loop.
const (
	FallbackToolListApplications  = "list_applications"
	FallbackToolApplicationFields = "get_application_fields"
	FallbackToolSearchRecords     = "search_records"
	FallbackToolStatistics        = "get_statistics"
	FallbackToolAnalyze           = "analyze_data"
)

var applicationNamePattern = regexp.MustCompile(`(?i)fields?\s+(?:for|of|in)\s+(.+?)[.?!]*\s*$`)

// FallbackSelector is the degraded-mode path used when no model credentials
// are configured. It picks exactly one tool from the query text with a
// fixed-priority keyword scan and invokes it directly.
//
// The priority order is deliberately order-sensitive: the first matching
// rule wins. Do not reorder the rules.
type FallbackSelector struct {
	invoker Invoker
	logger  *zap.Logger
}

// NewFallbackSelector wires the selector to a tool invoker.
func NewFallbackSelector(invoker Invoker, logger *zap.Logger) *FallbackSelector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackSelector{invoker: invoker, logger: logger}
}

// Respond answers one user message with a single tool invocation. Invoker
// failures are reported inline in the returned content, never as an error.
func (s *FallbackSelector) Respond(ctx context.Context, userMessage string, routing RoutingContext) *RunResult {
	tool, args := SelectFallbackTool(userMessage)
	s.logger.Debug("fallback tool selected", zap.String("tool", tool))

	call := ToolCall{
		CallID:   uuid.NewString(),
		Name:     tool,
		ArgsJSON: args,
	}
	result := s.invoker.Invoke(ctx, call, routing)
	if result.CallID == "" {
		result.CallID = call.CallID
	}
	if result.Name == "" {
		result.Name = call.Name
	}

	var content string
	if result.IsError {
		content = fmt.Sprintf(
			"No AI model is configured for this agent, so I queried the %s tool directly, but it failed: %s",
			tool, result.ErrorText)
	} else {
		content = fmt.Sprintf(
			"No AI model is configured for this agent, so here is the direct output of the %s tool:\n\n%s",
			tool, string(result.Content))
	}

	res := &RunResult{
		FinalContent: content,
		ToolsUsed:    []string{tool},
		ToolResults:  []ToolResult{result},
		StepCount:    1,
		Termination:  TerminationNatural,
	}
	res.Usage = EstimateUsage(1, 1, content)
	return res
}

// SelectFallbackTool maps a user message to one tool plus templated
// arguments. First matching keyword wins.
func SelectFallbackTool(userMessage string) (string, json.RawMessage) {
	q := strings.ToLower(userMessage)

	switch {
	case strings.Contains(q, "application") ||
		(strings.Contains(q, "list") && strings.Contains(q, "archer")):
		return FallbackToolListApplications, mustArgs(map[string]any{})

	case strings.Contains(q, "field"):
		args := map[string]any{}
		if name := extractApplicationName(userMessage); name != "" {
			args["applicationName"] = name
		}
		return FallbackToolApplicationFields, mustArgs(args)

	case strings.Contains(q, "search") || strings.Contains(q, "record"):
		return FallbackToolSearchRecords, mustArgs(map[string]any{"query": userMessage})

	case strings.Contains(q, "stat") || strings.Contains(q, "summary"):
		return FallbackToolStatistics, mustArgs(map[string]any{"scope": "summary"})

	default:
		return FallbackToolAnalyze, mustArgs(map[string]any{"question": userMessage})
	}
}

// extractApplicationName pulls the application name out of phrasings like
// "show fields for Risk Register".
func extractApplicationName(userMessage string) string {
	m := applicationNamePattern.FindStringSubmatch(userMessage)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func mustArgs(args map[string]any) json.RawMessage {
	data, err := json.Marshal(args)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}

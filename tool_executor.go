package copilot

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// executeToolCalls runs every tool call of one step and returns results
// indexed in request order. Execution is sequential by default; with
// parallel enabled, calls run concurrently and results are buffered so the
// ordering guarantee holds either way.
func (o *Orchestrator) executeToolCalls(ctx context.Context, calls []ToolCall, routing RoutingContext, log *zap.Logger) []ToolResult {
	results := make([]ToolResult, len(calls))

	if !o.parallel {
		for i, call := range calls {
			results[i] = o.invokeOne(ctx, call, routing, log)
		}
		return results
	}

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Go(func() {
			results[i] = o.invokeOne(ctx, call, routing, log)
		})
	}
	wg.Wait()
	return results
}

func (o *Orchestrator) invokeOne(ctx context.Context, call ToolCall, routing RoutingContext, log *zap.Logger) ToolResult {
	if ctx.Err() != nil {
		return interruptedToolResult(call)
	}

	res := o.invoker.Invoke(ctx, call, routing)
	if res.CallID == "" {
		res.CallID = call.CallID
	}
	if res.Name == "" {
		res.Name = call.Name
	}

	if res.IsError {
		log.Warn("tool call failed",
			zap.String("tool", call.Name),
			zap.String("call_id", call.CallID),
			zap.String("error", res.ErrorText))
	} else {
		log.Debug("tool call succeeded",
			zap.String("tool", call.Name),
			zap.String("call_id", call.CallID))
	}
	return res
}

func interruptedToolResult(call ToolCall) ToolResult {
	return ToolResult{
		CallID:    call.CallID,
		Name:      call.Name,
		IsError:   true,
		ErrorText: "tool call interrupted before execution",
	}
}

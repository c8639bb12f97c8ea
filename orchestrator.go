package copilot

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxSteps is the hard step budget. It is the sole guarantee that a
// run terminates when a provider keeps requesting tools.
const DefaultMaxSteps = 8

// Termination classifies how an orchestration run ended.
type Termination string

const (
	TerminationNatural       Termination = "natural"
	TerminationMaxSteps      Termination = "max-steps"
	TerminationProviderError Termination = "provider-error"
)

const (
	emptyContentFallback = "The model returned no further commentary for this request."
	maxStepsFinalContent = "I completed the analysis steps within the allowed budget; additional steps may be needed to fully answer the question."
)

// RunRequest is one end-to-end orchestration input for a single user message.
type RunRequest struct {
	SystemPrompt string
	PriorHistory []Message
	UserMessage  string
	Catalog      []ToolDefinition
	Routing      RoutingContext
}

// RunResult is produced once per run and immutable after construction.
// Callers should treat TerminationProviderError as a hard failure and
// max-steps or embedded tool failures as soft degradation.
type RunResult struct {
	FinalContent string
	ToolsUsed    []string
	ToolResults  []ToolResult
	StepCount    int
	Termination  Termination
	Usage        Usage
	History      []Message
}

// Orchestrator drives repeated provider calls interleaved with tool
// invocations, bounded by the step budget. Each run owns its own history;
// many runs may execute concurrently on one Orchestrator.
type Orchestrator struct {
	provider Provider
	invoker  Invoker
	maxSteps int
	parallel bool
	logger   *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxSteps overrides the step budget. Values below 1 are ignored.
func WithMaxSteps(n int) Option {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.maxSteps = n
		}
	}
}

// WithParallelTools executes the tool calls of one step concurrently.
// Results are still appended to history in request order.
func WithParallelTools() Option {
	return func(o *Orchestrator) { o.parallel = true }
}

// WithLogger sets the structured logger. Defaults to a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOrchestrator wires a provider and a tool invoker into a loop.
func NewOrchestrator(provider Provider, invoker Invoker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider: provider,
		invoker:  invoker,
		maxSteps: DefaultMaxSteps,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the loop for one user message.
//
// A provider fault is the one error that is not swallowed: Run returns the
// partial result with TerminationProviderError together with the error.
// Tool failures are captured as IsError results and the loop continues.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if o.provider == nil {
		return nil, ErrNoProvider
	}
	if o.invoker == nil {
		return nil, ErrNoInvoker
	}

	log := o.logger.With(zap.String("run_id", uuid.NewString()))

	now := time.Now().UnixMilli()
	history := make([]Message, 0, len(req.PriorHistory)+2)
	if req.SystemPrompt != "" {
		history = append(history, SystemMessage{
			Parts:     []Part{TextPart{Text: req.SystemPrompt}},
			Timestamp: now,
		})
	}
	history = append(history, req.PriorHistory...)
	history = append(history, UserMessage{
		Parts:     []Part{TextPart{Text: req.UserMessage}},
		Timestamp: now,
	})

	res := &RunResult{}
	for step := 1; ; step++ {
		resp, err := o.provider.Send(ctx, Request{History: history, Tools: req.Catalog})
		if err != nil {
			log.Error("provider call failed",
				zap.Int("step", step),
				zap.Error(err))
			res.StepCount = step
			res.Termination = TerminationProviderError
			res.History = history
			res.Usage = EstimateUsage(len(history), len(res.ToolResults), res.FinalContent)
			return res, err
		}

		assistant := assistantFromResponse(resp)
		history = append(history, assistant)

		if len(resp.ToolCalls) == 0 {
			res.FinalContent = resp.Content
			if res.FinalContent == "" {
				res.FinalContent = emptyContentFallback
			}
			res.Termination = TerminationNatural
			res.StepCount = step
			log.Debug("run finished naturally", zap.Int("steps", step))
			break
		}

		// Commentary alongside tool calls is kept in history but never
		// short-circuits execution.
		results := o.executeToolCalls(ctx, resp.ToolCalls, req.Routing, log)
		for i, r := range results {
			history = append(history, toolMessageFromResult(r))
			res.ToolsUsed = append(res.ToolsUsed, resp.ToolCalls[i].Name)
			res.ToolResults = append(res.ToolResults, r)
		}

		if step >= o.maxSteps {
			res.Termination = TerminationMaxSteps
			res.FinalContent = maxStepsFinalContent
			res.StepCount = step
			log.Warn("run hit step budget", zap.Int("max_steps", o.maxSteps))
			break
		}
	}

	res.History = history
	res.Usage = EstimateUsage(len(history), len(res.ToolResults), res.FinalContent)
	return res, nil
}

func assistantFromResponse(resp *Response) AssistantMessage {
	msg := AssistantMessage{
		FinishReason: resp.FinishReason,
		Timestamp:    time.Now().UnixMilli(),
	}
	if resp.Content != "" {
		msg.Parts = append(msg.Parts, TextPart{Text: resp.Content})
	}
	for _, call := range resp.ToolCalls {
		msg.Parts = append(msg.Parts, ToolCallPart(call))
	}
	return msg
}

func toolMessageFromResult(r ToolResult) ToolMessage {
	return ToolMessage{
		CallID:    r.CallID,
		Name:      r.Name,
		IsError:   r.IsError,
		Parts:     []Part{TextPart{Text: string(r.historyPayload())}},
		Timestamp: time.Now().UnixMilli(),
	}
}

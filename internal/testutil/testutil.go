// Package testutil provides shared stubs for orchestration tests.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/grcsuite/copilot"
)

// Turn is one scripted provider response.
type Turn struct {
	Response *copilot.Response
	Err      error
}

// TextTurn scripts a plain content response with no tool calls.
func TextTurn(content string) Turn {
	return Turn{Response: &copilot.Response{Content: content, FinishReason: "stop"}}
}

// ToolCallTurn scripts a response requesting the given tool calls, with
// optional commentary content.
func ToolCallTurn(content string, calls ...copilot.ToolCall) Turn {
	return Turn{Response: &copilot.Response{
		Content:      content,
		ToolCalls:    calls,
		FinishReason: "tool_calls",
	}}
}

// ErrorTurn scripts a provider fault.
func ErrorTurn(err error) Turn {
	return Turn{Err: err}
}

// Call builds a ToolCall with JSON-object arguments.
func Call(id, name, argsJSON string) copilot.ToolCall {
	call := copilot.ToolCall{CallID: id, Name: name}
	if argsJSON != "" {
		call.ArgsJSON = json.RawMessage(argsJSON)
	}
	return call
}

// ScriptedProvider plays back scripted turns and records every request it
// receives. When the script runs out it keeps answering with a terminal
// text response so step-budget tests can over-run the script.
type ScriptedProvider struct {
	Turns []Turn

	mu       sync.Mutex
	requests []copilot.Request
	next     int
}

func (p *ScriptedProvider) Send(_ context.Context, req copilot.Request) (*copilot.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	if p.next >= len(p.Turns) {
		return &copilot.Response{Content: "no more scripted turns", FinishReason: "stop"}, nil
	}
	turn := p.Turns[p.next]
	p.next++
	if turn.Err != nil {
		return nil, turn.Err
	}
	return turn.Response, nil
}

// Requests returns a copy of every request the provider has seen.
func (p *ScriptedProvider) Requests() []copilot.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]copilot.Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// RepeatingToolProvider always requests one tool call, never terminating on
// its own. Use it to exercise the step budget.
type RepeatingToolProvider struct {
	ToolName string

	mu    sync.Mutex
	calls int
}

func (p *RepeatingToolProvider) Send(_ context.Context, _ copilot.Request) (*copilot.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return &copilot.Response{
		ToolCalls: []copilot.ToolCall{{
			CallID:   fmt.Sprintf("call-%d", p.calls),
			Name:     p.ToolName,
			ArgsJSON: json.RawMessage(`{}`),
		}},
		FinishReason: "tool_calls",
	}, nil
}

// Calls reports how many times the provider was invoked.
func (p *RepeatingToolProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// SuccessResult builds a successful ToolResult carrying a JSON string value.
func SuccessResult(content string) copilot.ToolResult {
	data, _ := json.Marshal(content)
	return copilot.ToolResult{Content: data}
}

// ErrorResult builds a failed ToolResult.
func ErrorResult(msg string) copilot.ToolResult {
	return copilot.ToolResult{IsError: true, ErrorText: msg}
}

// StubInvoker answers invocations from a per-tool result table and records
// every call in order.
type StubInvoker struct {
	Results map[string]copilot.ToolResult

	mu       sync.Mutex
	calls    []copilot.ToolCall
	routings []copilot.RoutingContext
}

func (s *StubInvoker) Invoke(_ context.Context, call copilot.ToolCall, routing copilot.RoutingContext) copilot.ToolResult {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.routings = append(s.routings, routing)
	s.mu.Unlock()

	res, ok := s.Results[call.Name]
	if !ok {
		res = SuccessResult("ok")
	}
	res.CallID = call.CallID
	res.Name = call.Name
	return res
}

// Calls returns a copy of the recorded invocations in order.
func (s *StubInvoker) Calls() []copilot.ToolCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]copilot.ToolCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// Routings returns a copy of the recorded routing contexts in order.
func (s *StubInvoker) Routings() []copilot.RoutingContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]copilot.RoutingContext, len(s.routings))
	copy(out, s.routings)
	return out
}

// StubLister serves static tool listings per server, with optional per-server
// failures.
type StubLister struct {
	Servers map[string][]copilot.ToolDefinition
	Errs    map[string]error
}

func (l StubLister) ListTools(_ context.Context, serverID string) ([]copilot.ToolDefinition, error) {
	if err, ok := l.Errs[serverID]; ok {
		return nil, err
	}
	return l.Servers[serverID], nil
}

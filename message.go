package copilot

import (
	"encoding/json"
	"fmt"
)

// Role is the speaker role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is the canonical conversation unit. History is append-only for the
// duration of one orchestration run; the orchestrator is its sole owner.
type Message interface {
	role() Role
}

// SystemMessage carries the agent's system prompt. Deployment-style and
// bearer-token providers pass it through inline; the divergent provider
// extracts it into a top-level request field.
type SystemMessage struct {
	Parts     []Part `json:"parts,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func (SystemMessage) role() Role { return RoleSystem }

func (m SystemMessage) MarshalJSON() ([]byte, error) {
	type alias SystemMessage
	return json.Marshal(struct {
		Role Role `json:"role"`
		alias
	}{RoleSystem, alias(m)})
}

// UserMessage represents a user input message.
type UserMessage struct {
	Parts     []Part `json:"parts,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func (UserMessage) role() Role { return RoleUser }

func (m UserMessage) MarshalJSON() ([]byte, error) {
	type alias UserMessage
	return json.Marshal(struct {
		Role Role `json:"role"`
		alias
	}{RoleUser, alias(m)})
}

// AssistantMessage represents a model response. It is the only message kind
// that may carry ToolCallPart entries.
type AssistantMessage struct {
	Parts        []Part `json:"parts,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}

func (AssistantMessage) role() Role { return RoleAssistant }

func (m AssistantMessage) MarshalJSON() ([]byte, error) {
	type alias AssistantMessage
	return json.Marshal(struct {
		Role Role `json:"role"`
		alias
	}{RoleAssistant, alias(m)})
}

// ToolCalls returns the tool-call parts of the message in emission order.
func (m AssistantMessage) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, part := range m.Parts {
		tc, ok := part.(ToolCallPart)
		if !ok {
			continue
		}
		calls = append(calls, ToolCall(tc))
	}
	return calls
}

// ToolMessage represents a tool execution result. It is the only message kind
// that carries a correlation CallID and tool name.
type ToolMessage struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	IsError   bool   `json:"is_error,omitempty"`
	Parts     []Part `json:"parts,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func (ToolMessage) role() Role { return RoleTool }

func (m ToolMessage) MarshalJSON() ([]byte, error) {
	type alias ToolMessage
	return json.Marshal(struct {
		Role Role `json:"role"`
		alias
	}{RoleTool, alias(m)})
}

func (m *SystemMessage) UnmarshalJSON(data []byte) error {
	type alias SystemMessage
	aux := &struct {
		Parts []json.RawMessage `json:"parts,omitempty"`
		*alias
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	parts, err := unmarshalParts(aux.Parts)
	if err != nil {
		return err
	}
	m.Parts = parts
	return nil
}

func (m *UserMessage) UnmarshalJSON(data []byte) error {
	type alias UserMessage
	aux := &struct {
		Parts []json.RawMessage `json:"parts,omitempty"`
		*alias
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	parts, err := unmarshalParts(aux.Parts)
	if err != nil {
		return err
	}
	m.Parts = parts
	return nil
}

func (m *AssistantMessage) UnmarshalJSON(data []byte) error {
	type alias AssistantMessage
	aux := &struct {
		Parts []json.RawMessage `json:"parts,omitempty"`
		*alias
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	parts, err := unmarshalParts(aux.Parts)
	if err != nil {
		return err
	}
	m.Parts = parts
	return nil
}

func (m *ToolMessage) UnmarshalJSON(data []byte) error {
	type alias ToolMessage
	aux := &struct {
		Parts []json.RawMessage `json:"parts,omitempty"`
		*alias
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	parts, err := unmarshalParts(aux.Parts)
	if err != nil {
		return err
	}
	m.Parts = parts
	return nil
}

// UnmarshalMessage decodes a JSON object into a concrete Message type.
func UnmarshalMessage(data []byte) (Message, error) {
	var raw struct {
		Role Role `json:"role"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	switch raw.Role {
	case RoleSystem:
		var m SystemMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case RoleUser:
		var m UserMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case RoleAssistant:
		var m AssistantMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case RoleTool:
		var m ToolMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown role: %s", raw.Role)
	}
}

// TextOf concatenates the text parts of a part list.
func TextOf(parts []Part) string {
	var out string
	for _, part := range parts {
		if p, ok := part.(TextPart); ok {
			out += p.Text
		}
	}
	return out
}

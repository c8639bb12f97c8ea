package copilot

import (
	"encoding/json"
	"fmt"
)

// PartType describes the kind of content in a part.
type PartType string

const (
	PartText     PartType = "text"
	PartToolCall PartType = "tool_call"
)

// Part is a structured message fragment.
type Part interface {
	partType() PartType
}

// TextPart represents text content.
type TextPart struct {
	Text string `json:"text"`
}

func (TextPart) partType() PartType { return PartText }

func (p TextPart) MarshalJSON() ([]byte, error) {
	type alias TextPart
	return json.Marshal(struct {
		Type PartType `json:"type"`
		alias
	}{PartText, alias(p)})
}

// ToolCallPart represents a backend-issued tool call request embedded in an
// assistant message.
type ToolCallPart struct {
	CallID   string          `json:"call_id"`
	Name     string          `json:"name"`
	ArgsJSON json.RawMessage `json:"args_json,omitempty"`
}

func (ToolCallPart) partType() PartType { return PartToolCall }

func (p ToolCallPart) MarshalJSON() ([]byte, error) {
	type alias ToolCallPart
	return json.Marshal(struct {
		Type PartType `json:"type"`
		alias
	}{PartToolCall, alias(p)})
}

// UnmarshalPart decodes a JSON object into a concrete Part type.
func UnmarshalPart(data []byte) (Part, error) {
	var raw struct {
		Type PartType `json:"type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	switch raw.Type {
	case PartText:
		var p TextPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case PartToolCall:
		var p ToolCallPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown part type: %s", raw.Type)
	}
}

func unmarshalParts(rawParts []json.RawMessage) ([]Part, error) {
	parts := make([]Part, 0, len(rawParts))
	for _, raw := range rawParts {
		p, err := UnmarshalPart(raw)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, nil
}

package core

import "encoding/json"

// DefaultParamsKey is the field name most providers expect for the tool
// parameter block. Anthropic overrides it with "input_schema".
const DefaultParamsKey = "parameters"

// ParameterSpec describes one tool parameter.
type ParameterSpec struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// ParameterSchema is the JSON-schema object block of a tool descriptor.
// Required preserves the callable's declaration order.
type ParameterSchema struct {
	Type       string                   `json:"type"`
	Properties map[string]ParameterSpec `json:"properties"`
	Required   []string                 `json:"required"`
}

// ToolDescriptor is the provider-neutral schema of one local callable.
// ParamsKey selects the wire field name carrying the parameter block.
type ToolDescriptor struct {
	Name        string
	Description string
	ParamsKey   string
	Schema      ParameterSchema
}

// MarshalJSON emits the wire shape
// {name, description, <parameters-or-override-key>: {...}}.
func (d ToolDescriptor) MarshalJSON() ([]byte, error) {
	key := d.ParamsKey
	if key == "" {
		key = DefaultParamsKey
	}
	out := map[string]any{
		"name":        d.Name,
		"description": d.Description,
		key:           d.Schema,
	}
	return json.Marshal(out)
}

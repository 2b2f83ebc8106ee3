package tools

import "github.com/YusakuNo1/AiFoundry/internal/core"

// mapParamType translates declared parameter types to JSON-schema type
// names. Unknown types pass through unchanged.
func mapParamType(t string) string {
	switch t {
	case "str", "string":
		return "string"
	case "int":
		return "integer"
	case "bool":
		return "boolean"
	default:
		return t
	}
}

// BuildDescriptor turns a callable into the provider-neutral tool schema.
// paramsKey overrides the wire field carrying the parameter block; ""
// keeps the default. Required lists parameters without defaults, in
// declaration order.
func BuildDescriptor(c *Callable, paramsKey string) core.ToolDescriptor {
	props := make(map[string]core.ParameterSpec, len(c.Params))
	required := []string{}
	for _, p := range c.Params {
		props[p.Name] = core.ParameterSpec{
			Type:        mapParamType(p.Type),
			Description: p.Description,
		}
		if p.Default == nil {
			required = append(required, p.Name)
		}
	}
	return core.ToolDescriptor{
		Name:        c.Name,
		Description: c.Description,
		ParamsKey:   paramsKey,
		Schema: core.ParameterSchema{
			Type:       "object",
			Properties: props,
			Required:   required,
		},
	}
}

// BuildDescriptors maps BuildDescriptor over a callable set.
func BuildDescriptors(callables []*Callable, paramsKey string) []core.ToolDescriptor {
	out := make([]core.ToolDescriptor, 0, len(callables))
	for _, c := range callables {
		out = append(out, BuildDescriptor(c, paramsKey))
	}
	return out
}

// Package tools hosts the local callable registry, the provider-neutral
// schema builder and the tool call dispatcher.
package tools

import "context"

// Param declares one callable parameter. A nil Default marks the parameter
// as required.
type Param struct {
	Name        string
	Type        string
	Description string
	Default     any
}

// Callable is one locally executable function a model may call.
type Callable struct {
	Name        string
	Description string
	Params      []Param
	Fn          func(ctx context.Context, args map[string]any) (string, error)
}

// Call executes the callable, filling declared defaults for absent arguments.
func (c *Callable) Call(ctx context.Context, args map[string]any) (string, error) {
	merged := make(map[string]any, len(c.Params))
	for _, p := range c.Params {
		if p.Default != nil {
			merged[p.Name] = p.Default
		}
	}
	for k, v := range args {
		merged[k] = v
	}
	return c.Fn(ctx, merged)
}

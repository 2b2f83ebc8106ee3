package tools

import (
	"context"
	"encoding/json"

	"github.com/YusakuNo1/AiFoundry/internal/core"
)

// Dispatch inspects a normalized model response for a tool decision and
// executes the first requested call against the bound callables.
//
// Providers surface tool decisions in two shapes: a structured tool call
// list with parsed arguments, or a legacy function_call with the arguments
// as a JSON string. The list shape wins when both are present. Only the
// first call is executed; any further calls are ignored.
//
// Returns dispatched=false when the response carries no tool decision. A
// call naming no bound callable fails with a tool-not-found error.
func Dispatch(ctx context.Context, bound []*Callable, resp *core.ModelResponse) (result string, dispatched bool, err error) {
	if len(resp.ToolCalls) > 0 {
		call := resp.ToolCalls[0]
		c := match(bound, call.Name)
		if c == nil {
			return "", false, core.NewToolNotFoundError(call.Name)
		}
		result, err = c.Call(ctx, call.Args)
		return result, true, err
	}

	if resp.FunctionCall != nil {
		c := match(bound, resp.FunctionCall.Name)
		if c == nil {
			return "", false, core.NewToolNotFoundError(resp.FunctionCall.Name)
		}
		args := map[string]any{}
		if raw := resp.FunctionCall.Arguments; raw != "" {
			if uerr := json.Unmarshal([]byte(raw), &args); uerr != nil {
				return "", false, core.NewValidationError("malformed function call arguments", uerr)
			}
		}
		result, err = c.Call(ctx, args)
		return result, true, err
	}

	return "", false, nil
}

func match(bound []*Callable, name string) *Callable {
	for _, c := range bound {
		if c.Name == name {
			return c
		}
	}
	return nil
}

package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/YusakuNo1/AiFoundry/internal/core"
)

// FunctionURIPrefix is the grammar prefix of local function identifiers:
// aif://function/local/{module path}/{function name}.
const FunctionURIPrefix = "aif://function/local/"

// ParseFunctionURI splits a local function URI into its dotted module path
// and function name. The last path segment is the name; the preceding
// segments form the module path.
func ParseFunctionURI(uri string) (modulePath, name string, err error) {
	rest, ok := strings.CutPrefix(uri, FunctionURIPrefix)
	if !ok || rest == "" {
		return "", "", core.NewMalformedURIError(uri)
	}
	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) < 2 {
		return "", "", core.NewMalformedURIError(uri)
	}
	name = segments[len(segments)-1]
	modulePath = strings.Join(segments[:len(segments)-1], ".")
	return modulePath, name, nil
}

// Registry maps dotted function identifiers to local callables. The
// zero-argument constructor seeds the built-in callables.
type Registry struct {
	mu       sync.RWMutex
	byDotted map[string]*Callable
}

// NewRegistry returns a registry pre-populated with the built-ins.
func NewRegistry() *Registry {
	r := &Registry{byDotted: map[string]*Callable{}}
	r.Register("builtin.weather", currentWeatherCallable())
	return r
}

// Register adds a callable under the given dotted module path.
func (r *Registry) Register(modulePath string, c *Callable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byDotted[modulePath+"."+c.Name] = c
}

// Resolve looks up the callable named by a local function URI.
func (r *Registry) Resolve(uri string) (*Callable, error) {
	modulePath, name, err := ParseFunctionURI(uri)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byDotted[modulePath+"."+name]
	if !ok {
		return nil, core.NewFunctionNotFoundError(uri)
	}
	return c, nil
}

// currentWeatherCallable is the built-in demonstration callable. The unit
// parameter defaults to celsius and is therefore optional in the schema.
func currentWeatherCallable() *Callable {
	return &Callable{
		Name:        "get_current_weather",
		Description: "Get the current weather in a given location",
		Params: []Param{
			{Name: "location", Type: "str", Description: "The city and state, e.g. San Francisco, CA"},
			{Name: "unit", Type: "str", Description: "Temperature unit", Default: "celsius"},
		},
		Fn: func(_ context.Context, args map[string]any) (string, error) {
			location, _ := args["location"].(string)
			unit, _ := args["unit"].(string)
			return fmt.Sprintf("The current weather in %s is 72 degrees %s", location, unit), nil
		},
	}
}

package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YusakuNo1/AiFoundry/internal/core"
)

func TestParseFunctionURI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantModule string
		wantName   string
		wantErr    bool
	}{
		{
			name:       "NestedModulePath",
			uri:        "aif://function/local/tools/weather/get_current_weather",
			wantModule: "tools.weather",
			wantName:   "get_current_weather",
		},
		{
			name:       "SingleSegmentModule",
			uri:        "aif://function/local/builtin/lookup",
			wantModule: "builtin",
			wantName:   "lookup",
		},
		{
			name:    "MissingName",
			uri:     "aif://function/local/builtin",
			wantErr: true,
		},
		{
			name:    "WrongPrefix",
			uri:     "aif://agents/abc",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			module, name, err := ParseFunctionURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, core.IsErrorType(err, core.ErrorTypeMalformedURI))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModule, module)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()

	t.Run("Builtin", func(t *testing.T) {
		c, err := r.Resolve("aif://function/local/builtin/weather/get_current_weather")
		require.NoError(t, err)
		assert.Equal(t, "get_current_weather", c.Name)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := r.Resolve("aif://function/local/builtin/weather/no_such_function")
		assert.True(t, core.IsErrorType(err, core.ErrorTypeFunctionNotFound))
	})
}

func TestBuildDescriptor(t *testing.T) {
	c := &Callable{
		Name:        "lookup_order",
		Description: "Look up an order",
		Params: []Param{
			{Name: "order_id", Type: "str", Description: "Order identifier"},
			{Name: "count", Type: "int"},
			{Name: "verbose", Type: "bool", Default: false},
			{Name: "shape", Type: "vector"},
		},
	}

	t.Run("DefaultKey", func(t *testing.T) {
		d := BuildDescriptor(c, "")
		assert.Equal(t, "lookup_order", d.Name)
		assert.Equal(t, "string", d.Schema.Properties["order_id"].Type)
		assert.Equal(t, "integer", d.Schema.Properties["count"].Type)
		assert.Equal(t, "boolean", d.Schema.Properties["verbose"].Type)
		assert.Equal(t, "vector", d.Schema.Properties["shape"].Type, "unknown types pass through")
		assert.Equal(t, []string{"order_id", "count", "shape"}, d.Schema.Required,
			"defaulted parameters are optional, order preserved")
	})

	t.Run("OverrideKey", func(t *testing.T) {
		d := BuildDescriptor(c, "input_schema")
		raw, err := d.MarshalJSON()
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"input_schema"`)
		assert.NotContains(t, string(raw), `"parameters"`)
	})
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	weather := currentWeatherCallable()

	t.Run("StructuredToolCall", func(t *testing.T) {
		resp := &core.ModelResponse{
			ToolCalls: []core.ToolCall{
				{Name: "get_current_weather", Args: map[string]any{"location": "Boston, MA"}},
				{Name: "get_current_weather", Args: map[string]any{"location": "Seattle, WA"}},
			},
		}
		result, dispatched, err := Dispatch(ctx, []*Callable{weather}, resp)
		require.NoError(t, err)
		assert.True(t, dispatched)
		assert.Equal(t, "The current weather in Boston, MA is 72 degrees celsius", result,
			"first call only, default unit filled")
	})

	t.Run("LegacyFunctionCall", func(t *testing.T) {
		resp := &core.ModelResponse{
			FunctionCall: &core.LegacyFunctionCall{
				Name:      "get_current_weather",
				Arguments: `{"location":"Austin, TX","unit":"fahrenheit"}`,
			},
		}
		result, dispatched, err := Dispatch(ctx, []*Callable{weather}, resp)
		require.NoError(t, err)
		assert.True(t, dispatched)
		assert.Equal(t, "The current weather in Austin, TX is 72 degrees fahrenheit", result)
	})

	t.Run("NoDecision", func(t *testing.T) {
		result, dispatched, err := Dispatch(ctx, []*Callable{weather}, &core.ModelResponse{Parts: []string{"hi"}})
		require.NoError(t, err)
		assert.False(t, dispatched)
		assert.Empty(t, result)
	})

	t.Run("UnknownToolName", func(t *testing.T) {
		resp := &core.ModelResponse{
			ToolCalls: []core.ToolCall{{Name: "launch_rocket", Args: map[string]any{}}},
		}
		_, _, err := Dispatch(ctx, []*Callable{weather}, resp)
		assert.True(t, core.IsErrorType(err, core.ErrorTypeToolNotFound))
	})

	t.Run("MalformedLegacyArguments", func(t *testing.T) {
		resp := &core.ModelResponse{
			FunctionCall: &core.LegacyFunctionCall{Name: "get_current_weather", Arguments: "{not json"},
		}
		_, _, err := Dispatch(ctx, []*Callable{weather}, resp)
		assert.True(t, core.IsErrorType(err, core.ErrorTypeValidation))
	})
}

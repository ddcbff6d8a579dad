package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/scrapegate/scrapegate/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func echoTool(name string) *domain.ToolDescriptor {
	return &domain.ToolDescriptor{
		Name:        name,
		Description: "echoes its input",
		Input: objectSchema([]string{"value"}, map[string]*openapi3.Schema{
			"value": stringProp("Value to echo."),
			"count": intProp("Repetitions.", 1),
		}),
		Handler: domain.HandlerFunc(func(_ context.Context, call domain.ToolCall) (map[string]any, error) {
			return map[string]any{"value": call.Input["value"], "count": call.Input["count"]}, nil
		}),
	}
}

func TestRegistry_RegisterRules(t *testing.T) {
	reg := NewRegistry(testLogger(), nil)

	require.NoError(t, reg.Register(echoTool("echo")))
	assert.ErrorIs(t, reg.Register(echoTool("echo")), ErrDuplicateTool)

	assert.Error(t, reg.Register(&domain.ToolDescriptor{Name: ""}))
	assert.Error(t, reg.Register(&domain.ToolDescriptor{Name: "nohandler"}))
}

func TestRegistry_ListKeepsRegistrationOrder(t *testing.T) {
	reg := NewRegistry(testLogger(), nil)
	for _, name := range []string{"c.tool", "a.tool", "b.tool"} {
		require.NoError(t, reg.Register(echoTool(name)))
	}

	var names []string
	for _, d := range reg.List() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"c.tool", "a.tool", "b.tool"}, names)
}

func TestDispatch_UnknownTool(t *testing.T) {
	reg := NewRegistry(testLogger(), nil)

	result := reg.Dispatch(context.Background(), domain.ToolCall{Name: "nope"})
	assert.False(t, result.OK)
	require.NotNil(t, result.Error)
	assert.Equal(t, domain.KindNotFound, result.Error.Kind)
	assert.NotEmpty(t, result.RequestID)
}

func TestDispatch_ValidInput(t *testing.T) {
	reg := NewRegistry(testLogger(), nil)
	require.NoError(t, reg.Register(echoTool("echo")))

	result := reg.Dispatch(context.Background(), domain.ToolCall{
		Name:  "echo",
		Input: map[string]any{"value": "hi"},
	})
	require.True(t, result.OK)
	assert.Equal(t, "hi", result.Output["value"])
	// Unset properties get their schema defaults before the handler runs.
	assert.Equal(t, 1, result.Output["count"])
	assert.Nil(t, result.Error)
}

func TestDispatch_SchemaViolations(t *testing.T) {
	reg := NewRegistry(testLogger(), nil)
	require.NoError(t, reg.Register(echoTool("echo")))

	// Missing required property.
	result := reg.Dispatch(context.Background(), domain.ToolCall{Name: "echo", Input: map[string]any{}})
	require.False(t, result.OK)
	assert.Equal(t, domain.KindValidation, result.Error.Kind)

	// Wrong type.
	result = reg.Dispatch(context.Background(), domain.ToolCall{
		Name:  "echo",
		Input: map[string]any{"value": 42},
	})
	require.False(t, result.OK)
	assert.Equal(t, domain.KindValidation, result.Error.Kind)
}

func TestDispatch_EnumViolation(t *testing.T) {
	reg := NewRegistry(testLogger(), nil)
	require.NoError(t, reg.Register(&domain.ToolDescriptor{
		Name: "fmt",
		Input: objectSchema(nil, map[string]*openapi3.Schema{
			"format": enumProp("Output format.", "markdown", "html"),
		}),
		Handler: domain.HandlerFunc(func(_ context.Context, call domain.ToolCall) (map[string]any, error) {
			return map[string]any{}, nil
		}),
	}))

	result := reg.Dispatch(context.Background(), domain.ToolCall{
		Name:  "fmt",
		Input: map[string]any{"format": "pdf"},
	})
	require.False(t, result.OK)
	assert.Equal(t, domain.KindValidation, result.Error.Kind)
}

func TestDispatch_HandlerErrorsAreClassified(t *testing.T) {
	reg := NewRegistry(testLogger(), nil)
	require.NoError(t, reg.Register(&domain.ToolDescriptor{
		Name: "fail.classified",
		Handler: domain.HandlerFunc(func(_ context.Context, _ domain.ToolCall) (map[string]any, error) {
			return nil, domain.NewError(domain.KindRateLimited, "slow down", nil)
		}),
	}))
	require.NoError(t, reg.Register(&domain.ToolDescriptor{
		Name: "fail.plain",
		Handler: domain.HandlerFunc(func(_ context.Context, _ domain.ToolCall) (map[string]any, error) {
			return nil, fmt.Errorf("something broke")
		}),
	}))

	result := reg.Dispatch(context.Background(), domain.ToolCall{Name: "fail.classified"})
	require.False(t, result.OK)
	assert.Equal(t, domain.KindRateLimited, result.Error.Kind)
	assert.Equal(t, "E2429", result.Error.Code)

	result = reg.Dispatch(context.Background(), domain.ToolCall{Name: "fail.plain"})
	require.False(t, result.OK)
	assert.Equal(t, domain.KindUpstreamInternal, result.Error.Kind)
}

func TestDispatch_PanicBecomesEnvelope(t *testing.T) {
	reg := NewRegistry(testLogger(), nil)
	require.NoError(t, reg.Register(&domain.ToolDescriptor{
		Name: "boom",
		Handler: domain.HandlerFunc(func(_ context.Context, _ domain.ToolCall) (map[string]any, error) {
			panic("unexpected nil")
		}),
	}))

	var result domain.ToolResult
	assert.NotPanics(t, func() {
		result = reg.Dispatch(context.Background(), domain.ToolCall{Name: "boom"})
	})
	require.False(t, result.OK)
	assert.Equal(t, domain.KindUpstreamInternal, result.Error.Kind)
	assert.NotEmpty(t, result.RequestID)
}

func TestDispatch_FreshRequestIDPerCall(t *testing.T) {
	reg := NewRegistry(testLogger(), nil)
	require.NoError(t, reg.Register(echoTool("echo")))

	call := domain.ToolCall{Name: "echo", Input: map[string]any{"value": "x"}}
	a := reg.Dispatch(context.Background(), call)
	b := reg.Dispatch(context.Background(), call)
	assert.NotEqual(t, a.RequestID, b.RequestID)
}

func TestDispatch_DoesNotMutateCallerInput(t *testing.T) {
	reg := NewRegistry(testLogger(), nil)
	require.NoError(t, reg.Register(echoTool("echo")))

	input := map[string]any{"value": "x"}
	reg.Dispatch(context.Background(), domain.ToolCall{Name: "echo", Input: input})

	// Defaults were applied to a copy, not to the caller's map.
	_, present := input["count"]
	assert.False(t, present)
}

func TestDispatch_PublishesTelemetry(t *testing.T) {
	bus := NewEventBus(testLogger())
	ch, unsub := bus.Subscribe(SubscribeAll)
	defer unsub()

	reg := NewRegistry(testLogger(), bus)
	require.NoError(t, reg.Register(echoTool("echo")))

	result := reg.Dispatch(context.Background(), domain.ToolCall{Name: "echo", Input: map[string]any{"value": "x"}})
	require.True(t, result.OK)

	first := <-ch
	assert.Equal(t, EventTypeCall, first.Type)
	assert.Equal(t, "echo", first.Tool)
	assert.Equal(t, result.RequestID, first.RequestID)

	second := <-ch
	assert.Equal(t, EventTypeResult, second.Type)
}

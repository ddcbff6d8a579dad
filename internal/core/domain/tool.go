package domain

import (
	"context"

	"github.com/getkin/kin-openapi/openapi3"
)

// ToolCall is one inbound tool invocation. Created per call, never retained.
type ToolCall struct {
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResult is the uniform envelope every dispatch returns. Exactly one of
// Output/Error is set depending on OK.
type ToolResult struct {
	OK        bool           `json:"ok"`
	Output    map[string]any `json:"output"`
	Error     *ErrorDetail   `json:"error"`
	RequestID string         `json:"request_id"`
}

// Handler executes one tool call. A non-nil error is packaged into the
// ToolResult envelope by the dispatcher; handlers never see the envelope.
type Handler interface {
	Handle(ctx context.Context, call ToolCall) (map[string]any, error)
}

// HandlerFunc adapts a plain function to Handler, http.HandlerFunc style.
type HandlerFunc func(ctx context.Context, call ToolCall) (map[string]any, error)

func (f HandlerFunc) Handle(ctx context.Context, call ToolCall) (map[string]any, error) {
	return f(ctx, call)
}

// ToolDescriptor describes one registered tool. Immutable once registered.
// Input is an OpenAPI object schema; the dispatcher validates every call
// against it before the handler runs.
type ToolDescriptor struct {
	Name        string
	Description string
	Input       *openapi3.Schema
	Handler     Handler
}

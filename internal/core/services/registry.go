package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
	"github.com/scrapegate/scrapegate/internal/core/domain"
)

// ErrDuplicateTool is returned by Register when a tool name is already taken.
var ErrDuplicateTool = errors.New("tool already registered")

// Registry maps namespaced tool names to descriptors and dispatches calls.
// Registration happens once at startup; Dispatch treats the table as
// read-only, so no locking is needed on the hot path.
type Registry struct {
	logger *slog.Logger
	bus    *EventBus
	tools  map[string]*domain.ToolDescriptor
	order  []string
}

// NewRegistry creates an empty registry. Dispatch telemetry goes to bus; a
// nil bus disables it.
func NewRegistry(logger *slog.Logger, bus *EventBus) *Registry {
	return &Registry{
		logger: logger,
		bus:    bus,
		tools:  make(map[string]*domain.ToolDescriptor),
	}
}

// Register adds a tool. Names are unique; registering a taken name fails
// with ErrDuplicateTool.
func (r *Registry) Register(d *domain.ToolDescriptor) error {
	if d.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if d.Handler == nil {
		return fmt.Errorf("tool %q has no handler", d.Name)
	}
	if _, exists := r.tools[d.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, d.Name)
	}
	r.tools[d.Name] = d
	r.order = append(r.order, d.Name)
	return nil
}

// Get returns a descriptor by name.
func (r *Registry) Get(name string) (*domain.ToolDescriptor, bool) {
	d, ok := r.tools[name]
	return d, ok
}

// List returns all descriptors in registration order.
func (r *Registry) List() []*domain.ToolDescriptor {
	out := make([]*domain.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Dispatch runs one tool call and always returns a well-formed ToolResult.
// This is the outermost failure boundary: unknown names, schema violations,
// handler errors and handler panics all come back as ok=false envelopes,
// never as a raised error.
func (r *Registry) Dispatch(ctx context.Context, call domain.ToolCall) (result domain.ToolResult) {
	requestID := uuid.NewString()
	result.RequestID = requestID
	r.publish(Event{RequestID: requestID, Tool: call.Name, Type: EventTypeCall})

	// Registered first so it observes the result after panic recovery.
	defer func() {
		evt := Event{RequestID: requestID, Tool: call.Name, Type: EventTypeResult}
		if !result.OK {
			evt.Type = EventTypeError
			if result.Error != nil {
				evt.Data = result.Error.Code
			}
		}
		r.publish(evt)
	}()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool handler panicked", "tool", call.Name, "request_id", requestID, "panic", rec)
			result = domain.ToolResult{
				RequestID: requestID,
				Error:     domain.NewError(domain.KindUpstreamInternal, fmt.Sprintf("tool %q panicked: %v", call.Name, rec), nil),
			}
		}
	}()

	d, ok := r.tools[call.Name]
	if !ok {
		result.Error = domain.NewError(domain.KindNotFound, fmt.Sprintf("unknown tool %q", call.Name), map[string]any{"tool": call.Name})
		return result
	}

	input, detail := prepareInput(d.Input, call.Input)
	if detail != nil {
		result.Error = detail
		return result
	}
	call.Input = input

	output, err := d.Handler.Handle(ctx, call)
	if err != nil {
		result.Error = domain.AsErrorDetail(err)
		return result
	}
	result.OK = true
	result.Output = output
	return result
}

func (r *Registry) publish(e Event) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}

// prepareInput applies schema defaults to a copy of the input and validates
// the result. Validation runs before the handler, so a rejected call has no
// side effects.
func prepareInput(schema *openapi3.Schema, input map[string]any) (map[string]any, *domain.ErrorDetail) {
	merged := make(map[string]any, len(input))
	for k, v := range input {
		merged[k] = v
	}
	if schema == nil {
		return merged, nil
	}

	for name, ref := range schema.Properties {
		if ref == nil || ref.Value == nil {
			continue
		}
		if _, present := merged[name]; !present && ref.Value.Default != nil {
			merged[name] = ref.Value.Default
		}
	}

	if err := schema.VisitJSON(merged); err != nil {
		details := map[string]any{}
		var schemaErr *openapi3.SchemaError
		if errors.As(err, &schemaErr) {
			details["field"] = schemaErr.JSONPointer()
			details["reason"] = schemaErr.Reason
		}
		return nil, domain.NewError(domain.KindValidation, fmt.Sprintf("invalid input: %v", err), details)
	}
	return merged, nil
}

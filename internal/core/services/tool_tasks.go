package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	scrapecatalog "github.com/scrapegate/scrapegate/internal/catalog"
	"github.com/scrapegate/scrapegate/internal/core/domain"
)

// TaskTools exposes the structured-extraction task lifecycle as agent tools:
// discover extractors, submit jobs, poll them, and fetch results.
type TaskTools struct {
	logger  *slog.Logger
	manager *TaskManager
	catalog *scrapecatalog.Catalog

	defaultMaxWait time.Duration
}

func NewTaskTools(logger *slog.Logger, manager *TaskManager, cat *scrapecatalog.Catalog, defaultMaxWait time.Duration) *TaskTools {
	if defaultMaxWait <= 0 {
		defaultMaxWait = 300 * time.Second
	}
	return &TaskTools{logger: logger, manager: manager, catalog: cat, defaultMaxWait: defaultMaxWait}
}

func (t *TaskTools) Descriptors() []*domain.ToolDescriptor {
	listInput := objectSchema(nil, map[string]*openapi3.Schema{
		"group":   stringProp("Restrict to one extractor group, e.g. \"amazon\"."),
		"keyword": stringProp("Case-insensitive substring filter on tool key and spider name."),
		"limit":   intProp("Page size.", 50),
		"offset":  intProp("Page offset.", 0),
	})

	runInput := objectSchema([]string{"tool_key"}, map[string]*openapi3.Schema{
		"tool_key":         stringProp("Catalog key of the extractor to run, e.g. \"amazon.product_by_url\"."),
		"params":           paramsObjectSchema(),
		"wait":             boolProp("Block until the task reaches a terminal state.", true),
		"max_wait_seconds": t.maxWaitProp("Wait budget in seconds when wait is true."),
		"file_type":        enumProp("Result file type fetched on success.", "json", "csv"),
	})

	batchRunInput := objectSchema([]string{"tool_key", "items"}, map[string]*openapi3.Schema{
		"tool_key":         stringProp("Catalog key of the extractor to run for every item."),
		"items":            itemsArraySchema(),
		"wait":             boolProp("Block until each task reaches a terminal state.", true),
		"max_wait_seconds": t.maxWaitProp("Wait budget in seconds per item when wait is true."),
		"concurrency":      intProp("Parallel submissions to run at once.", DefaultBatchConcurrency),
	})

	statusInput := objectSchema([]string{"task_id"}, map[string]*openapi3.Schema{
		"task_id": stringProp("Task ID returned by tasks.run."),
	})

	waitInput := objectSchema([]string{"task_id"}, map[string]*openapi3.Schema{
		"task_id":          stringProp("Task ID returned by tasks.run."),
		"max_wait_seconds": t.maxWaitProp("Wait budget in seconds. 0 performs a single status check."),
	})

	resultInput := objectSchema([]string{"task_id"}, map[string]*openapi3.Schema{
		"task_id":   stringProp("Task ID returned by tasks.run."),
		"file_type": enumProp("Result file type.", "json", "csv"),
	})

	return []*domain.ToolDescriptor{
		{
			Name:        "tasks.list",
			Description: "List available structured extractors with their parameter schemas.",
			Input:       listInput,
			Handler:     domain.HandlerFunc(t.list),
		},
		{
			Name:        "tasks.run",
			Description: "Submit one structured-extraction task, optionally waiting for its result.",
			Input:       runInput,
			Handler:     domain.HandlerFunc(t.run),
		},
		{
			Name:        "tasks.batch_run",
			Description: "Submit one extractor against many inputs concurrently with per-item error isolation.",
			Input:       batchRunInput,
			Handler:     domain.HandlerFunc(t.batchRun),
		},
		{
			Name:        "tasks.status",
			Description: "Check the current state of a task with a single upstream round trip.",
			Input:       statusInput,
			Handler:     domain.HandlerFunc(t.status),
		},
		{
			Name:        "tasks.wait",
			Description: "Poll a task until it reaches a terminal state or the wait budget runs out.",
			Input:       waitInput,
			Handler:     domain.HandlerFunc(t.wait),
		},
		{
			Name:        "tasks.result",
			Description: "Fetch the download handle for a finished task.",
			Input:       resultInput,
			Handler:     domain.HandlerFunc(t.result),
		},
		{
			Name:        "tasks.cancel",
			Description: "Not supported by the upstream platform; always returns a validation error.",
			Input:       statusInput,
			Handler:     domain.HandlerFunc(t.cancel),
		},
	}
}

func itemsArraySchema() *openapi3.Schema {
	s := openapi3.NewArraySchema()
	s.Description = "Parameter objects, one per task."
	s.Items = openapi3.NewSchemaRef("", openapi3.NewObjectSchema())
	return s
}

func paramsObjectSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	s.Description = "Extractor parameters. Required fields come from tasks.list."
	return s
}

// maxWaitProp advertises the configured wait budget as the schema default so
// the value injected for absent keys matches what the manager would use.
func (t *TaskTools) maxWaitProp(description string) *openapi3.Schema {
	return intProp(description, int(t.defaultMaxWait/time.Second))
}

func (t *TaskTools) list(_ context.Context, call domain.ToolCall) (map[string]any, error) {
	group := inputString(call.Input, "group", "")
	keyword := inputString(call.Input, "keyword", "")
	limit := inputInt(call.Input, "limit", 50)
	offset := inputInt(call.Input, "offset", 0)

	entries, total := t.catalog.List(group, keyword, limit, offset)
	tools := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		fields := make(map[string]any, len(e.Fields))
		for name, f := range e.Fields {
			fields[name] = map[string]any{"type": f.Type, "required": f.Required, "default": f.Default}
		}
		tools = append(tools, map[string]any{
			"tool_key":    e.ToolKey,
			"group":       e.Group,
			"spider_name": e.SpiderName,
			"input_key":   e.InputKey,
			"fields":      fields,
		})
	}
	return map[string]any{
		"tools":  tools,
		"total":  total,
		"groups": t.catalog.Groups(),
	}, nil
}

func (t *TaskTools) run(ctx context.Context, call domain.ToolCall) (map[string]any, error) {
	toolKey := inputString(call.Input, "tool_key", "")
	params := inputMap(call.Input, "params")
	return t.runOne(ctx, toolKey, params,
		inputBool(call.Input, "wait", true),
		t.waitBudget(call.Input),
		inputString(call.Input, "file_type", "json"),
	)
}

func (t *TaskTools) batchRun(ctx context.Context, call domain.ToolCall) (map[string]any, error) {
	toolKey := inputString(call.Input, "tool_key", "")
	raw, ok := call.Input["items"].([]any)
	if !ok || len(raw) == 0 {
		return nil, domain.NewError(domain.KindValidation, "items must be a non-empty array of parameter objects", nil)
	}
	items := make([]map[string]any, 0, len(raw))
	for i, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, domain.NewError(domain.KindValidation, "items entries must be objects", map[string]any{"index": i})
		}
		items = append(items, m)
	}

	wait := inputBool(call.Input, "wait", true)
	budget := t.waitBudget(call.Input)
	concurrency := ClampConcurrency(inputInt(call.Input, "concurrency", DefaultBatchConcurrency))

	results := RunBatch(ctx, items, concurrency, func(ctx context.Context, params map[string]any) (map[string]any, error) {
		return t.runOne(ctx, toolKey, params, wait, budget, "json")
	})
	return BatchOutput(results), nil
}

func (t *TaskTools) runOne(ctx context.Context, toolKey string, params map[string]any, wait bool, budget time.Duration, fileType string) (map[string]any, error) {
	taskID, err := t.manager.Submit(ctx, toolKey, params)
	if err != nil {
		return nil, err
	}
	out := map[string]any{"task_id": taskID, "tool_key": toolKey}
	if !wait {
		out["status"] = string(domain.TaskSubmitted)
		return out, nil
	}

	state, err := t.manager.Wait(ctx, taskID, budget)
	if err != nil {
		return nil, err
	}
	out["status"] = string(state)
	if state == domain.TaskSucceeded {
		ref, err := t.manager.Result(ctx, taskID, fileType)
		if err != nil {
			return nil, err
		}
		out["download_url"] = ref
	}
	if state == domain.TaskTimedOut {
		out["hint"] = "task still running; poll with tasks.wait or tasks.status"
	}
	return out, nil
}

func (t *TaskTools) status(ctx context.Context, call domain.ToolCall) (map[string]any, error) {
	taskID := inputString(call.Input, "task_id", "")
	state, err := t.manager.Status(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"task_id": taskID, "status": string(state), "terminal": state.Terminal()}, nil
}

func (t *TaskTools) wait(ctx context.Context, call domain.ToolCall) (map[string]any, error) {
	taskID := inputString(call.Input, "task_id", "")
	state, err := t.manager.Wait(ctx, taskID, t.waitBudget(call.Input))
	if err != nil {
		return nil, err
	}
	out := map[string]any{"task_id": taskID, "status": string(state), "terminal": state.Terminal()}
	if state == domain.TaskTimedOut {
		out["hint"] = "task still running; call tasks.wait again to keep polling"
	}
	return out, nil
}

func (t *TaskTools) result(ctx context.Context, call domain.ToolCall) (map[string]any, error) {
	taskID := inputString(call.Input, "task_id", "")
	fileType := inputString(call.Input, "file_type", "json")
	ref, err := t.manager.Result(ctx, taskID, fileType)
	if err != nil {
		return nil, err
	}
	return map[string]any{"task_id": taskID, "file_type": fileType, "download_url": ref}, nil
}

func (t *TaskTools) cancel(_ context.Context, call domain.ToolCall) (map[string]any, error) {
	return nil, domain.NewError(domain.KindValidation, "task cancellation is not supported by the upstream platform", map[string]any{
		"task_id": inputString(call.Input, "task_id", ""),
	})
}

// waitBudget reads max_wait_seconds, falling back to the configured default.
// A literal 0 means "one status check", so absence must be distinguishable.
func (t *TaskTools) waitBudget(input map[string]any) time.Duration {
	if _, present := input["max_wait_seconds"]; !present {
		return t.defaultMaxWait
	}
	return time.Duration(inputInt(input, "max_wait_seconds", 0)) * time.Second
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	scrapecatalog "github.com/scrapegate/scrapegate/internal/catalog"
	"github.com/scrapegate/scrapegate/internal/core/domain"
	"github.com/scrapegate/scrapegate/internal/core/ports"
)

// TaskManager drives the submit/status/wait/result lifecycle of structured
// extraction jobs. The split into four small operations (rather than one
// blocking call) lets batches interleave many polling cycles and lets each
// caller pick its own timeout policy.
type TaskManager struct {
	logger  *slog.Logger
	client  ports.UpstreamClient
	catalog *scrapecatalog.Catalog
	poll    time.Duration

	// High-water marks for states observed by this manager, so repeated
	// status calls never regress from a terminal state even if the upstream
	// momentarily reports something stale.
	mu   sync.Mutex
	seen map[string]domain.TaskState
}

// NewTaskManager wires a manager over the upstream client and catalog.
// pollInterval is the fixed sleep between status checks inside Wait.
func NewTaskManager(logger *slog.Logger, client ports.UpstreamClient, cat *scrapecatalog.Catalog, pollInterval time.Duration) *TaskManager {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &TaskManager{
		logger:  logger,
		client:  client,
		catalog: cat,
		poll:    pollInterval,
		seen:    make(map[string]domain.TaskState),
	}
}

// Submit creates one upstream job for toolKey and returns its task ID.
// Unknown tool keys fail with a validation error before any network call.
// A transient network failure on submission is retried exactly once.
func (m *TaskManager) Submit(ctx context.Context, toolKey string, params map[string]any) (string, error) {
	entry, ok := m.catalog.Get(toolKey)
	if !ok {
		return "", domain.NewError(domain.KindValidation, fmt.Sprintf("unknown tool key %q", toolKey), map[string]any{
			"tool_key": toolKey,
			"tip":      "use tasks.list to discover valid keys",
		})
	}

	if detail := missingFields(entry, params); detail != nil {
		return "", detail
	}

	sub := ports.TaskSubmission{
		FileName:   fmt.Sprintf("%s_%s", entry.SpiderID, uuid.NewString()[:8]),
		SpiderID:   entry.SpiderID,
		SpiderName: entry.SpiderName,
		Params:     withFieldDefaults(entry, params),
	}

	taskID, err := m.client.SubmitTask(ctx, sub)
	if err != nil {
		if d := domain.AsErrorDetail(err); d.Kind == domain.KindNetwork {
			m.logger.Warn("task submission hit a network error, retrying once", "tool_key", toolKey, "error", err)
			taskID, err = m.client.SubmitTask(ctx, sub)
		}
	}
	if err != nil {
		return "", err
	}

	m.observe(taskID, domain.TaskSubmitted)
	m.logger.Info("task submitted", "task_id", taskID, "tool_key", toolKey)
	return taskID, nil
}

// Status fetches the current state of a task in a single round trip.
func (m *TaskManager) Status(ctx context.Context, taskID string) (domain.TaskState, error) {
	raw, err := m.client.TaskStatus(ctx, taskID)
	if err != nil {
		return "", err
	}
	return m.observe(taskID, domain.ParseTaskState(raw)), nil
}

// Wait polls Status on a fixed interval until the task reaches a terminal
// state or maxWait elapses, in which case it returns TIMED_OUT. TIMED_OUT is
// a normal outcome, not an error: polling stops but the upstream job keeps
// running, and a later Status call can still observe the terminal state.
//
// A zero (or negative) budget still performs exactly one status check and
// returns the observed state, or TIMED_OUT when that state is non-terminal.
func (m *TaskManager) Wait(ctx context.Context, taskID string, maxWait time.Duration) (domain.TaskState, error) {
	deadline := time.Now().Add(maxWait)

	for {
		state, err := m.Status(ctx, taskID)
		if err != nil {
			return "", err
		}
		if state.Terminal() {
			return state, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			m.logger.Info("wait budget exhausted", "task_id", taskID, "last_state", state)
			return domain.TaskTimedOut, nil
		}

		sleep := m.poll
		if sleep > remaining {
			sleep = remaining
		}
		select {
		case <-ctx.Done():
			return domain.TaskTimedOut, nil
		case <-time.After(sleep):
		}
	}
}

// Result returns the download handle for a finished task. A task this
// manager has seen terminate as FAILED is rejected without a round trip.
func (m *TaskManager) Result(ctx context.Context, taskID, fileType string) (string, error) {
	if fileType == "" {
		fileType = "json"
	}

	m.mu.Lock()
	state := m.seen[taskID]
	m.mu.Unlock()
	if state == domain.TaskFailed {
		return "", domain.NewError(domain.KindUpstreamInternal, "task terminated as FAILED; no result to fetch", map[string]any{"task_id": taskID})
	}

	ref, err := m.client.TaskResult(ctx, taskID, fileType)
	if err != nil {
		return "", err
	}
	return ref, nil
}

// observe folds a newly observed state into the high-water mark for taskID
// and returns the effective state.
func (m *TaskManager) observe(taskID string, state domain.TaskState) domain.TaskState {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.seen[taskID]
	if ok && prev.Rank() > state.Rank() {
		return prev
	}
	m.seen[taskID] = state
	return state
}

func missingFields(entry scrapecatalog.Entry, params map[string]any) *domain.ErrorDetail {
	var missing []string
	for name, f := range entry.Fields {
		if !f.Required {
			continue
		}
		v, present := params[name]
		if !present || v == nil || v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return domain.NewError(domain.KindValidation, "missing required fields for tool params", map[string]any{
		"tool_key":       entry.ToolKey,
		"missing_fields": missing,
	})
}

func withFieldDefaults(entry scrapecatalog.Entry, params map[string]any) map[string]any {
	merged := make(map[string]any, len(params))
	for k, v := range params {
		merged[k] = v
	}
	for name, f := range entry.Fields {
		if _, present := merged[name]; !present && f.Default != nil {
			merged[name] = f.Default
		}
	}
	return merged
}

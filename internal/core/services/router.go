package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	scrapecatalog "github.com/scrapegate/scrapegate/internal/catalog"
	"github.com/scrapegate/scrapegate/internal/core/domain"
	"github.com/scrapegate/scrapegate/internal/core/ports"
)

// SmartScrapeRequest is one smart-routed scrape.
type SmartScrapeRequest struct {
	URL              string
	PreferStructured bool
	MaxWait          time.Duration
	FallbackFormat   string // "markdown" (default) or "html"
	MaxChars         int
}

// SmartRouter classifies a URL against the catalog, attempts the matching
// structured task, and falls back to the generic unlock-and-extract path when
// nothing matches or the structured attempt fails. The caller always gets
// some content for any URL, at the cost of at most one extra round trip.
type SmartRouter struct {
	logger  *slog.Logger
	tasks   *TaskManager
	client  ports.UpstreamClient
	catalog *scrapecatalog.Catalog
}

// NewSmartRouter wires the router over the task manager and upstream client.
func NewSmartRouter(logger *slog.Logger, tasks *TaskManager, client ports.UpstreamClient, cat *scrapecatalog.Catalog) *SmartRouter {
	return &SmartRouter{logger: logger, tasks: tasks, client: client, catalog: cat}
}

// Scrape runs the two-tier routing state machine, terminal on first success.
func (r *SmartRouter) Scrape(ctx context.Context, req SmartScrapeRequest) (map[string]any, error) {
	decision := domain.RouteDecision{Confidence: domain.RouteFallback, Reason: "no structured task matched the URL"}
	var tried []map[string]any

	entry, matched := r.catalog.Match(req.URL)
	if matched && req.PreferStructured {
		decision.MatchedToolKey = entry.ToolKey
		out, reason := r.tryStructured(ctx, entry, req)
		if out != nil {
			decision.Confidence = domain.RouteStructured
			decision.Reason = fmt.Sprintf("URL matched structured task %s", entry.ToolKey)
			out["route"] = decision.AsMap()
			return out, nil
		}
		decision.Reason = reason
		tried = append(tried, map[string]any{"tool_key": entry.ToolKey, "reason": reason})
		r.logger.Info("structured attempt fell back", "url", req.URL, "tool_key", entry.ToolKey, "reason", reason)
	} else if matched {
		decision.MatchedToolKey = entry.ToolKey
		decision.Reason = "structured routing disabled by caller"
	}

	out, err := r.fallback(ctx, req)
	if err != nil {
		// A failing fallback is a normal classified error, never swallowed.
		return nil, err
	}
	out["route"] = decision.AsMap()
	if len(tried) > 0 {
		out["tried"] = tried
	}
	return out, nil
}

// tryStructured submits the matched task and waits for it. Returns the output
// on success, or a nil output and the reason the router should fall back.
func (r *SmartRouter) tryStructured(ctx context.Context, entry scrapecatalog.Entry, req SmartScrapeRequest) (map[string]any, string) {
	params := map[string]any{entry.InputKey: req.URL}

	taskID, err := r.tasks.Submit(ctx, entry.ToolKey, params)
	if err != nil {
		return nil, fmt.Sprintf("structured submit failed: %v", err)
	}

	state, err := r.tasks.Wait(ctx, taskID, req.MaxWait)
	if err != nil {
		return nil, fmt.Sprintf("structured wait failed: %v", err)
	}
	switch state {
	case domain.TaskSucceeded:
	case domain.TaskTimedOut:
		return nil, fmt.Sprintf("structured task timed out after %s", req.MaxWait)
	default:
		return nil, fmt.Sprintf("structured task ended %s", state)
	}

	ref, err := r.tasks.Result(ctx, taskID, "json")
	if err != nil {
		return nil, fmt.Sprintf("structured result fetch failed: %v", err)
	}

	return map[string]any{
		"path":         "structured",
		"tool_key":     entry.ToolKey,
		"task_id":      taskID,
		"status":       string(state),
		"download_url": ref,
	}, ""
}

func (r *SmartRouter) fallback(ctx context.Context, req SmartScrapeRequest) (map[string]any, error) {
	res, err := r.client.Scrape(ctx, ports.ScrapeRequest{
		URL:          req.URL,
		OutputFormat: "html",
		JSRender:     true,
	})
	if err != nil {
		return nil, err
	}

	out := map[string]any{"path": "fallback", "url": req.URL}
	if req.FallbackFormat == "html" {
		out["html"] = Truncate(res.HTML, req.MaxChars)
	} else {
		out["markdown"] = Truncate(HTMLToMarkdown(res.HTML), req.MaxChars)
	}
	return out, nil
}
